package events

// Event is a structured record of a committed pool state transition.
type Event interface {
	EventType() string
}

// Emitter delivers events to downstream consumers (metrics, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies Emitter while discarding everything. Engines default
// to it so event wiring stays optional.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
