package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/btorressz/otc-pool/core/events"
	"github.com/btorressz/otc-pool/core/types"
	"github.com/btorressz/otc-pool/native/otc"
)

type poolMetrics struct {
	transitions *prometheus.CounterVec
	settlements *prometheus.CounterVec
}

var (
	poolMetricsOnce sync.Once
	poolRegistry    *poolMetrics
)

// Pool returns the lazily-initialised metrics registry tracking pool state
// transitions.
func Pool() *poolMetrics {
	poolMetricsOnce.Do(func() {
		poolRegistry = &poolMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "otc",
				Subsystem: "pool",
				Name:      "transitions_total",
				Help:      "Count of committed pool state transitions segmented by event type.",
			}, []string{"event"}),
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "otc",
				Subsystem: "pool",
				Name:      "settlements_total",
				Help:      "Count of filled swap offers segmented by taker asset.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(poolRegistry.transitions, poolRegistry.settlements)
	})
	return poolRegistry
}

// RecordTransition increments the transition counter for an event type.
func (m *poolMetrics) RecordTransition(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(eventType)
	if normalized == "" {
		normalized = "unknown"
	}
	m.transitions.WithLabelValues(normalized).Inc()
}

// RecordSettlement increments the settlement counter for a taker asset.
func (m *poolMetrics) RecordSettlement(asset string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToUpper(asset))
	if normalized == "" {
		normalized = "UNKNOWN"
	}
	m.settlements.WithLabelValues(normalized).Inc()
}

// MetricsEmitter adapts the metrics registry to the engine's event stream so
// every committed transition is counted. It can wrap another emitter.
type MetricsEmitter struct {
	Next events.Emitter
}

type eventPayload interface {
	Event() *types.Event
}

// Emit implements events.Emitter.
func (m MetricsEmitter) Emit(evt events.Event) {
	if evt != nil {
		Pool().RecordTransition(evt.EventType())
		if evt.EventType() == otc.EventTypeOfferFilled {
			if payload, ok := evt.(eventPayload); ok {
				if inner := payload.Event(); inner != nil {
					Pool().RecordSettlement(inner.Attributes["takerAsset"])
				}
			}
		}
	}
	if m.Next != nil {
		m.Next.Emit(evt)
	}
}
