package common

import "errors"

// ErrModulePaused is returned when the host has halted a native module.
var ErrModulePaused = errors.New("module paused")

// PauseView exposes the host's module pause switches. A nil view means no
// module is ever paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the named module is paused on the host.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
