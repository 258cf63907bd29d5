package common

import (
	"errors"
	"testing"
)

type stubPauses map[string]bool

func (s stubPauses) IsPaused(module string) bool { return s[module] }

func TestGuard(t *testing.T) {
	if err := Guard(nil, "otc"); err != nil {
		t.Fatalf("nil view must not pause: %v", err)
	}
	if err := Guard(stubPauses{}, ""); err != nil {
		t.Fatalf("empty module must not pause: %v", err)
	}
	if err := Guard(stubPauses{"otc": false}, "otc"); err != nil {
		t.Fatalf("unpaused module rejected: %v", err)
	}
	if err := Guard(stubPauses{"otc": true}, "otc"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(stubPauses{"otc": true}, "lending"); err != nil {
		t.Fatalf("pause leaked across modules: %v", err)
	}
}
