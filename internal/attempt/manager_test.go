package attempt

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestManagerReusesControllerPerClientQuiz(t *testing.T) {
	h := newHarness(10)
	m := NewManager(
		func(string) Store { return h.store },
		h.source, h.sink, h.registrar, h.checker,
		zerolog.Nop(), h.clock.now,
	)

	a := m.GetOrCreate("sid-1", h.quiz)
	b := m.GetOrCreate("sid-1", h.quiz)
	if a != b {
		t.Fatalf("expected the same controller for one client+quiz pair")
	}

	other := m.GetOrCreate("sid-2", h.quiz)
	if other == a {
		t.Fatalf("expected distinct controllers per client")
	}
	if m.Count() != 2 {
		t.Fatalf("count = %d, want 2", m.Count())
	}
}

func TestManagerSweepFiresExpiryAndEvicts(t *testing.T) {
	h := newHarness(1)
	m := NewManager(
		func(string) Store { return h.store },
		h.source, h.sink, h.registrar, h.checker,
		zerolog.Nop(), h.clock.now,
	)

	c := m.GetOrCreate("sid-1", h.quiz)
	if _, err := c.BeginEntry(); err != nil {
		t.Fatalf("BeginEntry: %v", err)
	}
	if err := c.StartAttempt(context.Background(), Identity{FirstName: "Ada", LastName: "Lovelace"}); err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	h.clock.advance(61 * time.Second)
	m.sweep(context.Background())

	if got := h.sink.callCount(); got != 1 {
		t.Fatalf("sink calls = %d, want 1 after expiry sweep", got)
	}
	if c.Phase() != PhaseSubmitted {
		t.Fatalf("phase = %s, want SUBMITTED", c.Phase())
	}

	// Terminal controllers linger briefly, then get evicted.
	m.sweep(context.Background())
	if m.Count() != 1 {
		t.Fatalf("controller evicted too early")
	}
	h.clock.advance(evictAfter + time.Minute)
	m.sweep(context.Background())
	if m.Count() != 0 {
		t.Fatalf("terminal controller not evicted")
	}
}
