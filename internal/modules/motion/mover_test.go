package motion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingStepper struct {
	mu     sync.Mutex
	steps  int
	speeds []float64
}

func (c *countingStepper) Step(speed float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps++
	c.speeds = append(c.speeds, speed)
}

func (c *countingStepper) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.steps
}

func TestStepAll_UsesConfiguredSpeed(t *testing.T) {
	a, b := &countingStepper{}, &countingStepper{}
	m := NewMover(func() []Stepper { return []Stepper{a, b} }, time.Millisecond, 1.5, zerolog.Nop())

	m.StepAll()
	m.StepAll()

	for _, s := range []*countingStepper{a, b} {
		if s.count() != 2 {
			t.Fatalf("steps = %d, want 2", s.count())
		}
		for _, sp := range s.speeds {
			if sp != 1.5 {
				t.Fatalf("speed = %v, want 1.5", sp)
			}
		}
	}
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	s := &countingStepper{}
	m := NewMover(func() []Stepper { return []Stepper{s} }, time.Millisecond, 1, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for s.count() < 5 {
		if time.Now().After(deadline) {
			t.Fatal("mover did not tick")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
	after := s.count()
	time.Sleep(5 * time.Millisecond)
	if s.count() != after {
		t.Fatal("mover kept stepping after cancel")
	}
}

func TestRun_FleetReadEachTick(t *testing.T) {
	var mu sync.Mutex
	var fleet []Stepper
	late := &countingStepper{}
	m := NewMover(func() []Stepper {
		mu.Lock()
		defer mu.Unlock()
		return append([]Stepper(nil), fleet...)
	}, time.Millisecond, 1, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	time.Sleep(3 * time.Millisecond)
	mu.Lock()
	fleet = append(fleet, late)
	mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for late.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("vehicle added after start was never stepped")
		}
		time.Sleep(time.Millisecond)
	}
}
