// README: Movement ticker; steps every live vehicle toward its target at a fixed rate.
package motion

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Stepper is anything that can advance one movement tick.
type Stepper interface {
	Step(speed float64)
}

// Fleet lists the steppers alive at the moment of the call.
type Fleet func() []Stepper

type Mover struct {
	fleet Fleet
	tick  time.Duration
	speed float64
	log   zerolog.Logger
}

func NewMover(fleet Fleet, tick time.Duration, speed float64, log zerolog.Logger) *Mover {
	return &Mover{
		fleet: fleet,
		tick:  tick,
		speed: speed,
		log:   log.With().Str("component", "motion").Logger(),
	}
}

// Run steps the fleet every tick until ctx is cancelled.
func (m *Mover) Run(ctx context.Context) error {
	if m.tick <= 0 {
		m.log.Warn().Msg("movement disabled: non-positive tick")
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()
	m.log.Debug().Dur("tick", m.tick).Float64("speed", m.speed).Msg("mover started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.StepAll()
		}
	}
}

// StepAll advances every vehicle once.
func (m *Mover) StepAll() {
	for _, s := range m.fleet() {
		s.Step(m.speed)
	}
}
