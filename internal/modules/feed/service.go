// README: Feed publisher; periodically mirrors the simulation state to the store.
package feed

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ridesim/internal/modules/simulation"
)

type StateSource interface {
	State() simulation.State
}

type Writer interface {
	Write(ctx context.Context, f Frame) error
	Clear(ctx context.Context) error
}

type Service struct {
	source   StateSource
	store    Writer
	interval time.Duration
	log      zerolog.Logger
	seq      atomic.Uint64
	now      func() time.Time
}

func NewService(source StateSource, store Writer, interval time.Duration, log zerolog.Logger) *Service {
	return &Service{
		source:   source,
		store:    store,
		interval: interval,
		log:      log.With().Str("component", "feed").Logger(),
		now:      time.Now,
	}
}

// PublishOnce writes the current state as the next frame.
func (s *Service) PublishOnce(ctx context.Context) error {
	return s.store.Write(ctx, Frame{
		Seq:   s.seq.Add(1),
		At:    s.now().UTC(),
		State: s.source.State(),
	})
}

// Run publishes every interval until ctx is cancelled. Write failures are
// logged and retried on the next tick.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	failing := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := s.PublishOnce(ctx)
			switch {
			case err != nil && !failing:
				s.log.Warn().Err(err).Msg("feed write failed")
				failing = true
			case err == nil && failing:
				s.log.Info().Uint64("seq", s.seq.Load()).Msg("feed recovered")
				failing = false
			}
		}
	}
}

// Clear drops the mirrored state, typically after a reset.
func (s *Service) Clear(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.log.Warn().Err(err).Msg("feed clear failed")
	}
}
