// README: Vehicle agent loop: depart when ready, otherwise match, travel and board, otherwise patrol.
package vehicle

import (
	"context"
	"math/rand/v2"
	"time"

	"ridesim/internal/modules/pricing"
)

const patrolRadius = 10

// Run polls every PollInterval until ctx is cancelled. An in-flight ride is
// abandoned on cancellation; matched passengers observe the same
// cancellation through their own context.
func (v *Vehicle) Run(ctx context.Context) error {
	v.log.Info().Msg("started, searching for passengers")
	for {
		if err := sleep(ctx, v.cfg.PollInterval); err != nil {
			v.log.Debug().Msg("stopped")
			return err
		}
		if err := v.tick(ctx); err != nil {
			v.log.Debug().Err(err).Msg("stopped mid-trip")
			return err
		}
	}
}

// tick runs one iteration of the ride lifecycle.
func (v *Vehicle) tick(ctx context.Context) error {
	if v.consumeDepartDue() || v.IsReadyToDepart() {
		return v.startRide(ctx)
	}

	p, ok := v.registry.MatchFor(v)
	if !ok {
		v.patrol()
		return nil
	}

	v.log.Info().Str("passenger_id", string(p.ID)).Msg("assigned passenger, moving to pickup")
	if err := v.travel(ctx); err != nil {
		return err
	}
	if err := p.SignalPickedUp(); err != nil {
		v.log.Error().Err(err).Str("passenger_id", string(p.ID)).Msg("pickup signalled twice")
	}
	v.log.Info().Str("passenger_id", string(p.ID)).Msg("reached passenger, boarded")

	ready := v.IsReadyToDepart()
	v.mu.Lock()
	v.heading = nil
	if ready {
		v.departDue = true
	} else {
		v.setStatusLocked(StatusAvailable)
	}
	v.mu.Unlock()
	return nil
}

func (v *Vehicle) consumeDepartDue() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	due := v.departDue
	v.departDue = false
	return due
}

// startRide commits the current load, drives to a destination, waits for
// the riders to get out and settles the fare. Calling it while already on a
// ride is a no-op.
func (v *Vehicle) startRide(ctx context.Context) error {
	v.mu.Lock()
	if v.status == StatusOnRide {
		v.mu.Unlock()
		return nil
	}
	v.setStatusLocked(StatusOnRide)
	load := len(v.riders)
	v.target = randomGridPoint()
	v.mu.Unlock()

	v.log.Info().Int("load", load).Msg("ride started")
	if err := v.travel(ctx); err != nil {
		return err
	}

	v.mu.Lock()
	v.setMessageLocked("Arrived at destination. Dropping off...")
	v.mu.Unlock()
	v.log.Info().Dur("settle", v.cfg.SettleDelay).Msg("reached destination, dropping off")
	if err := sleep(ctx, v.cfg.SettleDelay); err != nil {
		return err
	}

	v.dropOff()
	return nil
}

// dropOff records every rider as served, books the fare and frees the
// vehicle. The registry is called without holding the vehicle lock.
func (v *Vehicle) dropOff() {
	riders := v.Riders()
	for _, p := range riders {
		v.registry.RecordDropOff(p)
	}
	fare := pricing.Revenue(len(riders))

	v.mu.Lock()
	v.earnings = v.earnings.Add(fare)
	v.riders = nil
	v.setStatusLocked(StatusAvailable)
	seq := v.setMessageLocked("Dropped off passenger(s)")
	earnings := v.earnings
	v.mu.Unlock()

	v.log.Info().
		Int("dropped", len(riders)).
		Int64("fare", fare.Amount).
		Int64("earnings", earnings.Amount).
		Msg("passengers dropped, now empty")
	v.clearMessageAfter(seq, v.cfg.MessageTTL)
}

// clearMessageAfter blanks the advisory message unless a newer one replaced it.
func (v *Vehicle) clearMessageAfter(seq uint64, ttl time.Duration) {
	time.AfterFunc(ttl, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.messageSeq == seq {
			v.message = ""
		}
	})
}

// patrol occasionally sends an idle vehicle that has reached its target to a
// new intersection. It has no effect on the ride lifecycle.
func (v *Vehicle) patrol() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.status != StatusAvailable || v.cfg.PatrolProbability <= 0 {
		return
	}
	dx, dy := v.target.X-v.position.X, v.target.Y-v.position.Y
	if dx < -patrolRadius || dx > patrolRadius || dy < -patrolRadius || dy > patrolRadius {
		return
	}
	if rand.Float64() < v.cfg.PatrolProbability {
		v.target = randomGridPoint()
	}
}

// travel blocks until the vehicle reaches its target. Movement itself is
// driven from outside through Step.
func (v *Vehicle) travel(ctx context.Context) error {
	if v.arrived() {
		return nil
	}
	ticker := time.NewTicker(v.cfg.ArrivalPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if v.arrived() {
				return nil
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
