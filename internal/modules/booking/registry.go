// README: Booking registry: lock-guarded FIFO passenger queue with atomic nearest-eligible matching.
package booking

import (
	"math"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"ridesim/internal/modules/passenger"
	"ridesim/internal/types"
)

// Registry is the shared passenger queue. Every operation is serialized
// behind mu; MatchFor scans and removes inside one critical section so two
// vehicles can never claim the same passenger.
type Registry struct {
	mu     sync.Mutex
	queue  []*passenger.Passenger
	served Served
	log    zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{log: log.With().Str("component", "booking").Logger()}
}

// Enqueue appends p to the tail of the queue.
func (r *Registry) Enqueue(p *passenger.Passenger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, p)
}

// MatchFor removes the eligible waiting passenger closest to c and hands it
// to c.Accept in the same critical section, so the passenger is always either
// queued or on board. Ties go to the earliest enqueued passenger.
func (r *Registry) MatchFor(c Candidate) (*passenger.Passenger, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.queue) == 0 {
		return nil, false
	}

	pos := c.Position()
	best := -1
	minDist := math.MaxFloat64
	for i, p := range r.queue {
		if !c.CanPickUp(p) {
			continue
		}
		if d := types.Distance(pos, p.Origin); d < minDist {
			minDist = d
			best = i
		}
	}
	if best < 0 {
		return nil, false
	}

	p := r.queue[best]
	r.queue = slices.Delete(r.queue, best, best+1)
	c.Accept(p)
	r.log.Debug().
		Int("vehicle_id", c.CandidateID()).
		Str("passenger_id", string(p.ID)).
		Float64("distance", minDist).
		Msg("lock acquired, claimed passenger")
	return p, true
}

// RecordDropOff counts p as served.
func (r *Registry) RecordDropOff(p *passenger.Passenger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.Gender == passenger.Male {
		r.served.Males++
	} else {
		r.served.Females++
	}
}

func (r *Registry) QueueSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

func (r *Registry) ServedCounts() Served {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.served
}

// SnapshotWaiting returns a copy of the queue in FIFO order.
func (r *Registry) SnapshotWaiting() []*passenger.Passenger {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*passenger.Passenger, len(r.queue))
	copy(out, r.queue)
	return out
}

// Observe calls fn with the waiting queue and the counters while holding the
// lock. Vehicles read inside fn are consistent with the queue since matching
// cannot interleave. fn must not retain waiting or call back into r.
func (r *Registry) Observe(fn func(waiting []*passenger.Passenger, served Served)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.queue, r.served)
}

// Reset drops every waiting passenger and zeroes the counters.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = nil
	r.served = Served{}
}
