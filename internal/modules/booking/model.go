// README: Matching candidates and served counters of the booking registry.
package booking

import (
	"ridesim/internal/modules/passenger"
	"ridesim/internal/types"
)

// Candidate is a vehicle asking for a rider. The registry calls every method
// while holding its lock, so implementations must not call back into it.
// Accept boards the matched passenger before the lock is released.
type Candidate interface {
	CandidateID() int
	Position() types.Point
	CanPickUp(p *passenger.Passenger) bool
	Accept(p *passenger.Passenger)
}

// Served holds cumulative drop-off counts per gender.
type Served struct {
	Males   int `json:"males"`
	Females int `json:"females"`
}

func (s Served) Total() int {
	return s.Males + s.Females
}
