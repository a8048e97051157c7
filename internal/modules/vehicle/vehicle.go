// README: Vehicle state guarded by its own lock: eligibility, departure rule, boarding and movement.
package vehicle

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/rs/zerolog"

	"ridesim/internal/config"
	"ridesim/internal/modules/booking"
	"ridesim/internal/modules/passenger"
	"ridesim/internal/types"
)

// Registry is the part of the booking registry a vehicle talks to.
type Registry interface {
	MatchFor(c booking.Candidate) (*passenger.Passenger, bool)
	RecordDropOff(p *passenger.Passenger)
}

var driverNames = []string{"Muhammad", "Imran", "Rashid", "Naveed", "Tariq", "Javed", "Kamran", "Adnan", "Sohail", "Rizwan"}

type Vehicle struct {
	ID              int
	Capacity        int
	DriverName      string
	DriverAvatarURL string

	registry Registry
	hold     HoldPolicy
	cfg      config.SimulationConfig
	log      zerolog.Logger

	mu         sync.Mutex
	status     Status
	riders     []*passenger.Passenger
	heading    *passenger.Passenger
	position   types.Point
	target     types.Point
	earnings   types.Money
	waitCycles int
	departDue  bool
	message    string
	messageSeq uint64
}

type Option func(*Vehicle)

// WithPosition places the vehicle instead of using a random grid point.
func WithPosition(p types.Point) Option {
	return func(v *Vehicle) {
		v.position = p
		v.target = p
	}
}

func WithHoldPolicy(h HoldPolicy) Option {
	return func(v *Vehicle) { v.hold = h }
}

func New(id int, registry Registry, cfg config.SimulationConfig, log zerolog.Logger, opts ...Option) *Vehicle {
	start := randomGridPoint()
	v := &Vehicle{
		ID:              id,
		Capacity:        DefaultCapacity,
		DriverName:      driverNames[rand.IntN(len(driverNames))],
		DriverAvatarURL: fmt.Sprintf("https://randomuser.me/api/portraits/men/%d.jpg", rand.IntN(90)+10),
		registry:        registry,
		cfg:             cfg,
		log:             log.With().Str("component", "vehicle").Int("vehicle_id", id).Logger(),
		status:          StatusAvailable,
		position:        start,
		target:          start,
		earnings:        types.Money{Currency: "PKR"},
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.hold == nil {
		v.hold = PolicyFromConfig(cfg)
	}
	return v
}

// randomGridPoint picks an intersection inside the service area.
func randomGridPoint() types.Point {
	return types.Point{
		X: float64(50 + (2+rand.IntN(7))*100),
		Y: float64(50 + (1+rand.IntN(4))*100),
	}
}

func (v *Vehicle) CandidateID() int { return v.ID }

// Position is where the vehicle is at the instant of the call.
func (v *Vehicle) Position() types.Point {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position
}

func (v *Vehicle) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

func (v *Vehicle) Earnings() types.Money {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.earnings
}

// Riders returns a copy of the current load in boarding order.
func (v *Vehicle) Riders() []*passenger.Passenger {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]*passenger.Passenger, len(v.riders))
	copy(out, v.riders)
	return out
}

// CanPickUp reports whether p may join the current load: seats must remain,
// the vehicle must not be on a ride, and a mixed-gender group stays within
// two riders.
func (v *Vehicle) CanPickUp(p *passenger.Passenger) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.canPickUpLocked(p)
}

func (v *Vehicle) canPickUpLocked(p *passenger.Passenger) bool {
	if len(v.riders) >= v.Capacity {
		return false
	}
	if v.status == StatusOnRide {
		return false
	}
	males, females := v.compositionLocked()
	if p.Gender == passenger.Male {
		males++
	} else {
		females++
	}
	total := len(v.riders) + 1
	if males > 0 && females > 0 && total > mixedGroupLimit {
		return false
	}
	return total <= v.Capacity
}

func (v *Vehicle) compositionLocked() (males, females int) {
	for _, r := range v.riders {
		if r.Gender == passenger.Male {
			males++
		} else {
			females++
		}
	}
	return males, females
}

// IsReadyToDepart applies the departure rule. A one-male-one-female pair or a
// full vehicle leaves at once; otherwise the hold policy is consulted and
// departure is forced after MaxWaitCycles consecutive holds.
func (v *Vehicle) IsReadyToDepart() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := len(v.riders)
	if n == 0 {
		return false
	}
	males, females := v.compositionLocked()
	if males == 1 && females == 1 {
		v.waitCycles = 0
		return true
	}
	if n >= v.Capacity {
		v.waitCycles = 0
		return true
	}
	if !v.hold.ShouldHold(n) {
		v.waitCycles = 0
		return false
	}
	v.waitCycles++
	if v.waitCycles >= v.cfg.MaxWaitCycles {
		v.waitCycles = 0
		return true
	}
	return false
}

// Accept boards a passenger the registry matched to this vehicle and heads
// for its origin. It runs under the registry lock. An ineligible rider means
// the matching invariant was broken and panics.
func (v *Vehicle) Accept(p *passenger.Passenger) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.canPickUpLocked(p) {
		panic(fmt.Errorf("%w: vehicle %d, passenger %s, load %d", ErrIneligibleRider, v.ID, p.ID, len(v.riders)))
	}
	v.setStatusLocked(StatusPickingUp)
	v.riders = append(v.riders, p)
	v.heading = p
	v.target = p.Origin
	v.setMessageLocked("On way to pickup " + p.Name)
}

func (v *Vehicle) setStatusLocked(to Status) {
	if !CanTransition(v.status, to) {
		panic(fmt.Errorf("%w: vehicle %d %s -> %s", ErrInvalidTransition, v.ID, v.status, to))
	}
	v.status = to
}

func (v *Vehicle) setMessageLocked(msg string) uint64 {
	v.messageSeq++
	v.message = msg
	return v.messageSeq
}

// arrived reports whether the vehicle is within one unit of its target.
func (v *Vehicle) arrived() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return types.Near(v.position, v.target, 1)
}

// Step moves the vehicle up to speed units toward its target, along X first
// and then Y, snapping onto the target once within reach.
func (v *Vehicle) Step(speed float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	dx := v.target.X - v.position.X
	dy := v.target.Y - v.position.Y
	if math.Abs(dx) <= speed && math.Abs(dy) <= speed {
		v.position = v.target
		return
	}
	if math.Abs(dx) > speed {
		v.position.X += math.Copysign(speed, dx)
		return
	}
	v.position.X = v.target.X
	v.position.Y += math.Copysign(speed, dy)
}

func (v *Vehicle) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	riders := make([]RiderSummary, 0, len(v.riders))
	for _, r := range v.riders {
		riders = append(riders, summarize(r))
	}
	var heading types.ID
	if v.heading != nil {
		heading = v.heading.ID
	}
	return Snapshot{
		ID:              v.ID,
		DriverName:      v.DriverName,
		DriverAvatarURL: v.DriverAvatarURL,
		Status:          v.status,
		Position:        v.position,
		Target:          v.target,
		Earnings:        v.earnings,
		RiderCount:      len(v.riders),
		Riders:          riders,
		HeadingTo:       heading,
		Message:         v.message,
	}
}
