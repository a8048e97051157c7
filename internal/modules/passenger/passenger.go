// README: Passenger agent: books a ride, waits for the pickup rendezvous, terminates.
package passenger

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/rs/zerolog"

	"ridesim/internal/types"
)

var ErrAlreadyPickedUp = errors.New("passenger already picked up")

// Enqueuer accepts booking requests.
type Enqueuer interface {
	Enqueue(p *Passenger)
}

type Passenger struct {
	ID          types.ID
	Gender      Gender
	Name        string
	AvatarURL   string
	Origin      types.Point
	Destination string

	mu       sync.Mutex
	pickedUp bool
	boarded  chan struct{}
}

// New creates a passenger at a random grid origin.
func New(g Gender) *Passenger {
	return NewAt(g, RandomOrigin())
}

// NewAt creates a passenger waiting at origin.
func NewAt(g Gender, origin types.Point) *Passenger {
	return &Passenger{
		ID:          newID(),
		Gender:      g,
		Name:        randomName(g),
		AvatarURL:   randomAvatar(g),
		Origin:      origin,
		Destination: Destinations[rand.IntN(len(Destinations))],
		boarded:     make(chan struct{}),
	}
}

// Run books the ride and blocks until a vehicle signals the pickup or ctx is
// cancelled. A cancelled passenger is never marked picked up.
func (p *Passenger) Run(ctx context.Context, queue Enqueuer, log zerolog.Logger) error {
	log = log.With().Str("passenger_id", string(p.ID)).Str("gender", string(p.Gender)).Logger()
	log.Info().Msg("sent a booking request")
	queue.Enqueue(p)

	log.Debug().Msg("waiting for pickup")
	if err := p.Wait(ctx); err != nil {
		log.Debug().Err(err).Msg("stopped waiting")
		return err
	}
	log.Info().Msg("picked up, ride started")
	return nil
}

// Wait blocks until SignalPickedUp has been called or ctx is done.
func (p *Passenger) Wait(ctx context.Context) error {
	select {
	case <-p.boarded:
		return nil
	case <-ctx.Done():
		// A signal racing with cancellation still counts as boarded.
		select {
		case <-p.boarded:
			return nil
		default:
		}
		return ctx.Err()
	}
}

// SignalPickedUp marks the passenger boarded and wakes the waiter. Only the
// first call has an effect; later calls return ErrAlreadyPickedUp.
func (p *Passenger) SignalPickedUp() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pickedUp {
		return ErrAlreadyPickedUp
	}
	p.pickedUp = true
	close(p.boarded)
	return nil
}

func (p *Passenger) PickedUp() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pickedUp
}
