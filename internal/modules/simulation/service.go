// README: Simulation context; owns the registry, agents and mover, and serves spawn/start/reset commands.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ridesim/internal/config"
	"ridesim/internal/modules/booking"
	"ridesim/internal/modules/motion"
	"ridesim/internal/modules/passenger"
	"ridesim/internal/modules/vehicle"
	"ridesim/internal/types"
)

type Option func(*Service)

// WithHoldPolicy replaces the configured departure policy for every vehicle
// spawned afterwards.
func WithHoldPolicy(fn func(vehicleID int) vehicle.HoldPolicy) Option {
	return func(s *Service) { s.policyFor = fn }
}

// WithoutMover leaves vehicle movement to the caller.
func WithoutMover() Option {
	return func(s *Service) { s.noMover = true }
}

type Service struct {
	cfg       config.SimulationConfig
	base      zerolog.Logger
	log       zerolog.Logger
	policyFor func(vehicleID int) vehicle.HoldPolicy
	noMover   bool

	mu       sync.Mutex
	registry *booking.Registry
	vehicles []*vehicle.Vehicle
	pending  []*passenger.Passenger // spawned before Start
	nextID   int
	running  bool
	runCtx   context.Context
	cancel   context.CancelFunc
	group    *errgroup.Group
	onReset  []func()
}

func NewService(cfg config.SimulationConfig, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:  cfg,
		base: log,
		log:  log.With().Str("component", "simulation").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = booking.NewRegistry(log)
	return s
}

// OnReset registers a hook run after every Reset.
func (s *Service) OnReset(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReset = append(s.onReset, fn)
}

func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches every spawned agent and the mover. Agents spawned later
// start immediately.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.runCtx = ctx
	s.cancel = cancel
	s.group = &errgroup.Group{}
	s.running = true

	if !s.noMover {
		mover := motion.NewMover(s.fleet, s.cfg.MoveTick, s.cfg.MoveSpeed, s.base)
		s.goLocked(mover.Run)
	}
	for _, v := range s.vehicles {
		s.goLocked(v.Run)
	}
	for _, p := range s.pending {
		s.launchPassengerLocked(p)
	}
	s.pending = nil

	s.log.Info().Int("vehicles", len(s.vehicles)).Msg("simulation started")
	return nil
}

// goLocked runs fn under the current errgroup; cancellation is not an error.
func (s *Service) goLocked(fn func(context.Context) error) {
	ctx := s.runCtx
	s.group.Go(func() error {
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
}

func (s *Service) launchPassengerLocked(p *passenger.Passenger) {
	reg, log := s.registry, s.base.With().Str("component", "passenger").Logger()
	s.goLocked(func(ctx context.Context) error {
		return p.Run(ctx, reg, log)
	})
}

// Reset cancels every agent, waits for them to unwind and starts over with
// an empty registry and fleet.
func (s *Service) Reset() {
	s.mu.Lock()
	cancel, group := s.cancel, s.group
	hooks := append([]func(){}, s.onReset...)
	s.registry = booking.NewRegistry(s.base)
	s.vehicles = nil
	s.pending = nil
	s.nextID = 0
	s.running = false
	s.runCtx, s.cancel, s.group = nil, nil, nil
	s.mu.Unlock()

	// The mover reads the fleet under s.mu, so wait without holding it.
	if cancel != nil {
		cancel()
		if err := group.Wait(); err != nil {
			s.log.Error().Err(err).Msg("agent failed before reset")
		}
	}
	for _, fn := range hooks {
		fn()
	}
	s.log.Info().Msg("simulation reset")
}

// SpawnVehicle adds a vehicle at a random intersection and returns its id.
func (s *Service) SpawnVehicle() int {
	return s.spawnVehicle()
}

// SpawnVehicleAt adds a vehicle parked at p.
func (s *Service) SpawnVehicleAt(p types.Point) int {
	return s.spawnVehicle(vehicle.WithPosition(p))
}

func (s *Service) spawnVehicle(opts ...vehicle.Option) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	if s.policyFor != nil {
		opts = append(opts, vehicle.WithHoldPolicy(s.policyFor(id)))
	}
	v := vehicle.New(id, s.registry, s.cfg, s.base, opts...)
	s.vehicles = append(s.vehicles, v)
	if s.running {
		s.goLocked(v.Run)
	}
	s.log.Info().Int("vehicle_id", id).Str("driver", v.DriverName).Msg("vehicle added")
	return id
}

// SpawnPassengers creates males then females at random origins, at most
// MaxSpawnPerRequest at a time.
func (s *Service) SpawnPassengers(males, females int) ([]types.ID, error) {
	if males < 0 || females < 0 {
		return nil, fmt.Errorf("%w: negative passenger count", ErrBadRequest)
	}
	// Checked one at a time so the sum cannot overflow.
	if limit := s.cfg.MaxSpawnPerRequest; limit > 0 && (males > limit || females > limit || males+females > limit) {
		return nil, fmt.Errorf("%w: at most %d passengers per request", ErrBadRequest, limit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]types.ID, 0, males+females)
	for i := 0; i < males; i++ {
		ids = append(ids, s.addPassengerLocked(passenger.New(passenger.Male)))
	}
	for i := 0; i < females; i++ {
		ids = append(ids, s.addPassengerLocked(passenger.New(passenger.Female)))
	}
	return ids, nil
}

// SpawnPassengerAt creates one passenger waiting at origin.
func (s *Service) SpawnPassengerAt(g passenger.Gender, origin types.Point) (types.ID, error) {
	if !g.Valid() {
		return "", fmt.Errorf("%w: unknown gender %q", ErrBadRequest, g)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addPassengerLocked(passenger.NewAt(g, origin)), nil
}

func (s *Service) addPassengerLocked(p *passenger.Passenger) types.ID {
	if s.running {
		s.launchPassengerLocked(p)
	} else {
		s.pending = append(s.pending, p)
	}
	return p.ID
}

func (s *Service) fleet() []motion.Stepper {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]motion.Stepper, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		out = append(out, v)
	}
	return out
}

// State snapshots the vehicles while the registry is held, so a passenger
// is listed exactly once: waiting in the queue or riding a vehicle.
func (s *Service) State() State {
	s.mu.Lock()
	vehicles := append([]*vehicle.Vehicle(nil), s.vehicles...)
	pending := append([]*passenger.Passenger(nil), s.pending...)
	reg := s.registry
	running := s.running
	s.mu.Unlock()

	st := State{
		Running:    running,
		Vehicles:   make([]vehicle.Snapshot, 0, len(vehicles)),
		Passengers: []PassengerView{},
	}
	var inRide []PassengerView
	reg.Observe(func(waiting []*passenger.Passenger, served booking.Served) {
		for _, v := range vehicles {
			st.Vehicles = append(st.Vehicles, v.Snapshot())
		}
		for _, p := range waiting {
			st.Passengers = append(st.Passengers, waitingView(p))
		}
		st.QueueSize = len(waiting)
		st.MalesServed = served.Males
		st.FemalesServed = served.Females
		st.TotalServed = served.Total()
	})

	for _, snap := range st.Vehicles {
		for _, r := range snap.Riders {
			pos := snap.Position
			if r.ID == snap.HeadingTo {
				pos = r.Origin
			}
			inRide = append(inRide, PassengerView{
				ID:          r.ID,
				Gender:      r.Gender,
				Name:        r.Name,
				AvatarURL:   r.AvatarURL,
				Position:    pos,
				Destination: r.Destination,
				Status:      PassengerInRide,
				VehicleID:   snap.ID,
			})
		}
	}
	for _, p := range pending {
		st.Passengers = append(st.Passengers, waitingView(p))
	}
	st.Passengers = append(st.Passengers, inRide...)
	return st
}
