package vehicle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ridesim/internal/modules/booking"
	"ridesim/internal/modules/passenger"
	"ridesim/internal/types"
)

// drive moves the given vehicles toward their targets until ctx is done.
func drive(ctx context.Context, vs ...*Vehicle) {
	go func() {
		t := time.NewTicker(time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				for _, v := range vs {
					v.Step(50)
				}
			}
		}
	}()
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTick_NearestFirstUntilFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v, reg := newTestVehicle(t, WithPosition(types.Point{X: 0, Y: 0}))
	far := passenger.NewAt(passenger.Male, types.Point{X: 600, Y: 0})
	near := passenger.NewAt(passenger.Male, types.Point{X: 100, Y: 0})
	mid := passenger.NewAt(passenger.Male, types.Point{X: 300, Y: 0})
	reg.Enqueue(far)
	reg.Enqueue(near)
	reg.Enqueue(mid)
	drive(ctx, v)

	for i := 0; i < 3; i++ {
		if err := v.tick(ctx); err != nil {
			t.Fatalf("tick %d: %v", i+1, err)
		}
	}

	riders := v.Riders()
	want := []*passenger.Passenger{near, mid, far}
	if len(riders) != len(want) {
		t.Fatalf("expected %d riders, got %d", len(want), len(riders))
	}
	for i := range want {
		if riders[i] != want[i] {
			t.Fatalf("pickup %d = %s, want %s", i+1, riders[i].ID, want[i].ID)
		}
		if !want[i].PickedUp() {
			t.Fatalf("passenger %s was not signalled", want[i].ID)
		}
	}
	if reg.QueueSize() != 0 {
		t.Fatalf("queue should be empty, got %d", reg.QueueSize())
	}

	// Full: the next tick departs without consulting the hold policy.
	rideDone := make(chan error, 1)
	v.cfg.SettleDelay = 50 * time.Millisecond
	go func() { rideDone <- v.tick(ctx) }()
	waitFor(t, time.Second, func() bool { return v.Status() == StatusOnRide }, "ON_RIDE")
	if err := <-rideDone; err != nil {
		t.Fatalf("ride: %v", err)
	}

	if got := reg.ServedCounts(); got.Males != 3 || got.Females != 0 {
		t.Fatalf("served = %+v, want 3 males", got)
	}
	if got := v.Earnings().Amount; got != 750 {
		t.Fatalf("earnings = %d, want 750", got)
	}
	if v.Status() != StatusAvailable || len(v.Riders()) != 0 {
		t.Fatalf("vehicle not reset: %+v", v.Snapshot())
	}
}

func TestRun_MixedPairDepartsWithoutWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	origin := types.Point{X: 250, Y: 150}
	v, reg := newTestVehicle(t, WithPosition(origin))
	m := passenger.NewAt(passenger.Male, origin)
	f := passenger.NewAt(passenger.Female, origin)

	var wg sync.WaitGroup
	for _, p := range []*passenger.Passenger{m, f} {
		wg.Add(1)
		go func(p *passenger.Passenger) {
			defer wg.Done()
			if err := p.Run(ctx, reg, zerolog.Nop()); err != nil {
				t.Errorf("passenger %s: %v", p.ID, err)
			}
		}(p)
	}
	waitFor(t, time.Second, func() bool { return reg.QueueSize() == 2 }, "both bookings")

	sawOnRide := make(chan struct{})
	go func() {
		for ctx.Err() == nil {
			if v.Status() == StatusOnRide {
				close(sawOnRide)
				return
			}
			time.Sleep(200 * time.Microsecond)
		}
	}()

	v.cfg.SettleDelay = 30 * time.Millisecond
	drive(ctx, v)
	go func() { _ = v.Run(ctx) }()

	waitFor(t, 2*time.Second, func() bool { return reg.ServedCounts().Total() == 2 }, "drop-off")
	wg.Wait()

	select {
	case <-sawOnRide:
	default:
		t.Fatal("vehicle never reported ON_RIDE")
	}
	if got := reg.ServedCounts(); got.Males != 1 || got.Females != 1 {
		t.Fatalf("served = %+v, want 1/1", got)
	}
	waitFor(t, time.Second, func() bool { return v.Earnings().Amount == 600 }, "earnings 600")
	if !m.PickedUp() || !f.PickedUp() {
		t.Fatal("both passengers should be picked up")
	}
}

func TestRun_CancelDuringTravel(t *testing.T) {
	v, reg := newTestVehicle(t, WithPosition(types.Point{X: 0, Y: 0}))
	p := passenger.NewAt(passenger.Male, types.Point{X: 900, Y: 900})
	reg.Enqueue(p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- v.Run(ctx) }() // nothing moves the vehicle

	waitFor(t, time.Second, func() bool { return v.Status() == StatusPickingUp }, "PICKING_UP")
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
	if p.PickedUp() {
		t.Fatal("passenger must not be signalled when the trip is abandoned")
	}
}

func TestStartRide_NoOpWhileOnRide(t *testing.T) {
	v, reg := newTestVehicle(t)
	load(v, 1, 0)
	v.mu.Lock()
	v.status = StatusOnRide
	v.mu.Unlock()

	if err := v.startRide(context.Background()); err != nil {
		t.Fatal(err)
	}
	if reg.ServedCounts().Total() != 0 || len(v.Riders()) != 1 {
		t.Fatal("re-entrant startRide must not settle the ride")
	}
}

func TestDropOff_MessageClears(t *testing.T) {
	v, reg := newTestVehicle(t)
	load(v, 0, 2)
	v.mu.Lock()
	v.status = StatusOnRide
	v.mu.Unlock()

	v.dropOff()
	snap := v.Snapshot()
	if snap.Message != "Dropped off passenger(s)" {
		t.Fatalf("message = %q", snap.Message)
	}
	if snap.Earnings.Amount != 600 || reg.ServedCounts().Females != 2 {
		t.Fatalf("unexpected settlement %+v served=%+v", snap.Earnings, reg.ServedCounts())
	}
	waitFor(t, time.Second, func() bool { return v.Snapshot().Message == "" }, "message to clear")
}

// ---------------------------------------------------------------------------
// Fleet: invariants under concurrent vehicles and passengers (run with -race)
// ---------------------------------------------------------------------------

func TestFleet_ServesEveryoneWithoutViolations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := booking.NewRegistry(zerolog.Nop())
	cfg := testConfig()
	var fleet []*Vehicle
	for i := 1; i <= 4; i++ {
		policy := NewProbabilisticHold(map[int]float64{1: 0.5, 2: 0.3}, uint64(i))
		fleet = append(fleet, New(i, reg, cfg, zerolog.Nop(), WithHoldPolicy(policy)))
	}
	drive(ctx, fleet...)

	const males, females = 9, 7
	var riders []*passenger.Passenger
	var wg sync.WaitGroup
	for i := 0; i < males+females; i++ {
		g := passenger.Male
		if i >= males {
			g = passenger.Female
		}
		p := passenger.New(g)
		riders = append(riders, p)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Run(ctx, reg, zerolog.Nop())
		}()
	}
	for _, v := range fleet {
		go func(v *Vehicle) { _ = v.Run(ctx) }(v)
	}

	// Observe vehicles first, then the queue: a passenger seen on board can
	// no longer be queued, so seeing it in both is a real violation.
	stop := make(chan struct{})
	observed := make(chan struct{})
	go func() {
		defer close(observed)
		for {
			select {
			case <-stop:
				return
			default:
			}
			onboard := map[types.ID]bool{}
			for _, v := range fleet {
				snap := v.Snapshot()
				var m, f int
				for _, r := range snap.Riders {
					if onboard[r.ID] {
						t.Errorf("passenger %s on two vehicles", r.ID)
					}
					onboard[r.ID] = true
					if r.Gender == passenger.Male {
						m++
					} else {
						f++
					}
				}
				if m+f > DefaultCapacity {
					t.Errorf("vehicle %d over capacity: %d", snap.ID, m+f)
				}
				if m > 0 && f > 0 && m+f > 2 {
					t.Errorf("vehicle %d mixed load of %d", snap.ID, m+f)
				}
			}
			for _, p := range reg.SnapshotWaiting() {
				if onboard[p.ID] {
					t.Errorf("passenger %s both queued and on board", p.ID)
				}
			}
			time.Sleep(200 * time.Microsecond)
		}
	}()

	waitFor(t, 10*time.Second, func() bool { return reg.ServedCounts().Total() == males+females }, "all drop-offs")
	close(stop)
	<-observed
	wg.Wait()

	got := reg.ServedCounts()
	if got.Males != males || got.Females != females {
		t.Fatalf("served = %+v, want %d/%d", got, males, females)
	}
	for _, p := range riders {
		if !p.PickedUp() {
			t.Fatalf("passenger %s never picked up", p.ID)
		}
	}
	var total int64
	for _, v := range fleet {
		total += v.Earnings().Amount
	}
	if total < int64(males+females)*150+300 {
		t.Fatalf("fleet earnings %d too low for %d riders", total, males+females)
	}
}
