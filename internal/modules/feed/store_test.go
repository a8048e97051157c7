package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"ridesim/internal/modules/simulation"
	"ridesim/internal/modules/vehicle"
	"ridesim/internal/types"
)

func newTestStore(t *testing.T) (*Store, *redis.Client) {
	t.Helper()
	addr := os.Getenv("RIDESIM_REDIS_ADDR")
	if addr == "" {
		t.Skip("RIDESIM_REDIS_ADDR not set; skipping integration test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	prefix := fmt.Sprintf("ridesim_test_%d", time.Now().UnixNano())
	store := NewStore(rdb, prefix, time.Minute)
	t.Cleanup(func() { _ = store.Clear(context.Background()) })
	return store, rdb
}

func sampleFrame() Frame {
	return Frame{
		Seq: 7,
		At:  time.Now().UTC(),
		State: simulation.State{
			Running: true,
			Vehicles: []vehicle.Snapshot{
				{ID: 1, Status: vehicle.StatusOnRide, Position: types.Point{X: 250, Y: 150}, RiderCount: 2},
				{ID: 2, Status: vehicle.StatusAvailable},
			},
			QueueSize:     3,
			MalesServed:   4,
			FemalesServed: 1,
			TotalServed:   5,
		},
	}
}

func TestStore_WriteMirrorsState(t *testing.T) {
	store, rdb := newTestStore(t)
	ctx := context.Background()

	if err := store.Write(ctx, sampleFrame()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, ok, err := store.Latest(ctx)
	if err != nil || !ok {
		t.Fatalf("Latest() = %v, %v", ok, err)
	}
	if got.Seq != 7 || got.State.QueueSize != 3 || len(got.State.Vehicles) != 2 {
		t.Fatalf("unexpected frame %+v", got)
	}

	raw, err := rdb.HGet(ctx, store.VehiclesKey(), "1").Result()
	if err != nil {
		t.Fatalf("HGet vehicle: %v", err)
	}
	var snap vehicle.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Status != vehicle.StatusOnRide || snap.RiderCount != 2 {
		t.Fatalf("vehicle mirror = %+v", snap)
	}

	served, err := rdb.HGetAll(ctx, store.ServedKey()).Result()
	if err != nil {
		t.Fatal(err)
	}
	if served["males"] != "4" || served["females"] != "1" || served["total"] != "5" {
		t.Fatalf("served hash = %v", served)
	}
	if ttl := rdb.TTL(ctx, store.StateKey()).Val(); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("state ttl = %s", ttl)
	}
}

func TestStore_WriteDropsRemovedVehicles(t *testing.T) {
	store, rdb := newTestStore(t)
	ctx := context.Background()

	if err := store.Write(ctx, sampleFrame()); err != nil {
		t.Fatal(err)
	}
	f := sampleFrame()
	f.State.Vehicles = f.State.Vehicles[:1]
	if err := store.Write(ctx, f); err != nil {
		t.Fatal(err)
	}
	if n := rdb.HLen(ctx, store.VehiclesKey()).Val(); n != 1 {
		t.Fatalf("vehicles hash has %d entries, want 1", n)
	}
}

func TestStore_PublishesUpdates(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	sub := store.Subscribe(ctx)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := store.Write(ctx, sampleFrame()); err != nil {
		t.Fatal(err)
	}
	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	var f Frame
	if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil {
		t.Fatal(err)
	}
	if f.Seq != 7 || f.State.TotalServed != 5 {
		t.Fatalf("published frame = %+v", f)
	}
}

func TestStore_Clear(t *testing.T) {
	store, rdb := newTestStore(t)
	ctx := context.Background()
	if err := store.Write(ctx, sampleFrame()); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if n := rdb.Exists(ctx, store.StateKey(), store.VehiclesKey(), store.ServedKey()).Val(); n != 0 {
		t.Fatalf("%d keys survived Clear", n)
	}
	if _, ok, err := store.Latest(ctx); ok || err != nil {
		t.Fatalf("Latest after Clear = %v, %v", ok, err)
	}
}
