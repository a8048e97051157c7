// README: Feed store backed by Redis strings, hashes and pub/sub.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

func NewStore(rdb *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{redis: rdb, prefix: prefix, ttl: ttl}
}

func (s *Store) StateKey() string    { return s.prefix + ":state" }
func (s *Store) VehiclesKey() string { return s.prefix + ":vehicles" }
func (s *Store) ServedKey() string   { return s.prefix + ":served" }
func (s *Store) Channel() string     { return s.prefix + ":updates" }

// Write replaces the mirrored state and announces it on the updates channel.
// Everything goes out in one MULTI so readers never see a half-written frame.
func (s *Store) Write(ctx context.Context, f Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, s.StateKey(), payload, s.ttl)
	pipe.Del(ctx, s.VehiclesKey())
	if len(f.State.Vehicles) > 0 {
		fields := make([]interface{}, 0, 2*len(f.State.Vehicles))
		for _, v := range f.State.Vehicles {
			b, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode vehicle %d: %w", v.ID, err)
			}
			fields = append(fields, strconv.Itoa(v.ID), b)
		}
		pipe.HSet(ctx, s.VehiclesKey(), fields...)
		pipe.Expire(ctx, s.VehiclesKey(), s.ttl)
	}
	pipe.HSet(ctx, s.ServedKey(),
		"males", f.State.MalesServed,
		"females", f.State.FemalesServed,
		"total", f.State.TotalServed,
	)
	pipe.Expire(ctx, s.ServedKey(), s.ttl)
	pipe.Publish(ctx, s.Channel(), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write frame %d: %w", f.Seq, err)
	}
	return nil
}

// Latest returns the last written frame, if it has not expired.
func (s *Store) Latest(ctx context.Context) (Frame, bool, error) {
	val, err := s.redis.Get(ctx, s.StateKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Frame{}, false, nil
	}
	if err != nil {
		return Frame{}, false, err
	}
	var f Frame
	if err := json.Unmarshal(val, &f); err != nil {
		return Frame{}, false, fmt.Errorf("decode frame: %w", err)
	}
	return f, true, nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.redis.Del(ctx, s.StateKey(), s.VehiclesKey(), s.ServedKey()).Err()
}

// Subscribe listens on the updates channel. The caller closes the result.
func (s *Store) Subscribe(ctx context.Context) *redis.PubSub {
	return s.redis.Subscribe(ctx, s.Channel())
}
