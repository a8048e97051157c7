// README: Config loader with env defaults for HTTP, Redis, logging, simulation timing and the live feed.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/subosito/gotenv"
)

// SimulationConfig carries agent timing and the departure policy knobs.
type SimulationConfig struct {
	PollInterval      time.Duration
	ArrivalPoll       time.Duration
	SettleDelay       time.Duration
	MessageTTL        time.Duration
	PatrolProbability float64
	HoldProbability1  float64
	HoldProbability2  float64
	MaxWaitCycles     int
	MoveTick          time.Duration
	MoveSpeed         float64

	// MaxSpawnPerRequest caps the passengers one spawn call may create.
	MaxSpawnPerRequest int
}

type FeedConfig struct {
	Interval  time.Duration
	KeyPrefix string
	TTL       time.Duration
}

type Config struct {
	HTTP struct {
		Addr            string
		ShutdownTimeout time.Duration
	}
	Redis struct {
		Addr string
	}
	Log struct {
		Level  string
		Format string
	}
	Simulation SimulationConfig
	Feed       FeedConfig
}

// DefaultSimulation returns the reference timings of the simulation.
func DefaultSimulation() SimulationConfig {
	return SimulationConfig{
		PollInterval:      time.Second,
		ArrivalPoll:       100 * time.Millisecond,
		SettleDelay:       5 * time.Second,
		MessageTTL:        3 * time.Second,
		PatrolProbability: 0.05,
		HoldProbability1:  0.5,
		HoldProbability2:  0.3,
		MaxWaitCycles:     2,
		MoveTick:          50 * time.Millisecond,
		MoveSpeed:         1.5,

		MaxSpawnPerRequest: 500,
	}
}

// Load reads an optional .env file and then the environment. Intervals,
// counts and speeds that must be positive fall back to their defaults when
// set to zero or less.
func Load() (Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	def := DefaultSimulation()
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("RIDESIM_HTTP_ADDR", ":8080")
	cfg.HTTP.ShutdownTimeout = envOrDefaultDuration("RIDESIM_SHUTDOWN_TIMEOUT", 10*time.Second)
	cfg.Redis.Addr = envOrDefault("RIDESIM_REDIS_ADDR", "")
	cfg.Log.Level = envOrDefault("RIDESIM_LOG_LEVEL", "info")
	cfg.Log.Format = envOrDefault("RIDESIM_LOG_FORMAT", "json")

	cfg.Simulation.PollInterval = envOrDefaultPositiveDuration("RIDESIM_POLL_INTERVAL", def.PollInterval)
	cfg.Simulation.ArrivalPoll = envOrDefaultPositiveDuration("RIDESIM_ARRIVAL_POLL", def.ArrivalPoll)
	cfg.Simulation.SettleDelay = envOrDefaultDuration("RIDESIM_SETTLE_DELAY", def.SettleDelay)
	cfg.Simulation.MessageTTL = envOrDefaultDuration("RIDESIM_MESSAGE_TTL", def.MessageTTL)
	cfg.Simulation.PatrolProbability = envOrDefaultFloat("RIDESIM_PATROL_PROBABILITY", def.PatrolProbability)
	cfg.Simulation.HoldProbability1 = envOrDefaultFloat("RIDESIM_HOLD_P1", def.HoldProbability1)
	cfg.Simulation.HoldProbability2 = envOrDefaultFloat("RIDESIM_HOLD_P2", def.HoldProbability2)
	cfg.Simulation.MaxWaitCycles = envOrDefaultPositiveInt("RIDESIM_MAX_WAIT_CYCLES", def.MaxWaitCycles)
	cfg.Simulation.MoveTick = envOrDefaultPositiveDuration("RIDESIM_MOVE_TICK", def.MoveTick)
	cfg.Simulation.MoveSpeed = envOrDefaultFloat("RIDESIM_MOVE_SPEED", def.MoveSpeed)
	if cfg.Simulation.MoveSpeed <= 0 {
		cfg.Simulation.MoveSpeed = def.MoveSpeed
	}
	cfg.Simulation.MaxSpawnPerRequest = envOrDefaultPositiveInt("RIDESIM_MAX_SPAWN", def.MaxSpawnPerRequest)

	cfg.Feed.Interval = envOrDefaultPositiveDuration("RIDESIM_FEED_INTERVAL", 500*time.Millisecond)
	cfg.Feed.KeyPrefix = envOrDefault("RIDESIM_FEED_PREFIX", "ridesim")
	cfg.Feed.TTL = envOrDefaultDuration("RIDESIM_FEED_TTL", time.Minute)
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultPositiveInt(key string, def int) int {
	if n := envOrDefaultInt(key, def); n > 0 {
		return n
	}
	return def
}

func envOrDefaultPositiveDuration(key string, def time.Duration) time.Duration {
	if d := envOrDefaultDuration(key, def); d > 0 {
		return d
	}
	return def
}
