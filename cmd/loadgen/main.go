// README: Load generator; drives a running ridesim API through scripted cases and prints results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	runner := NewRunner(cfg)
	results := runner.RunAll(ctx)

	fmt.Println("\n== Summary ==")
	pass, fail, skipped := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case "PASS":
			pass++
		case "FAIL":
			fail++
		case "SKIP":
			skipped++
		}
	}
	fmt.Printf("PASS=%d FAIL=%d SKIP=%d\n", pass, fail, skipped)

	if fail > 0 || (cfg.Strict && skipped > 0) {
		os.Exit(1)
	}
}

type Config struct {
	BaseURL      string
	RedisAddr    string
	FeedPrefix   string
	Vehicles     int
	Males        int
	Females      int
	DrainTimeout time.Duration
	Strict       bool
	Timeout      time.Duration
	Concurrency  int
	Duration     time.Duration
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "base-url", envOrDefault("RIDESIM_LOADGEN_BASE_URL", "http://localhost:8080"), "API base URL")
	flag.StringVar(&cfg.RedisAddr, "redis", envOrDefault("RIDESIM_REDIS_ADDR", ""), "Redis address of the live feed (empty skips feed checks)")
	flag.StringVar(&cfg.FeedPrefix, "feed-prefix", envOrDefault("RIDESIM_FEED_PREFIX", "ridesim"), "Feed key prefix")
	flag.IntVar(&cfg.Vehicles, "vehicles", envOrDefaultInt("RIDESIM_LOADGEN_VEHICLES", 4), "Vehicles to spawn")
	flag.IntVar(&cfg.Males, "males", envOrDefaultInt("RIDESIM_LOADGEN_MALES", 6), "Male passengers to spawn")
	flag.IntVar(&cfg.Females, "females", envOrDefaultInt("RIDESIM_LOADGEN_FEMALES", 6), "Female passengers to spawn")
	flag.DurationVar(&cfg.DrainTimeout, "drain-timeout", envOrDefaultDuration("RIDESIM_LOADGEN_DRAIN_TIMEOUT", 3*time.Minute), "How long to wait for every passenger to be served")
	flag.BoolVar(&cfg.Strict, "strict", envOrDefaultBool("RIDESIM_LOADGEN_STRICT", false), "Fail on skipped cases")
	flag.DurationVar(&cfg.Timeout, "timeout", envOrDefaultDuration("RIDESIM_LOADGEN_TIMEOUT", 5*time.Minute), "Total timeout")
	flag.IntVar(&cfg.Concurrency, "concurrency", envOrDefaultInt("RIDESIM_LOADGEN_CONCURRENCY", 20), "Concurrency for perf cases")
	flag.DurationVar(&cfg.Duration, "duration", envOrDefaultDuration("RIDESIM_LOADGEN_DURATION", 5*time.Second), "Duration for perf cases")
	flag.Parse()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "1" || v == "true" || v == "yes"
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		_, _ = fmt.Sscanf(v, "%d", &n)
		if n > 0 {
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
