// README: Load generator cases; HTTP command checks, drain with invariant sampling, feed and perf checks.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"ridesim/internal/modules/feed"
	"ridesim/internal/modules/passenger"
	"ridesim/internal/modules/simulation"
	"ridesim/internal/types"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
		defer r.redis.Close()
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	total := r.cfg.Males + r.cfg.Females
	return []TestCase{
		statusCase("API: health", http.MethodGet, "/health", nil, http.StatusOK),
		statusCase("Sim: reset", http.MethodPost, "/api/reset", nil, http.StatusOK),
		statusCase("Sim: start", http.MethodPost, "/api/start", nil, http.StatusOK),
		statusCase("Sim: start twice -> 409", http.MethodPost, "/api/start", nil, http.StatusConflict),
		statusCase("Passengers: negative count -> 400", http.MethodPost, "/api/passengers",
			map[string]any{"male_count": -1, "female_count": 0}, http.StatusBadRequest),
		{
			Name: fmt.Sprintf("Vehicles: spawn %d concurrently, ids unique", r.cfg.Vehicles),
			Run:  spawnVehicles,
		},
		{
			Name: fmt.Sprintf("Passengers: spawn %dM/%dF", r.cfg.Males, r.cfg.Females),
			Run: func(ctx context.Context, r *Runner) Result {
				var resp struct {
					Added int `json:"added"`
				}
				start := time.Now()
				code, err := r.doJSON(ctx, http.MethodPost, "/api/passengers", map[string]any{
					"male_count":   r.cfg.Males,
					"female_count": r.cfg.Females,
				}, &resp)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if code != http.StatusOK || resp.Added != total {
					return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d added=%d", code, resp.Added)}
				}
				return Result{Status: "PASS", Latency: time.Since(start)}
			},
		},
		{
			Name: "Drain: every passenger served, invariants hold",
			Run:  drain,
		},
		{
			Name: "Feed: redis mirror is current",
			Run:  checkFeed,
		},
		{
			Name: "Perf: GET /api/state",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, "/api/state")
			},
		},
		statusCase("Sim: final reset", http.MethodPost, "/api/reset", nil, http.StatusOK),
	}
}

func statusCase(name, method, path string, body any, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			code, err := r.doJSON(ctx, method, path, body, nil)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			latency := time.Since(start)
			if code != want {
				return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d want=%d", code, want)}
			}
			return Result{Status: "PASS", Latency: latency, Note: fmt.Sprintf("status=%d", code)}
		},
	}
}

func spawnVehicles(ctx context.Context, r *Runner) Result {
	var mu sync.Mutex
	seen := map[int]bool{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i := 0; i < r.cfg.Vehicles; i++ {
		g.Go(func() error {
			var resp struct {
				VehicleID int `json:"vehicle_id"`
			}
			code, err := r.doJSON(gctx, http.MethodPost, "/api/vehicles", nil, &resp)
			if err != nil {
				return err
			}
			if code != http.StatusOK {
				return fmt.Errorf("status=%d", code)
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[resp.VehicleID] {
				return fmt.Errorf("vehicle id %d handed out twice", resp.VehicleID)
			}
			seen[resp.VehicleID] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	return Result{Status: "PASS", Note: fmt.Sprintf("vehicles=%d", len(seen))}
}

// drain polls the state until everyone is served, checking the load rules
// on every sample.
func drain(ctx context.Context, r *Runner) Result {
	want := r.cfg.Males + r.cfg.Females
	ctx, cancel := context.WithTimeout(ctx, r.cfg.DrainTimeout)
	defer cancel()

	start := time.Now()
	samples := 0
	for {
		var st simulation.State
		if _, err := r.doJSON(ctx, http.MethodGet, "/api/state", nil, &st); err != nil {
			return Result{Status: "FAIL", Note: err.Error()}
		}
		samples++
		if err := checkInvariants(st); err != nil {
			return Result{Status: "FAIL", Note: err.Error()}
		}
		if st.TotalServed >= want {
			if st.MalesServed != r.cfg.Males || st.FemalesServed != r.cfg.Females {
				return Result{Status: "FAIL", Note: fmt.Sprintf("served %dM/%dF", st.MalesServed, st.FemalesServed)}
			}
			return Result{Status: "PASS", Latency: time.Since(start), Note: fmt.Sprintf("samples=%d", samples)}
		}
		select {
		case <-ctx.Done():
			return Result{Status: "FAIL", Note: fmt.Sprintf("served %d/%d before timeout", st.TotalServed, want)}
		case <-time.After(250 * time.Millisecond):
		}
	}
}

func checkInvariants(st simulation.State) error {
	seen := map[types.ID]bool{}
	for _, p := range st.Passengers {
		if seen[p.ID] {
			return fmt.Errorf("passenger %s listed twice", p.ID)
		}
		seen[p.ID] = true
	}
	for _, v := range st.Vehicles {
		var males, females int
		for _, rd := range v.Riders {
			if rd.Gender == passenger.Male {
				males++
			} else {
				females++
			}
		}
		if males+females > 3 {
			return fmt.Errorf("vehicle %d carries %d riders", v.ID, males+females)
		}
		if males > 0 && females > 0 && males+females > 2 {
			return fmt.Errorf("vehicle %d carries a mixed group of %d", v.ID, males+females)
		}
	}
	return nil
}

func checkFeed(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: "SKIP", Note: "redis not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	raw, err := r.redis.Get(ctx, r.cfg.FeedPrefix+":state").Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{Status: "FAIL", Note: "no frame published"}
	}
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	var frame feed.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	age := time.Since(frame.At)
	if frame.Seq == 0 || age > 10*time.Second {
		return Result{Status: "FAIL", Note: fmt.Sprintf("seq=%d age=%s", frame.Seq, age)}
	}
	n, err := r.redis.HLen(ctx, r.cfg.FeedPrefix+":vehicles").Result()
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	return Result{Status: "PASS", Note: fmt.Sprintf("seq=%d vehicles=%d age=%s", frame.Seq, n, age.Round(time.Millisecond))}
}

func perfLoad(ctx context.Context, r *Runner, path string) Result {
	end := time.Now().Add(r.cfg.Duration)
	var mu sync.Mutex
	var latencies []time.Duration
	var errCount int
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				start := time.Now()
				_, err := r.doJSON(ctx, http.MethodGet, path, nil, nil)
				d := time.Since(start)
				mu.Lock()
				if err != nil {
					errCount++
				} else {
					latencies = append(latencies, d)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(latencies) == 0 {
		return Result{Status: "FAIL", Note: "no requests completed"}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	p50 := latencies[len(latencies)/2]
	p95 := latencies[len(latencies)*95/100]
	rps := float64(len(latencies)) / r.cfg.Duration.Seconds()
	return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f p50=%s p95=%s errors=%d", rps, p50, p95, errCount)}
}

// doJSON sends body as JSON and decodes the response into out when given.
func (r *Runner) doJSON(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out == nil || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
	}
	return resp.StatusCode, nil
}
