// README: Departure policy: whether a partly loaded vehicle holds for more riders.
package vehicle

import (
	"math/rand/v2"
	"sync"

	"ridesim/internal/config"
)

// HoldPolicy decides, once per departure check, whether a vehicle carrying
// riders passengers keeps waiting for more.
type HoldPolicy interface {
	ShouldHold(riders int) bool
}

// HoldFunc adapts a plain function to HoldPolicy.
type HoldFunc func(riders int) bool

func (f HoldFunc) ShouldHold(riders int) bool { return f(riders) }

var (
	// AlwaysHold holds on every check, so departure is forced by the wait limit.
	AlwaysHold HoldPolicy = HoldFunc(func(int) bool { return true })
	// NeverHold never holds; a partial load then waits for a matching rule.
	NeverHold HoldPolicy = HoldFunc(func(int) bool { return false })
)

// ProbabilisticHold holds with a probability depending on the current load.
// Loads without an entry never hold.
type ProbabilisticHold struct {
	Probabilities map[int]float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewProbabilisticHold seeds its own generator; pass a fixed seed for
// reproducible runs.
func NewProbabilisticHold(probs map[int]float64, seed uint64) *ProbabilisticHold {
	return &ProbabilisticHold{
		Probabilities: probs,
		rng:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// PolicyFromConfig builds the reference policy: hold with p1 for one rider,
// p2 for two.
func PolicyFromConfig(cfg config.SimulationConfig) *ProbabilisticHold {
	return NewProbabilisticHold(map[int]float64{
		1: cfg.HoldProbability1,
		2: cfg.HoldProbability2,
	}, rand.Uint64())
}

func (h *ProbabilisticHold) ShouldHold(riders int) bool {
	p, ok := h.Probabilities[riders]
	if !ok || p <= 0 {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Float64() < p
}
