// README: Feed frames mirrored to Redis for live viewers.
package feed

import (
	"time"

	"ridesim/internal/modules/simulation"
)

// Frame is one published picture of the simulation.
type Frame struct {
	Seq   uint64           `json:"seq"`
	At    time.Time        `json:"at"`
	State simulation.State `json:"state"`
}
