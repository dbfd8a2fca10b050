package types

import (
	"math/rand/v2"
	"time"
)

// Clock abstracts the monotonic time source, replacing the source's global
// monotonic-clock state (spec.md §9 Design Notes: "Global mutable state").
// The default clock is time.Now; tests substitute a fake one.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Workspace holds the per-worker context that the source kept as global
// mutable state: the debug flag, the clock source, and the random
// generator used for session-id / cookie minting (spec.md §9).
type Workspace struct {
	Clock    Clock
	Rand     *rand.Rand
	DebugLog bool
}

// NewWorkspace constructs a production Workspace: system clock, a PCG
// PRNG seeded from the current time, debug logging off.
func NewWorkspace() *Workspace {
	return &Workspace{
		Clock: SystemClock{},
		Rand:  rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0xa5a5a5a5a5a5a5a5)),
	}
}
