package sim

import (
	"math/rand"
	"sync"
)

// Faults injects demo failures into the engine. Implementations must be safe
// for concurrent use.
type Faults interface {
	// OfflineBlip reports whether an online drone drops its link for this tick.
	OfflineBlip(droneID string) bool
	// CommandFailure reports whether a command submission should fail.
	CommandFailure(droneID string, cmd Command) bool
}

// NoFaults never injects anything.
type NoFaults struct{}

func (NoFaults) OfflineBlip(string) bool             { return false }
func (NoFaults) CommandFailure(string, Command) bool { return false }

// RandomFaults fires each fault with a fixed probability.
type RandomFaults struct {
	OfflineRate float64
	CommandRate float64
	rng         *lockedRand
}

// NewRandomFaults creates a seeded random fault injector.
func NewRandomFaults(offlineRate, commandRate float64, seed int64) *RandomFaults {
	return &RandomFaults{
		OfflineRate: offlineRate,
		CommandRate: commandRate,
		rng:         newLockedRand(rand.New(rand.NewSource(seed))),
	}
}

func (f *RandomFaults) OfflineBlip(string) bool {
	return f.rng.Float64() < f.OfflineRate
}

func (f *RandomFaults) CommandFailure(string, Command) bool {
	return f.rng.Float64() < f.CommandRate
}

// lockedRand serializes access to a *rand.Rand, which is not goroutine safe.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand(r *rand.Rand) *lockedRand {
	return &lockedRand{r: r}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}
