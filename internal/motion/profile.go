// Package motion derives per-drone patrol character from the drone id and
// tracks the heading each drone is currently flying.
package motion

import (
	"math"
	"sync"
	"time"

	"droneops-engine/internal/telemetry"
)

// Profile is the static flight character of a drone. It is computed once per
// drone and never changes afterwards, including Base.
type Profile struct {
	Speed           float64          `json:"speed"`
	Heading         float64          `json:"heading"`
	TurnRate        float64          `json:"turnRate"`
	WobbleAmplitude float64          `json:"wobbleAmplitude"`
	PhaseOffset     float64          `json:"phaseOffset"`
	Base            telemetry.Anchor `json:"base"`
}

// State is the heading a drone is flying right now.
type State struct {
	Heading   float64   `json:"heading"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Generator memoizes profiles and motion state per drone id.
type Generator struct {
	mu       sync.Mutex
	profiles map[string]Profile
	states   map[string]State
}

// NewGenerator creates an empty generator.
func NewGenerator() *Generator {
	return &Generator{
		profiles: make(map[string]Profile),
		states:   make(map[string]State),
	}
}

// Profile returns the drone's profile. The first call captures lat/lng as the
// profile base; later calls ignore the position arguments.
func (g *Generator) Profile(droneID string, lat, lng float64) Profile {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.profiles[droneID]; ok {
		return p
	}
	p := newProfile(droneID, lat, lng)
	g.profiles[droneID] = p
	return p
}

// State returns the drone's current motion state.
func (g *Generator) State(droneID string) (State, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.states[droneID]
	return s, ok
}

// UpdateState records the heading the drone flew this tick.
func (g *Generator) UpdateState(droneID string, heading float64, ts time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.states[droneID] = State{Heading: telemetry.NormalizeHeading(heading), UpdatedAt: ts}
}

// Reset forgets the current heading so patrol restarts from the profile heading.
func (g *Generator) Reset(droneID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.states, droneID)
}

func newProfile(droneID string, lat, lng float64) Profile {
	r := newLCG(hashString(droneID))
	return Profile{
		Speed:           2 + r.next()*10,
		Heading:         r.next() * 360,
		TurnRate:        5 + r.next()*20,
		WobbleAmplitude: 0.0002 + r.next()*0.0008,
		PhaseOffset:     r.next() * 2 * math.Pi,
		Base:            telemetry.Anchor{Lat: lat, Lng: lng},
	}
}

// hashString is the classic 31-multiplier string hash with 32-bit wraparound.
func hashString(s string) int32 {
	var h int32
	for _, c := range s {
		h = (h << 5) - h + int32(c)
	}
	return h
}

const (
	lcgMul = 9301
	lcgInc = 49297
	lcgMod = 233280
)

type lcg struct{ seed int64 }

func newLCG(h int32) *lcg {
	s := int64(h)
	if s < 0 {
		s = -s
	}
	return &lcg{seed: s % lcgMod}
}

// next returns a value in [0, 1).
func (l *lcg) next() float64 {
	l.seed = (l.seed*lcgMul + lcgInc) % lcgMod
	return float64(l.seed) / lcgMod
}
