// Package scenario provides mission plan templates that expand into ordered
// waypoint routes around an origin.
package scenario

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"droneops-engine/internal/mission"
	"droneops-engine/internal/telemetry"
)

// Pattern is the route shape of a plan.
type Pattern string

const (
	PatternLine   Pattern = "line"
	PatternSquare Pattern = "square"
	PatternOrbit  Pattern = "orbit"
	PatternGrid   Pattern = "grid"
)

// Plan is a reusable mission template.
type Plan struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Pattern     Pattern  `yaml:"pattern" json:"pattern"`
	Legs        int      `yaml:"legs,omitempty" json:"legs,omitempty"`
	SpacingM    float64  `yaml:"spacing_m" json:"spacingM"`
	HeadingDeg  float64  `yaml:"heading_deg,omitempty" json:"headingDeg,omitempty"`
	Altitude    float64  `yaml:"altitude" json:"altitude"`
	Speed       *float64 `yaml:"speed,omitempty" json:"speed,omitempty"`
	Actions     []string `yaml:"actions,omitempty" json:"actions,omitempty"`
}

type planFile struct {
	Plans []Plan `yaml:"plans"`
}

// ErrUnknownPlan is returned when a plan name is not registered.
var ErrUnknownPlan = errors.New("unknown mission plan")

// Load reads a YAML plan file from disk. Plans are keyed by name.
func Load(path string) (map[string]Plan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plans: %w", err)
	}
	var f planFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse plans: %w", err)
	}
	out := make(map[string]Plan, len(f.Plans))
	for _, p := range f.Plans {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("plan %q: %w", p.Name, err)
		}
		out[p.Name] = p
	}
	return out, nil
}

// Merge returns the built-in plans overlaid with extra.
func Merge(extra map[string]Plan) map[string]Plan {
	out := BuiltIn()
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Validate checks the plan can produce a route.
func (p Plan) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.SpacingM <= 0 {
		return errors.New("spacing_m must be positive")
	}
	switch p.Pattern {
	case PatternSquare:
	case PatternLine, PatternOrbit, PatternGrid:
		if p.Legs <= 0 {
			return fmt.Errorf("pattern %s needs legs > 0", p.Pattern)
		}
	default:
		return fmt.Errorf("unknown pattern %q", p.Pattern)
	}
	for _, a := range p.Actions {
		if !mission.Action(a).Valid() {
			return fmt.Errorf("unknown action %q", a)
		}
	}
	return nil
}

// Waypoints expands the plan around an origin. Actions are assigned round
// robin across the generated waypoints.
func (p Plan) Waypoints(lat, lng float64) []mission.Waypoint {
	var pts [][2]float64
	at := func(bearing, dist float64) {
		la, ln := telemetry.Destination(lat, lng, bearing, dist)
		pts = append(pts, [2]float64{la, ln})
	}

	switch p.Pattern {
	case PatternLine:
		for i := 1; i <= p.Legs; i++ {
			at(p.HeadingDeg, float64(i)*p.SpacingM)
		}
	case PatternSquare:
		half := p.SpacingM / math.Sqrt2
		for _, b := range []float64{315, 45, 135, 225, 315} {
			at(p.HeadingDeg+b, half)
		}
	case PatternOrbit:
		step := 360.0 / float64(p.Legs)
		for i := 0; i <= p.Legs; i++ {
			at(p.HeadingDeg+float64(i)*step, p.SpacingM)
		}
	case PatternGrid:
		width := p.SpacingM * 4
		for row := 0; row < p.Legs; row++ {
			rla, rln := telemetry.Destination(lat, lng, p.HeadingDeg, float64(row)*p.SpacingM)
			near := [2]float64{rla, rln}
			fla, fln := telemetry.Destination(rla, rln, p.HeadingDeg+90, width)
			far := [2]float64{fla, fln}
			if row%2 == 1 {
				near, far = far, near
			}
			pts = append(pts, near, far)
		}
	}

	wps := make([]mission.Waypoint, len(pts))
	for i, pt := range pts {
		wp := mission.Waypoint{Lat: pt[0], Lng: pt[1], Alt: p.Altitude, Order: i}
		if p.Speed != nil {
			s := *p.Speed
			wp.Speed = &s
		}
		if len(p.Actions) > 0 {
			wp.Action = mission.Action(p.Actions[i%len(p.Actions)])
		}
		wps[i] = wp
	}
	return wps
}
