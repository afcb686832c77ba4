package sim

import (
	"context"
	"math"
	"time"

	"droneops-engine/internal/fleet"
	"droneops-engine/internal/logging"
	"droneops-engine/internal/telemetry"
)

// patrol advances an idle drone along its motion profile: a slowly turning
// heading, a small positional wobble and a leash back toward the profile base.
func (e *Engine) patrol(d *droneTick, now time.Time) {
	p := e.motion.Profile(d.id, d.pos.Lat, d.pos.Lng)
	heading := p.Heading
	if ms, ok := e.motion.State(d.id); ok {
		heading = ms.Heading
	}
	t := float64(now.UnixMilli()) / 1000
	heading += p.TurnRate * stepSeconds * math.Sin(p.PhaseOffset+t/10)

	if telemetry.DistanceMeters(d.pos.Lat, d.pos.Lng, p.Base.Lat, p.Base.Lng) > e.cfg.PatrolRadiusM {
		heading = telemetry.Bearing(d.pos.Lat, d.pos.Lng, p.Base.Lat, p.Base.Lng)
	}
	heading = telemetry.NormalizeHeading(heading)

	lat, lng := telemetry.Destination(d.pos.Lat, d.pos.Lng, heading, p.Speed*stepSeconds)
	wob := func(at float64) float64 { return p.WobbleAmplitude * math.Sin(p.PhaseOffset+at/5) }
	wobc := func(at float64) float64 { return p.WobbleAmplitude * math.Cos(p.PhaseOffset+at/5) }
	lat += wob(t) - wob(t-stepSeconds)
	lng += wobc(t) - wobc(t-stepSeconds)

	d.pos.Lat, d.pos.Lng = lat, lng
	d.pos.Speed = p.Speed

	if d.targetAlt != nil {
		d.pos.Alt = telemetry.Approach(d.pos.Alt, *d.targetAlt, e.cfg.ClimbRateMPS*stepSeconds, altSnapM)
		if d.pos.Alt == *d.targetAlt {
			d.targetAlt = nil
		}
	}
	e.motion.UpdateState(d.id, heading, now)
}

// returnToLaunch flies the drone home at the RTL speed. Inside the RTL radius
// it lands on the anchor and the landing is persisted immediately.
func (e *Engine) returnToLaunch(ctx context.Context, d *droneTick) {
	dist := telemetry.DistanceMeters(d.pos.Lat, d.pos.Lng, d.anchor.Lat, d.anchor.Lng)
	if dist > e.cfg.RTLRadiusM {
		bearing := telemetry.Bearing(d.pos.Lat, d.pos.Lng, d.anchor.Lat, d.anchor.Lng)
		step := math.Min(e.cfg.RTLSpeedMPS*stepSeconds, dist)
		d.pos.Lat, d.pos.Lng = telemetry.Destination(d.pos.Lat, d.pos.Lng, bearing, step)
		d.pos.Speed = step / stepSeconds
		return
	}

	d.pos = telemetry.Position{Lat: d.anchor.Lat, Lng: d.anchor.Lng}
	d.returning = false
	d.status = fleet.StatusOnline
	d.missionID = ""
	d.targetAlt = nil
	pos := d.pos
	e.drones.Update(d.id, func(s *fleet.State) {
		s.Position = pos
		s.Returning = false
		s.Status = fleet.StatusOnline
		s.ActiveMissionID = nil
		s.TargetAltitude = nil
	})
	e.motion.Reset(d.id)
	logging.FromContext(ctx).Info("return to launch complete", "drone_id", d.id)
}
