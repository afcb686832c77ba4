package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"droneops-engine/internal/fleet"
	"droneops-engine/internal/logging"
	"droneops-engine/internal/mission"
	"droneops-engine/internal/telemetry"
)

// altSnapM is how close altitude must get before it lands on its target.
const altSnapM = 1.0

// followWaypoints moves the drone one step along its mission route. It returns
// the mission as it stands after the step, or nil once the route is done.
func (e *Engine) followWaypoints(ctx context.Context, d *droneTick, m mission.Mission, now time.Time) *mission.Mission {
	d.status = fleet.StatusInMission
	wps := m.SortedWaypoints()
	idx := m.Index()
	if idx < 0 || idx >= len(wps) {
		idx = 0
	}
	wp := wps[idx]

	dist := telemetry.DistanceMeters(d.pos.Lat, d.pos.Lng, wp.Lat, wp.Lng)
	if dist >= e.cfg.ArrivalRadiusM {
		e.stepToward(d, wp, dist, now)
		return &m
	}

	if !wp.Action.IsNone() && !e.exec.HasAction(m.ID, idx) {
		e.exec.StartAction(m.ID, idx, wp.Action, now)
		e.waypointReached(m.ID, idx, wp, now)
		d.pos.Speed = 0
		return &m
	}
	if e.exec.IsActionExecuting(m.ID, idx, now) {
		d.pos.Speed = 0
		return &m
	}

	e.waypointReached(m.ID, idx, wp, now)
	next, ok := e.missions.AdvanceWaypoint(m.ID)
	if !ok {
		return &m
	}
	if next.Status != mission.StatusInProgress {
		last := wps[len(wps)-1]
		d.pos = telemetry.Position{Lat: last.Lat, Lng: last.Lng}
		d.status = fleet.StatusOnline
		d.missionID = ""
		d.targetAlt = nil
		logging.FromContext(ctx).Info("mission completed", "mission_id", m.ID, "drone_id", d.id)
		return nil
	}

	nwp := wps[next.Index()]
	e.stepToward(d, nwp, telemetry.DistanceMeters(d.pos.Lat, d.pos.Lng, nwp.Lat, nwp.Lng), now)
	return &next
}

// stepToward advances one tick toward wp without overshooting it and ramps
// altitude toward the waypoint altitude.
func (e *Engine) stepToward(d *droneTick, wp mission.Waypoint, dist float64, now time.Time) {
	speed := e.cfg.DefaultWaypointSpeedMPS
	if wp.Speed != nil && *wp.Speed > 0 {
		speed = *wp.Speed
	}
	step := math.Min(speed*stepSeconds, dist)
	bearing := telemetry.Bearing(d.pos.Lat, d.pos.Lng, wp.Lat, wp.Lng)
	if step > 0 {
		d.pos.Lat, d.pos.Lng = telemetry.Destination(d.pos.Lat, d.pos.Lng, bearing, step)
	}
	d.pos.Speed = step / stepSeconds
	d.pos.Alt = telemetry.Approach(d.pos.Alt, wp.Alt, e.cfg.ClimbRateMPS*stepSeconds, altSnapM)
	e.motion.UpdateState(d.id, bearing, now)
}

// waypointReached records the arrival. Event logging is best-effort.
func (e *Engine) waypointReached(missionID string, idx int, wp mission.Waypoint, now time.Time) {
	i := idx
	e.exec.AddEvent(missionID, mission.Event{
		Timestamp:     now,
		Type:          mission.EventWaypointReached,
		WaypointIndex: &i,
		Message:       fmt.Sprintf("reached waypoint %d (%.5f, %.5f)", idx, wp.Lat, wp.Lng),
	})
}
