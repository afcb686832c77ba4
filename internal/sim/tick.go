package sim

import (
	"context"
	"time"

	"droneops-engine/internal/fleet"
	"droneops-engine/internal/logging"
	"droneops-engine/internal/mission"
	"droneops-engine/internal/telemetry"
)

// droneTick is the working copy of one drone while its tick is computed.
type droneTick struct {
	id        string
	status    fleet.Status
	returning bool
	missionID string
	pos       telemetry.Position
	targetAlt *float64
	anchor    telemetry.Anchor
	// blipped marks a transient link drop: reported offline, never persisted.
	blipped bool
}

// tickDrone runs the full pipeline for one drone under its lock: status and
// mission resolution, failure checks, one motion step, battery, a single
// writeback and the telemetry row.
func (e *Engine) tickDrone(ctx context.Context, id string, now time.Time) (telemetry.TelemetryRow, bool) {
	log := logging.FromContext(ctx)
	unlock := e.drones.Lock(id)
	defer unlock()

	st, ok := e.drones.Get(id)
	if !ok {
		return telemetry.TelemetryRow{}, false
	}
	d := droneTick{
		id:        id,
		status:    st.Status,
		returning: st.Returning,
		missionID: st.MissionID(),
		pos:       st.Position,
		targetAlt: st.TargetAltitude,
		anchor:    st.BaseAnchor,
	}

	active := e.resolveMission(ctx, &d)
	resolvedID := ""
	if active != nil {
		resolvedID = active.ID
	}

	gps := telemetry.Clamp(e.gpsBaseline(id)+e.rng.Float64()*2-1, 0, 100)

	if active != nil {
		if reason := e.failureReason(st, d.status, gps, now); reason != mission.ReasonNone {
			if _, ok := e.missions.Complete(active.ID, false, reason); ok {
				log.Info("mission failed", "mission_id", active.ID, "drone_id", id, "reason", reason)
			}
			active = nil
			d.missionID = ""
			if reason != mission.ReasonOfflineTimeout {
				d.status = fleet.StatusOnline
			}
		}
	}

	switch {
	case active != nil && !d.returning && d.status.Flying():
		active = e.followWaypoints(ctx, &d, *active, now)
	case d.status.Flying() && !(d.status == fleet.StatusOnline && e.faults.OfflineBlip(id)):
		if d.returning {
			e.returnToLaunch(ctx, &d)
		} else {
			e.patrol(&d, now)
		}
	default:
		d.pos.Speed = 0
		if d.status.Flying() {
			d.blipped = true
		} else {
			d.pos.Alt = 0
		}
	}

	battery := telemetry.Clamp(st.BatteryPct+e.batteryDelta(d.status), 0, 100)

	e.drones.Update(id, func(s *fleet.State) {
		s.Position = d.pos
		s.BatteryPct = battery
		s.Status = d.status
		s.Returning = d.returning
		s.TargetAltitude = d.targetAlt
		s.ActiveMissionID = nil
		if d.missionID != "" {
			mid := d.missionID
			s.ActiveMissionID = &mid
		}
	})

	row := telemetry.TelemetryRow{
		ClusterID:  e.clusterID,
		DroneID:    id,
		Timestamp:  now.UTC(),
		Lat:        d.pos.Lat,
		Lng:        d.pos.Lng,
		Alt:        d.pos.Alt,
		Speed:      d.pos.Speed,
		Battery:    battery,
		GPSQuality: gps,
		Status:     string(d.status),
	}
	if d.blipped {
		row.Status = string(fleet.StatusOffline)
		row.Alt = 0
	}
	if active != nil {
		mid := active.ID
		row.ActiveMissionID = &mid
		row.ActiveMissionStatus = string(active.Status)
	} else if st.MissionID() != "" || resolvedID != "" {
		row.MissionCleared = true
	}
	return row, true
}

// resolveMission finds the drone's in-progress mission by its link, falling
// back to a scan of the mission store. A mission found by scan is re-linked.
func (e *Engine) resolveMission(ctx context.Context, d *droneTick) *mission.Mission {
	if d.missionID != "" {
		if m, ok := e.missions.Get(d.missionID); ok && m.Status == mission.StatusInProgress {
			return &m
		}
	}
	if d.returning {
		d.missionID = ""
		return nil
	}
	m, ok := e.missions.ActiveForDrone(d.id)
	if !ok {
		d.missionID = ""
		return nil
	}
	if d.missionID != m.ID {
		logging.FromContext(ctx).Debug("relinked mission", "drone_id", d.id, "mission_id", m.ID)
	}
	d.missionID = m.ID
	return &m
}

// failureReason evaluates the mission failure conditions in priority order.
func (e *Engine) failureReason(st fleet.State, status fleet.Status, gps float64, now time.Time) mission.FailureReason {
	switch {
	case st.BatteryPct < e.cfg.LowBatteryPct:
		return mission.ReasonLowBattery
	case gps < e.cfg.LowGPSPct:
		return mission.ReasonLowGPS
	case status == fleet.StatusOffline && st.OfflineSince != nil && now.Sub(*st.OfflineSince) > e.cfg.OfflineTimeout():
		return mission.ReasonOfflineTimeout
	}
	return mission.ReasonNone
}

func (e *Engine) batteryDelta(status fleet.Status) float64 {
	switch status {
	case fleet.StatusInMission:
		return -e.cfg.MissionDrainPct * stepSeconds
	case fleet.StatusOnline:
		return -e.cfg.IdleDrainPct * stepSeconds
	case fleet.StatusCharging:
		return e.cfg.ChargeRatePct * stepSeconds
	}
	return 0
}
