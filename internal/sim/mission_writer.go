package sim

import "droneops-engine/internal/telemetry"

// MissionEventWriter handles mission execution events.
type MissionEventWriter interface {
	WriteMissionEvent(telemetry.MissionEventRow) error
}

// Optional: Mission event writers may support batch mode.
type batchMissionEventWriter interface {
	WriteMissionEvents([]telemetry.MissionEventRow) error
}
