package telemetry

import (
	"os"
	"time"
)

// MissionEventRow is a mission execution event exported to writers.
type MissionEventRow struct {
	ClusterID     string    `json:"clusterId"`
	MissionID     string    `json:"missionId"`
	EventType     string    `json:"type"`
	WaypointIndex *int      `json:"waypointIndex,omitempty"`
	Action        string    `json:"action,omitempty"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
}

// MissionEventTableName holds the GreptimeDB table for mission events. It can
// be overridden via the MISSION_EVENT_TABLE environment variable.
var MissionEventTableName = func() string {
	if env := os.Getenv("MISSION_EVENT_TABLE"); env != "" {
		return env
	}
	return "mission_events"
}()

func (MissionEventRow) TableName() string {
	return MissionEventTableName
}
