package telemetry

import "time"

// FleetStateRow captures a per-poll summary of the fleet.
type FleetStateRow struct {
	ClusterID      string    `json:"clusterId"`
	Drones         int       `json:"drones"`
	Online         int       `json:"online"`
	InMission      int       `json:"inMission"`
	Offline        int       `json:"offline"`
	Charging       int       `json:"charging"`
	ActiveMissions int       `json:"activeMissions"`
	AvgBattery     float64   `json:"avgBattery"`
	Timestamp      time.Time `json:"timestamp"`
}

// FleetStateTableName is the GreptimeDB table for fleet summaries.
const FleetStateTableName = "fleet_state"

func (FleetStateRow) TableName() string {
	return FleetStateTableName
}
