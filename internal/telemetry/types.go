// Telemetry rows emitted by the tick engine and consumed by writers
package telemetry

import (
	"encoding/json"
	"os"
	"time"
)

// TelemetryRow represents one telemetry record for a drone at the time of a tick.
type TelemetryRow struct {
	ClusterID           string    `json:"clusterId"`
	DroneID             string    `json:"droneId"`
	Timestamp           time.Time `json:"timestamp"`
	Lat                 float64   `json:"lat"`
	Lng                 float64   `json:"lng"`
	Alt                 float64   `json:"alt"`
	Speed               float64   `json:"speed"`
	Battery             float64   `json:"battery"`
	GPSQuality          float64   `json:"gpsQuality"`
	Status              string    `json:"status"`
	ActiveMissionID     *string   `json:"activeMissionId,omitempty"`
	ActiveMissionStatus string    `json:"activeMissionStatus,omitempty"`

	// MissionCleared marks the tick on which the drone's mission link was
	// dropped. It is encoded as an explicit "activeMissionId": null.
	MissionCleared bool `json:"-"`
}

type plainRow TelemetryRow

// MarshalJSON emits activeMissionId as null on the tick a mission is cleared so
// consumers can see the edge instead of an absent key.
func (r TelemetryRow) MarshalJSON() ([]byte, error) {
	if !r.MissionCleared || r.ActiveMissionID != nil {
		return json.Marshal(plainRow(r))
	}
	return json.Marshal(struct {
		plainRow
		ActiveMissionID *string `json:"activeMissionId"`
	}{plainRow: plainRow(r)})
}

// UnmarshalJSON restores MissionCleared from an explicit null.
func (r *TelemetryRow) UnmarshalJSON(b []byte) error {
	var p plainRow
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	var raw struct {
		ActiveMissionID json.RawMessage `json:"activeMissionId"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = TelemetryRow(p)
	r.MissionCleared = string(raw.ActiveMissionID) == "null"
	return nil
}

// TelemetryTableName holds the table name used when writing to GreptimeDB.
// It defaults to "drone_telemetry" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var TelemetryTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "drone_telemetry"
}()

func (TelemetryRow) TableName() string {
	return TelemetryTableName
}

// Position holds latitude, longitude, altitude and ground speed.
type Position struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Alt   float64 `json:"alt"`
	Speed float64 `json:"speed"`
}

// Anchor is a fixed ground point such as a launch pad.
type Anchor struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
