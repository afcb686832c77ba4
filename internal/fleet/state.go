package fleet

import (
	"time"

	"droneops-engine/internal/telemetry"
)

// Status is the authoritative operational state of a drone.
type Status string

// Drone status constants.
const (
	StatusOnline    Status = "online"
	StatusOffline   Status = "offline"
	StatusCharging  Status = "charging"
	StatusInMission Status = "in-mission"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusCharging, StatusInMission:
		return true
	}
	return false
}

// Flying reports whether the drone is allowed to move under its own power.
func (s Status) Flying() bool {
	return s == StatusOnline || s == StatusInMission
}

// State holds the mutable runtime half of a drone.
type State struct {
	DroneID         string             `json:"droneId"`
	Status          Status             `json:"status"`
	Armed           bool               `json:"armed"`
	Returning       bool               `json:"returning"`
	LastCommand     string             `json:"lastCommand,omitempty"`
	LastCommandAt   *time.Time         `json:"lastCommandAt,omitempty"`
	ActiveMissionID *string            `json:"activeMissionId"`
	Position        telemetry.Position `json:"position"`
	BatteryPct      float64            `json:"batteryPct"`
	TargetAltitude  *float64           `json:"targetAltitude"`
	BaseAnchor      telemetry.Anchor   `json:"baseAnchor"`
	OfflineSince    *time.Time         `json:"offlineSince"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// Clone returns a deep copy so callers never share pointers with the store.
func (s State) Clone() State {
	c := s
	if s.LastCommandAt != nil {
		t := *s.LastCommandAt
		c.LastCommandAt = &t
	}
	if s.ActiveMissionID != nil {
		id := *s.ActiveMissionID
		c.ActiveMissionID = &id
	}
	if s.TargetAltitude != nil {
		a := *s.TargetAltitude
		c.TargetAltitude = &a
	}
	if s.OfflineSince != nil {
		t := *s.OfflineSince
		c.OfflineSince = &t
	}
	return c
}

// MissionID returns the active mission id or "".
func (s State) MissionID() string {
	if s.ActiveMissionID == nil {
		return ""
	}
	return *s.ActiveMissionID
}

// Baseline is the static seed for a drone's runtime entry.
type Baseline struct {
	DroneID    string
	Status     Status
	BatteryPct float64
	Position   telemetry.Position
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string { return &s }

// FloatPtr returns a pointer to a copy of f.
func FloatPtr(f float64) *float64 { return &f }
