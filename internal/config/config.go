// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"droneops-engine/internal/fleet"
	"droneops-engine/internal/mission"
	"droneops-engine/internal/telemetry"
)

// Engine holds the tunables of the tick engine.
type Engine struct {
	MinVisibleDrones        int     `yaml:"min_visible_drones"`
	ArrivalRadiusM          float64 `yaml:"arrival_radius_m"`
	RTLRadiusM              float64 `yaml:"rtl_radius_m"`
	RTLSpeedMPS             float64 `yaml:"rtl_speed_mps"`
	ClimbRateMPS            float64 `yaml:"climb_rate_mps"`
	DefaultWaypointSpeedMPS float64 `yaml:"default_waypoint_speed_mps"`
	PatrolRadiusM           float64 `yaml:"patrol_radius_m"`
	LowBatteryPct           float64 `yaml:"low_battery_pct"`
	LowGPSPct               float64 `yaml:"low_gps_pct"`
	OfflineTimeoutSeconds   float64 `yaml:"offline_timeout_seconds"`
	MissionDrainPct         float64 `yaml:"mission_drain_pct"`
	IdleDrainPct            float64 `yaml:"idle_drain_pct"`
	ChargeRatePct           float64 `yaml:"charge_rate_pct"`
	TakeoffMinAltM          float64 `yaml:"takeoff_min_alt_m"`
	TakeoffMaxAltM          float64 `yaml:"takeoff_max_alt_m"`
}

// OfflineTimeout returns the offline-timeout threshold as a duration.
func (e Engine) OfflineTimeout() time.Duration {
	return time.Duration(e.OfflineTimeoutSeconds * float64(time.Second))
}

// Faults configures the optional demo fault injection.
type Faults struct {
	Enabled            bool    `yaml:"enabled"`
	OfflineBlipRate    float64 `yaml:"offline_blip_rate"`
	CommandFailureRate float64 `yaml:"command_failure_rate"`
	Seed               int64   `yaml:"seed"`
}

// Drone is the static baseline of one drone.
type Drone struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	Model      string  `yaml:"model"`
	Status     string  `yaml:"status,omitempty"`
	Battery    float64 `yaml:"battery"`
	GPSQuality *float64 `yaml:"gps_quality,omitempty"`
	Lat        float64 `yaml:"lat"`
	Lng        float64 `yaml:"lng"`
	Alt        float64 `yaml:"alt"`
}

const defaultGPSQuality = 95

// GPS returns the nominal GPS quality, 95 when unset.
func (d Drone) GPS() float64 {
	if d.GPSQuality == nil {
		return defaultGPSQuality
	}
	return *d.GPSQuality
}

// Waypoint is a mission waypoint as written in YAML.
type Waypoint struct {
	Lat    float64  `yaml:"lat"`
	Lng    float64  `yaml:"lng"`
	Alt    float64  `yaml:"alt"`
	Order  int      `yaml:"order"`
	Speed  *float64 `yaml:"speed,omitempty"`
	Action string   `yaml:"action,omitempty"`
}

// Mission is a seeded mission record.
type Mission struct {
	ID              string     `yaml:"id"`
	DroneID         string     `yaml:"drone_id"`
	Name            string     `yaml:"name"`
	Status          string     `yaml:"status,omitempty"`
	CurrentWaypoint *int       `yaml:"current_waypoint,omitempty"`
	Waypoints       []Waypoint `yaml:"waypoints"`
}

// Config is the root configuration of the engine.
type Config struct {
	ClusterID    string    `yaml:"cluster_id"`
	TickInterval string    `yaml:"tick_interval"`
	PlansFile    string    `yaml:"plans_file,omitempty"`
	Engine       Engine    `yaml:"engine"`
	Faults       Faults    `yaml:"faults"`
	Drones       []Drone   `yaml:"drones"`
	Missions     []Mission `yaml:"missions"`
}

// Load reads a YAML config, validates it against the CUE schema (the embedded
// one when cueSchemaPath is empty), fills defaults and checks cross references.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	// Keys present in the file override the built-in values, so explicit
	// zeros survive. The fleet is replaced as a whole, never merged.
	cfg := Default()
	cfg.Drones, cfg.Missions = nil, nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Tick returns the poll interval.
func (c *Config) Tick() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("CLUSTER_ID"); v != "" {
		c.ClusterID = v
	}
	if v := getenv("TICK_INTERVAL"); v != "" {
		c.TickInterval = v
	}
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.ClusterID == "" {
		c.ClusterID = def.ClusterID
	}
	if c.TickInterval == "" {
		c.TickInterval = def.TickInterval
	}
	if len(c.Drones) == 0 {
		c.Drones = def.Drones
		if len(c.Missions) == 0 {
			c.Missions = def.Missions
		}
	}
	for i := range c.Drones {
		if c.Drones[i].Status == "" {
			c.Drones[i].Status = string(fleet.StatusOnline)
		}
	}
}

// Check validates cross references the schema cannot express.
func (c *Config) Check() error {
	var errs []error
	drones := make(map[string]bool, len(c.Drones))
	for _, d := range c.Drones {
		if drones[d.ID] {
			errs = append(errs, fmt.Errorf("duplicate drone id %q", d.ID))
		}
		drones[d.ID] = true
		if !fleet.Status(d.Status).Valid() {
			errs = append(errs, fmt.Errorf("drone %s: unknown status %q", d.ID, d.Status))
		}
	}
	missions := make(map[string]bool, len(c.Missions))
	active := make(map[string]string)
	for _, m := range c.Missions {
		if missions[m.ID] {
			errs = append(errs, fmt.Errorf("duplicate mission id %q", m.ID))
		}
		missions[m.ID] = true
		if !drones[m.DroneID] {
			errs = append(errs, fmt.Errorf("mission %s: unknown drone %q", m.ID, m.DroneID))
		}
		if mission.Status(m.Status) == mission.StatusInProgress {
			if other, ok := active[m.DroneID]; ok {
				errs = append(errs, fmt.Errorf("drone %s has two in-progress missions: %s, %s", m.DroneID, other, m.ID))
			}
			active[m.DroneID] = m.ID
		}
	}
	if c.Engine.TakeoffMaxAltM < c.Engine.TakeoffMinAltM {
		errs = append(errs, errors.New("takeoff_max_alt_m must not be below takeoff_min_alt_m"))
	}
	return errors.Join(errs...)
}

// Baselines converts the drone list into runtime store seeds.
func (c *Config) Baselines() []fleet.Baseline {
	out := make([]fleet.Baseline, 0, len(c.Drones))
	for _, d := range c.Drones {
		out = append(out, fleet.Baseline{
			DroneID:    d.ID,
			Status:     fleet.Status(d.Status),
			BatteryPct: d.Battery,
			Position:   telemetry.Position{Lat: d.Lat, Lng: d.Lng, Alt: d.Alt},
		})
	}
	return out
}

// GPSBaselines maps drone id to its nominal GPS quality.
func (c *Config) GPSBaselines() map[string]float64 {
	out := make(map[string]float64, len(c.Drones))
	for _, d := range c.Drones {
		out[d.ID] = d.GPS()
	}
	return out
}

// MissionRecords converts the seeded missions into mission store records.
// In-progress missions without an explicit waypoint index start at 0.
func (c *Config) MissionRecords(now time.Time) []mission.Mission {
	out := make([]mission.Mission, 0, len(c.Missions))
	for _, m := range c.Missions {
		rec := mission.Mission{
			ID:        m.ID,
			DroneID:   m.DroneID,
			Name:      m.Name,
			Status:    mission.Status(m.Status),
			CreatedAt: now,
		}
		if rec.Status == "" {
			rec.Status = mission.StatusPending
		}
		for _, wp := range m.Waypoints {
			rec.Waypoints = append(rec.Waypoints, mission.Waypoint{
				Lat:    wp.Lat,
				Lng:    wp.Lng,
				Alt:    wp.Alt,
				Order:  wp.Order,
				Speed:  wp.Speed,
				Action: mission.Action(wp.Action),
			})
		}
		if rec.Status == mission.StatusInProgress {
			idx := 0
			if m.CurrentWaypoint != nil {
				idx = *m.CurrentWaypoint
			}
			started := now
			rec.StartedAt = &started
			rec.CurrentWaypointIndex = &idx
		}
		if rec.Status.Terminal() {
			ended := now
			ok := rec.Status == mission.StatusCompleted
			rec.EndedAt = &ended
			rec.Success = &ok
		}
		out = append(out, rec)
	}
	return out
}
