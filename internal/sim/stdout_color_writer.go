// ColorStdoutWriter prints human-friendly, colorized telemetry to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"droneops-engine/internal/config"
	"droneops-engine/internal/fleet"
	"droneops-engine/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorWhite   = "\x1b[37m"
	colorGray    = "\x1b[90m"
)

var missionPalette = []string{colorRed, colorGreen, colorYellow, colorBlue, colorMagenta, colorCyan}

// missionColors hands out a stable palette color per mission id.
type missionColors struct {
	mu     sync.Mutex
	colors map[string]string
	next   int
}

func (c *missionColors) get(id string) string {
	if id == "" {
		return colorGray
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.colors == nil {
		c.colors = make(map[string]string)
	}
	if col, ok := c.colors[id]; ok {
		return col
	}
	col := missionPalette[c.next%len(missionPalette)]
	c.colors[id] = col
	c.next++
	return col
}

func statusColor(status string) string {
	switch fleet.Status(status) {
	case fleet.StatusOffline:
		return colorRed
	case fleet.StatusCharging:
		return colorYellow
	case fleet.StatusInMission:
		return colorCyan
	}
	return colorGreen
}

func eventColor(typ string) string {
	switch typ {
	case "MISSION_FAILED", "MISSION_CANCELLED":
		return colorRed
	case "MISSION_COMPLETED":
		return colorGreen
	case "ACTION_EXECUTED":
		return colorMagenta
	}
	return colorBlue
}

// telemetryLine renders one row as a single colored line.
func telemetryLine(row telemetry.TelemetryRow, colors *missionColors) string {
	mission := "-"
	if row.ActiveMissionID != nil {
		mission = *row.ActiveMissionID
	} else if row.MissionCleared {
		mission = "cleared"
	}
	return fmt.Sprintf("%s[%s]%s %scluster=%s%s %sdrone=%s%s %smission=%s%s %slat=%.5f%s %slng=%.5f%s %salt=%.1f%s %sspd=%.1f%s %sbatt=%.1f%s %sgps=%.0f%s %sstatus=%s%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, row.ClusterID, colorReset,
		colorWhite, row.DroneID, colorReset,
		colors.get(mission), mission, colorReset,
		colorGreen, row.Lat, colorReset,
		colorYellow, row.Lng, colorReset,
		colorMagenta, row.Alt, colorReset,
		colorYellow, row.Speed, colorReset,
		colorCyan, row.Battery, colorReset,
		colorGray, row.GPSQuality, colorReset,
		statusColor(row.Status), row.Status, colorReset,
	)
}

func eventLine(ev telemetry.MissionEventRow, colors *missionColors) string {
	line := fmt.Sprintf("%s[%s]%s %s%s%s %smission=%s%s",
		colorGray, ev.Timestamp.Format(time.RFC3339), colorReset,
		eventColor(ev.EventType), ev.EventType, colorReset,
		colors.get(ev.MissionID), ev.MissionID, colorReset)
	if ev.WaypointIndex != nil {
		line += fmt.Sprintf(" wp=%d", *ev.WaypointIndex)
	}
	if ev.Action != "" {
		line += " action=" + ev.Action
	}
	if ev.Message != "" {
		line += " " + ev.Message
	}
	return line
}

func stateLine(row telemetry.FleetStateRow) string {
	return fmt.Sprintf("%sFLEET%s %sdrones=%d%s %sonline=%d%s %sin_mission=%d%s %scharging=%d%s %soffline=%d%s %smissions=%d%s %savg_batt=%.1f%s",
		colorBlue, colorReset,
		colorWhite, row.Drones, colorReset,
		colorGreen, row.Online, colorReset,
		colorCyan, row.InMission, colorReset,
		colorYellow, row.Charging, colorReset,
		colorRed, row.Offline, colorReset,
		colorMagenta, row.ActiveMissions, colorReset,
		colorCyan, row.AvgBattery, colorReset)
}

// ColorStdoutWriter prints telemetry rows, mission events and fleet
// summaries using ANSI colors.
type ColorStdoutWriter struct {
	cfg    *config.Config
	mu     sync.Mutex
	out    io.Writer
	once   sync.Once
	colors missionColors
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
// A non-nil cfg prints an overview before the first line.
func NewColorStdoutWriter(cfg *config.Config) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	e := w.cfg.Engine
	fmt.Fprintf(w.out, "Engine Configuration (%s):\n", w.cfg.ClusterID)
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Tick Interval:\t%s\n", w.cfg.Tick())
	fmt.Fprintf(tw, "Arrival Radius (m):\t%.0f\n", e.ArrivalRadiusM)
	fmt.Fprintf(tw, "Waypoint Speed (m/s):\t%.1f\n", e.DefaultWaypointSpeedMPS)
	fmt.Fprintf(tw, "Low Battery (%%):\t%.0f\n", e.LowBatteryPct)
	fmt.Fprintf(tw, "Low GPS (%%):\t%.0f\n", e.LowGPSPct)
	fmt.Fprintf(tw, "Offline Timeout:\t%s\n", e.OfflineTimeout())
	fmt.Fprintf(tw, "Fault Injection:\t%t\n", w.cfg.Faults.Enabled)
	tw.Flush()

	fmt.Fprintln(w.out, "\nMissions:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tDrone\tStatus\tWaypoints\n")
	for _, m := range w.cfg.Missions {
		fmt.Fprintf(tw, "%s%s%s\t%s\t%s\t%d\n", w.colors.get(m.ID), m.ID, colorReset, m.DroneID, m.Status, len(m.Waypoints))
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

func (w *ColorStdoutWriter) println(line string) {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, line)
}

// Write outputs a single telemetry row in colorized format.
func (w *ColorStdoutWriter) Write(row telemetry.TelemetryRow) error {
	w.println(telemetryLine(row, &w.colors))
	return nil
}

// WriteBatch outputs multiple telemetry rows.
func (w *ColorStdoutWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteMissionEvent prints a mission execution event.
func (w *ColorStdoutWriter) WriteMissionEvent(ev telemetry.MissionEventRow) error {
	w.println(eventLine(ev, &w.colors))
	return nil
}

// WriteState prints the fleet summary.
func (w *ColorStdoutWriter) WriteState(row telemetry.FleetStateRow) error {
	w.println(fmt.Sprintf("%s[%s]%s %s", colorGray, row.Timestamp.Format(time.RFC3339), colorReset, stateLine(row)))
	return nil
}
