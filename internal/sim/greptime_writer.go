package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"

	"droneops-engine/internal/telemetry"
)

// greptimeClient is the subset of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

const greptimeWriteTimeout = 5 * time.Second

// GreptimeDBWriter writes telemetry, mission events and fleet summaries to
// GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client     greptimeClient
	log        *slog.Logger
	teleTable  string
	eventTable string
	stateTable string
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port") and
// writes into database. Tables are created by the server on first write.
func NewGreptimeDBWriter(endpoint, database string, log *slog.Logger) (*GreptimeDBWriter, error) {
	host, port := endpoint, 0
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("greptime endpoint %q: %w", endpoint, err)
		}
		host, port = h, n
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if port != 0 {
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &GreptimeDBWriter{
		client:     client,
		log:        log,
		teleTable:  telemetry.TelemetryTableName,
		eventTable: telemetry.MissionEventTableName,
		stateTable: telemetry.FleetStateTableName,
	}, nil
}

func (w *GreptimeDBWriter) logger() *slog.Logger {
	if w.log == nil {
		return slog.Default()
	}
	return w.log
}

func (w *GreptimeDBWriter) write(tbl *table.Table, n int) error {
	ctx, cancel := context.WithTimeout(context.Background(), greptimeWriteTimeout)
	defer cancel()
	name, err := tbl.GetName()
	if err != nil {
		name = "unknown"
	}
	if _, err := w.client.Write(ctx, tbl); err != nil {
		w.logger().Error("greptime write failed", "table", name, "err", err)
		return err
	}
	w.logger().Debug("greptime write", "table", name, "rows", n)
	return nil
}

// Write inserts a single telemetry row.
func (w *GreptimeDBWriter) Write(row telemetry.TelemetryRow) error {
	return w.WriteBatch([]telemetry.TelemetryRow{row})
}

// WriteBatch inserts multiple telemetry rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.teleTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("cluster_id", types.STRING)
	tbl.AddTagColumn("drone_id", types.STRING)
	tbl.AddFieldColumn("lat", types.FLOAT64)
	tbl.AddFieldColumn("lng", types.FLOAT64)
	tbl.AddFieldColumn("alt", types.FLOAT64)
	tbl.AddFieldColumn("speed", types.FLOAT64)
	tbl.AddFieldColumn("battery", types.FLOAT64)
	tbl.AddFieldColumn("gps_quality", types.FLOAT64)
	tbl.AddFieldColumn("status", types.STRING)
	tbl.AddFieldColumn("active_mission_id", types.STRING)
	tbl.AddFieldColumn("active_mission_status", types.STRING)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rows {
		mid := ""
		if r.ActiveMissionID != nil {
			mid = *r.ActiveMissionID
		}
		if err := tbl.AddRow(r.ClusterID, r.DroneID, r.Lat, r.Lng, r.Alt, r.Speed, r.Battery,
			r.GPSQuality, r.Status, mid, r.ActiveMissionStatus, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, len(rows))
}

// WriteMissionEvent inserts a single mission event.
func (w *GreptimeDBWriter) WriteMissionEvent(row telemetry.MissionEventRow) error {
	return w.WriteMissionEvents([]telemetry.MissionEventRow{row})
}

// WriteMissionEvents inserts mission events. A missing waypoint index is stored as -1.
func (w *GreptimeDBWriter) WriteMissionEvents(rows []telemetry.MissionEventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.eventTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("cluster_id", types.STRING)
	tbl.AddTagColumn("mission_id", types.STRING)
	tbl.AddFieldColumn("event_type", types.STRING)
	tbl.AddFieldColumn("waypoint_index", types.INT64)
	tbl.AddFieldColumn("action", types.STRING)
	tbl.AddFieldColumn("message", types.STRING)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rows {
		idx := int64(-1)
		if r.WaypointIndex != nil {
			idx = int64(*r.WaypointIndex)
		}
		if err := tbl.AddRow(r.ClusterID, r.MissionID, r.EventType, idx, r.Action, r.Message, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, len(rows))
}

// WriteState inserts a fleet summary row.
func (w *GreptimeDBWriter) WriteState(r telemetry.FleetStateRow) error {
	tbl, err := table.New(w.stateTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("cluster_id", types.STRING)
	tbl.AddFieldColumn("drones", types.INT64)
	tbl.AddFieldColumn("online", types.INT64)
	tbl.AddFieldColumn("in_mission", types.INT64)
	tbl.AddFieldColumn("offline", types.INT64)
	tbl.AddFieldColumn("charging", types.INT64)
	tbl.AddFieldColumn("active_missions", types.INT64)
	tbl.AddFieldColumn("avg_battery", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
	if err := tbl.AddRow(r.ClusterID, int64(r.Drones), int64(r.Online), int64(r.InMission), int64(r.Offline),
		int64(r.Charging), int64(r.ActiveMissions), r.AvgBattery, r.Timestamp); err != nil {
		return err
	}
	return w.write(tbl, 1)
}
