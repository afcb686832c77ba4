// Package sim implements the poll-driven tick engine, the command reconciler
// and the telemetry writers fed by them.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"droneops-engine/internal/config"
	"droneops-engine/internal/fleet"
	"droneops-engine/internal/logging"
	"droneops-engine/internal/mission"
	"droneops-engine/internal/motion"
	"droneops-engine/internal/scenario"
	"droneops-engine/internal/telemetry"
)

// stepSeconds is the simulated time one tick advances, independent of how
// much wall-clock time passed between polls.
const stepSeconds = 1.0

const (
	defaultGPSQuality = 95.0
	maxPendingEvents  = 1000
)

// Options carries the optional collaborators of an Engine.
type Options struct {
	ClusterID string
	Faults    Faults
	Rand      *rand.Rand
	Now       func() time.Time
	Writer    TelemetryWriter
	Plans     map[string]scenario.Plan
	// GPS maps drone id to nominal GPS quality; missing drones use 95.
	GPS map[string]float64
}

// Engine advances the simulation on every telemetry poll and owns the
// mission lifecycle calls that must touch both stores.
type Engine struct {
	clusterID string
	cfg       config.Engine
	drones    *fleet.Store
	missions  *mission.Store
	exec      *mission.Executions
	motion    *motion.Generator
	commander *Commander
	faults    Faults
	rng       *lockedRand
	now       func() time.Time
	gps       map[string]float64
	plans     map[string]scenario.Plan

	writeMu sync.Mutex
	writer  TelemetryWriter

	evMu    sync.Mutex
	pending []telemetry.MissionEventRow
}

// NewEngine wires an engine around existing stores. The stores are linked
// before the engine is returned: every in-mission drone is attached to its
// in-progress mission so the first tick sees consistent state.
func NewEngine(cfg config.Engine, drones *fleet.Store, missions *mission.Store, exec *mission.Executions, gen *motion.Generator, opts Options) *Engine {
	if opts.Faults == nil {
		opts.Faults = NoFaults{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Plans == nil {
		opts.Plans = scenario.BuiltIn()
	}
	rng := newLockedRand(opts.Rand)
	e := &Engine{
		clusterID: opts.ClusterID,
		cfg:       cfg,
		drones:    drones,
		missions:  missions,
		exec:      exec,
		motion:    gen,
		faults:    opts.Faults,
		rng:       rng,
		now:       opts.Now,
		gps:       opts.GPS,
		plans:     opts.Plans,
		writer:    opts.Writer,
	}
	e.commander = &Commander{
		drones:     drones,
		missions:   missions,
		motion:     gen,
		rng:        rng,
		now:        opts.Now,
		takeoffMin: cfg.TakeoffMinAltM,
		takeoffMax: cfg.TakeoffMaxAltM,
	}
	exec.SetSink(e.queueEvent)
	e.link()
	return e
}

// New builds stores from a loaded configuration and returns an engine over them.
func New(cfg *config.Config, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ClusterID == "" {
		opts.ClusterID = cfg.ClusterID
	}
	if opts.GPS == nil {
		opts.GPS = cfg.GPSBaselines()
	}
	drones := fleet.NewStore(opts.Now)
	drones.Seed(cfg.Baselines()...)
	exec := mission.NewExecutions()
	missions := mission.NewStore(exec, opts.Now)
	missions.ReplaceAll(cfg.MissionRecords(opts.Now()))
	return NewEngine(cfg.Engine, drones, missions, exec, motion.NewGenerator(), opts)
}

func (e *Engine) link() {
	for id, st := range e.drones.List() {
		if st.Status != fleet.StatusInMission || st.ActiveMissionID != nil {
			continue
		}
		if m, ok := e.missions.ActiveForDrone(id); ok {
			mid := m.ID
			e.drones.Update(id, func(s *fleet.State) { s.ActiveMissionID = &mid })
		}
	}
}

// SetWriter replaces the telemetry writer chain.
func (e *Engine) SetWriter(w TelemetryWriter) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	e.writer = w
}

// Faults returns the configured fault injector.
func (e *Engine) Faults() Faults { return e.faults }

// Commander returns the command reconciler bound to the engine's stores.
func (e *Engine) Commander() *Commander { return e.commander }

// Telemetry ticks a single drone and returns its telemetry row.
func (e *Engine) Telemetry(ctx context.Context, droneID string) ([]telemetry.TelemetryRow, error) {
	if !e.drones.Has(droneID) {
		return nil, fmt.Errorf("%w: %s", ErrDroneNotFound, droneID)
	}
	row, ok := e.tickDrone(ctx, droneID, e.now())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDroneNotFound, droneID)
	}
	rows := []telemetry.TelemetryRow{row}
	e.emit(ctx, rows)
	return rows, nil
}

// FleetTelemetry ticks every visible drone in id order.
func (e *Engine) FleetTelemetry(ctx context.Context) []telemetry.TelemetryRow {
	now := e.now()
	ids := e.visibleDrones()
	rows := make([]telemetry.TelemetryRow, 0, len(ids))
	for _, id := range ids {
		if row, ok := e.tickDrone(ctx, id, now); ok {
			rows = append(rows, row)
		}
	}
	e.emit(ctx, rows)
	return rows
}

// visibleDrones returns all online and in-mission drones, padded with drones
// of other statuses up to the configured minimum.
func (e *Engine) visibleDrones() []string {
	snap := e.drones.List()
	ids := e.drones.IDs()
	var active, rest []string
	for _, id := range ids {
		if snap[id].Status.Flying() {
			active = append(active, id)
		} else {
			rest = append(rest, id)
		}
	}
	for _, id := range rest {
		if len(active) >= e.cfg.MinVisibleDrones {
			break
		}
		active = append(active, id)
	}
	sort.Strings(active)
	return active
}

// CreateMission adds a pending mission for a known drone.
func (e *Engine) CreateMission(ctx context.Context, droneID, name string, wps []mission.Waypoint) (mission.Mission, error) {
	if !e.drones.Has(droneID) {
		return mission.Mission{}, fmt.Errorf("%w: %s", ErrDroneNotFound, droneID)
	}
	m, err := e.missions.Create(droneID, name, wps)
	if err != nil {
		return mission.Mission{}, err
	}
	logging.FromContext(ctx).Info("mission created", "mission_id", m.ID, "drone_id", droneID, "waypoints", len(wps))
	return m, nil
}

// CreateMissionFromPlan expands a named plan around the drone's current
// position and adds it as a pending mission.
func (e *Engine) CreateMissionFromPlan(ctx context.Context, droneID, name, plan string) (mission.Mission, error) {
	p, ok := e.plans[plan]
	if !ok {
		return mission.Mission{}, fmt.Errorf("%w: %s", scenario.ErrUnknownPlan, plan)
	}
	st, ok := e.drones.Get(droneID)
	if !ok {
		return mission.Mission{}, fmt.Errorf("%w: %s", ErrDroneNotFound, droneID)
	}
	if name == "" {
		name = p.Name
	}
	return e.CreateMission(ctx, droneID, name, p.Waypoints(st.Position.Lat, st.Position.Lng))
}

// Plans returns the registered mission plans.
func (e *Engine) Plans() map[string]scenario.Plan {
	out := make(map[string]scenario.Plan, len(e.plans))
	for k, v := range e.plans {
		out[k] = v
	}
	return out
}

// StartMission starts a pending mission and links it to its drone. The drone
// lock is held across both steps so a concurrent tick never sees the mission
// running without its drone link.
func (e *Engine) StartMission(ctx context.Context, id string) (mission.Mission, error) {
	defer e.flushEvents(ctx)
	m, ok := e.missions.Get(id)
	if !ok {
		return mission.Mission{}, fmt.Errorf("%w: %s", mission.ErrNotFound, id)
	}
	unlock := e.drones.Lock(m.DroneID)
	defer unlock()
	st, ok := e.drones.Get(m.DroneID)
	if !ok {
		return mission.Mission{}, fmt.Errorf("%w: %s", ErrDroneNotFound, m.DroneID)
	}
	if st.Status == fleet.StatusOffline {
		return mission.Mission{}, fmt.Errorf("%w: %s is offline", ErrDroneUnavailable, m.DroneID)
	}
	started, err := e.missions.Start(id)
	if err != nil {
		return mission.Mission{}, err
	}
	mid := started.ID
	e.drones.Update(m.DroneID, func(s *fleet.State) {
		s.ActiveMissionID = &mid
		s.Status = fleet.StatusInMission
		s.Armed = true
		s.Returning = false
		s.TargetAltitude = nil
	})
	e.motion.Reset(m.DroneID)
	logging.FromContext(ctx).Info("mission started", "mission_id", id, "drone_id", m.DroneID)
	return started, nil
}

// CancelMission cancels a mission on behalf of an operator and detaches it
// from its drone.
func (e *Engine) CancelMission(ctx context.Context, id string) (mission.Mission, error) {
	defer e.flushEvents(ctx)
	m, ok := e.missions.Get(id)
	if !ok {
		return mission.Mission{}, fmt.Errorf("%w: %s", mission.ErrNotFound, id)
	}
	unlock := e.drones.Lock(m.DroneID)
	defer unlock()
	cancelled, err := e.missions.Cancel(id, mission.ReasonCancelledByUser)
	if err != nil {
		return mission.Mission{}, err
	}
	e.drones.Update(m.DroneID, func(s *fleet.State) {
		if s.MissionID() != id {
			return
		}
		s.ActiveMissionID = nil
		if s.Status == fleet.StatusInMission {
			s.Status = fleet.StatusOnline
		}
	})
	logging.FromContext(ctx).Info("mission cancelled", "mission_id", id, "drone_id", m.DroneID)
	return cancelled, nil
}

// Mission returns a mission by id.
func (e *Engine) Mission(id string) (mission.Mission, bool) { return e.missions.Get(id) }

// Missions returns all missions.
func (e *Engine) Missions() []mission.Mission { return e.missions.List() }

// MissionEvents returns a mission's execution events, most recent first.
func (e *Engine) MissionEvents(id string, limit int) ([]mission.Event, error) {
	if _, ok := e.missions.Get(id); !ok {
		return nil, fmt.Errorf("%w: %s", mission.ErrNotFound, id)
	}
	return e.exec.Events(id, limit), nil
}

// Drone returns a drone's runtime state.
func (e *Engine) Drone(id string) (fleet.State, bool) { return e.drones.Get(id) }

// HasDrone reports whether the drone is known.
func (e *Engine) HasDrone(id string) bool { return e.drones.Has(id) }

// Drones returns all runtime states sorted by id.
func (e *Engine) Drones() []fleet.State {
	snap := e.drones.List()
	out := make([]fleet.State, 0, len(snap))
	for _, id := range e.drones.IDs() {
		out = append(out, snap[id])
	}
	return out
}

// FleetState summarizes the fleet without advancing it.
func (e *Engine) FleetState() telemetry.FleetStateRow {
	row := telemetry.FleetStateRow{ClusterID: e.clusterID, Timestamp: e.now().UTC()}
	var battery float64
	for _, st := range e.drones.List() {
		row.Drones++
		battery += st.BatteryPct
		switch st.Status {
		case fleet.StatusOnline:
			row.Online++
		case fleet.StatusInMission:
			row.InMission++
		case fleet.StatusOffline:
			row.Offline++
		case fleet.StatusCharging:
			row.Charging++
		}
	}
	if row.Drones > 0 {
		row.AvgBattery = battery / float64(row.Drones)
	}
	for _, m := range e.missions.List() {
		if m.Status == mission.StatusInProgress {
			row.ActiveMissions++
		}
	}
	return row
}

// Command applies an operator command to a drone.
func (e *Engine) Command(ctx context.Context, droneID string, cmd Command) CommandResult {
	defer e.flushEvents(ctx)
	return e.commander.Apply(ctx, droneID, cmd)
}

// Run polls the fleet every interval until ctx is done. Each poll writes the
// telemetry rows and a fleet summary to the configured writers.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	log := logging.FromContext(ctx)
	log.Info("starting engine", "tick_interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.FleetTelemetry(ctx)
			e.writeState(ctx, e.FleetState())
		case <-ctx.Done():
			log.Info("stopping engine")
			return
		}
	}
}

func (e *Engine) emit(ctx context.Context, rows []telemetry.TelemetryRow) {
	e.flushEvents(ctx)
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if e.writer == nil || len(rows) == 0 {
		return
	}
	log := logging.FromContext(ctx)
	if bw, ok := e.writer.(batchWriter); ok {
		if err := bw.WriteBatch(rows); err != nil {
			log.Error("batch write failed", "err", err)
		}
		return
	}
	for _, row := range rows {
		if err := e.writer.Write(row); err != nil {
			log.Error("write failed", "drone_id", row.DroneID, "err", err)
		}
	}
}

func (e *Engine) writeState(ctx context.Context, row telemetry.FleetStateRow) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	sw, ok := e.writer.(StateWriter)
	if !ok {
		return
	}
	if err := sw.WriteState(row); err != nil {
		logging.FromContext(ctx).Error("state write failed", "err", err)
	}
}

// queueEvent buffers execution events. It runs under store locks, so writers
// are only called later from flushEvents.
func (e *Engine) queueEvent(missionID string, ev mission.Event) {
	row := telemetry.MissionEventRow{
		ClusterID:     e.clusterID,
		MissionID:     missionID,
		EventType:     string(ev.Type),
		WaypointIndex: ev.WaypointIndex,
		Action:        string(ev.Action),
		Message:       ev.Message,
		Timestamp:     ev.Timestamp.UTC(),
	}
	e.evMu.Lock()
	defer e.evMu.Unlock()
	if len(e.pending) >= maxPendingEvents {
		e.pending = e.pending[1:]
	}
	e.pending = append(e.pending, row)
}

func (e *Engine) flushEvents(ctx context.Context) {
	e.evMu.Lock()
	rows := e.pending
	e.pending = nil
	e.evMu.Unlock()
	if len(rows) == 0 {
		return
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	w, ok := e.writer.(MissionEventWriter)
	if !ok {
		return
	}
	log := logging.FromContext(ctx)
	if bw, ok := w.(batchMissionEventWriter); ok {
		if err := bw.WriteMissionEvents(rows); err != nil {
			log.Error("mission event batch write failed", "err", err)
		}
		return
	}
	for _, r := range rows {
		if err := w.WriteMissionEvent(r); err != nil {
			log.Error("mission event write failed", "mission_id", r.MissionID, "err", err)
		}
	}
}

func (e *Engine) gpsBaseline(droneID string) float64 {
	if v, ok := e.gps[droneID]; ok {
		return v
	}
	return defaultGPSQuality
}
