// Package admin exposes the engine over HTTP: telemetry polls, drone
// commands and the mission lifecycle.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"droneops-engine/internal/fleet"
	"droneops-engine/internal/logging"
	"droneops-engine/internal/mission"
	"droneops-engine/internal/scenario"
	"droneops-engine/internal/sim"
	"droneops-engine/internal/telemetry"
)

const defaultEventLimit = 50

type Server struct {
	Engine *sim.Engine
	log    *slog.Logger
	tpl    *template.Template
	mux    *http.ServeMux
}

//go:embed templates/index.html
var content embed.FS

func NewServer(engine *sim.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{Engine: engine, log: log, tpl: tpl, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /api/telemetry", s.handleTelemetry)
	s.mux.HandleFunc("GET /api/drones", s.handleDrones)
	s.mux.HandleFunc("GET /api/drones/{id}", s.handleDrone)
	s.mux.HandleFunc("POST /api/drones/{id}/commands", s.handleCommand)
	s.mux.HandleFunc("GET /api/missions", s.handleMissions)
	s.mux.HandleFunc("POST /api/missions", s.handleCreateMission)
	s.mux.HandleFunc("GET /api/missions/{id}", s.handleMission)
	s.mux.HandleFunc("POST /api/missions/{id}/start", s.handleStartMission)
	s.mux.HandleFunc("POST /api/missions/{id}/cancel", s.handleCancelMission)
	s.mux.HandleFunc("GET /api/missions/{id}/events", s.handleMissionEvents)
	s.mux.HandleFunc("GET /api/plans", s.handlePlans)
	s.mux.HandleFunc("GET /api/fleet/state", s.handleFleetState)
}

// Handler returns the routed handler wrapped in request logging and panic
// recovery.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.recoverPanics(s.mux))
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("admin server listening", "addr", addr)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx := logging.NewContext(r.Context(), s.log)
		next.ServeHTTP(rec, r.WithContext(ctx))
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.log.Error("handler panic", "path", r.URL.Path, "panic", v)
				writeError(w, http.StatusInternalServerError, sim.CodeInternal, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code sim.ErrorCode, msg string) {
	writeJSON(w, status, sim.CommandError{Code: code, Message: msg})
}

// codeStatus maps boundary error codes to HTTP status codes.
func codeStatus(code sim.ErrorCode) int {
	switch code {
	case sim.CodeNotFound:
		return http.StatusNotFound
	case sim.CodeNotArmed:
		return http.StatusConflict
	case sim.CodeValidation:
		return http.StatusBadRequest
	case sim.CodeCommandFailed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// classify maps engine errors to a status and code so no internal error type
// crosses the boundary.
func classify(err error) (int, sim.ErrorCode) {
	switch {
	case errors.Is(err, sim.ErrDroneNotFound), errors.Is(err, mission.ErrNotFound):
		return http.StatusNotFound, sim.CodeNotFound
	case errors.Is(err, mission.ErrInvalidTransition),
		errors.Is(err, mission.ErrDroneBusy),
		errors.Is(err, sim.ErrDroneUnavailable):
		return http.StatusConflict, sim.CodeValidation
	case errors.Is(err, mission.ErrInvalidMission), errors.Is(err, scenario.ErrUnknownPlan):
		return http.StatusBadRequest, sim.CodeValidation
	}
	return http.StatusInternalServerError, sim.CodeInternal
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	if code == sim.CodeInternal {
		logging.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		msg = "internal error"
	}
	writeError(w, status, code, msg)
}

type indexData struct {
	State    telemetry.FleetStateRow
	Drones   []fleet.State
	Missions []mission.Mission
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		State:    s.Engine.FleetState(),
		Drones:   s.Engine.Drones(),
		Missions: s.Engine.Missions(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		logging.FromContext(r.Context()).Error("render index", "err", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("droneId"); id != "" {
		rows, err := s.Engine.Telemetry(r.Context(), id)
		if err != nil {
			s.writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
		return
	}
	writeJSON(w, http.StatusOK, s.Engine.FleetTelemetry(r.Context()))
}

func (s *Server) handleDrones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Drones())
}

func (s *Server) handleDrone(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, ok := s.Engine.Drone(id)
	if !ok {
		writeError(w, http.StatusNotFound, sim.CodeNotFound, fmt.Sprintf("drone %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type commandRequest struct {
	Command string `json:"command"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResult(w, sim.Failed(sim.CodeValidation, "invalid request body: %v", err))
		return
	}
	cmd, err := sim.ParseCommand(req.Command)
	if err != nil {
		var ce *sim.CommandError
		if errors.As(err, &ce) {
			s.writeResult(w, sim.CommandResult{Error: ce})
			return
		}
		s.writeResult(w, sim.Failed(sim.CodeValidation, "%v", err))
		return
	}
	if !s.Engine.HasDrone(id) {
		s.writeResult(w, sim.Failed(sim.CodeNotFound, "drone %s not found", id))
		return
	}
	if s.Engine.Faults().CommandFailure(id, cmd) {
		logging.FromContext(r.Context()).Info("injected command failure", "drone_id", id, "command", cmd)
		s.writeResult(w, sim.Failed(sim.CodeCommandFailed, "%s rejected by drone %s", cmd, id))
		return
	}
	s.writeResult(w, s.Engine.Command(r.Context(), id, cmd))
}

func (s *Server) writeResult(w http.ResponseWriter, res sim.CommandResult) {
	status := http.StatusOK
	if !res.Success && res.Error != nil {
		status = codeStatus(res.Error.Code)
	}
	writeJSON(w, status, res)
}

func (s *Server) handleMissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Missions())
}

type createMissionRequest struct {
	DroneID   string             `json:"droneId"`
	Name      string             `json:"name"`
	Plan      string             `json:"plan"`
	Waypoints []mission.Waypoint `json:"waypoints"`
}

func (s *Server) handleCreateMission(w http.ResponseWriter, r *http.Request) {
	var req createMissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, sim.CodeValidation, "invalid request body: "+err.Error())
		return
	}
	if req.DroneID == "" {
		writeError(w, http.StatusBadRequest, sim.CodeValidation, "droneId is required")
		return
	}
	var (
		m   mission.Mission
		err error
	)
	switch {
	case req.Plan != "" && len(req.Waypoints) > 0:
		writeError(w, http.StatusBadRequest, sim.CodeValidation, "plan and waypoints are mutually exclusive")
		return
	case req.Plan != "":
		m, err = s.Engine.CreateMissionFromPlan(r.Context(), req.DroneID, req.Name, req.Plan)
	default:
		m, err = s.Engine.CreateMission(r.Context(), req.DroneID, req.Name, req.Waypoints)
	}
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleMission(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, ok := s.Engine.Mission(id)
	if !ok {
		writeError(w, http.StatusNotFound, sim.CodeNotFound, fmt.Sprintf("mission %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleStartMission(w http.ResponseWriter, r *http.Request) {
	m, err := s.Engine.StartMission(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleCancelMission(w http.ResponseWriter, r *http.Request) {
	m, err := s.Engine.CancelMission(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleMissionEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, sim.CodeValidation, "limit must be a positive integer")
			return
		}
		limit = n
	}
	events, err := s.Engine.MissionEvents(r.PathValue("id"), limit)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if events == nil {
		events = []mission.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Plans())
}

func (s *Server) handleFleetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.FleetState())
}
