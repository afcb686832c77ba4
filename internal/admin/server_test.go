package admin

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"droneops-engine/internal/config"
	"droneops-engine/internal/fleet"
	"droneops-engine/internal/mission"
	"droneops-engine/internal/sim"
	"droneops-engine/internal/telemetry"
)

type failCommands struct{ sim.NoFaults }

func (failCommands) CommandFailure(string, sim.Command) bool { return true }

func newTestServer(t *testing.T, faults sim.Faults) (*Server, *sim.Engine) {
	t.Helper()
	cfg := config.Default()
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	engine := sim.New(&cfg, sim.Options{
		Faults: faults,
		Rand:   rand.New(rand.NewSource(1)),
		Now:    func() time.Time { return start },
	})
	return NewServer(engine, nil), engine
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := do(t, s, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestIndexRendersFleet(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := do(t, s, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "drone-003") || !strings.Contains(body, "mission-001") {
		t.Fatalf("index missing fleet data")
	}
}

func TestTelemetryEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := do(t, s, http.MethodGet, "/api/telemetry?droneId=nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown drone, got %d", w.Code)
	}
	if e := decode[sim.CommandError](t, w); e.Code != sim.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", e.Code)
	}

	w = do(t, s, http.MethodGet, "/api/telemetry?droneId=drone-001", "")
	rows := decode[[]telemetry.TelemetryRow](t, w)
	if len(rows) != 1 || rows[0].DroneID != "drone-001" {
		t.Fatalf("unexpected rows %+v", rows)
	}

	w = do(t, s, http.MethodGet, "/api/telemetry", "")
	rows = decode[[]telemetry.TelemetryRow](t, w)
	if len(rows) < config.Default().Engine.MinVisibleDrones {
		t.Fatalf("expected at least %d rows, got %d", config.Default().Engine.MinVisibleDrones, len(rows))
	}
}

func TestDroneEndpoints(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := do(t, s, http.MethodGet, "/api/drones", "")
	drones := decode[[]fleet.State](t, w)
	if len(drones) != len(config.Default().Drones) {
		t.Fatalf("expected all drones, got %d", len(drones))
	}
	w = do(t, s, http.MethodGet, "/api/drones/drone-003", "")
	st := decode[fleet.State](t, w)
	if st.MissionID() != "mission-001" {
		t.Fatalf("expected drone-003 linked to mission-001, got %q", st.MissionID())
	}
	if w = do(t, s, http.MethodGet, "/api/drones/ghost", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCommandEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		faults sim.Faults
		drone  string
		body   string
		status int
		code   sim.ErrorCode
	}{
		{"unknown command", nil, "drone-001", `{"command":"FLIP"}`, http.StatusBadRequest, sim.CodeValidation},
		{"bad body", nil, "drone-001", `{`, http.StatusBadRequest, sim.CodeValidation},
		{"unknown drone", nil, "ghost", `{"command":"ARM"}`, http.StatusNotFound, sim.CodeNotFound},
		{"takeoff unarmed", nil, "drone-001", `{"command":"TAKEOFF"}`, http.StatusConflict, sim.CodeNotArmed},
		{"injected failure", failCommands{}, "drone-001", `{"command":"ARM"}`, http.StatusServiceUnavailable, sim.CodeCommandFailed},
		{"arm", nil, "drone-001", `{"command":"arm"}`, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.faults)
			w := do(t, s, http.MethodPost, "/api/drones/"+tt.drone+"/commands", tt.body)
			if w.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			res := decode[sim.CommandResult](t, w)
			if tt.code == "" {
				if !res.Success || res.State == nil || !res.State.Armed {
					t.Fatalf("expected armed state, got %+v", res)
				}
				return
			}
			if res.Success || res.Error == nil || res.Error.Code != tt.code {
				t.Fatalf("expected %s, got %+v", tt.code, res)
			}
		})
	}
}

func TestMissionLifecycle(t *testing.T) {
	s, engine := newTestServer(t, nil)

	body := `{"droneId":"drone-007","name":"north hop","waypoints":[{"lat":37.788,"lng":-122.4,"alt":30,"order":0},{"lat":37.789,"lng":-122.4,"alt":30,"order":1,"action":"TAKE_PHOTO"}]}`
	w := do(t, s, http.MethodPost, "/api/missions", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	m := decode[mission.Mission](t, w)
	if m.Status != mission.StatusPending {
		t.Fatalf("expected pending, got %s", m.Status)
	}

	w = do(t, s, http.MethodPost, "/api/missions/"+m.ID+"/start", "")
	if w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if st, _ := engine.Drone("drone-007"); st.MissionID() != m.ID || st.Status != fleet.StatusInMission {
		t.Fatalf("drone not linked after start: %+v", st)
	}

	w = do(t, s, http.MethodPost, "/api/missions/"+m.ID+"/start", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("restart: expected 409, got %d", w.Code)
	}
	if e := decode[sim.CommandError](t, w); e.Code != sim.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %s", e.Code)
	}

	w = do(t, s, http.MethodGet, "/api/missions/"+m.ID+"/events?limit=1", "")
	events := decode[[]mission.Event](t, w)
	if len(events) != 1 || events[0].Type != mission.EventMissionStarted {
		t.Fatalf("expected latest MISSION_STARTED event, got %+v", events)
	}

	w = do(t, s, http.MethodPost, "/api/missions/"+m.ID+"/cancel", "")
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", w.Code)
	}
	if got := decode[mission.Mission](t, w); got.Status != mission.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if st, _ := engine.Drone("drone-007"); st.ActiveMissionID != nil {
		t.Fatal("drone still linked after cancel")
	}

	w = do(t, s, http.MethodPost, "/api/missions/"+m.ID+"/cancel", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("second cancel: expected 409, got %d", w.Code)
	}
}

func TestCreateMissionValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing drone", `{"plan":"survey"}`, http.StatusBadRequest},
		{"unknown drone", `{"droneId":"ghost","waypoints":[{"lat":1,"lng":1,"alt":1,"order":0}]}`, http.StatusNotFound},
		{"unknown plan", `{"droneId":"drone-001","plan":"loop-de-loop"}`, http.StatusBadRequest},
		{"no waypoints", `{"droneId":"drone-001"}`, http.StatusBadRequest},
		{"plan and waypoints", `{"droneId":"drone-001","plan":"survey","waypoints":[{"lat":1,"lng":1,"alt":1,"order":0}]}`, http.StatusBadRequest},
		{"from plan", `{"droneId":"drone-001","plan":"survey"}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, nil)
			w := do(t, s, http.MethodPost, "/api/missions", tt.body)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestStartMissionOnBusyDrone(t *testing.T) {
	s, _ := newTestServer(t, nil)
	// drone-003 already flies mission-001.
	body := `{"droneId":"drone-003","waypoints":[{"lat":37.77,"lng":-122.42,"alt":30,"order":0}]}`
	m := decode[mission.Mission](t, do(t, s, http.MethodPost, "/api/missions", body))
	w := do(t, s, http.MethodPost, "/api/missions/"+m.ID+"/start", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestMissionNotFound(t *testing.T) {
	s, _ := newTestServer(t, nil)
	for _, path := range []string{"/api/missions/none", "/api/missions/none/events"} {
		if w := do(t, s, http.MethodGet, path, ""); w.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, w.Code)
		}
	}
	if w := do(t, s, http.MethodPost, "/api/missions/none/start", ""); w.Code != http.StatusNotFound {
		t.Fatalf("start: expected 404, got %d", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/api/missions/mission-001/events?limit=zero", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", w.Code)
	}
}

func TestFleetStateEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := do(t, s, http.MethodGet, "/api/fleet/state", "")
	row := decode[telemetry.FleetStateRow](t, w)
	if row.Drones != len(config.Default().Drones) || row.ActiveMissions != 2 {
		t.Fatalf("unexpected fleet state %+v", row)
	}
}

func TestRecoverPanics(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if e := decode[sim.CommandError](t, w); e.Code != sim.CodeInternal {
		t.Fatalf("expected INTERNAL_ERROR, got %s", e.Code)
	}
}
