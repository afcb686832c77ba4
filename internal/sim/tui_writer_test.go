package sim

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"droneops-engine/internal/telemetry"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func TestTUIWriterMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p}
	tRow := telemetry.TelemetryRow{ClusterID: "c", DroneID: "d", Timestamp: time.Unix(0, 0).UTC()}
	if err := w.Write(tRow); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := p.msgs[0].(logMsg); !ok {
		t.Fatalf("expected logMsg, got %T", p.msgs[0])
	}
	if _, ok := p.msgs[1].(telemetryMsg); !ok {
		t.Fatalf("expected telemetryMsg, got %T", p.msgs[1])
	}
	if err := w.WriteState(telemetry.FleetStateRow{Drones: 1}); err != nil {
		t.Fatalf("state: %v", err)
	}
	if _, ok := p.msgs[2].(stateMsg); !ok {
		t.Fatalf("expected stateMsg, got %T", p.msgs[2])
	}
	w.SetAdminStatus(true)
	if _, ok := p.msgs[3].(adminMsg); !ok {
		t.Fatalf("expected adminMsg, got %T", p.msgs[3])
	}
	if err := w.WriteMissionEvent(telemetry.MissionEventRow{MissionID: "m", EventType: "MISSION_STARTED"}); err != nil {
		t.Fatalf("event: %v", err)
	}
	ev, ok := p.msgs[4].(eventMsg)
	if !ok || !strings.Contains(ev.line, "MISSION_STARTED") {
		t.Fatalf("expected eventMsg, got %#v", p.msgs[4])
	}
}

func TestWrapToggle(t *testing.T) {
	m := newTUIModel("c1", nil)
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 30})
	m = mi.(tuiModel)
	long := "one two three four five six"
	mi, _ = m.Update(logMsg{line: long})
	m = mi.(tuiModel)
	lines := strings.Split(m.vp.View(), "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[1]) != "" {
		t.Fatalf("expected single line before wrap")
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
	m = mi.(tuiModel)
	if !m.wrap {
		t.Fatalf("wrap not toggled")
	}
	lines = strings.Split(m.vp.View(), "\n")
	if strings.TrimSpace(lines[1]) == "" {
		t.Fatalf("expected wrapped content on second line")
	}
}

func TestScrollToggle(t *testing.T) {
	m := newTUIModel("c1", nil)
	m.vp.Height = 1
	m.vp.Width = 20
	mi, _ := m.Update(logMsg{line: "l1"})
	m = mi.(tuiModel)
	mi, _ = m.Update(logMsg{line: "l2"})
	m = mi.(tuiModel)
	if m.vp.YOffset != 1 {
		t.Fatalf("expected YOffset 1, got %d", m.vp.YOffset)
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = mi.(tuiModel)
	if m.autoscroll {
		t.Fatalf("autoscroll should be off")
	}
	mi, _ = m.Update(logMsg{line: "l3"})
	m = mi.(tuiModel)
	if m.vp.YOffset != 1 {
		t.Fatalf("expected YOffset unchanged, got %d", m.vp.YOffset)
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = mi.(tuiModel)
	if m.vp.YOffset != 0 {
		t.Fatalf("expected YOffset 0 after scrolling up, got %d", m.vp.YOffset)
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = mi.(tuiModel)
	if !m.autoscroll {
		t.Fatalf("autoscroll should be on")
	}
	expected := len(m.logs) - m.vp.Height
	if m.vp.YOffset != expected {
		t.Fatalf("expected YOffset %d, got %d", expected, m.vp.YOffset)
	}
}

func TestFleetTableTracksDrones(t *testing.T) {
	m := newTUIModel("c1", nil)
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	m = mi.(tuiModel)
	mid := "m1"
	for _, r := range []telemetry.TelemetryRow{
		{DroneID: "d2", Status: "online", Battery: 50},
		{DroneID: "d1", Status: "in-mission", Battery: 80, ActiveMissionID: &mid},
		{DroneID: "d2", Status: "charging", Battery: 51},
	} {
		mi, _ = m.Update(telemetryMsg{r})
		m = mi.(tuiModel)
	}
	rows := m.table.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected one row per drone, got %d", len(rows))
	}
	if rows[0][0] != "d1" || rows[0][5] != "m1" {
		t.Fatalf("unexpected first row %v", rows[0])
	}
	if rows[1][1] != "charging" {
		t.Fatalf("expected latest status for d2, got %v", rows[1])
	}
	if !strings.Contains(m.View(), "Fleet c1") {
		t.Fatalf("header missing from view")
	}
}

func TestAdminAndStateInFooter(t *testing.T) {
	m := newTUIModel("c1", nil)
	mi, _ := m.Update(stateMsg{telemetry.FleetStateRow{Drones: 7, ActiveMissions: 2}})
	m = mi.(tuiModel)
	mi, _ = m.Update(adminMsg{active: true})
	m = mi.(tuiModel)
	if !m.admin {
		t.Fatal("admin flag not set")
	}
	if bottom := m.renderBottom(); !strings.Contains(bottom, "drones=7") || !strings.Contains(bottom, "missions=2") {
		t.Fatalf("unexpected footer %q", bottom)
	}
}
