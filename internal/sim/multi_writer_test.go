package sim

import (
	"errors"
	"testing"
	"time"

	"droneops-engine/internal/telemetry"
)

type plainWriter struct{ rows int }

func (p *plainWriter) Write(telemetry.TelemetryRow) error { p.rows++; return nil }

type failingWriter struct{}

func (failingWriter) Write(telemetry.TelemetryRow) error { return errors.New("boom") }

type statusWriter struct {
	plainWriter
	listening bool
}

func (s *statusWriter) SetAdminStatus(l bool) { s.listening = l }

func TestMultiWriterFanOut(t *testing.T) {
	full := &MockWriter{}
	plain := &plainWriter{}
	mw := NewMultiWriter(full, plain)
	ts := time.Unix(0, 0).UTC()

	if err := mw.WriteBatch([]telemetry.TelemetryRow{{DroneID: "d1"}, {DroneID: "d2"}}); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(full.Rows) != 2 || plain.rows != 2 {
		t.Fatalf("rows not forwarded: %d / %d", len(full.Rows), plain.rows)
	}
	if err := mw.WriteMissionEvents([]telemetry.MissionEventRow{{MissionID: "m1", Timestamp: ts}}); err != nil {
		t.Fatalf("events: %v", err)
	}
	if err := mw.WriteState(telemetry.FleetStateRow{Drones: 3, Timestamp: ts}); err != nil {
		t.Fatalf("state: %v", err)
	}
	if len(full.Events) != 1 || len(full.States) != 1 {
		t.Fatalf("expected event and state on the full writer, got %d / %d", len(full.Events), len(full.States))
	}
}

func TestMultiWriterKeepsGoingAfterFailure(t *testing.T) {
	plain := &plainWriter{}
	mw := NewMultiWriter(failingWriter{}, plain)
	if err := mw.Write(telemetry.TelemetryRow{DroneID: "d1"}); err == nil {
		t.Fatal("expected the failure to be reported")
	}
	if plain.rows != 1 {
		t.Fatalf("later writer skipped after failure")
	}
}

func TestMultiWriterSetAdminStatus(t *testing.T) {
	s := &statusWriter{}
	mw := NewMultiWriter(&plainWriter{}, s)
	mw.SetAdminStatus(true)
	if !s.listening {
		t.Fatalf("admin status not forwarded")
	}
}
