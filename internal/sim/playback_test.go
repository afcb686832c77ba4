package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"droneops-engine/internal/telemetry"
)

type collectWriter struct{ rows []telemetry.TelemetryRow }

func (c *collectWriter) Write(r telemetry.TelemetryRow) error {
	c.rows = append(c.rows, r)
	return nil
}

func encodeRows(t *testing.T, rows []telemetry.TelemetryRow) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	return &buf
}

func TestReplayLog(t *testing.T) {
	rows := []telemetry.TelemetryRow{
		{ClusterID: "c1", DroneID: "d1", Timestamp: time.Unix(0, 0)},
		{ClusterID: "c1", DroneID: "d2", Timestamp: time.Unix(1, 0), MissionCleared: true},
	}
	cw := &collectWriter{}
	n, err := ReplayLog(context.Background(), encodeRows(t, rows), cw, 0)
	if err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if n != len(rows) || len(cw.rows) != len(rows) {
		t.Fatalf("expected %d rows, got %d", len(rows), len(cw.rows))
	}
	for i, r := range rows {
		if cw.rows[i].DroneID != r.DroneID {
			t.Fatalf("row %d mismatch: %+v vs %+v", i, cw.rows[i], r)
		}
	}
	if !cw.rows[1].MissionCleared {
		t.Fatal("cleared-mission edge lost in replay")
	}
}

func TestReplayLogCancelled(t *testing.T) {
	rows := []telemetry.TelemetryRow{
		{DroneID: "d1", Timestamp: time.Unix(0, 0)},
		{DroneID: "d1", Timestamp: time.Unix(3600, 0)},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cw := &collectWriter{}
	n, err := ReplayLog(ctx, encodeRows(t, rows), cw, 1)
	if !errors.Is(err, context.Canceled) || n != 1 {
		t.Fatalf("expected cancellation after first row, got n=%d err=%v", n, err)
	}
}
