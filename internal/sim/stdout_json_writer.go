package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"droneops-engine/internal/telemetry"
)

// JSONStdoutWriter prints telemetry, mission events and fleet summaries as
// JSON lines to STDOUT.
type JSONStdoutWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

func (w *JSONStdoutWriter) print(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// Write outputs a telemetry row in JSON format.
func (w *JSONStdoutWriter) Write(row telemetry.TelemetryRow) error {
	return w.print(row)
}

// WriteBatch outputs multiple telemetry rows in JSON format.
func (w *JSONStdoutWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteMissionEvent outputs a mission event in JSON format.
func (w *JSONStdoutWriter) WriteMissionEvent(row telemetry.MissionEventRow) error {
	return w.print(row)
}

// WriteState outputs a fleet summary in JSON format.
func (w *JSONStdoutWriter) WriteState(row telemetry.FleetStateRow) error {
	return w.print(row)
}
