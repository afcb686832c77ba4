package sim

import (
	"errors"

	"droneops-engine/internal/telemetry"
)

// MultiWriter fans out telemetry rows, mission events and fleet summaries to
// multiple writers. Writers that do not implement an optional interface are
// skipped for that row kind.
type MultiWriter struct {
	writers []TelemetryWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...TelemetryWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Write sends a telemetry row to all writers. Every writer is attempted; the
// failures are joined.
func (mw *MultiWriter) Write(row telemetry.TelemetryRow) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Write(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteBatch sends multiple telemetry rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	var errs []error
	for _, w := range mw.writers {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(rows); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, r := range rows {
			if err := w.Write(r); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}

// WriteMissionEvent sends a mission event to all mission event writers.
func (mw *MultiWriter) WriteMissionEvent(row telemetry.MissionEventRow) error {
	var errs []error
	for _, w := range mw.writers {
		if ew, ok := w.(MissionEventWriter); ok {
			if err := ew.WriteMissionEvent(row); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WriteMissionEvents sends multiple mission events, using batch if supported.
func (mw *MultiWriter) WriteMissionEvents(rows []telemetry.MissionEventRow) error {
	var errs []error
	for _, w := range mw.writers {
		if bw, ok := w.(batchMissionEventWriter); ok {
			if err := bw.WriteMissionEvents(rows); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		ew, ok := w.(MissionEventWriter)
		if !ok {
			continue
		}
		for _, r := range rows {
			if err := ew.WriteMissionEvent(r); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}

// WriteState sends a fleet summary to all state writers.
func (mw *MultiWriter) WriteState(row telemetry.FleetStateRow) error {
	var errs []error
	for _, w := range mw.writers {
		if sw, ok := w.(StateWriter); ok {
			if err := sw.WriteState(row); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// SetAdminStatus forwards the HTTP API status to writers that display it.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}
