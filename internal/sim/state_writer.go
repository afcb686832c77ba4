package sim

import "droneops-engine/internal/telemetry"

// StateWriter handles per-poll fleet summary rows.
type StateWriter interface {
	WriteState(telemetry.FleetStateRow) error
}
