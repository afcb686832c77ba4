package sim

import (
	"context"
	"fmt"
	"strings"
	"time"

	"droneops-engine/internal/fleet"
	"droneops-engine/internal/logging"
	"droneops-engine/internal/mission"
	"droneops-engine/internal/motion"
)

// Command is an operator command for a single drone.
type Command string

const (
	CommandArm     Command = "ARM"
	CommandTakeoff Command = "TAKEOFF"
	CommandLand    Command = "LAND"
	CommandRTL     Command = "RTL"
)

// ParseCommand accepts a command name in any case.
func ParseCommand(s string) (Command, error) {
	c := Command(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CommandArm, CommandTakeoff, CommandLand, CommandRTL:
		return c, nil
	}
	return "", &CommandError{Code: CodeValidation, Message: fmt.Sprintf("unknown command %q", s)}
}

// ErrorCode is the closed set of codes reported at the command boundary.
type ErrorCode string

const (
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeNotArmed      ErrorCode = "NOT_ARMED"
	CodeCommandFailed ErrorCode = "COMMAND_FAILED"
	CodeValidation    ErrorCode = "VALIDATION_ERROR"
	CodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// CommandError is a coded command failure.
type CommandError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *CommandError) Error() string { return string(e.Code) + ": " + e.Message }

// CommandResult is the outcome of applying a command. State is set on success.
type CommandResult struct {
	Success bool          `json:"success"`
	Error   *CommandError `json:"error,omitempty"`
	State   *fleet.State  `json:"state,omitempty"`
}

// Failed builds an unsuccessful result.
func Failed(code ErrorCode, format string, args ...any) CommandResult {
	return CommandResult{Error: &CommandError{Code: code, Message: fmt.Sprintf(format, args...)}}
}

// Commander reconciles operator commands into runtime state.
type Commander struct {
	drones     *fleet.Store
	missions   *mission.Store
	motion     *motion.Generator
	rng        *lockedRand
	now        func() time.Time
	takeoffMin float64
	takeoffMax float64
}

// Apply runs cmd against the drone under its lock. RTL and LAND on an
// in-mission drone cancel its active mission (RTL_CANCELLED and
// CANCELLED_BY_USER respectively), looking it up in the mission store when
// the runtime link is missing.
func (c *Commander) Apply(ctx context.Context, droneID string, cmd Command) CommandResult {
	log := logging.FromContext(ctx)
	unlock := c.drones.Lock(droneID)
	defer unlock()

	st, ok := c.drones.Get(droneID)
	if !ok {
		return Failed(CodeNotFound, "drone %s not found", droneID)
	}
	if cmd == CommandTakeoff && !st.Armed {
		return Failed(CodeNotArmed, "drone %s must be armed before takeoff", droneID)
	}

	var cancelID string
	switch cmd {
	case CommandRTL, CommandLand:
		if st.Status == fleet.StatusInMission {
			cancelID = st.MissionID()
			if cancelID == "" {
				if m, ok := c.missions.ActiveForDrone(droneID); ok {
					cancelID = m.ID
				}
			}
		}
	case CommandArm, CommandTakeoff:
	default:
		return Failed(CodeValidation, "unknown command %q", cmd)
	}
	if cancelID != "" {
		reason := mission.ReasonCancelledByUser
		if cmd == CommandRTL {
			reason = mission.ReasonRTLCancelled
		}
		if _, err := c.missions.Cancel(cancelID, reason); err != nil {
			log.Debug("mission cancel skipped", "mission_id", cancelID, "err", err)
		}
	}

	now := c.now()
	c.drones.Update(droneID, func(s *fleet.State) {
		switch cmd {
		case CommandArm:
			s.Armed = true
			s.Returning = false
			s.TargetAltitude = nil
			if s.Status == fleet.StatusOffline || s.Status == fleet.StatusCharging {
				s.Status = fleet.StatusOnline
			}
		case CommandTakeoff:
			if s.Status == fleet.StatusOnline {
				s.Status = fleet.StatusInMission
				s.TargetAltitude = fleet.FloatPtr(c.takeoffAltitude())
				s.Returning = false
			}
		case CommandLand:
			if s.Status == fleet.StatusInMission {
				s.Status = fleet.StatusOnline
				s.TargetAltitude = fleet.FloatPtr(0)
				s.Returning = false
				s.ActiveMissionID = nil
			}
		case CommandRTL:
			if s.Status == fleet.StatusInMission {
				s.Returning = true
				s.TargetAltitude = nil
				s.ActiveMissionID = nil
			}
		}
		s.LastCommand = string(cmd)
		at := now
		s.LastCommandAt = &at
	})
	if (cmd == CommandRTL || cmd == CommandLand) && st.Status == fleet.StatusInMission {
		c.motion.Reset(droneID)
	}

	next, _ := c.drones.Get(droneID)
	log.Info("command applied", "drone_id", droneID, "command", cmd, "status", next.Status)
	return CommandResult{Success: true, State: &next}
}

// takeoffAltitude picks a target in [takeoffMin, takeoffMax).
func (c *Commander) takeoffAltitude() float64 {
	return c.takeoffMin + c.rng.Float64()*(c.takeoffMax-c.takeoffMin)
}
