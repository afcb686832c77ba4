package mission

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("mission not found")
	ErrInvalidTransition = errors.New("invalid mission transition")
	ErrDroneBusy         = errors.New("drone already has an active mission")
	ErrInvalidMission    = errors.New("invalid mission")
)

// TransitionError describes a rejected state-machine transition.
type TransitionError struct {
	MissionID string
	From      Status
	Op        string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s mission %s in status %s", e.Op, e.MissionID, e.From)
}

// Is matches ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
