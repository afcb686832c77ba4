package sim

import "errors"

var (
	ErrDroneNotFound    = errors.New("drone not found")
	ErrDroneUnavailable = errors.New("drone is not available for missions")
)
