package mission

import (
	"sort"
	"time"
)

// Status is a mission lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// FailureReason explains why a mission failed or was cancelled.
type FailureReason string

const (
	ReasonNone            FailureReason = ""
	ReasonLowBattery      FailureReason = "LOW_BATTERY"
	ReasonLowGPS          FailureReason = "LOW_GPS"
	ReasonOfflineTimeout  FailureReason = "OFFLINE_TIMEOUT"
	ReasonCancelledByUser FailureReason = "CANCELLED_BY_USER"
	ReasonRTLCancelled    FailureReason = "RTL_CANCELLED"
)

// Action is performed by the drone while holding at a waypoint.
type Action string

const (
	ActionNone           Action = "NONE"
	ActionLoiter         Action = "LOITER"
	ActionTakePhoto      Action = "TAKE_PHOTO"
	ActionScan           Action = "SCAN"
	ActionDeliverPayload Action = "DELIVER_PAYLOAD"
)

// Valid reports whether a is a known action. The empty action counts as NONE.
func (a Action) Valid() bool {
	switch a {
	case "", ActionNone, ActionLoiter, ActionTakePhoto, ActionScan, ActionDeliverPayload:
		return true
	}
	return false
}

// IsNone reports whether the action is absent.
func (a Action) IsNone() bool { return a == "" || a == ActionNone }

// Waypoint is one leg target of a mission route.
type Waypoint struct {
	Lat    float64  `json:"lat"`
	Lng    float64  `json:"lng"`
	Alt    float64  `json:"alt"`
	Order  int      `json:"order"`
	Speed  *float64 `json:"speed,omitempty"`
	Action Action   `json:"action,omitempty"`
}

// Mission is a route assigned to one drone.
type Mission struct {
	ID                   string         `json:"id"`
	DroneID              string         `json:"droneId"`
	Name                 string         `json:"name,omitempty"`
	Status               Status         `json:"status"`
	Waypoints            []Waypoint     `json:"waypoints"`
	CurrentWaypointIndex *int           `json:"currentWaypointIndex,omitempty"`
	CreatedAt            time.Time      `json:"createdAt"`
	StartedAt            *time.Time     `json:"startedAt,omitempty"`
	EndedAt              *time.Time     `json:"endedAt,omitempty"`
	CompletedAt          *time.Time     `json:"completedAt,omitempty"`
	FailedAt             *time.Time     `json:"failedAt,omitempty"`
	CancelledAt          *time.Time     `json:"cancelledAt,omitempty"`
	Success              *bool          `json:"success,omitempty"`
	FailureReason        *FailureReason `json:"failureReason,omitempty"`
}

// SortedWaypoints returns the route in traversal order. Array position is
// never trusted; Order decides.
func (m Mission) SortedWaypoints() []Waypoint {
	wps := make([]Waypoint, len(m.Waypoints))
	copy(wps, m.Waypoints)
	sort.SliceStable(wps, func(i, j int) bool { return wps[i].Order < wps[j].Order })
	return wps
}

// Index returns the current waypoint index, or -1 when unset.
func (m Mission) Index() int {
	if m.CurrentWaypointIndex == nil {
		return -1
	}
	return *m.CurrentWaypointIndex
}

// Clone returns a deep copy.
func (m Mission) Clone() Mission {
	c := m
	c.Waypoints = make([]Waypoint, len(m.Waypoints))
	for i, wp := range m.Waypoints {
		if wp.Speed != nil {
			s := *wp.Speed
			wp.Speed = &s
		}
		c.Waypoints[i] = wp
	}
	c.CurrentWaypointIndex = cloneInt(m.CurrentWaypointIndex)
	c.StartedAt = cloneTime(m.StartedAt)
	c.EndedAt = cloneTime(m.EndedAt)
	c.CompletedAt = cloneTime(m.CompletedAt)
	c.FailedAt = cloneTime(m.FailedAt)
	c.CancelledAt = cloneTime(m.CancelledAt)
	if m.Success != nil {
		b := *m.Success
		c.Success = &b
	}
	if m.FailureReason != nil {
		r := *m.FailureReason
		c.FailureReason = &r
	}
	return c
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
