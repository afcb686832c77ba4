package mission

import (
	"sync"
	"time"
)

// MaxEvents bounds the per-mission event log.
const MaxEvents = 50

// DefaultEventLimit is used by Events when limit <= 0.
const DefaultEventLimit = 5

// EventType classifies mission execution events.
type EventType string

const (
	EventMissionStarted   EventType = "MISSION_STARTED"
	EventWaypointReached  EventType = "WAYPOINT_REACHED"
	EventActionExecuted   EventType = "ACTION_EXECUTED"
	EventMissionCompleted EventType = "MISSION_COMPLETED"
	EventMissionFailed    EventType = "MISSION_FAILED"
	EventMissionCancelled EventType = "MISSION_CANCELLED"
)

// Event is one entry of a mission's audit trail.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	Type          EventType `json:"type"`
	WaypointIndex *int      `json:"waypointIndex,omitempty"`
	Action        Action    `json:"action,omitempty"`
	Message       string    `json:"message"`
}

// ActionHold is a timed hold at a waypoint.
type ActionHold struct {
	StartTime time.Time     `json:"startTime"`
	Action    Action        `json:"action"`
	Duration  time.Duration `json:"duration"`
}

// Until returns the instant the hold ends.
func (h ActionHold) Until() time.Time { return h.StartTime.Add(h.Duration) }

// EventSink receives every recorded event.
type EventSink func(missionID string, ev Event)

type execution struct {
	delays map[int]ActionHold
	events []Event
}

// Executions tracks waypoint action holds and a bounded event log per mission.
type Executions struct {
	mu    sync.Mutex
	execs map[string]*execution
	sink  EventSink
}

// NewExecutions creates an empty execution store.
func NewExecutions() *Executions {
	return &Executions{execs: make(map[string]*execution)}
}

// SetSink installs a callback that observes every appended event.
func (x *Executions) SetSink(s EventSink) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.sink = s
}

// ActionDelay returns the hold duration for an action.
func ActionDelay(a Action) time.Duration {
	switch a {
	case ActionLoiter:
		return 5 * time.Second
	case ActionTakePhoto:
		return 1 * time.Second
	case ActionScan:
		return 3 * time.Second
	case ActionDeliverPayload:
		return 4 * time.Second
	}
	return 0
}

func (x *Executions) get(missionID string) *execution {
	e, ok := x.execs[missionID]
	if !ok {
		e = &execution{delays: make(map[int]ActionHold)}
		x.execs[missionID] = e
	}
	return e
}

// HasAction reports whether a hold was ever started for the waypoint.
func (x *Executions) HasAction(missionID string, idx int) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	e, ok := x.execs[missionID]
	if !ok {
		return false
	}
	_, ok = e.delays[idx]
	return ok
}

// Hold returns the recorded hold for a waypoint.
func (x *Executions) Hold(missionID string, idx int) (ActionHold, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	e, ok := x.execs[missionID]
	if !ok {
		return ActionHold{}, false
	}
	h, ok := e.delays[idx]
	return h, ok
}

// IsActionExecuting reports whether the waypoint hold is still running at now.
func (x *Executions) IsActionExecuting(missionID string, idx int, now time.Time) bool {
	h, ok := x.Hold(missionID, idx)
	return ok && now.Before(h.Until())
}

// StartAction records a hold at a waypoint, replacing any earlier one, and
// logs ACTION_EXECUTED for real actions.
func (x *Executions) StartAction(missionID string, idx int, action Action, now time.Time) {
	x.mu.Lock()
	e := x.get(missionID)
	e.delays[idx] = ActionHold{StartTime: now, Action: action, Duration: ActionDelay(action)}
	x.mu.Unlock()
	if action.IsNone() {
		return
	}
	i := idx
	x.AddEvent(missionID, Event{
		Timestamp:     now,
		Type:          EventActionExecuted,
		WaypointIndex: &i,
		Action:        action,
		Message:       "executing " + string(action) + " at waypoint",
	})
}

// AddEvent appends to the mission's ring buffer, evicting the oldest entry
// once MaxEvents is reached.
func (x *Executions) AddEvent(missionID string, ev Event) {
	x.mu.Lock()
	e := x.get(missionID)
	if len(e.events) >= MaxEvents {
		copy(e.events, e.events[1:])
		e.events = e.events[:MaxEvents-1]
	}
	e.events = append(e.events, ev)
	sink := x.sink
	x.mu.Unlock()

	if sink != nil {
		func() {
			defer func() { _ = recover() }()
			sink(missionID, ev)
		}()
	}
}

// Events returns up to limit events, most recent first.
func (x *Executions) Events(missionID string, limit int) []Event {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	e, ok := x.execs[missionID]
	if !ok {
		return nil
	}
	n := len(e.events)
	if limit > n {
		limit = n
	}
	out := make([]Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, e.events[i])
	}
	return out
}

// Len returns the number of buffered events for a mission.
func (x *Executions) Len(missionID string) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	if e, ok := x.execs[missionID]; ok {
		return len(e.events)
	}
	return 0
}

// Clear drops all execution state for a mission.
func (x *Executions) Clear(missionID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.execs, missionID)
}
