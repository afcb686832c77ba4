// Package mission implements the mission state machine and waypoint execution tracking.
package mission

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the canonical mission list. Every transition runs under mu, so
// the single-active-mission check in Start is atomic with the transition.
type Store struct {
	mu       sync.RWMutex
	order    []string
	missions map[string]*Mission
	exec     *Executions
	now      func() time.Time
}

// NewStore creates an empty mission store. exec may be nil, in which case
// events and holds are not tracked.
func NewStore(exec *Executions, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		missions: make(map[string]*Mission),
		exec:     exec,
		now:      now,
	}
}

// Add appends a mission. Pending is assumed when no status is given.
func (s *Store) Add(m Mission) error {
	if strings.TrimSpace(m.ID) == "" || strings.TrimSpace(m.DroneID) == "" {
		return fmt.Errorf("%w: id and drone id are required", ErrInvalidMission)
	}
	for _, wp := range m.Waypoints {
		if !wp.Action.Valid() {
			return fmt.Errorf("%w: unknown action %q", ErrInvalidMission, wp.Action)
		}
	}
	if m.Status == "" {
		m.Status = StatusPending
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	c := m.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.missions[c.ID]; !ok {
		s.order = append(s.order, c.ID)
	}
	s.missions[c.ID] = &c
	return nil
}

// Create builds and adds a pending mission with a generated id.
func (s *Store) Create(droneID, name string, waypoints []Waypoint) (Mission, error) {
	if len(waypoints) == 0 {
		return Mission{}, fmt.Errorf("%w: at least one waypoint is required", ErrInvalidMission)
	}
	m := Mission{
		ID:        "mission-" + uuid.New().String(),
		DroneID:   droneID,
		Name:      name,
		Status:    StatusPending,
		Waypoints: waypoints,
		CreatedAt: s.now(),
	}
	if err := s.Add(m); err != nil {
		return Mission{}, err
	}
	return m.Clone(), nil
}

// Get returns a copy of the mission.
func (s *Store) Get(id string) (Mission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.missions[id]
	if !ok {
		return Mission{}, false
	}
	return m.Clone(), true
}

// List returns copies of all missions in insertion order.
func (s *Store) List() []Mission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Mission, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.missions[id].Clone())
	}
	return out
}

// ActiveForDrone returns the drone's in-progress mission.
func (s *Store) ActiveForDrone(droneID string) (Mission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m := s.activeLocked(droneID); m != nil {
		return m.Clone(), true
	}
	return Mission{}, false
}

func (s *Store) activeLocked(droneID string) *Mission {
	for _, id := range s.order {
		m := s.missions[id]
		if m.DroneID == droneID && m.Status == StatusInProgress {
			return m
		}
	}
	return nil
}

// Start moves a pending mission to in-progress. It fails loudly when the
// mission is unknown, not pending, or its drone already flies another one.
func (s *Store) Start(id string) (Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[id]
	if !ok {
		return Mission{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if m.Status != StatusPending {
		return Mission{}, &TransitionError{MissionID: id, From: m.Status, Op: "start"}
	}
	if other := s.activeLocked(m.DroneID); other != nil {
		return Mission{}, fmt.Errorf("%w: drone %s is flying %s", ErrDroneBusy, m.DroneID, other.ID)
	}
	now := s.now()
	idx := 0
	m.Status = StatusInProgress
	m.StartedAt = &now
	m.CurrentWaypointIndex = &idx
	s.record(id, Event{Timestamp: now, Type: EventMissionStarted, Message: "mission started"})
	return m.Clone(), nil
}

// AdvanceWaypoint moves to the next waypoint. Passing the last waypoint
// completes the mission successfully. Returns false unless in-progress.
func (s *Store) AdvanceWaypoint(id string) (Mission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[id]
	if !ok || m.Status != StatusInProgress {
		return Mission{}, false
	}
	next := m.Index() + 1
	if next > len(m.Waypoints)-1 {
		s.completeLocked(m, true, ReasonNone)
		return m.Clone(), true
	}
	m.CurrentWaypointIndex = &next
	return m.Clone(), true
}

// Complete ends an in-progress mission as completed or failed. Returns false
// unless in-progress.
func (s *Store) Complete(id string, success bool, reason FailureReason) (Mission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[id]
	if !ok || m.Status != StatusInProgress {
		return Mission{}, false
	}
	s.completeLocked(m, success, reason)
	return m.Clone(), true
}

func (s *Store) completeLocked(m *Mission, success bool, reason FailureReason) {
	now := s.now()
	ok := success
	m.Success = &ok
	m.CompletedAt = &now
	m.EndedAt = &now
	m.CurrentWaypointIndex = nil
	if success {
		m.Status = StatusCompleted
		m.FailureReason = nil
		s.record(m.ID, Event{Timestamp: now, Type: EventMissionCompleted, Message: "mission completed"})
	} else {
		m.Status = StatusFailed
		m.FailedAt = &now
		if reason != ReasonNone {
			r := reason
			m.FailureReason = &r
		}
		s.record(m.ID, Event{Timestamp: now, Type: EventMissionFailed, Message: "mission failed: " + string(reason)})
	}
	s.clearExec(m.ID)
}

// Cancel cancels a pending or in-progress mission. Cancelling a terminal
// mission fails loudly. An empty reason means CANCELLED_BY_USER.
func (s *Store) Cancel(id string, reason FailureReason) (Mission, error) {
	if reason == ReasonNone {
		reason = ReasonCancelledByUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[id]
	if !ok {
		return Mission{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if m.Status != StatusPending && m.Status != StatusInProgress {
		return Mission{}, &TransitionError{MissionID: id, From: m.Status, Op: "cancel"}
	}
	now := s.now()
	failed := false
	r := reason
	m.Status = StatusCancelled
	m.CancelledAt = &now
	m.EndedAt = &now
	m.Success = &failed
	m.CurrentWaypointIndex = nil
	m.FailureReason = &r
	s.record(id, Event{Timestamp: now, Type: EventMissionCancelled, Message: "mission cancelled: " + string(reason)})
	s.clearExec(id)
	return m.Clone(), nil
}

// ReplaceAll swaps the whole mission list. Execution state for dropped
// missions is cleared.
func (s *Store) ReplaceAll(missions []Mission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.missions {
		s.clearExec(id)
	}
	s.order = s.order[:0]
	s.missions = make(map[string]*Mission, len(missions))
	for _, m := range missions {
		c := m.Clone()
		if _, ok := s.missions[c.ID]; !ok {
			s.order = append(s.order, c.ID)
		}
		s.missions[c.ID] = &c
	}
}

// record is best-effort; a failing event log must never block a transition.
func (s *Store) record(id string, ev Event) {
	if s.exec == nil {
		return
	}
	defer func() { _ = recover() }()
	s.exec.AddEvent(id, ev)
}

func (s *Store) clearExec(id string) {
	if s.exec != nil {
		s.exec.Clear(id)
	}
}
