// Package fleet holds the canonical per-drone runtime state.
package fleet

import (
	"sort"
	"sync"
	"time"

	"droneops-engine/internal/telemetry"
)

// Store is the drone runtime store. Data access is guarded by mu; locks
// provides a separate per-drone mutex so a tick and a command for the same
// drone never interleave their read-modify-write cycles.
type Store struct {
	mu     sync.RWMutex
	drones map[string]*State
	locks  map[string]*sync.Mutex
	now    func() time.Time
}

// NewStore creates an empty store. A nil clock defaults to time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		drones: make(map[string]*State),
		locks:  make(map[string]*sync.Mutex),
		now:    now,
	}
}

// Seed creates runtime entries for drones that do not exist yet. Drones
// seeded in-mission start armed. Calling Seed again for known ids is a no-op.
func (s *Store) Seed(baselines ...Baseline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, b := range baselines {
		if _, ok := s.drones[b.DroneID]; ok {
			continue
		}
		st := &State{
			DroneID:    b.DroneID,
			Status:     b.Status,
			Armed:      b.Status == StatusInMission,
			Position:   b.Position,
			BatteryPct: b.BatteryPct,
			BaseAnchor: anchorOf(b),
			UpdatedAt:  now,
		}
		if st.Status == StatusOffline {
			t := now
			st.OfflineSince = &t
		}
		s.drones[b.DroneID] = st
		s.locks[b.DroneID] = &sync.Mutex{}
	}
}

// Get returns a copy of the drone's state.
func (s *Store) Get(id string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.drones[id]
	if !ok {
		return State{}, false
	}
	return st.Clone(), true
}

// Has reports whether the drone is known.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.drones[id]
	return ok
}

// List returns a snapshot copy of every drone's state.
func (s *Store) List() map[string]State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]State, len(s.drones))
	for id, st := range s.drones {
		out[id] = st.Clone()
	}
	return out
}

// IDs returns all drone ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.drones))
	for id := range s.drones {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Update applies fn to a copy of the drone's state and stores the result.
// Entering offline stamps OfflineSince, leaving offline clears it, and
// UpdatedAt is always refreshed. Unknown ids are a silent no-op.
func (s *Store) Update(id string, fn func(*State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.drones[id]
	if !ok {
		return false
	}
	prev := cur.Status
	next := cur.Clone()
	fn(&next)
	next.DroneID = id

	now := s.now()
	switch {
	case next.Status == StatusOffline && (prev != StatusOffline || next.OfflineSince == nil):
		t := now
		next.OfflineSince = &t
	case next.Status != StatusOffline:
		next.OfflineSince = nil
	}
	next.UpdatedAt = now
	s.drones[id] = &next
	return true
}

// Lock acquires the per-drone lock and returns its release function. Unknown
// drones get a no-op release.
func (s *Store) Lock(id string) func() {
	s.mu.RLock()
	l, ok := s.locks[id]
	s.mu.RUnlock()
	if !ok {
		return func() {}
	}
	l.Lock()
	return l.Unlock
}

func anchorOf(b Baseline) telemetry.Anchor {
	return telemetry.Anchor{Lat: b.Position.Lat, Lng: b.Position.Lng}
}
