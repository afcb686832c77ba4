package fleet

import (
	"sync"
	"testing"
	"time"

	"droneops-engine/internal/telemetry"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestStore() (*Store, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1000, 0).UTC()}
	s := NewStore(clk.now)
	s.Seed(
		Baseline{DroneID: "d1", Status: StatusOnline, BatteryPct: 80, Position: telemetry.Position{Lat: 1, Lng: 2}},
		Baseline{DroneID: "d2", Status: StatusInMission, BatteryPct: 60, Position: telemetry.Position{Lat: 3, Lng: 4, Alt: 50}},
	)
	return s, clk
}

func TestSeedIsIdempotent(t *testing.T) {
	s, _ := newTestStore()
	s.Update("d1", func(st *State) { st.BatteryPct = 10 })
	s.Seed(Baseline{DroneID: "d1", Status: StatusOnline, BatteryPct: 99})
	st, _ := s.Get("d1")
	if st.BatteryPct != 10 {
		t.Fatalf("reseed overwrote state: %f", st.BatteryPct)
	}
	if len(s.IDs()) != 2 {
		t.Fatalf("expected 2 drones, got %d", len(s.IDs()))
	}
}

func TestSeedInMissionIsArmed(t *testing.T) {
	s, _ := newTestStore()
	d2, _ := s.Get("d2")
	if !d2.Armed {
		t.Fatalf("in-mission drone should be seeded armed")
	}
	d1, _ := s.Get("d1")
	if d1.Armed {
		t.Fatalf("online drone should be seeded disarmed")
	}
	if d2.BaseAnchor != (telemetry.Anchor{Lat: 3, Lng: 4}) {
		t.Fatalf("unexpected base anchor %+v", d2.BaseAnchor)
	}
}

func TestListIsSnapshot(t *testing.T) {
	s, _ := newTestStore()
	s.Update("d1", func(st *State) { st.ActiveMissionID = StringPtr("m1") })
	list := s.List()
	st := list["d1"]
	*st.ActiveMissionID = "tampered"
	st.BatteryPct = 0
	got, _ := s.Get("d1")
	if got.MissionID() != "m1" || got.BatteryPct != 80 {
		t.Fatalf("snapshot mutation leaked into store: %+v", got)
	}
}

func TestUpdateOfflineSince(t *testing.T) {
	s, clk := newTestStore()
	enter := clk.t.Add(5 * time.Second)
	clk.t = enter
	s.Update("d1", func(st *State) { st.Status = StatusOffline })
	st, _ := s.Get("d1")
	if st.OfflineSince == nil || !st.OfflineSince.Equal(enter) {
		t.Fatalf("expected offlineSince=%v, got %v", enter, st.OfflineSince)
	}

	clk.t = enter.Add(10 * time.Second)
	s.Update("d1", func(st *State) { st.BatteryPct = 50 })
	st, _ = s.Get("d1")
	if !st.OfflineSince.Equal(enter) {
		t.Fatalf("offlineSince moved while staying offline: %v", st.OfflineSince)
	}
	if !st.UpdatedAt.Equal(clk.t) {
		t.Fatalf("updatedAt not refreshed")
	}

	s.Update("d1", func(st *State) { st.Status = StatusCharging })
	st, _ = s.Get("d1")
	if st.OfflineSince != nil {
		t.Fatalf("offlineSince should be cleared on leaving offline")
	}
}

func TestUpdateUnknownIsNoop(t *testing.T) {
	s, _ := newTestStore()
	called := false
	if s.Update("nope", func(*State) { called = true }) {
		t.Fatalf("expected false for unknown drone")
	}
	if called {
		t.Fatalf("mutation should not run for unknown drone")
	}
	if _, ok := s.Get("nope"); ok {
		t.Fatalf("unknown drone should not be created")
	}
}

func TestLockSerializesUpdates(t *testing.T) {
	s, _ := newTestStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock("d1")
			defer unlock()
			st, _ := s.Get("d1")
			s.Update("d1", func(n *State) { n.BatteryPct = st.BatteryPct - 1 })
		}()
	}
	wg.Wait()
	st, _ := s.Get("d1")
	if st.BatteryPct != 30 {
		t.Fatalf("lost updates under lock: battery=%f", st.BatteryPct)
	}
	s.Lock("unknown")()
}
