package mission

import (
	"fmt"
	"testing"
	"time"
)

func TestActionDelay(t *testing.T) {
	tests := []struct {
		action Action
		want   time.Duration
	}{
		{ActionLoiter, 5 * time.Second},
		{ActionTakePhoto, time.Second},
		{ActionScan, 3 * time.Second},
		{ActionDeliverPayload, 4 * time.Second},
		{ActionNone, 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ActionDelay(tt.action); got != tt.want {
			t.Errorf("ActionDelay(%q) = %v, want %v", tt.action, got, tt.want)
		}
	}
}

func TestHoldWindow(t *testing.T) {
	x := NewExecutions()
	start := time.Unix(100, 0)
	if x.HasAction("m", 0) || x.IsActionExecuting("m", 0, start) {
		t.Fatalf("no hold expected before StartAction")
	}
	x.StartAction("m", 0, ActionScan, start)
	if !x.HasAction("m", 0) {
		t.Fatalf("hold should be recorded")
	}
	if !x.IsActionExecuting("m", 0, start.Add(2999*time.Millisecond)) {
		t.Fatalf("scan should still execute just before 3s")
	}
	if x.IsActionExecuting("m", 0, start.Add(3*time.Second)) {
		t.Fatalf("scan should be done at exactly 3s")
	}

	x.StartAction("m", 1, ActionNone, start)
	if x.IsActionExecuting("m", 1, start) {
		t.Fatalf("zero-length hold should never be executing")
	}
	if x.Len("m") != 1 {
		t.Fatalf("NONE should not log ACTION_EXECUTED, have %d events", x.Len("m"))
	}
}

func TestStartActionOverwrites(t *testing.T) {
	x := NewExecutions()
	x.StartAction("m", 0, ActionLoiter, time.Unix(0, 0))
	x.StartAction("m", 0, ActionTakePhoto, time.Unix(10, 0))
	h, ok := x.Hold("m", 0)
	if !ok || h.Action != ActionTakePhoto || !h.StartTime.Equal(time.Unix(10, 0)) {
		t.Fatalf("expected overwritten hold, got %+v", h)
	}
}

func TestEventRingEvictsOldest(t *testing.T) {
	x := NewExecutions()
	for i := 0; i < MaxEvents+10; i++ {
		x.AddEvent("m", Event{Type: EventWaypointReached, Message: fmt.Sprint(i)})
	}
	if x.Len("m") != MaxEvents {
		t.Fatalf("expected %d buffered events, got %d", MaxEvents, x.Len("m"))
	}
	all := x.Events("m", MaxEvents)
	if all[0].Message != fmt.Sprint(MaxEvents+9) {
		t.Fatalf("most recent first expected, got %s", all[0].Message)
	}
	if all[len(all)-1].Message != "10" {
		t.Fatalf("oldest survivor should be 10, got %s", all[len(all)-1].Message)
	}
}

func TestEventsLimit(t *testing.T) {
	x := NewExecutions()
	for i := 0; i < 8; i++ {
		x.AddEvent("m", Event{Message: fmt.Sprint(i)})
	}
	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultEventLimit},
		{-1, DefaultEventLimit},
		{3, 3},
		{100, 8},
	}
	for _, tt := range tests {
		if got := len(x.Events("m", tt.limit)); got != tt.want {
			t.Errorf("Events(limit=%d) returned %d, want %d", tt.limit, got, tt.want)
		}
	}
	if evs := x.Events("unknown", 5); len(evs) != 0 {
		t.Fatalf("unknown mission should have no events")
	}
}

func TestSinkObservesEvents(t *testing.T) {
	x := NewExecutions()
	var got []string
	x.SetSink(func(id string, ev Event) { got = append(got, id+":"+string(ev.Type)) })
	x.StartAction("m", 2, ActionTakePhoto, time.Unix(0, 0))
	if len(got) != 1 || got[0] != "m:ACTION_EXECUTED" {
		t.Fatalf("sink saw %v", got)
	}

	x.SetSink(func(string, Event) { panic("boom") })
	x.AddEvent("m", Event{Type: EventMissionCompleted})
	if x.Len("m") != 2 {
		t.Fatalf("panicking sink must not lose the event")
	}
}

func TestClear(t *testing.T) {
	x := NewExecutions()
	x.StartAction("m", 0, ActionLoiter, time.Unix(0, 0))
	x.Clear("m")
	if x.HasAction("m", 0) || x.Len("m") != 0 {
		t.Fatalf("clear should drop holds and events")
	}
}
