package outing

import (
	"errors"
	"testing"
)

func TestProgressState_Transitions(t *testing.T) {
	tests := []struct {
		from  ProgressState
		event string
		to    ProgressState
		ok    bool
	}{
		{ProgressNotStarted, EventStartPlan, ProgressEnRoute, true},
		{ProgressNotStarted, EventCheckIn, ProgressNotStarted, false},
		{ProgressEnRoute, EventCheckIn, ProgressCheckedIn, true},
		{ProgressEnRoute, EventAdvance, ProgressEnRoute, false},
		{ProgressCheckedIn, EventAdvance, ProgressEnRoute, true},
		{ProgressCheckedIn, EventFinish, ProgressCompleted, true},
		{ProgressCheckedIn, EventEndPlan, ProgressCompleted, true},
		{ProgressCompleted, EventStartPlan, ProgressCompleted, false},
		{ProgressCompleted, EventEndPlan, ProgressCompleted, false},
	}
	for _, tt := range tests {
		got, err := tt.from.TransitionWith(tt.event)
		if (err == nil) != tt.ok {
			t.Errorf("%s --%s--> err=%v, want ok=%v", tt.from, tt.event, err, tt.ok)
		}
		if got != tt.to {
			t.Errorf("%s --%s--> %s, want %s", tt.from, tt.event, got, tt.to)
		}
	}
}

func TestProgressState_ValidEvents(t *testing.T) {
	got := ProgressCheckedIn.ValidEvents()
	want := []string{EventAdvance, EventFinish, EventEndPlan}
	if !equalIDs(got, want) {
		t.Errorf("ValidEvents = %v, want %v", got, want)
	}
	if len(ProgressCompleted.ValidEvents()) != 0 {
		t.Error("completed should accept no events")
	}
	if ProgressMovingToNext.IsValid() {
		t.Error("moving_to_next must not be persisted")
	}
}

func TestProgressMachine_FullRun(t *testing.T) {
	m, err := NewProgressMachine(ProgressNotStarted, "p1", nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, ev := range []string{EventStartPlan, EventCheckIn, EventAdvance, EventCheckIn, EventFinish} {
		if err := m.Fire(ev); err != nil {
			t.Fatalf("Fire(%s): %v", ev, err)
		}
	}
	if !m.IsFinal() {
		t.Errorf("state = %s, want completed", m.Current())
	}
	if err := m.Fire(EventEndPlan); !errors.Is(err, ErrInvalidState) {
		t.Errorf("event after completion: got %v", err)
	}
}

func TestProgressMachine_RejectsOutOfOrder(t *testing.T) {
	m, err := NewProgressMachine(ProgressNotStarted, "p1", nil)
	if err != nil {
		t.Fatal(err)
	}
	err = m.Fire(EventCheckIn)
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("want TransitionError, got %v", err)
	}
	if te.From != ProgressNotStarted || te.Event != EventCheckIn {
		t.Errorf("TransitionError = %+v", te)
	}
	if m.Current() != ProgressNotStarted {
		t.Errorf("state moved to %s", m.Current())
	}
}

func TestProgressMachine_GuardBlocksCheckIn(t *testing.T) {
	m, err := NewProgressMachine(ProgressEnRoute, "p1", func(planID, event string) bool {
		return false
	})
	if err != nil {
		t.Fatal(err)
	}
	err = m.Fire(EventCheckIn)
	var te *TransitionError
	if !errors.As(err, &te) || te.Reason == "" {
		t.Fatalf("want guarded TransitionError, got %v", err)
	}
	if m.Current() != ProgressEnRoute {
		t.Errorf("state = %s", m.Current())
	}
}

func TestNewProgressMachine_RejectsUnknownState(t *testing.T) {
	if _, err := NewProgressMachine(ProgressMovingToNext, "p1", nil); err == nil {
		t.Error("expected error for non-persisted state")
	}
}

func TestResolveMoveToNext(t *testing.T) {
	p := &Plan{Stops: []Stop{{ID: "a"}, {ID: "b"}}}
	if got := ResolveMoveToNext(p); got != EventAdvance {
		t.Errorf("first stop: %s", got)
	}
	p.CurrentStopIndex = 1
	if got := ResolveMoveToNext(p); got != EventFinish {
		t.Errorf("last stop: %s", got)
	}
}
