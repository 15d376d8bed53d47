package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/application"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

func TestProgress_ScenarioD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.newPlan(t, "A", "B")
	svc := env.engine.Progress

	steps := []struct {
		name      string
		run       func() (*outing.Plan, error)
		wantState outing.ProgressState
		wantIndex int
		wantPhase outing.ProgressState
	}{
		{"start", func() (*outing.Plan, error) { return svc.StartPlan(ctx, p.ID, "host") }, outing.ProgressEnRoute, 0, ""},
		{"check in A", func() (*outing.Plan, error) { return svc.CheckIn(ctx, p.ID, p.Stops[0].ID, "ana") }, outing.ProgressCheckedIn, 0, ""},
		{"move to B", func() (*outing.Plan, error) { return svc.MoveToNext(ctx, p.ID, "ben") }, outing.ProgressEnRoute, 1, outing.ProgressMovingToNext},
		{"check in B", func() (*outing.Plan, error) { return svc.CheckIn(ctx, p.ID, "", "host") }, outing.ProgressCheckedIn, 1, ""},
		{"finish", func() (*outing.Plan, error) { return svc.MoveToNext(ctx, p.ID, "host") }, outing.ProgressCompleted, 1, outing.ProgressMovingToNext},
	}
	for i, step := range steps {
		got, err := step.run()
		if err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got.ProgressState != step.wantState || got.CurrentStopIndex != step.wantIndex {
			t.Errorf("%s: state=%s index=%d, want %s/%d", step.name, got.ProgressState, got.CurrentStopIndex, step.wantState, step.wantIndex)
		}
		deltas := env.recorder.Deltas()
		if len(deltas) != i+1 {
			t.Fatalf("%s: deltas = %d, want %d", step.name, len(deltas), i+1)
		}
		last := deltas[i]
		change := last.Payload.(application.PlanChange)
		if last.Type != events.TypePlanDelta || change.Phase != step.wantPhase || last.Version != got.Version {
			t.Errorf("%s: delta = %+v phase = %s", step.name, last, change.Phase)
		}
	}

	final, err := svc.GetPlan(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != outing.PlanCompleted {
		t.Errorf("status = %s, want completed", final.Status)
	}
	if _, err := svc.CheckIn(ctx, p.ID, "", "host"); !errors.Is(err, outing.ErrInvalidState) {
		t.Errorf("event after completion: %v", err)
	}
}

func TestProgress_RejectsOutOfOrderEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.newPlan(t, "A", "B")
	svc := env.engine.Progress

	_, err := svc.CheckIn(ctx, p.ID, "", "host")
	var te *outing.TransitionError
	if !errors.As(err, &te) || te.From != outing.ProgressNotStarted || te.Event != outing.EventCheckIn {
		t.Fatalf("check in before start: %v", err)
	}
	if _, err := svc.MoveToNext(ctx, p.ID, "host"); !errors.Is(err, outing.ErrInvalidState) {
		t.Errorf("move before start: %v", err)
	}
	if _, err := svc.StartPlan(ctx, p.ID, "host"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.StartPlan(ctx, p.ID, "host"); !errors.Is(err, outing.ErrInvalidState) {
		t.Errorf("second start: %v", err)
	}

	got, _ := svc.GetPlan(ctx, p.ID)
	if got.ProgressState != outing.ProgressEnRoute || got.CurrentStopIndex != 0 {
		t.Errorf("rejected events changed state: %+v", got)
	}
	if n := len(env.recorder.Deltas()); n != 1 {
		t.Errorf("deltas = %d, want 1", n)
	}
}

func TestProgress_CheckInMustTargetCurrentStop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.newPlan(t, "A", "B")
	svc := env.engine.Progress

	if _, err := svc.StartPlan(ctx, p.ID, "host"); err != nil {
		t.Fatal(err)
	}
	_, err := svc.CheckIn(ctx, p.ID, p.Stops[1].ID, "ana")
	var te *outing.TransitionError
	if !errors.As(err, &te) || te.Reason != "check-in must target the current stop" {
		t.Fatalf("wrong stop: %v", err)
	}
	if got, _ := svc.GetPlan(ctx, p.ID); got.ProgressState != outing.ProgressEnRoute {
		t.Errorf("state = %s", got.ProgressState)
	}
}

func TestProgress_EndPlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.newPlan(t, "A", "B", "C")
	svc := env.engine.Progress

	if _, err := svc.StartPlan(ctx, p.ID, "host"); err != nil {
		t.Fatal(err)
	}
	got, err := svc.EndPlan(ctx, p.ID, "ana")
	if err != nil {
		t.Fatalf("EndPlan: %v", err)
	}
	if got.ProgressState != outing.ProgressCompleted || got.Status != outing.PlanCompleted {
		t.Errorf("plan = %+v", got)
	}
	if _, err := svc.EndPlan(ctx, p.ID, "ana"); !errors.Is(err, outing.ErrInvalidState) {
		t.Errorf("second end: %v", err)
	}
}

func TestProgress_RequiresParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.newPlan(t, "A")

	if _, err := env.engine.Progress.StartPlan(ctx, p.ID, "stranger"); !errors.Is(err, outing.ErrForbidden) {
		t.Errorf("stranger start: %v", err)
	}
	if err := env.engine.Progress.PingGroup(ctx, p.ID, "stranger", "hi"); !errors.Is(err, outing.ErrForbidden) {
		t.Errorf("stranger ping: %v", err)
	}
	if _, err := env.engine.Progress.StartPlan(ctx, "missing", "host"); !errors.Is(err, outing.ErrNotFound) {
		t.Errorf("missing plan: %v", err)
	}
}

func TestProgress_PingGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.newPlan(t, "A")

	if err := env.engine.Progress.PingGroup(ctx, p.ID, "ana", ""); err != nil {
		t.Fatalf("PingGroup: %v", err)
	}
	sent := env.sink.Notifications()
	if len(sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(sent))
	}
	n := sent[0]
	if n.Urgency != outing.UrgencyHigh || len(n.Recipients) != 2 || n.Message != "Ana is pinging the group" {
		t.Errorf("notification = %+v", n)
	}
	for _, id := range n.Recipients {
		if id == "ana" {
			t.Error("the sender should not be pinged")
		}
	}

	deltas := env.recorder.Deltas()
	if len(deltas) != 1 || deltas[0].Op != outing.EventPingGroup {
		t.Errorf("deltas = %+v", deltas)
	}
	if got, _ := env.engine.Progress.GetPlan(ctx, p.ID); got.Version != p.Version {
		t.Error("a ping must not change the plan")
	}
}

func TestProgress_NotifierFailureDoesNotFail(t *testing.T) {
	env := newTestEnv(t)
	env.sink.Error = errors.New("push gateway down")
	p := env.newPlan(t, "A")

	if err := env.engine.Progress.PingGroup(context.Background(), p.ID, "host", "leaving now"); err != nil {
		t.Errorf("PingGroup: %v", err)
	}
}
