package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/application"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

func TestAttendance_ScenarioE(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.newPlan(t, "A", "B")

	got, err := env.engine.Attendance.GetStopAttendance(ctx, p.ID, p.Stops[0].ID)
	if err != nil {
		t.Fatalf("GetStopAttendance: %v", err)
	}
	if len(got.NoResponse) != 3 || len(got.Present)+len(got.EnRoute)+len(got.LeftEarly) != 0 {
		t.Errorf("attendance = %+v", got)
	}
}

func TestAttendance_SetFriendStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.newPlan(t, "A", "B")
	svc := env.engine.Attendance

	fs, err := svc.SetFriendStatus(ctx, application.FriendStatusUpdate{
		PlanID:        p.ID,
		ParticipantID: "ana",
		Status:        outing.AttendanceCheckedIn,
	}, "ana")
	if err != nil {
		t.Fatalf("SetFriendStatus: %v", err)
	}
	if !fs.LastUpdate.Equal(env.clock.Now()) {
		t.Errorf("last update = %v", fs.LastUpdate)
	}
	if _, err := svc.SetFriendStatus(ctx, application.FriendStatusUpdate{
		PlanID:        p.ID,
		ParticipantID: "ben",
		Status:        outing.AttendanceEnRoute,
		ETA:           " 10 min ",
	}, "ben"); err != nil {
		t.Fatal(err)
	}

	att, err := svc.GetStopAttendance(ctx, p.ID, p.Stops[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(att.Present) != 1 || att.Present[0] != "ana" {
		t.Errorf("present = %v", att.Present)
	}
	if len(att.EnRoute) != 1 || att.EnRoute[0] != "ben" {
		t.Errorf("en route = %v", att.EnRoute)
	}
	if len(att.NoResponse) != 1 || att.NoResponse[0] != "host" {
		t.Errorf("no response = %v", att.NoResponse)
	}

	statuses, err := svc.GetFriendStatuses(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if statuses["ben"].ETA != "10 min" {
		t.Errorf("eta = %q", statuses["ben"].ETA)
	}

	deltas := env.recorder.Deltas()
	if len(deltas) != 2 {
		t.Fatalf("deltas = %d, want 2", len(deltas))
	}
	if deltas[1].Type != events.TypeFriendStatusDelta || deltas[1].Topic != events.PlanTopic(p.ID) {
		t.Errorf("delta = %+v", deltas[1])
	}
	change := deltas[1].Payload.(application.FriendStatusChange)
	if len(change.Attendance.EnRoute) != 1 || len(change.Attendance.Present) != 1 {
		t.Errorf("delta attendance = %+v", change.Attendance)
	}
}

func TestAttendance_StatusAtAnotherStop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.newPlan(t, "A", "B")
	svc := env.engine.Attendance

	if _, err := svc.SetFriendStatus(ctx, application.FriendStatusUpdate{
		PlanID:        p.ID,
		ParticipantID: "ben",
		Status:        outing.AttendanceEnRoute,
		VenueID:       p.Stops[1].ID,
	}, "ben"); err != nil {
		t.Fatal(err)
	}

	all, err := svc.GetPlanAttendance(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("stops = %d", len(all))
	}
	if len(all[1].EnRoute) != 1 || all[1].EnRoute[0] != "ben" {
		t.Errorf("stop B = %+v", all[1])
	}
	for _, id := range all[0].NoResponse {
		if id == "ben" {
			t.Error("ben is heading to B, not unaccounted for at A")
		}
	}

	if _, err := svc.SetFriendStatus(ctx, application.FriendStatusUpdate{
		PlanID:        p.ID,
		ParticipantID: "ben",
		Status:        outing.AttendanceEnRoute,
		VenueID:       "elsewhere",
	}, "ben"); !errors.Is(err, outing.ErrInvalidInput) {
		t.Errorf("unknown venue: %v", err)
	}
}

func TestAttendance_Notifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.newPlan(t, "A")
	svc := env.engine.Attendance

	set := func(id string, status outing.AttendanceStatus) {
		t.Helper()
		if _, err := svc.SetFriendStatus(ctx, application.FriendStatusUpdate{PlanID: p.ID, ParticipantID: id, Status: status}, id); err != nil {
			t.Fatal(err)
		}
	}
	set("ana", outing.AttendanceEnRoute)
	set("ana", outing.AttendanceCheckedIn)
	set("ben", outing.AttendanceLeftEarly)

	sent := env.sink.Notifications()
	if len(sent) != 2 {
		t.Fatalf("notifications = %+v", sent)
	}
	if sent[0].Urgency != outing.UrgencyLow || sent[0].Message != "Ana checked in at A" {
		t.Errorf("check-in notification = %+v", sent[0])
	}
	if sent[1].Urgency != outing.UrgencyNormal || sent[1].Message != "Ben left A early" {
		t.Errorf("left-early notification = %+v", sent[1])
	}
}

func TestAttendance_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.newPlan(t, "A")
	svc := env.engine.Attendance

	cases := []struct {
		name  string
		u     application.FriendStatusUpdate
		actor string
		want  error
	}{
		{"unknown status", application.FriendStatusUpdate{PlanID: p.ID, ParticipantID: "ana", Status: "asleep"}, "ana", outing.ErrInvalidInput},
		{"someone else", application.FriendStatusUpdate{PlanID: p.ID, ParticipantID: "ana", Status: outing.AttendanceCheckedIn}, "ben", outing.ErrForbidden},
		{"non-member", application.FriendStatusUpdate{PlanID: p.ID, ParticipantID: "stranger", Status: outing.AttendanceCheckedIn}, "stranger", outing.ErrForbidden},
		{"missing plan", application.FriendStatusUpdate{PlanID: "missing", ParticipantID: "ana", Status: outing.AttendanceCheckedIn}, "ana", outing.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SetFriendStatus(ctx, tc.u, tc.actor); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
	if n := len(env.recorder.Deltas()); n != 0 {
		t.Errorf("rejected updates broadcast %d deltas", n)
	}
}
