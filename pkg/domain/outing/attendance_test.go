package outing

import (
	"errors"
	"testing"
)

func attendancePlan() *Plan {
	return &Plan{
		ID:           "p1",
		Participants: []Participant{{ID: "host"}, {ID: "ana"}, {ID: "ben"}, {ID: "cat"}, {ID: "dan"}},
		Stops: []Stop{
			{ID: "s1", VenueID: "v-bar", VenueName: "Bar", Order: 0},
			{ID: "s2", VenueName: "Custom", Order: 1},
		},
	}
}

func TestBuildStopAttendance_NoRecordIsNoResponse(t *testing.T) {
	att, err := BuildStopAttendance(attendancePlan(), "s1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(att.NoResponse) != 5 {
		t.Errorf("NoResponse = %v", att.NoResponse)
	}
	if len(att.Present)+len(att.EnRoute)+len(att.LeftEarly) != 0 {
		t.Errorf("unexpected buckets: %+v", att)
	}
}

func TestBuildStopAttendance_Buckets(t *testing.T) {
	statuses := map[string]FriendStatus{
		"host": {ParticipantID: "host", Status: AttendanceCheckedIn, CurrentVenueID: "s1"},
		"ana":  {ParticipantID: "ana", Status: AttendanceEnRoute, CurrentVenueID: "v-bar"},
		"ben":  {ParticipantID: "ben", Status: AttendanceLeftEarly, CurrentVenueID: "s1"},
		"cat":  {ParticipantID: "cat", Status: AttendanceCheckedIn, CurrentVenueID: "s2"},
	}

	att, err := BuildStopAttendance(attendancePlan(), "s1", statuses)
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(att.Present, []string{"host"}) {
		t.Errorf("Present = %v", att.Present)
	}
	if !equalIDs(att.EnRoute, []string{"ana"}) {
		t.Errorf("EnRoute = %v", att.EnRoute)
	}
	if !equalIDs(att.LeftEarly, []string{"ben"}) {
		t.Errorf("LeftEarly = %v", att.LeftEarly)
	}
	if !equalIDs(att.NoResponse, []string{"dan"}) {
		t.Errorf("NoResponse = %v", att.NoResponse)
	}

	second, err := BuildStopAttendance(attendancePlan(), "s2", statuses)
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(second.Present, []string{"cat"}) {
		t.Errorf("s2 Present = %v", second.Present)
	}
}

func TestBuildStopAttendance_ResolvesByVenueID(t *testing.T) {
	att, err := BuildStopAttendance(attendancePlan(), "v-bar", nil)
	if err != nil {
		t.Fatal(err)
	}
	if att.StopID != "s1" {
		t.Errorf("StopID = %s", att.StopID)
	}
	if _, err := BuildStopAttendance(attendancePlan(), "nope", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown stop: got %v", err)
	}
}

func TestBuildPlanAttendance(t *testing.T) {
	all := BuildPlanAttendance(attendancePlan(), map[string]FriendStatus{
		"ana": {ParticipantID: "ana", Status: AttendanceNoResponse},
	})
	if len(all) != 2 || all[0].StopID != "s1" || all[1].StopID != "s2" {
		t.Fatalf("attendance = %+v", all)
	}
	for _, att := range all {
		if len(att.NoResponse) != 5 {
			t.Errorf("%s NoResponse = %v", att.StopID, att.NoResponse)
		}
	}
}

func TestAttendanceStatus_IsValid(t *testing.T) {
	for _, s := range []AttendanceStatus{AttendanceNoResponse, AttendanceEnRoute, AttendanceCheckedIn, AttendanceLeftEarly} {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if AttendanceStatus("late").IsValid() {
		t.Error("unknown status accepted")
	}
}
