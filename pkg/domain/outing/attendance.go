package outing

import "time"

// AttendanceStatus is a participant's self-reported state for a plan.
type AttendanceStatus string

const (
	AttendanceNoResponse AttendanceStatus = "no-response"
	AttendanceEnRoute    AttendanceStatus = "en-route"
	AttendanceCheckedIn  AttendanceStatus = "checked-in"
	AttendanceLeftEarly  AttendanceStatus = "left-early"
)

// IsValid returns true for the four known statuses.
func (s AttendanceStatus) IsValid() bool {
	switch s {
	case AttendanceNoResponse, AttendanceEnRoute, AttendanceCheckedIn, AttendanceLeftEarly:
		return true
	default:
		return false
	}
}

// FriendStatus is the single status record per (plan, participant).
type FriendStatus struct {
	PlanID         string           `json:"plan_id"`
	ParticipantID  string           `json:"participant_id"`
	Status         AttendanceStatus `json:"status"`
	ETA            string           `json:"eta,omitempty"`
	LastUpdate     time.Time        `json:"last_update"`
	CurrentVenueID string           `json:"current_venue_id,omitempty"`
}

// StopAttendance buckets a plan's participants for one stop.
type StopAttendance struct {
	StopID     string   `json:"stop_id"`
	Present    []string `json:"present"`
	EnRoute    []string `json:"en_route"`
	NoResponse []string `json:"no_response"`
	LeftEarly  []string `json:"left_early"`
}

// BuildStopAttendance derives the buckets for a stop from the latest status
// of every participant. Participants without a record, or whose no-response
// record names no venue, land in NoResponse. Records pointing at another stop
// are left out. It runs in O(participants).
func BuildStopAttendance(p *Plan, stopID string, statuses map[string]FriendStatus) (StopAttendance, error) {
	stop, ok := p.FindStop(stopID)
	if !ok {
		return StopAttendance{}, notFound("stop", stopID)
	}

	out := StopAttendance{
		StopID:     stop.ID,
		Present:    []string{},
		EnRoute:    []string{},
		NoResponse: []string{},
		LeftEarly:  []string{},
	}
	for _, member := range p.Participants {
		fs, ok := statuses[member.ID]
		if !ok {
			out.NoResponse = append(out.NoResponse, member.ID)
			continue
		}
		atStop := fs.CurrentVenueID == stop.ID || (stop.VenueID != "" && fs.CurrentVenueID == stop.VenueID)
		if fs.Status == AttendanceNoResponse && (fs.CurrentVenueID == "" || atStop) {
			out.NoResponse = append(out.NoResponse, member.ID)
			continue
		}
		if !atStop {
			continue
		}
		switch fs.Status {
		case AttendanceCheckedIn:
			out.Present = append(out.Present, member.ID)
		case AttendanceEnRoute:
			out.EnRoute = append(out.EnRoute, member.ID)
		case AttendanceLeftEarly:
			out.LeftEarly = append(out.LeftEarly, member.ID)
		}
	}
	return out, nil
}

// BuildPlanAttendance returns the buckets for every stop in plan order.
func BuildPlanAttendance(p *Plan, statuses map[string]FriendStatus) []StopAttendance {
	out := make([]StopAttendance, 0, len(p.Stops))
	for _, s := range p.Stops {
		att, err := BuildStopAttendance(p, s.ID, statuses)
		if err != nil {
			continue
		}
		out = append(out, att)
	}
	return out
}
