package outing

import "time"

// PlanStatus says whether a plan is still running.
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
)

// Plan is the live form of a draft after conversion. Stops is an immutable
// snapshot taken at conversion time.
type Plan struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Description      string        `json:"description,omitempty"`
	PlanType         string        `json:"plan_type,omitempty"`
	Date             string        `json:"date,omitempty"`
	Time             string        `json:"time,omitempty"`
	SourceDraftID    string        `json:"source_draft_id"`
	HostID           string        `json:"host_id"`
	Participants     []Participant `json:"participants"`
	AttendeesCount   int           `json:"attendees_count"`
	Stops            []Stop        `json:"stops"`
	Status           PlanStatus    `json:"status"`
	ProgressState    ProgressState `json:"progress_state"`
	CurrentStopIndex int           `json:"current_stop_index"`
	Version          int64         `json:"version"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// NewPlanFromDraft snapshots a draft's stops and participants into a plan
// that has not started yet.
func NewPlanFromDraft(id string, d *Draft, now time.Time) *Plan {
	return &Plan{
		ID:               id,
		Name:             d.Title,
		Description:      d.Description,
		PlanType:         d.PlanType,
		Date:             d.Date,
		Time:             d.Time,
		SourceDraftID:    d.ID,
		HostID:           d.HostID,
		Participants:     append([]Participant(nil), d.Participants...),
		AttendeesCount:   len(d.Participants),
		Stops:            append([]Stop(nil), d.Stops...),
		Status:           PlanActive,
		ProgressState:    ProgressNotStarted,
		CurrentStopIndex: 0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	c := *p
	c.Participants = append([]Participant(nil), p.Participants...)
	c.Stops = append([]Stop(nil), p.Stops...)
	return &c
}

// HasParticipant reports whether userID attends the plan.
func (p *Plan) HasParticipant(userID string) bool {
	for _, m := range p.Participants {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// ParticipantIDs returns member ids in plan order.
func (p *Plan) ParticipantIDs() []string {
	ids := make([]string, 0, len(p.Participants))
	for _, m := range p.Participants {
		ids = append(ids, m.ID)
	}
	return ids
}

// CurrentStop returns the stop the group is heading to or at.
func (p *Plan) CurrentStop() Stop {
	return p.Stops[p.CurrentStopIndex]
}

// HasNextStop reports whether moving on leads to another stop.
func (p *Plan) HasNextStop() bool {
	return p.CurrentStopIndex+1 < len(p.Stops)
}

// FindStop resolves a stop by stop id or by venue id.
func (p *Plan) FindStop(ref string) (Stop, bool) {
	for _, s := range p.Stops {
		if s.ID == ref || (s.VenueID != "" && s.VenueID == ref) {
			return s, true
		}
	}
	return Stop{}, false
}

// IsCompleted reports whether the plan has reached its terminal state.
func (p *Plan) IsCompleted() bool {
	return p.Status == PlanCompleted
}

// Touch records an accepted progress change.
func (p *Plan) Touch(now time.Time) {
	p.Version++
	p.UpdatedAt = now
}
