// Package outing models the collaborative plan engine: drafts that a group
// edits together, the live plans they convert into, and per-participant
// attendance while the plan runs.
package outing

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MaxParticipants bounds the size of a draft's group.
const MaxParticipants = 12

// StopField names an editable field of a stop.
type StopField string

const (
	FieldVenueID       StopField = "venue_id"
	FieldVenueName     StopField = "venue_name"
	FieldNotes         StopField = "notes"
	FieldEstimatedTime StopField = "estimated_time"
)

// IsValid returns true if the field can be edited through UpdateStopField.
func (f StopField) IsValid() bool {
	switch f {
	case FieldVenueID, FieldVenueName, FieldNotes, FieldEstimatedTime:
		return true
	default:
		return false
	}
}

// Participant is a member of a draft or plan.
type Participant struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Avatar string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
}

// Stop is one venue within a draft. Order is dense: 0..n-1 within a draft.
type Stop struct {
	ID            string `json:"id"`
	VenueID       string `json:"venue_id,omitempty"` // empty for a custom stop
	VenueName     string `json:"venue_name"`
	Notes         string `json:"notes,omitempty"`
	EstimatedTime int    `json:"estimated_time"` // minutes
	Order         int    `json:"order"`
	AddedBy       string `json:"added_by"`
}

// FieldRef points at a single field of a single stop.
type FieldRef struct {
	StopID string    `json:"stop_id"`
	Field  StopField `json:"field"`
}

// PresenceEntry is a participant's connection state within a draft. Editing
// is advisory: it warns other clients but never blocks a write.
type PresenceEntry struct {
	ParticipantID string    `json:"participant_id"`
	IsOnline      bool      `json:"is_online"`
	Editing       *FieldRef `json:"editing,omitempty"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Draft is the collaboratively edited proposal for a night out.
type Draft struct {
	ID           string                   `json:"id"`
	Title        string                   `json:"title"`
	Description  string                   `json:"description,omitempty"`
	PlanType     string                   `json:"plan_type,omitempty"`
	Date         string                   `json:"date,omitempty"`
	Time         string                   `json:"time,omitempty"`
	Participants []Participant            `json:"participants"`
	HostID       string                   `json:"host_id"`
	AllowAllEdit bool                     `json:"allow_all_edit"`
	IsLocked     bool                     `json:"is_locked"`
	ChatOpen     bool                     `json:"chat_open"`
	Stops        []Stop                   `json:"stops"`
	Presence     map[string]PresenceEntry `json:"presence"`
	Version      int64                    `json:"version"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// Clone returns a deep copy of the draft.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	c := *d
	c.Participants = append([]Participant(nil), d.Participants...)
	c.Stops = append([]Stop(nil), d.Stops...)
	c.Presence = make(map[string]PresenceEntry, len(d.Presence))
	for id, p := range d.Presence {
		if p.Editing != nil {
			ref := *p.Editing
			p.Editing = &ref
		}
		c.Presence[id] = p
	}
	return &c
}

// HasParticipant reports whether userID is a member of the draft.
func (d *Draft) HasParticipant(userID string) bool {
	return d.participantIndex(userID) >= 0
}

func (d *Draft) participantIndex(userID string) int {
	for i, p := range d.Participants {
		if p.ID == userID {
			return i
		}
	}
	return -1
}

// ParticipantIDs returns member ids in draft order.
func (d *Draft) ParticipantIDs() []string {
	ids := make([]string, 0, len(d.Participants))
	for _, p := range d.Participants {
		ids = append(ids, p.ID)
	}
	return ids
}

// AddParticipant appends p unless a participant with the same id exists.
func (d *Draft) AddParticipant(p Participant) error {
	if p.ID == "" {
		return invalidInput("participant id is required")
	}
	if d.HasParticipant(p.ID) {
		return invalidInput("participant %q already in draft", p.ID)
	}
	if len(d.Participants) >= MaxParticipants {
		return invalidInput("a draft holds at most %d participants", MaxParticipants)
	}
	d.Participants = append(d.Participants, p)
	return nil
}

// RemoveParticipant drops a member and their presence entry. The host cannot
// be removed.
func (d *Draft) RemoveParticipant(userID string) error {
	if userID == d.HostID {
		return invalidInput("the host cannot be removed")
	}
	i := d.participantIndex(userID)
	if i < 0 {
		return notFound("participant", userID)
	}
	d.Participants = append(d.Participants[:i], d.Participants[i+1:]...)
	delete(d.Presence, userID)
	return nil
}

// StopIndex returns the position of the stop in the order, or -1.
func (d *Draft) StopIndex(stopID string) int {
	for i, s := range d.Stops {
		if s.ID == stopID {
			return i
		}
	}
	return -1
}

// Stop returns the stop with the given id.
func (d *Draft) Stop(stopID string) (Stop, error) {
	i := d.StopIndex(stopID)
	if i < 0 {
		return Stop{}, notFound("stop", stopID)
	}
	return d.Stops[i], nil
}

// AppendStop adds a stop at the end of the order.
func (d *Draft) AppendStop(s Stop) error {
	if s.ID == "" {
		return invalidInput("stop id is required")
	}
	if d.StopIndex(s.ID) >= 0 {
		return invalidInput("stop %q already exists", s.ID)
	}
	if strings.TrimSpace(s.VenueName) == "" {
		return invalidInput("venue name is required")
	}
	if s.EstimatedTime < 0 {
		return invalidInput("estimated time must not be negative")
	}
	d.Stops = append(d.Stops, s)
	d.renumber()
	return nil
}

// RemoveStop deletes a stop and closes the gap in the order.
func (d *Draft) RemoveStop(stopID string) error {
	i := d.StopIndex(stopID)
	if i < 0 {
		return notFound("stop", stopID)
	}
	d.Stops = append(d.Stops[:i], d.Stops[i+1:]...)
	d.renumber()
	d.clearEditingOn(stopID)
	return nil
}

// MoveStopBefore moves stop S to the position immediately before target T
// in a single pass: remove S, insert it at T's index, renumber 0..n-1.
// An empty targetID moves the stop to the end.
func (d *Draft) MoveStopBefore(stopID, targetID string) error {
	if stopID == targetID {
		return invalidInput("a stop cannot be moved before itself")
	}
	from := d.StopIndex(stopID)
	if from < 0 {
		return notFound("stop", stopID)
	}
	if targetID != "" && d.StopIndex(targetID) < 0 {
		return notFound("stop", targetID)
	}

	moved := d.Stops[from]
	rest := make([]Stop, 0, len(d.Stops))
	rest = append(rest, d.Stops[:from]...)
	rest = append(rest, d.Stops[from+1:]...)

	at := len(rest)
	if targetID != "" {
		for i, s := range rest {
			if s.ID == targetID {
				at = i
				break
			}
		}
	}

	out := make([]Stop, 0, len(d.Stops))
	out = append(out, rest[:at]...)
	out = append(out, moved)
	out = append(out, rest[at:]...)
	d.Stops = out
	d.renumber()
	return nil
}

// SetStopField applies a single field edit. Last writer wins per field.
func (d *Draft) SetStopField(stopID string, field StopField, value any) error {
	i := d.StopIndex(stopID)
	if i < 0 {
		return notFound("stop", stopID)
	}
	if !field.IsValid() {
		return invalidInput("unknown stop field %q", field)
	}

	s := &d.Stops[i]
	switch field {
	case FieldEstimatedTime:
		minutes, err := toMinutes(value)
		if err != nil {
			return err
		}
		s.EstimatedTime = minutes
	default:
		text, ok := value.(string)
		if !ok && value != nil {
			return invalidInput("field %s expects a string, got %T", field, value)
		}
		switch field {
		case FieldVenueID:
			s.VenueID = text
		case FieldVenueName:
			if strings.TrimSpace(text) == "" {
				return invalidInput("venue name is required")
			}
			s.VenueName = text
		case FieldNotes:
			s.Notes = text
		}
	}
	return nil
}

// CheckStopOrder verifies that stop orders are exactly 0..n-1 with unique ids.
func (d *Draft) CheckStopOrder() error {
	seen := make(map[string]bool, len(d.Stops))
	for i, s := range d.Stops {
		if s.Order != i {
			return fmt.Errorf("stop %s has order %d at position %d", s.ID, s.Order, i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate stop id %s", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// EditingRefs returns the current participant -> field map.
func (d *Draft) EditingRefs() map[string]FieldRef {
	refs := make(map[string]FieldRef)
	for id, p := range d.Presence {
		if p.Editing != nil {
			refs[id] = *p.Editing
		}
	}
	return refs
}

// Touch records an accepted mutation.
func (d *Draft) Touch(now time.Time) {
	d.Version++
	d.UpdatedAt = now
}

func (d *Draft) renumber() {
	for i := range d.Stops {
		d.Stops[i].Order = i
	}
}

func (d *Draft) clearEditingOn(stopID string) {
	for id, p := range d.Presence {
		if p.Editing != nil && p.Editing.StopID == stopID {
			p.Editing = nil
			d.Presence[id] = p
		}
	}
}

func toMinutes(value any) (int, error) {
	var minutes float64
	switch v := value.(type) {
	case int:
		minutes = float64(v)
	case int64:
		minutes = float64(v)
	case float64:
		minutes = v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, invalidInput("estimated time %q is not a number", v)
		}
		minutes = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, invalidInput("estimated time %q is not a number", v)
		}
		minutes = f
	default:
		return 0, invalidInput("estimated time expects minutes, got %T", value)
	}
	if minutes < 0 || minutes != math.Trunc(minutes) {
		return 0, invalidInput("estimated time must be a whole, non-negative number of minutes")
	}
	return int(minutes), nil
}

// DraftSpec describes a draft to be created.
type DraftSpec struct {
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	PlanType     string        `json:"plan_type,omitempty"`
	Date         string        `json:"date,omitempty"`
	Time         string        `json:"time,omitempty"`
	ChatOpen     bool          `json:"chat_open"`
	AllowAllEdit *bool         `json:"allow_all_edit,omitempty"` // defaults to true
	HostID       string        `json:"host_id"`
	Participants []Participant `json:"participants"`
}

// NewDraft builds a draft at version 0. The host is inserted first if the
// participant list omits it, and participants are de-duplicated by id.
func NewDraft(id string, spec DraftSpec, now time.Time) (*Draft, error) {
	if spec.HostID == "" {
		return nil, invalidInput("host id is required")
	}

	participants := make([]Participant, 0, len(spec.Participants)+1)
	seen := make(map[string]bool)
	hostListed := false
	for _, p := range spec.Participants {
		if p.ID == spec.HostID {
			hostListed = true
		}
	}
	if !hostListed {
		participants = append(participants, Participant{ID: spec.HostID})
		seen[spec.HostID] = true
	}
	for _, p := range spec.Participants {
		if p.ID == "" {
			return nil, invalidInput("participant id is required")
		}
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		participants = append(participants, p)
	}
	if len(participants) > MaxParticipants {
		return nil, invalidInput("a draft holds at most %d participants", MaxParticipants)
	}

	allowAllEdit := true
	if spec.AllowAllEdit != nil {
		allowAllEdit = *spec.AllowAllEdit
	}
	title := strings.TrimSpace(spec.Title)
	if title == "" {
		title = "Night out"
	}

	return &Draft{
		ID:           id,
		Title:        title,
		Description:  spec.Description,
		PlanType:     spec.PlanType,
		Date:         spec.Date,
		Time:         spec.Time,
		Participants: participants,
		HostID:       spec.HostID,
		AllowAllEdit: allowAllEdit,
		ChatOpen:     spec.ChatOpen,
		Stops:        []Stop{},
		Presence:     make(map[string]PresenceEntry),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
