package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// Draft ops carried in draft_delta broadcasts.
const (
	OpAddStop           = "add_stop"
	OpUpdateStopField   = "update_stop_field"
	OpDeleteStop        = "delete_stop"
	OpReorderStop       = "reorder_stop"
	OpSuggestion        = "suggestion"
	OpSetEditPolicy     = "set_edit_policy"
	OpInviteParticipant = "invite_participant"
	OpRemoveParticipant = "remove_participant"
)

// StopInput describes a stop to add.
type StopInput struct {
	VenueID       string `json:"venue_id,omitempty"`
	VenueName     string `json:"venue_name"`
	Notes         string `json:"notes,omitempty"`
	EstimatedTime int    `json:"estimated_time,omitempty"`
}

// Suggestion is a stop proposed through chat rather than applied directly.
type Suggestion struct {
	VenueID    string `json:"venue_id,omitempty"`
	VenueName  string `json:"venue_name,omitempty"`
	Query      string `json:"query,omitempty"`
	Notes      string `json:"notes,omitempty"`
	ProposedBy string `json:"proposed_by"`
}

// FieldUpdate is the result of an accepted field edit.
type FieldUpdate struct {
	StopID string           `json:"stop_id"`
	Field  outing.StopField `json:"field"`
	Stop   outing.Stop      `json:"stop"`
}

// EditCoordinator applies stop mutations under role, lock and version rules.
// Mutations on one draft are serialized; different drafts proceed in
// parallel.
type EditCoordinator struct {
	draftCore
}

// NewEditCoordinator creates an EditCoordinator.
func NewEditCoordinator(drafts outing.DraftRepository, locks *KeyedMutex, publisher events.Publisher, opts ...Option) *EditCoordinator {
	return &EditCoordinator{draftCore: newDraftCore(drafts, locks, publisher, buildOptions(opts))}
}

// mutateStops runs apply inside the draft's critical section after checking,
// in order: existence, role, lock, version. apply only runs on a copy that is
// discarded on error, so a rejected call never changes state.
func (c *EditCoordinator) mutateStops(ctx context.Context, draftID, actor, op string, expectedVersion *int64, apply func(d *outing.Draft) (any, error)) (*outing.Draft, error) {
	unlock := c.lockDraft(draftID)
	defer unlock()

	d, err := c.drafts.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}

	role := outing.ResolveRole(d, actor)
	if !role.CanEditStops() {
		return nil, &outing.PermissionError{Actor: actor, Role: role, Action: op, Reason: "guests may only propose stops"}
	}
	if d.IsLocked {
		return nil, &outing.PermissionError{Actor: actor, Role: role, Action: op, Reason: "draft is locked"}
	}
	if expectedVersion != nil && *expectedVersion != d.Version {
		return nil, &outing.ConflictError{DraftID: d.ID, Expected: *expectedVersion, Current: d.Version, Draft: d}
	}

	result, err := apply(d)
	if err != nil {
		return nil, err
	}
	if err := d.CheckStopOrder(); err != nil {
		return nil, fmt.Errorf("%s left draft %s inconsistent: %w", op, d.ID, err)
	}
	d.Touch(c.opts.now())
	if err := c.save(ctx, d, op, actor, result); err != nil {
		return nil, err
	}
	return d, nil
}

// AddStop appends a stop to the end of the draft's order.
func (c *EditCoordinator) AddStop(ctx context.Context, draftID string, in StopInput, actor string) (*outing.Draft, error) {
	return c.mutateStops(ctx, draftID, actor, OpAddStop, nil, func(d *outing.Draft) (any, error) {
		stop := outing.Stop{
			ID:            c.opts.newID(),
			VenueID:       in.VenueID,
			VenueName:     strings.TrimSpace(in.VenueName),
			Notes:         in.Notes,
			EstimatedTime: in.EstimatedTime,
			AddedBy:       actor,
		}
		if err := d.AppendStop(stop); err != nil {
			return nil, err
		}
		return d.Stops[len(d.Stops)-1], nil
	})
}

// AddStopFromSearch resolves query through the venue lookup, then adds the
// venue as a stop. The lookup runs before the draft lock is taken.
func (c *EditCoordinator) AddStopFromSearch(ctx context.Context, draftID, query, notes string, estimatedTime int, actor string) (*outing.Draft, error) {
	venue, err := c.resolveVenue(ctx, query)
	if err != nil {
		return nil, err
	}
	return c.AddStop(ctx, draftID, StopInput{
		VenueID:       venue.ID,
		VenueName:     venue.Name,
		Notes:         notes,
		EstimatedTime: estimatedTime,
	}, actor)
}

func (c *EditCoordinator) resolveVenue(ctx context.Context, query string) (outing.Venue, error) {
	if strings.TrimSpace(query) == "" {
		return outing.Venue{}, fmt.Errorf("%w: search query is required", outing.ErrInvalidInput)
	}
	if c.opts.venues == nil {
		return outing.Venue{}, fmt.Errorf("%w: no venue lookup configured", outing.ErrInvalidState)
	}
	venue, err := c.opts.venues.ResolveVenue(ctx, query)
	if err != nil {
		return outing.Venue{}, fmt.Errorf("resolve venue %q: %w", query, err)
	}
	return venue, nil
}

// UpdateStopField edits one field of one stop. A non-nil expectedVersion that
// does not match the draft's version yields a ConflictError carrying the
// current draft.
func (c *EditCoordinator) UpdateStopField(ctx context.Context, draftID, stopID string, field outing.StopField, value any, actor string, expectedVersion *int64) (*outing.Draft, error) {
	return c.mutateStops(ctx, draftID, actor, OpUpdateStopField, expectedVersion, func(d *outing.Draft) (any, error) {
		if err := d.SetStopField(stopID, field, value); err != nil {
			return nil, err
		}
		stop, _ := d.Stop(stopID)
		return FieldUpdate{StopID: stopID, Field: field, Stop: stop}, nil
	})
}

// DeleteStop removes a stop and closes the gap in the order.
func (c *EditCoordinator) DeleteStop(ctx context.Context, draftID, stopID, actor string) (*outing.Draft, error) {
	return c.mutateStops(ctx, draftID, actor, OpDeleteStop, nil, func(d *outing.Draft) (any, error) {
		if err := d.RemoveStop(stopID); err != nil {
			return nil, err
		}
		return map[string]any{"stop_id": stopID, "stops": append([]outing.Stop(nil), d.Stops...)}, nil
	})
}

// ReorderStop moves stopID immediately before targetStopID, or to the end
// when targetStopID is empty.
func (c *EditCoordinator) ReorderStop(ctx context.Context, draftID, stopID, targetStopID, actor string, expectedVersion *int64) (*outing.Draft, error) {
	return c.mutateStops(ctx, draftID, actor, OpReorderStop, expectedVersion, func(d *outing.Draft) (any, error) {
		if err := d.MoveStopBefore(stopID, targetStopID); err != nil {
			return nil, err
		}
		return append([]outing.Stop(nil), d.Stops...), nil
	})
}

// ProposeStop lets any participant, guests included, suggest a stop. The
// suggestion goes to the host and to the draft's subscribers; the draft
// itself does not change.
func (c *EditCoordinator) ProposeStop(ctx context.Context, draftID string, s Suggestion, actor string) error {
	if strings.TrimSpace(s.VenueName) == "" && s.VenueID == "" {
		venue, err := c.resolveVenue(ctx, s.Query)
		if err != nil {
			return err
		}
		s.VenueID, s.VenueName = venue.ID, venue.Name
	}
	s.ProposedBy = actor

	unlock := c.lockDraft(draftID)
	defer unlock()

	d, err := c.drafts.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}
	if !d.HasParticipant(actor) {
		return &outing.PermissionError{Actor: actor, Role: outing.RoleGuest, Action: OpSuggestion, Reason: "not a participant"}
	}

	c.broadcast(ctx, d, events.TypeDraftDelta, OpSuggestion, actor, s)
	if actor != d.HostID {
		c.notify(ctx, []string{d.HostID},
			fmt.Sprintf("%s suggested %s for %s", displayName(d.Participants, actor), s.VenueName, d.Title),
			outing.UrgencyNormal)
	}
	return nil
}

// SetEditPolicy switches whether non-host participants may edit stops.
func (c *EditCoordinator) SetEditPolicy(ctx context.Context, draftID string, allowAllEdit bool, actor string) (*outing.Draft, error) {
	return c.mutateAsHost(ctx, draftID, actor, OpSetEditPolicy, func(d *outing.Draft) (bool, any, error) {
		if d.AllowAllEdit == allowAllEdit {
			return false, nil, nil
		}
		d.AllowAllEdit = allowAllEdit
		return true, map[string]bool{"allow_all_edit": allowAllEdit}, nil
	})
}

// InviteParticipant adds a member to the draft.
func (c *EditCoordinator) InviteParticipant(ctx context.Context, draftID string, p outing.Participant, actor string) (*outing.Draft, error) {
	return c.mutateAsHost(ctx, draftID, actor, OpInviteParticipant, func(d *outing.Draft) (bool, any, error) {
		if err := d.AddParticipant(p); err != nil {
			return false, nil, err
		}
		return true, p, nil
	})
}

// RemoveParticipant drops a member and their presence. The host cannot be
// removed.
func (c *EditCoordinator) RemoveParticipant(ctx context.Context, draftID, participantID, actor string) (*outing.Draft, error) {
	return c.mutateAsHost(ctx, draftID, actor, OpRemoveParticipant, func(d *outing.Draft) (bool, any, error) {
		if err := d.RemoveParticipant(participantID); err != nil {
			return false, nil, err
		}
		return true, map[string]string{"participant_id": participantID}, nil
	})
}
