package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// Presence ops carried in presence_delta broadcasts.
const (
	OpHeartbeat    = "heartbeat"
	OpSetEditing   = "set_editing"
	OpClearEditing = "clear_editing"
	OpOffline      = "offline"
	OpDisconnect   = "disconnect"
)

// PresenceChange is the payload of a presence_delta.
type PresenceChange struct {
	Entry   outing.PresenceEntry       `json:"entry"`
	Editing map[string]outing.FieldRef `json:"editing"`
}

// PresenceTracker keeps each draft's presence map current. Nothing here
// returns an error to the caller: failures are logged and the next heartbeat
// or sweep repairs the state.
type PresenceTracker struct {
	draftCore

	mu     sync.Mutex
	active map[string]struct{}
	seeded bool
}

// NewPresenceTracker creates a PresenceTracker. Presence entries expire
// after the configured presence timeout.
func NewPresenceTracker(drafts outing.DraftRepository, locks *KeyedMutex, publisher events.Publisher, opts ...Option) *PresenceTracker {
	return &PresenceTracker{
		draftCore: newDraftCore(drafts, locks, publisher, buildOptions(opts)),
		active:    make(map[string]struct{}),
	}
}

// Heartbeat marks the participant online and refreshes its heartbeat.
func (t *PresenceTracker) Heartbeat(ctx context.Context, draftID, participantID string) {
	t.update(ctx, draftID, participantID, OpHeartbeat, func(e *outing.PresenceEntry) bool {
		changed := !e.IsOnline
		t.touch(e)
		return changed
	})
}

// SetEditingField records the field the participant is editing. The ref is
// advisory and never blocks a write.
func (t *PresenceTracker) SetEditingField(ctx context.Context, draftID, participantID, stopID string, field outing.StopField) {
	if !field.IsValid() {
		t.opts.logger.Debug("ignoring editing ref with unknown field",
			"draft_id", draftID,
			"participant_id", participantID,
			"field", string(field),
		)
		return
	}
	ref := outing.FieldRef{StopID: stopID, Field: field}
	t.updateDraft(ctx, draftID, participantID, OpSetEditing, func(d *outing.Draft, e *outing.PresenceEntry) bool {
		if d.StopIndex(stopID) < 0 {
			return false
		}
		t.touch(e)
		e.Editing = &ref
		return true
	})
}

// ClearEditingField drops the participant's editing ref.
func (t *PresenceTracker) ClearEditingField(ctx context.Context, draftID, participantID string) {
	t.update(ctx, draftID, participantID, OpClearEditing, func(e *outing.PresenceEntry) bool {
		t.touch(e)
		if e.Editing == nil {
			return false
		}
		e.Editing = nil
		return true
	})
}

// Disconnect marks the participant offline at once, as when its socket
// closes.
func (t *PresenceTracker) Disconnect(ctx context.Context, draftID, participantID string) {
	t.update(ctx, draftID, participantID, OpDisconnect, func(e *outing.PresenceEntry) bool {
		if !e.IsOnline && e.Editing == nil {
			return false
		}
		e.IsOnline = false
		e.Editing = nil
		return true
	})
}

func (t *PresenceTracker) touch(e *outing.PresenceEntry) {
	e.IsOnline = true
	e.LastHeartbeat = t.opts.now()
}

func (t *PresenceTracker) update(ctx context.Context, draftID, participantID, op string, apply func(e *outing.PresenceEntry) bool) {
	t.updateDraft(ctx, draftID, participantID, op, func(_ *outing.Draft, e *outing.PresenceEntry) bool {
		return apply(e)
	})
}

// updateDraft applies one presence-map change under the draft lock. The
// entry is saved whenever apply touched it; a broadcast only goes out when
// apply reports a visible change.
func (t *PresenceTracker) updateDraft(ctx context.Context, draftID, participantID, op string, apply func(d *outing.Draft, e *outing.PresenceEntry) bool) {
	unlock := t.lockDraft(draftID)
	defer unlock()

	d, err := t.drafts.GetDraft(ctx, draftID)
	if err != nil {
		if errors.Is(err, outing.ErrNotFound) {
			t.forget(draftID)
		}
		t.opts.logger.Debug("presence update skipped",
			"draft_id", draftID,
			"participant_id", participantID,
			"op", op,
			"error", err,
		)
		return
	}
	if !d.HasParticipant(participantID) {
		t.opts.logger.Debug("presence from non-participant ignored",
			"draft_id", draftID,
			"participant_id", participantID,
		)
		return
	}

	entry, ok := d.Presence[participantID]
	if !ok {
		entry = outing.PresenceEntry{ParticipantID: participantID}
	}
	before := entry
	changed := apply(d, &entry)
	if !changed && entry == before {
		return
	}
	d.Presence[participantID] = entry

	if err := t.drafts.SaveDraft(ctx, d); err != nil {
		t.opts.logger.Warn("presence update not saved",
			"draft_id", draftID,
			"participant_id", participantID,
			"op", op,
			"error", err,
		)
		return
	}
	if entry.IsOnline {
		t.remember(draftID)
	}
	if changed {
		t.publishPresence(ctx, d, entry, op, participantID)
	}
}

func (t *PresenceTracker) publishPresence(ctx context.Context, d *outing.Draft, entry outing.PresenceEntry, op, actor string) {
	if entry.Editing != nil {
		ref := *entry.Editing
		entry.Editing = &ref
	}
	t.publisher.Publish(ctx, events.NewDraftDelta(events.TypePresenceDelta, d.ID, d.Version, op, actor, PresenceChange{
		Entry:   entry,
		Editing: d.EditingRefs(),
	}))
}

// Sweep marks participants offline whose last heartbeat is older than the
// presence timeout and clears their editing refs. Each draft's lock is held
// for one presence-map update only. It returns how many participants went
// offline.
func (t *PresenceTracker) Sweep(ctx context.Context) int {
	t.seed(ctx)
	expired := 0
	for _, draftID := range t.activeDrafts() {
		expired += t.sweepDraft(ctx, draftID)
	}
	return expired
}

func (t *PresenceTracker) sweepDraft(ctx context.Context, draftID string) int {
	unlock := t.lockDraft(draftID)
	defer unlock()

	d, err := t.drafts.GetDraft(ctx, draftID)
	if err != nil {
		if errors.Is(err, outing.ErrNotFound) {
			t.forget(draftID)
		}
		return 0
	}

	now := t.opts.now()
	var offline []outing.PresenceEntry
	online := 0
	for id, e := range d.Presence {
		if !e.IsOnline {
			continue
		}
		if now.Sub(e.LastHeartbeat) <= t.opts.presenceTimeout {
			online++
			continue
		}
		e.IsOnline = false
		e.Editing = nil
		d.Presence[id] = e
		offline = append(offline, e)
	}
	if online == 0 {
		t.forget(draftID)
	}
	if len(offline) == 0 {
		return 0
	}

	if err := t.drafts.SaveDraft(ctx, d); err != nil {
		t.opts.logger.Warn("presence sweep not saved", "draft_id", draftID, "error", err)
		return 0
	}
	for _, e := range offline {
		t.publishPresence(ctx, d, e, OpOffline, e.ParticipantID)
	}
	t.opts.logger.Debug("presence expired", "draft_id", draftID, "participants", len(offline))
	return len(offline)
}

// Run sweeps on every tick until ctx is cancelled.
func (t *PresenceTracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = t.opts.presenceTimeout / 6
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep(ctx)
		}
	}
}

// seed adds the drafts the store reports as having online participants, so
// entries left by a previous process still expire. It runs until one listing
// succeeds.
func (t *PresenceTracker) seed(ctx context.Context) {
	index, ok := t.drafts.(outing.PresenceIndex)
	if !ok {
		return
	}
	t.mu.Lock()
	done := t.seeded
	t.mu.Unlock()
	if done {
		return
	}

	ids, err := index.DraftsWithOnlinePresence(ctx)
	if err != nil {
		t.opts.logger.Warn("presence seed failed", "error", err)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seeded = true
	for _, id := range ids {
		t.active[id] = struct{}{}
	}
}

func (t *PresenceTracker) remember(draftID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[draftID] = struct{}{}
}

func (t *PresenceTracker) forget(draftID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, draftID)
}

func (t *PresenceTracker) activeDrafts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.active))
	for id := range t.active {
		ids = append(ids, id)
	}
	return ids
}
