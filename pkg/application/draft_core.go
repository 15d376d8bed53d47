package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// DraftChange is the payload of a draft_delta. Editing carries every open
// editing ref so clients can warn about collisions.
type DraftChange struct {
	Result  any                        `json:"result"`
	Editing map[string]outing.FieldRef `json:"editing"`
}

// draftCore holds what every draft-serializing service shares: the store,
// the per-key lock and the broadcast path.
type draftCore struct {
	drafts    outing.DraftRepository
	locks     *KeyedMutex
	publisher events.Publisher
	opts      options
}

func newDraftCore(drafts outing.DraftRepository, locks *KeyedMutex, publisher events.Publisher, opts options) draftCore {
	if locks == nil {
		locks = NewKeyedMutex()
	}
	if publisher == nil {
		publisher = &events.Recorder{}
	}
	return draftCore{drafts: drafts, locks: locks, publisher: publisher, opts: opts}
}

func (c *draftCore) lockDraft(draftID string) func() {
	return c.locks.Lock(events.DraftTopic(draftID))
}

// save persists an accepted mutation and broadcasts it. Callers hold the
// draft lock, which keeps broadcasts in version order.
func (c *draftCore) save(ctx context.Context, d *outing.Draft, op, actor string, result any) error {
	if err := c.drafts.SaveDraft(ctx, d); err != nil {
		return fmt.Errorf("save draft %s: %w", d.ID, err)
	}
	c.broadcast(ctx, d, events.TypeDraftDelta, op, actor, result)
	c.opts.logger.Debug("draft mutated",
		"draft_id", d.ID,
		"op", op,
		"participant_id", actor,
		"version", d.Version,
	)
	return nil
}

// mutateAsHost runs a host-only metadata change. apply reports whether it
// changed anything; unchanged drafts are neither saved nor broadcast.
func (c *draftCore) mutateAsHost(ctx context.Context, draftID, actor, op string, apply func(d *outing.Draft) (bool, any, error)) (*outing.Draft, error) {
	unlock := c.lockDraft(draftID)
	defer unlock()

	d, err := c.drafts.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := requireHost(d, actor, op); err != nil {
		return nil, err
	}

	changed, result, err := apply(d)
	if err != nil {
		return nil, err
	}
	if !changed {
		return d, nil
	}
	d.Touch(c.opts.now())
	if err := c.save(ctx, d, op, actor, result); err != nil {
		return nil, err
	}
	return d, nil
}

func (c *draftCore) broadcast(ctx context.Context, d *outing.Draft, typ, op, actor string, result any) {
	c.publisher.Publish(ctx, events.NewDraftDelta(typ, d.ID, d.Version, op, actor, DraftChange{
		Result:  result,
		Editing: d.EditingRefs(),
	}))
}

func (c *draftCore) notify(ctx context.Context, participantIDs []string, message string, urgency outing.Urgency) {
	if c.opts.notifier == nil || len(participantIDs) == 0 {
		return
	}
	notify(ctx, c.opts.notifier, c.opts.logger, participantIDs, message, urgency)
}

func notify(ctx context.Context, sink outing.NotificationSink, logger *slog.Logger, participantIDs []string, message string, urgency outing.Urgency) {
	if err := sink.Notify(ctx, participantIDs, message, urgency); err != nil {
		logger.Warn("notification failed",
			"recipients", len(participantIDs),
			"urgency", string(urgency),
			"error", err,
		)
	}
}

func requireHost(d *outing.Draft, actor, action string) error {
	role := outing.ResolveRole(d, actor)
	if !role.IsHost() {
		return &outing.PermissionError{Actor: actor, Role: role, Action: action, Reason: "host only"}
	}
	return nil
}

func displayName(members []outing.Participant, id string) string {
	for _, m := range members {
		if m.ID == id && m.Name != "" {
			return m.Name
		}
	}
	return id
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
