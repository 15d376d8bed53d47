package application

import (
	"context"
	"fmt"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// Lifecycle ops carried in broadcasts.
const (
	OpCreateDraft = "create_draft"
	OpToggleLock  = "toggle_lock"
	OpLock        = "lock"
	OpUnlock      = "unlock"
	OpConvert     = "convert_to_live_plan"
	OpPlanCreated = "plan_created"
)

// LockState is the result carried by lock deltas.
type LockState struct {
	IsLocked bool `json:"is_locked"`
}

// Conversion is the result carried by the draft's final delta.
type Conversion struct {
	DraftID string `json:"draft_id"`
	PlanID  string `json:"plan_id"`
}

// LifecycleManager creates drafts, gates locking and performs the one-way
// conversion of a draft into a live plan.
type LifecycleManager struct {
	draftCore
	plans     outing.PlanRepository
	committer outing.ConversionCommitter
}

// NewLifecycleManager creates a LifecycleManager. When drafts also
// implements outing.ConversionCommitter, conversion is atomic; otherwise the
// plan is created before the draft is deleted.
func NewLifecycleManager(drafts outing.DraftRepository, plans outing.PlanRepository, locks *KeyedMutex, publisher events.Publisher, opts ...Option) *LifecycleManager {
	m := &LifecycleManager{
		draftCore: newDraftCore(drafts, locks, publisher, buildOptions(opts)),
		plans:     plans,
	}
	if c, ok := drafts.(outing.ConversionCommitter); ok {
		m.committer = c
	}
	return m
}

// CreateDraft creates a draft hosted by spec.HostID at version 0.
func (m *LifecycleManager) CreateDraft(ctx context.Context, spec outing.DraftSpec) (*outing.Draft, error) {
	d, err := outing.NewDraft(m.opts.newID(), spec, m.opts.now())
	if err != nil {
		return nil, err
	}

	unlock := m.lockDraft(d.ID)
	defer unlock()
	if err := m.save(ctx, d, OpCreateDraft, spec.HostID, d.Clone()); err != nil {
		return nil, err
	}
	m.opts.logger.Info("draft created",
		"draft_id", d.ID,
		"participant_id", d.HostID,
		"participants", len(d.Participants),
	)
	return d, nil
}

// GetDraft returns the latest stored snapshot without taking the draft lock.
func (m *LifecycleManager) GetDraft(ctx context.Context, draftID string) (*outing.Draft, error) {
	return m.drafts.GetDraft(ctx, draftID)
}

// ToggleLock flips the lock flag. Host only.
func (m *LifecycleManager) ToggleLock(ctx context.Context, draftID, actor string) (*outing.Draft, error) {
	return m.mutateAsHost(ctx, draftID, actor, OpToggleLock, func(d *outing.Draft) (bool, any, error) {
		d.IsLocked = !d.IsLocked
		return true, LockState{IsLocked: d.IsLocked}, nil
	})
}

// LockDraft freezes the draft's stops for review. Locking a locked draft is a
// no-op.
func (m *LifecycleManager) LockDraft(ctx context.Context, draftID, actor string) (*outing.Draft, error) {
	return m.setLocked(ctx, draftID, actor, OpLock, true)
}

// UnlockDraft reopens the draft for editing. Unlocking an unlocked draft is a
// no-op.
func (m *LifecycleManager) UnlockDraft(ctx context.Context, draftID, actor string) (*outing.Draft, error) {
	return m.setLocked(ctx, draftID, actor, OpUnlock, false)
}

func (m *LifecycleManager) setLocked(ctx context.Context, draftID, actor, op string, locked bool) (*outing.Draft, error) {
	return m.mutateAsHost(ctx, draftID, actor, op, func(d *outing.Draft) (bool, any, error) {
		if d.IsLocked == locked {
			return false, nil, nil
		}
		d.IsLocked = locked
		return true, LockState{IsLocked: locked}, nil
	})
}

// ConvertToLivePlan snapshots the draft into a not-started plan and deletes
// the draft. A second call for the same draft returns ErrNotFound; callers
// then fetch the plan with GetPlanForDraft.
func (m *LifecycleManager) ConvertToLivePlan(ctx context.Context, draftID, actor string) (*outing.Plan, error) {
	unlock := m.lockDraft(draftID)
	defer unlock()

	d, err := m.drafts.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := requireHost(d, actor, OpConvert); err != nil {
		return nil, err
	}
	if len(d.Stops) == 0 {
		return nil, fmt.Errorf("%w: draft %s has no stops to convert", outing.ErrInvalidState, draftID)
	}

	plan := outing.NewPlanFromDraft(m.opts.newID(), d, m.opts.now())
	if m.committer != nil {
		if err := m.committer.CommitConversion(ctx, plan, d.ID); err != nil {
			return nil, fmt.Errorf("convert draft %s: %w", draftID, err)
		}
	} else {
		if err := m.plans.SavePlan(ctx, plan); err != nil {
			return nil, fmt.Errorf("create plan for draft %s: %w", draftID, err)
		}
		if err := m.drafts.DeleteDraft(ctx, d.ID); err != nil {
			m.opts.logger.Error("plan created but draft not deleted",
				"draft_id", d.ID,
				"plan_id", plan.ID,
				"error", err,
			)
			return nil, fmt.Errorf("delete converted draft %s: %w", draftID, err)
		}
	}

	m.broadcast(ctx, d, events.TypeDraftDelta, OpConvert, actor, Conversion{DraftID: d.ID, PlanID: plan.ID})
	m.publisher.Publish(ctx, events.NewPlanDelta(events.TypePlanDelta, plan.ID, plan.Version, OpPlanCreated, actor, PlanChange{Plan: plan.Clone()}))
	m.opts.logger.Info("draft converted",
		"draft_id", d.ID,
		"plan_id", plan.ID,
		"stops", len(plan.Stops),
	)
	return plan, nil
}

// GetPlanForDraft returns the plan a converted draft turned into.
func (m *LifecycleManager) GetPlanForDraft(ctx context.Context, draftID string) (*outing.Plan, error) {
	return m.plans.FindPlanBySourceDraft(ctx, draftID)
}
