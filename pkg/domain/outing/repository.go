package outing

import "context"

// DraftRepository persists one record per draft, stops and presence embedded.
// Get returns an error wrapping ErrNotFound when the draft does not exist.
type DraftRepository interface {
	GetDraft(ctx context.Context, id string) (*Draft, error)
	SaveDraft(ctx context.Context, d *Draft) error
	DeleteDraft(ctx context.Context, id string) error
}

// PlanRepository persists one record per plan.
type PlanRepository interface {
	GetPlan(ctx context.Context, id string) (*Plan, error)
	SavePlan(ctx context.Context, p *Plan) error
	FindPlanBySourceDraft(ctx context.Context, draftID string) (*Plan, error)
}

// FriendStatusRepository persists one record per (plan, participant).
type FriendStatusRepository interface {
	GetFriendStatuses(ctx context.Context, planID string) (map[string]FriendStatus, error)
	PutFriendStatus(ctx context.Context, fs FriendStatus) error
}

// ConversionCommitter is implemented by stores that can create the plan and
// delete its draft atomically.
type ConversionCommitter interface {
	CommitConversion(ctx context.Context, plan *Plan, draftID string) error
}

// PresenceIndex is implemented by stores that can list drafts holding at
// least one online presence entry. The presence sweep uses it to pick up
// entries written by an earlier process.
type PresenceIndex interface {
	DraftsWithOnlinePresence(ctx context.Context) ([]string, error)
}

// Store bundles the three record kinds the engine persists.
type Store interface {
	DraftRepository
	PlanRepository
	FriendStatusRepository
}
