// Package application implements the plan engine's services: the edit
// coordinator, draft lifecycle, presence tracking, plan progress and
// attendance. Mutations are serialized per draft or plan id and broadcast
// through an events.Publisher from inside the critical section.
package application

import (
	"context"
	"time"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// Engine bundles the services over one store, one lock table and one
// publisher.
type Engine struct {
	Edits      *EditCoordinator
	Lifecycle  *LifecycleManager
	Presence   *PresenceTracker
	Progress   *ProgressService
	Attendance *AttendanceService
}

// NewEngine wires every service over store.
func NewEngine(store outing.Store, publisher events.Publisher, opts ...Option) *Engine {
	if publisher == nil {
		publisher = &events.Recorder{}
	}
	locks := NewKeyedMutex()
	return &Engine{
		Edits:      NewEditCoordinator(store, locks, publisher, opts...),
		Lifecycle:  NewLifecycleManager(store, store, locks, publisher, opts...),
		Presence:   NewPresenceTracker(store, locks, publisher, opts...),
		Progress:   NewProgressService(store, locks, publisher, opts...),
		Attendance: NewAttendanceService(store, store, locks, publisher, opts...),
	}
}

// RunPresenceSweep runs the presence sweep until ctx is cancelled.
func (e *Engine) RunPresenceSweep(ctx context.Context, interval time.Duration) {
	e.Presence.Run(ctx, interval)
}
