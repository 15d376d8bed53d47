package events

import (
	"context"
	"time"
)

// EventStore persists broadcast deltas for later inspection.
type EventStore interface {
	// Append adds a delta to the end of the log.
	Append(d Delta) error

	// LoadAll returns all deltas in append order.
	LoadAll() ([]Delta, error)

	// LoadByAggregate returns deltas for one draft or plan.
	LoadByAggregate(aggregateID string) ([]Delta, error)

	// LoadByType returns deltas of a specific type.
	LoadByType(eventType string) ([]Delta, error)

	// LoadSince returns deltas that occurred after the given timestamp.
	LoadSince(since time.Time) ([]Delta, error)

	// Count returns the total number of deltas.
	Count() (int, error)
}

// StoreHandler returns a wildcard handler that appends every delta to store.
func StoreHandler(store EventStore) EventHandlerFunc {
	return func(_ context.Context, d Delta) error {
		return store.Append(d)
	}
}
