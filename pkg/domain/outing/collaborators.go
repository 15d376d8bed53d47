package outing

import "context"

// Venue is the result of a venue lookup.
type Venue struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}

// VenueLookup resolves a free-text search to a venue. Implementations return
// an error wrapping ErrNotFound when nothing matches.
type VenueLookup interface {
	ResolveVenue(ctx context.Context, query string) (Venue, error)
}

// Urgency ranks a notification.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

// NotificationSink delivers a message to participants.
type NotificationSink interface {
	Notify(ctx context.Context, participantIDs []string, message string, urgency Urgency) error
}
