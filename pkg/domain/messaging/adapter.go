// Package messaging defines the pluggable notification adapter interface.
package messaging

import (
	"context"
	"time"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// Notification is one message for a set of participants.
type Notification struct {
	Recipients []string       `json:"recipients"`
	Message    string         `json:"message"`
	Urgency    outing.Urgency `json:"urgency"`
	Timestamp  time.Time      `json:"timestamp"`
}

// MessageAdapter delivers notifications to an external channel.
type MessageAdapter interface {
	Send(ctx context.Context, n *Notification) error
	Name() string
	Type() string
}

// AdapterConfig defines configuration for a messaging adapter.
type AdapterConfig struct {
	Name       string            `yaml:"name" json:"name"`
	Type       string            `yaml:"type" json:"type"` // "webhook", "slack", "log"
	URL        string            `yaml:"url,omitempty" json:"url,omitempty"`
	Secret     string            `yaml:"secret,omitempty" json:"secret,omitempty"`
	MinUrgency outing.Urgency    `yaml:"min_urgency,omitempty" json:"min_urgency,omitempty"`
	Enabled    bool              `yaml:"enabled" json:"enabled"`
	Options    map[string]string `yaml:"options,omitempty" json:"options,omitempty"`
}

// Accepts reports whether the adapter should receive a notification of the
// given urgency.
func (c AdapterConfig) Accepts(u outing.Urgency) bool {
	return rank(u) >= rank(c.MinUrgency)
}

// MessagingConfig holds all configured messaging adapters.
type MessagingConfig struct {
	Adapters       []AdapterConfig `yaml:"adapters" json:"adapters"`
	DeadLetterPath string          `yaml:"dead_letter_path,omitempty" json:"dead_letter_path,omitempty"`
}

// DeadLetter records a notification that exhausted its retries.
type DeadLetter struct {
	Timestamp   time.Time     `json:"timestamp"`
	AdapterName string        `json:"adapter_name"`
	AdapterType string        `json:"adapter_type"`
	Payload     *Notification `json:"payload"`
	Error       string        `json:"error"`
	Attempts    int           `json:"attempts"`
}

func rank(u outing.Urgency) int {
	switch u {
	case outing.UrgencyHigh:
		return 2
	case outing.UrgencyNormal:
		return 1
	default:
		return 0
	}
}
