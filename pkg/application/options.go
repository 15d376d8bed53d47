package application

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// DefaultPresenceTimeout is how long a participant stays online without a
// heartbeat.
const DefaultPresenceTimeout = 30 * time.Second

type options struct {
	logger          *slog.Logger
	now             func() time.Time
	newID           func() string
	notifier        outing.NotificationSink
	venues          outing.VenueLookup
	presenceTimeout time.Duration
}

func defaultOptions() options {
	return options{
		logger:          slog.Default(),
		now:             func() time.Time { return time.Now().UTC() },
		newID:           func() string { return uuid.New().String() },
		presenceTimeout: DefaultPresenceTimeout,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Option configures the engine services.
type Option func(*options)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces the id source for drafts, stops and plans.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// WithNotifier sets the sink used by pings, proposals and status changes.
func WithNotifier(n outing.NotificationSink) Option {
	return func(o *options) { o.notifier = n }
}

// WithVenueLookup sets the provider used to add stops by search.
func WithVenueLookup(v outing.VenueLookup) Option {
	return func(o *options) { o.venues = v }
}

// WithPresenceTimeout sets how long a participant stays online without a
// heartbeat.
func WithPresenceTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.presenceTimeout = d
		}
	}
}
