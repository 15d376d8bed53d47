package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/messaging"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

type registered struct {
	adapter messaging.MessageAdapter
	config  messaging.AdapterConfig
}

// Registry creates messaging adapters from configuration and fans
// notifications out to them. It implements outing.NotificationSink.
type Registry struct {
	adapters   []registered
	deadLetter *DeadLetterStore
	logger     *slog.Logger
	retryCfg   retry.Config
	now        func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for delivery failures and the log adapter.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRetry overrides the per-adapter delivery retry policy.
func WithRetry(cfg retry.Config) RegistryOption {
	return func(r *Registry) { r.retryCfg = cfg }
}

// WithDeadLetter records deliveries that exhaust their retries.
func WithDeadLetter(store *DeadLetterStore) RegistryOption {
	return func(r *Registry) { r.deadLetter = store }
}

// NewRegistry creates adapters from a MessagingConfig.
func NewRegistry(config *messaging.MessagingConfig, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		logger: slog.Default(),
		retryCfg: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  200 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	if config == nil {
		return r, nil
	}
	if r.deadLetter == nil && config.DeadLetterPath != "" {
		r.deadLetter = NewDeadLetterStore(config.DeadLetterPath)
	}

	for _, cfg := range config.Adapters {
		if !cfg.Enabled {
			continue
		}

		adapter, err := r.createAdapter(cfg)
		if err != nil {
			return nil, fmt.Errorf("create adapter %q: %w", cfg.Name, err)
		}
		r.adapters = append(r.adapters, registered{adapter: adapter, config: cfg})
	}

	return r, nil
}

// Adapters returns all active adapters.
func (r *Registry) Adapters() []messaging.MessageAdapter {
	out := make([]messaging.MessageAdapter, len(r.adapters))
	for i, reg := range r.adapters {
		out[i] = reg.adapter
	}
	return out
}

// Notify delivers the message through every adapter that accepts its
// urgency. Each adapter is retried independently; failures are joined.
func (r *Registry) Notify(ctx context.Context, participantIDs []string, message string, urgency outing.Urgency) error {
	n := &messaging.Notification{
		Recipients: append([]string(nil), participantIDs...),
		Message:    message,
		Urgency:    urgency,
		Timestamp:  r.now(),
	}

	var errs []error
	for _, reg := range r.adapters {
		if !reg.config.Accepts(urgency) {
			continue
		}
		if err := r.deliver(ctx, reg, n); err != nil {
			errs = append(errs, fmt.Errorf("%s adapter %q: %w", reg.adapter.Type(), reg.adapter.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) deliver(ctx context.Context, reg registered, n *messaging.Notification) error {
	policy := retry.New[struct{}](r.retryCfg)
	_, err := policy.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, reg.adapter.Send(ctx, n)
	})
	if err == nil {
		return nil
	}

	r.logger.Warn("notification delivery failed",
		"adapter", reg.adapter.Name(),
		"type", reg.adapter.Type(),
		"urgency", string(n.Urgency),
		"error", err,
	)
	if r.deadLetter != nil {
		dl := messaging.DeadLetter{
			Timestamp:   r.now(),
			AdapterName: reg.adapter.Name(),
			AdapterType: reg.adapter.Type(),
			Payload:     n,
			Error:       err.Error(),
			Attempts:    r.retryCfg.MaxAttempts,
		}
		if dlErr := r.deadLetter.Append(dl); dlErr != nil {
			r.logger.Error("dead letter not recorded", "adapter", reg.adapter.Name(), "error", dlErr)
		}
	}
	return err
}

func (r *Registry) createAdapter(cfg messaging.AdapterConfig) (messaging.MessageAdapter, error) {
	switch cfg.Type {
	case "webhook":
		if cfg.URL == "" {
			return nil, fmt.Errorf("webhook adapter needs a url")
		}
		return NewWebhookAdapter(cfg), nil
	case "slack":
		if cfg.URL == "" {
			return nil, fmt.Errorf("slack adapter needs a url")
		}
		return NewSlackAdapter(cfg), nil
	case "log":
		return NewLogAdapter(cfg, r.logger), nil
	default:
		return nil, fmt.Errorf("unknown adapter type: %s", cfg.Type)
	}
}

var _ outing.NotificationSink = (*Registry)(nil)
