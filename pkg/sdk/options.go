package sdk

import "time"

// Engine operations finish in milliseconds, so calls get a short deadline
// and a quick retry for transport hiccups.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 200 * time.Millisecond
)

type options struct {
	timeout      time.Duration
	maxAttempts  int
	initialDelay time.Duration
}

func defaultOptions() options {
	return options{
		timeout:      DefaultTimeout,
		maxAttempts:  DefaultMaxAttempts,
		initialDelay: DefaultInitialDelay,
	}
}

// Option configures the SDK client.
type Option func(*options)

// WithTimeout sets the per-call timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetry sets how often a failed transport call is attempted. Tool errors,
// conflicts included, are never retried. A non-positive delay keeps the
// default.
func WithRetry(maxAttempts int, initialDelay time.Duration) Option {
	return func(o *options) {
		o.maxAttempts = max(maxAttempts, 1)
		if initialDelay > 0 {
			o.initialDelay = initialDelay
		}
	}
}

// WithoutRetry makes every call a single attempt.
func WithoutRetry() Option {
	return func(o *options) { o.maxAttempts = 1 }
}
