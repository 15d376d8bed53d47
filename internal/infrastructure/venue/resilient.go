package venue

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// DefaultTimeout bounds one lookup including retries.
const DefaultTimeout = 3 * time.Second

// ResilientLookup wraps a lookup, typically a plugin, with a deadline and
// retries. A miss is an answer, not a failure, so it is never retried.
type ResilientLookup struct {
	inner    outing.VenueLookup
	deadline time.Duration
	retryCfg retry.Config
}

// NewResilientLookup wraps inner. A zero d uses DefaultTimeout.
func NewResilientLookup(inner outing.VenueLookup, d time.Duration) *ResilientLookup {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &ResilientLookup{
		inner:    inner,
		deadline: d,
		retryCfg: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  100 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

func (l *ResilientLookup) ResolveVenue(ctx context.Context, query string) (outing.Venue, error) {
	r := retry.New[outing.Venue](l.retryCfg)
	t := timeout.New[outing.Venue](timeout.Config{DefaultTimeout: l.deadline})

	var answer error
	v, err := t.Execute(ctx, l.deadline, func(ctx context.Context) (outing.Venue, error) {
		return r.Do(ctx, func(ctx context.Context) (outing.Venue, error) {
			v, err := l.inner.ResolveVenue(ctx, query)
			if errors.Is(err, outing.ErrNotFound) || errors.Is(err, outing.ErrInvalidInput) {
				answer = err
				return outing.Venue{}, nil
			}
			return v, err
		})
	})
	if err != nil {
		return outing.Venue{}, err
	}
	if answer != nil {
		return outing.Venue{}, answer
	}
	return v, nil
}

var _ outing.VenueLookup = (*ResilientLookup)(nil)
