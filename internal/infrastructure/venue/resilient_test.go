package venue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

type flakyLookup struct {
	failures int
	calls    int
	err      error
	delay    time.Duration
}

func (f *flakyLookup) ResolveVenue(ctx context.Context, query string) (outing.Venue, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return outing.Venue{}, ctx.Err()
		}
	}
	if f.err != nil {
		return outing.Venue{}, f.err
	}
	if f.calls <= f.failures {
		return outing.Venue{}, errors.New("plugin unavailable")
	}
	return outing.Venue{ID: "v1", Name: query}, nil
}

func TestResilientLookup_RetriesTransientErrors(t *testing.T) {
	inner := &flakyLookup{failures: 1}
	l := NewResilientLookup(inner, time.Second)
	l.retryCfg.InitialDelay = time.Millisecond

	v, err := l.ResolveVenue(context.Background(), "Neon")
	if err != nil || v.ID != "v1" {
		t.Fatalf("ResolveVenue = %+v, %v", v, err)
	}
	if inner.calls != 2 {
		t.Errorf("calls = %d, want 2", inner.calls)
	}
}

func TestResilientLookup_DoesNotRetryMisses(t *testing.T) {
	inner := &flakyLookup{err: outing.ErrNotFound}
	l := NewResilientLookup(inner, time.Second)
	l.retryCfg.InitialDelay = time.Millisecond

	if _, err := l.ResolveVenue(context.Background(), "nowhere"); !errors.Is(err, outing.ErrNotFound) {
		t.Fatalf("got %v, want not found", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestResilientLookup_GivesUp(t *testing.T) {
	inner := &flakyLookup{failures: 10}
	l := NewResilientLookup(inner, time.Second)
	l.retryCfg.InitialDelay = time.Millisecond

	if _, err := l.ResolveVenue(context.Background(), "Neon"); err == nil {
		t.Fatal("expected error after retries")
	}
	if inner.calls != l.retryCfg.MaxAttempts {
		t.Errorf("calls = %d, want %d", inner.calls, l.retryCfg.MaxAttempts)
	}
}

func TestResilientLookup_Timeout(t *testing.T) {
	inner := &flakyLookup{delay: time.Second}
	l := NewResilientLookup(inner, 20*time.Millisecond)
	l.retryCfg.MaxAttempts = 1

	start := time.Now()
	if _, err := l.ResolveVenue(context.Background(), "Neon"); err == nil {
		t.Fatal("expected timeout")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("lookup was not bounded by the deadline")
	}
}
