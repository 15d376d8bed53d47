package application_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/application"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sequentialIDs struct {
	mu   sync.Mutex
	next int
}

func (g *sequentialIDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("id-%d", g.next)
}

type notification struct {
	Recipients []string
	Message    string
	Urgency    outing.Urgency
}

type MockSink struct {
	mu    sync.Mutex
	Sent  []notification
	Error error
}

func (m *MockSink) Notify(_ context.Context, ids []string, message string, urgency outing.Urgency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, notification{Recipients: append([]string(nil), ids...), Message: message, Urgency: urgency})
	return m.Error
}

func (m *MockSink) Notifications() []notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification(nil), m.Sent...)
}

type MockVenues struct {
	Venues []outing.Venue
	Calls  int
}

func (m *MockVenues) ResolveVenue(_ context.Context, query string) (outing.Venue, error) {
	m.Calls++
	for _, v := range m.Venues {
		if strings.EqualFold(v.Name, query) || v.ID == query {
			return v, nil
		}
	}
	return outing.Venue{}, fmt.Errorf("venue %q: %w", query, outing.ErrNotFound)
}

type testEnv struct {
	engine   *application.Engine
	store    *storage.MemoryStore
	recorder *events.Recorder
	clock    *fakeClock
	sink     *MockSink
	venues   *MockVenues
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    storage.NewMemoryStore(),
		recorder: &events.Recorder{},
		clock:    newFakeClock(),
		sink:     &MockSink{},
		venues: &MockVenues{Venues: []outing.Venue{
			{ID: "v-neon", Name: "Neon Bar", Address: "1 Main St"},
			{ID: "v-vault", Name: "The Vault"},
		}},
	}
	ids := &sequentialIDs{}
	env.engine = application.NewEngine(env.store, env.recorder,
		application.WithClock(env.clock.Now),
		application.WithIDGenerator(ids.New),
		application.WithNotifier(env.sink),
		application.WithVenueLookup(env.venues),
	)
	return env
}

// newDraft creates a draft hosted by "host" with members ana and ben, plus
// the given stops.
func (env *testEnv) newDraft(t *testing.T, stopNames ...string) *outing.Draft {
	t.Helper()
	ctx := context.Background()
	d, err := env.engine.Lifecycle.CreateDraft(ctx, outing.DraftSpec{
		Title:        "Friday",
		HostID:       "host",
		Participants: []outing.Participant{{ID: "ana", Name: "Ana"}, {ID: "ben", Name: "Ben"}},
	})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	for _, name := range stopNames {
		d, err = env.engine.Edits.AddStop(ctx, d.ID, application.StopInput{VenueName: name}, "host")
		if err != nil {
			t.Fatalf("AddStop(%s): %v", name, err)
		}
	}
	env.recorder.Reset()
	return d
}

// newPlan converts a fresh draft with the given stops into a plan.
func (env *testEnv) newPlan(t *testing.T, stopNames ...string) *outing.Plan {
	t.Helper()
	d := env.newDraft(t, stopNames...)
	p, err := env.engine.Lifecycle.ConvertToLivePlan(context.Background(), d.ID, "host")
	if err != nil {
		t.Fatalf("ConvertToLivePlan: %v", err)
	}
	env.recorder.Reset()
	return p
}

func (env *testEnv) draft(t *testing.T, id string) *outing.Draft {
	t.Helper()
	d, err := env.engine.Lifecycle.GetDraft(context.Background(), id)
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	return d
}

func stopNames(d *outing.Draft) []string {
	names := make([]string, len(d.Stops))
	for i, s := range d.Stops {
		names[i] = s.VenueName
	}
	return names
}

func stopIDByName(t *testing.T, d *outing.Draft, name string) string {
	t.Helper()
	for _, s := range d.Stops {
		if s.VenueName == name {
			return s.ID
		}
	}
	t.Fatalf("no stop named %s", name)
	return ""
}

func version(v int64) *int64 { return &v }
