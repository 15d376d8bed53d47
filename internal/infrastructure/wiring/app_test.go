package wiring

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/config"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/messaging"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const catalogYAML = `venues:
  - id: v-neon
    name: Neon Bar
    aliases: [neon]
  - id: v-vault
    name: The Vault
`

func writeCatalog(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "venues.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestBuildApp_Defaults(t *testing.T) {
	app, err := BuildApp(nil, quietLogger())
	if err != nil {
		t.Fatalf("BuildApp: %v", err)
	}
	defer app.Close()

	if app.Venues != nil {
		t.Error("no venue lookup expected without catalog or plugin")
	}
	if len(app.Notifier.Adapters()) != 1 {
		t.Errorf("adapters = %d, want the default log adapter", len(app.Notifier.Adapters()))
	}

	ctx := context.Background()
	d, err := app.Engine.Lifecycle.CreateDraft(ctx, outing.DraftSpec{Title: "Friday", HostID: "host"})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if _, err := app.Engine.Edits.AddStopFromSearch(ctx, d.ID, "neon", "", 0, "host"); err == nil {
		t.Error("search without a venue lookup should fail")
	}
}

func TestBuildApp_SQLiteEventLogAndCatalog(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Storage = config.StorageConfig{Driver: "sqlite", Path: filepath.Join(dir, "comesocial.db")}
	cfg.EventLog = filepath.Join(dir, "deltas.jsonl")
	cfg.Venues.Catalog = writeCatalog(t, dir, catalogYAML)

	app, err := BuildApp(cfg, quietLogger())
	if err != nil {
		t.Fatalf("BuildApp: %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	d, err := app.Engine.Lifecycle.CreateDraft(ctx, outing.DraftSpec{
		Title:        "Friday",
		HostID:       "host",
		Participants: []outing.Participant{{ID: "ana", Name: "Ana"}},
	})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	d, err = app.Engine.Edits.AddStopFromSearch(ctx, d.ID, "neon", "", 30, "ana")
	if err != nil {
		t.Fatalf("AddStopFromSearch: %v", err)
	}
	if d.Stops[0].VenueID != "v-neon" {
		t.Errorf("venue = %s, want v-neon", d.Stops[0].VenueID)
	}

	p, err := app.Engine.Lifecycle.ConvertToLivePlan(ctx, d.ID, "host")
	if err != nil {
		t.Fatalf("ConvertToLivePlan: %v", err)
	}
	if _, err := app.Store.GetDraft(ctx, d.ID); err == nil {
		t.Error("draft should be gone after conversion")
	}
	if _, err := app.Engine.Progress.StartPlan(ctx, p.ID, "ana"); err != nil {
		t.Fatalf("StartPlan: %v", err)
	}

	logged, err := app.EventLog.LoadByAggregate(p.ID)
	if err != nil {
		t.Fatalf("LoadByAggregate: %v", err)
	}
	if len(logged) != 2 {
		t.Errorf("plan deltas logged = %d, want plan_created and start_plan", len(logged))
	}
	all, _ := app.EventLog.Count()
	if all < 4 {
		t.Errorf("logged deltas = %d, want at least 4", all)
	}
}

func TestBuildApp_CatalogWatchReloads(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Venues.Catalog = writeCatalog(t, dir, catalogYAML)
	cfg.Venues.Watch = true

	app, err := BuildApp(cfg, quietLogger())
	if err != nil {
		t.Fatalf("BuildApp: %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	writeCatalog(t, dir, catalogYAML+"  - id: v-roof\n    name: Rooftop\n")

	deadline := time.Now().Add(3 * time.Second)
	for app.Catalog.Len() != 3 {
		if time.Now().After(deadline) {
			t.Fatalf("catalog not reloaded, len = %d", app.Catalog.Len())
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestBuildApp_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		mutate func(*config.ServerConfig)
	}{
		{"unknown driver", func(c *config.ServerConfig) { c.Storage.Driver = "postgres" }},
		{"missing catalog", func(c *config.ServerConfig) { c.Venues.Catalog = filepath.Join(dir, "missing.yaml") }},
		{"missing plugin", func(c *config.ServerConfig) { c.Venues.Plugin = filepath.Join(dir, "no-plugin") }},
		{"webhook without url", func(c *config.ServerConfig) {
			c.Messaging.Adapters = append(c.Messaging.Adapters, messaging.AdapterConfig{Name: "hook", Type: "webhook", Enabled: true})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			tt.mutate(cfg)
			if app, err := BuildApp(cfg, quietLogger()); err == nil {
				app.Close()
				t.Error("expected error")
			}
		})
	}
}

func TestApp_RunSweepsPresence(t *testing.T) {
	cfg := config.Defaults()
	cfg.Presence.Timeout = 40 * time.Millisecond
	cfg.Presence.SweepInterval = 10 * time.Millisecond

	app, err := BuildApp(cfg, quietLogger())
	if err != nil {
		t.Fatalf("BuildApp: %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.Run(ctx)

	d, err := app.Engine.Lifecycle.CreateDraft(ctx, outing.DraftSpec{Title: "Friday", HostID: "host"})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	app.Engine.Presence.Heartbeat(ctx, d.ID, "host")

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := app.Engine.Lifecycle.GetDraft(ctx, d.ID)
		if err != nil {
			t.Fatalf("GetDraft: %v", err)
		}
		if !got.Presence["host"].IsOnline {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("presence never expired")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
