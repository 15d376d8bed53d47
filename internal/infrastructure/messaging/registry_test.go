package messaging_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/messaging"
	domainmsg "github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/messaging"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

func fastRetry() messaging.RegistryOption {
	return messaging.WithRetry(retry.Config{
		MaxAttempts:   2,
		InitialDelay:  time.Millisecond,
		BackoffPolicy: retry.BackoffExponential,
	})
}

func TestRegistry_CreatesAdapters(t *testing.T) {
	config := &domainmsg.MessagingConfig{
		Adapters: []domainmsg.AdapterConfig{
			{Name: "webhook1", Type: "webhook", URL: "http://example.com", Enabled: true},
			{Name: "slack1", Type: "slack", URL: "http://slack.com/hook", Enabled: true},
			{Name: "log1", Type: "log", Enabled: true},
			{Name: "disabled", Type: "webhook", URL: "http://disabled.com", Enabled: false},
		},
	}

	registry, err := messaging.NewRegistry(config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	adapters := registry.Adapters()
	if len(adapters) != 3 {
		t.Errorf("expected 3 enabled adapters, got %d", len(adapters))
	}
}

func TestRegistry_InvalidAdapters(t *testing.T) {
	for _, cfg := range []domainmsg.AdapterConfig{
		{Name: "bad", Type: "unknown", URL: "http://example.com", Enabled: true},
		{Name: "nourl", Type: "webhook", Enabled: true},
		{Name: "nourl", Type: "slack", Enabled: true},
	} {
		_, err := messaging.NewRegistry(&domainmsg.MessagingConfig{Adapters: []domainmsg.AdapterConfig{cfg}})
		if err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}

func TestRegistry_NilConfig(t *testing.T) {
	registry, err := messaging.NewRegistry(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(registry.Adapters()) != 0 {
		t.Errorf("expected 0 adapters for nil config")
	}
	if err := registry.Notify(context.Background(), []string{"ana"}, "hi", outing.UrgencyHigh); err != nil {
		t.Errorf("Notify with no adapters: %v", err)
	}
}

func TestRegistry_NotifyFiltersByUrgency(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	var logs bytes.Buffer
	registry, err := messaging.NewRegistry(&domainmsg.MessagingConfig{
		Adapters: []domainmsg.AdapterConfig{
			{Name: "urgent-only", Type: "webhook", URL: server.URL, MinUrgency: outing.UrgencyHigh, Enabled: true},
			{Name: "audit", Type: "log", Enabled: true},
		},
	}, messaging.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))), fastRetry())
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := registry.Notify(ctx, []string{"ana"}, "Ana checked in", outing.UrgencyLow); err != nil {
		t.Fatalf("Notify low: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("high-only webhook received a low notification")
	}
	if !strings.Contains(logs.String(), "Ana checked in") {
		t.Errorf("log adapter output = %q", logs.String())
	}

	if err := registry.Notify(ctx, []string{"ana", "ben"}, "Where are you?", outing.UrgencyHigh); err != nil {
		t.Fatalf("Notify high: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("webhook hits = %d, want 1", hits.Load())
	}
}

func TestRegistry_RetriesThenDeadLetters(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	dl := messaging.NewDeadLetterStore(filepath.Join(t.TempDir(), "dead", "letters.jsonl"))
	registry, err := messaging.NewRegistry(&domainmsg.MessagingConfig{
		Adapters: []domainmsg.AdapterConfig{
			{Name: "flaky", Type: "webhook", URL: server.URL, Enabled: true},
		},
	}, messaging.WithDeadLetter(dl), messaging.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), fastRetry())
	if err != nil {
		t.Fatal(err)
	}

	err = registry.Notify(context.Background(), []string{"host"}, "Ana suggested Neon Bar", outing.UrgencyNormal)
	if err == nil {
		t.Fatal("expected delivery error")
	}
	if !strings.Contains(err.Error(), "flaky") {
		t.Errorf("error should name the adapter: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("attempts = %d, want 2", hits.Load())
	}

	letters, err := dl.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(letters) != 1 || letters[0].AdapterName != "flaky" || letters[0].Payload.Message != "Ana suggested Neon Bar" {
		t.Errorf("dead letters = %+v", letters)
	}
}

func TestDeadLetterStore_MissingFile(t *testing.T) {
	dl := messaging.NewDeadLetterStore(filepath.Join(t.TempDir(), "none.jsonl"))
	letters, err := dl.ReadAll()
	if err != nil || letters != nil {
		t.Errorf("ReadAll = %v, %v", letters, err)
	}
}
