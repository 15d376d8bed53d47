package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/config"
	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/wiring"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/storage"
)

// runCLI executes the root command with args and returns its output. Flag
// variables are reset first since cobra keeps them between runs.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	configPath = config.DefaultFile
	configForce = false
	logFile, logAggregate, logType, logSince, logJSON = "", "", "", 0, false
	serveAddr = ""

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	defer RootCmd.SetArgs(nil)
	err := RootCmd.Execute()
	return out.String(), err
}

func TestHelp(t *testing.T) {
	out, err := runCLI(t, "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, sub := range []string{"serve", "mcp", "watch", "log", "config", "venues", "plugin"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help does not list %q:\n%s", sub, out)
		}
	}
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comesocial.yaml")

	out, err := runCLI(t, "config", "init", "--config", path)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote "+path) {
		t.Errorf("unexpected output: %q", out)
	}
	if _, err := config.Load(path); err != nil {
		t.Fatalf("written config does not load: %v", err)
	}

	_, err = runCLI(t, "config", "init", "--config", path)
	var cliErr *CLIError
	if !asCLIError(err, &cliErr) || !strings.Contains(cliErr.Hint, "--force") {
		t.Fatalf("second init: got %v, want CLIError hinting --force", err)
	}
	if _, err := runCLI(t, "config", "init", "--config", path, "--force"); err != nil {
		t.Fatalf("forced init: %v", err)
	}

	out, err = runCLI(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "driver: memory") {
		t.Errorf("show output missing storage driver:\n%s", out)
	}
}

func TestConfigShow_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  driver: postgres\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := runCLI(t, "config", "show", "--config", path)
	var cliErr *CLIError
	if !asCLIError(err, &cliErr) {
		t.Fatalf("expected CLIError, got %v", err)
	}
}

func TestLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	store := storage.NewFileEventStore(path)
	for _, d := range []events.Delta{
		events.NewDraftDelta(events.TypeDraftDelta, "d1", 1, "add_stop", "host", nil),
		events.NewDraftDelta(events.TypePresenceDelta, "d1", 1, "heartbeat", "ana", nil),
		events.NewPlanDelta(events.TypePlanDelta, "p1", 2, "start", "host", nil),
	} {
		if err := store.Append(d); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	out, err := runCLI(t, "log", "--file", path, "--aggregate", "d1")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if got := strings.Count(out, "\n"); got != 2 {
		t.Errorf("expected 2 lines for d1, got %d:\n%s", got, out)
	}
	if strings.Contains(out, "plan:p1") {
		t.Errorf("plan delta leaked into aggregate filter:\n%s", out)
	}

	out, err = runCLI(t, "log", "--file", path, "--aggregate", "d1", "--type", events.TypePresenceDelta, "--json")
	if err != nil {
		t.Fatalf("log --json: %v", err)
	}
	if strings.Count(out, "\n") != 1 || !strings.Contains(out, `"op":"heartbeat"`) {
		t.Errorf("unexpected json output:\n%s", out)
	}

	out, err = runCLI(t, "log", "--file", filepath.Join(t.TempDir(), "none.jsonl"))
	if err != nil {
		t.Fatalf("log on missing file: %v", err)
	}
	if !strings.Contains(out, "No events recorded.") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestLog_NoEventLogConfigured(t *testing.T) {
	_, err := runCLI(t, "log", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	var cliErr *CLIError
	if !asCLIError(err, &cliErr) || cliErr.Message != "no event log configured" {
		t.Fatalf("got %v, want no event log CLIError", err)
	}
}

func TestVenuesResolve(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "venues.yaml")
	if err := os.WriteFile(catalog, []byte("venues:\n  - id: v-neon\n    name: Neon Bar\n    address: 1 Main St\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	cfg.Venues.Catalog = catalog
	path := filepath.Join(dir, "comesocial.yaml")
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "venues", "resolve", "neon", "--config", path)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasPrefix(out, "v-neon\tNeon Bar") {
		t.Errorf("unexpected output: %q", out)
	}

	_, err = runCLI(t, "venues", "resolve", "nowhere", "--config", path)
	var cliErr *CLIError
	if !asCLIError(err, &cliErr) || cliErr.Message != "not found" {
		t.Fatalf("got %v, want not found CLIError", err)
	}
}

func TestVenuesResolve_NoLookup(t *testing.T) {
	_, err := runCLI(t, "venues", "resolve", "neon", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	var cliErr *CLIError
	if !asCLIError(err, &cliErr) || cliErr.Message != "no venue lookup configured" {
		t.Fatalf("got %v, want no venue lookup CLIError", err)
	}
}

func TestPluginValidate_MissingBinary(t *testing.T) {
	_, err := runCLI(t, "plugin", "validate", filepath.Join(t.TempDir(), "nope"), "--query", "neon")
	var cliErr *CLIError
	if !asCLIError(err, &cliErr) || cliErr.Message != "plugin could not be loaded" {
		t.Fatalf("got %v, want load CLIError", err)
	}
}

func TestWatch_InvalidTopic(t *testing.T) {
	_, err := runCLI(t, "watch", "party")
	var cliErr *CLIError
	if !asCLIError(err, &cliErr) {
		t.Fatalf("expected CLIError, got %v", err)
	}
}

func TestWatch_Skip(t *testing.T) {
	t.Setenv("COMESOCIAL_SKIP_WATCH_RUN", "true")
	if _, err := runCLI(t, "watch", "draft:d1"); err != nil {
		t.Fatalf("watch: %v", err)
	}
}

func TestServe_Skip(t *testing.T) {
	t.Setenv("COMESOCIAL_SKIP_SERVE", "true")
	if _, err := runCLI(t, "serve", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--addr", ":0"); err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestMCP_Skip(t *testing.T) {
	t.Setenv("COMESOCIAL_SKIP_MCP_START", "true")
	if _, err := runCLI(t, "mcp", "--config", filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
		t.Fatalf("mcp: %v", err)
	}
}

func TestMCPOpenAPI(t *testing.T) {
	out, err := runCLI(t, "mcp", "openapi", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("mcp openapi: %v", err)
	}
	for _, want := range []string{`"openapi": "3.0.3"`, "/tools/draft_create", "/tools/stop_attendance"} {
		if !strings.Contains(out, want) {
			t.Errorf("document missing %q", want)
		}
	}
}

func TestAPIServerRoutes(t *testing.T) {
	app, err := wiring.BuildApp(config.Defaults(), nil)
	if err != nil {
		t.Fatalf("BuildApp: %v", err)
	}
	defer func() { _ = app.Close() }()

	handler := newAPIServer(app).Handler()
	tests := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/ws?topic=party", http.StatusBadRequest},
		{"/events?topic=party", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Fatalf("GET %s: got %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}
