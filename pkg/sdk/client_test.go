package sdk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/mcp-go/client"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

func TestTextResult(t *testing.T) {
	t.Run("extracts text", func(t *testing.T) {
		r := &client.ToolResult{
			Content: []client.ContentItem{{Type: "text", Text: "hello"}},
		}
		got, err := textResult(r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "hello" {
			t.Fatalf("got %q, want %q", got, "hello")
		}
	})

	t.Run("empty content", func(t *testing.T) {
		r := &client.ToolResult{}
		_, err := textResult(r)
		if err != ErrNoContent {
			t.Fatalf("got %v, want ErrNoContent", err)
		}
	})
}

func TestUnmarshalText(t *testing.T) {
	t.Run("valid JSON", func(t *testing.T) {
		r := &client.ToolResult{
			Content: []client.ContentItem{{Type: "text", Text: `{"id":"d1","title":"Friday","version":3}`}},
		}
		d, err := unmarshalText[outing.Draft](r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.ID != "d1" || d.Title != "Friday" || d.Version != 3 {
			t.Fatalf("unexpected draft: %+v", d)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		r := &client.ToolResult{
			Content: []client.ContentItem{{Type: "text", Text: "not json"}},
		}
		_, err := unmarshalText[outing.Draft](r)
		if err == nil {
			t.Fatal("expected error for invalid JSON")
		}
	})

	t.Run("empty content", func(t *testing.T) {
		r := &client.ToolResult{}
		_, err := unmarshalText[outing.Draft](r)
		if err != ErrNoContent {
			t.Fatalf("got %v, want ErrNoContent", err)
		}
	})
}

func TestMajorVersion(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1.0.0", "1"},
		{"2.3.4", "2"},
		{"10.0.1", "10"},
		{"0.1.0", "0"},
		{"3", "3"},
	}
	for _, tt := range tests {
		got := majorVersion(tt.input)
		if got != tt.want {
			t.Errorf("majorVersion(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestToolError(t *testing.T) {
	e := &ToolError{Tool: "draft_convert", Message: "convert draft: invalid state"}
	if !strings.Contains(e.Error(), "draft_convert") {
		t.Fatalf("error should contain tool name: %s", e.Error())
	}
	if e.IsConflict() {
		t.Fatal("a state error is not a conflict")
	}
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	dir := cwd
	for i := 0; i < 10; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}

func TestIntegrationDraftToPlan(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	root := findRepoRoot(t)
	tempDir := t.TempDir()

	binPath := filepath.Join(tempDir, "comesocial")
	build := exec.Command("go", "build", "-o", binPath, "./cmd/comesocial")
	build.Dir = root
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("build comesocial: %v\n%s", err, out)
	}

	cmd := fmt.Sprintf("cd '%s' && '%s' mcp --transport stdio --config missing.yaml", tempDir, binPath)
	transport, err := client.NewStdioTransport("bash", "-lc", cmd)
	if err != nil {
		t.Fatalf("stdio transport: %v", err)
	}
	defer transport.Close()

	c := NewClient(transport, WithTimeout(60*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	info, err := c.Initialize(ctx)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !info.Capabilities.Tools {
		t.Fatalf("expected tools capability")
	}

	d, err := c.CreateDraft(ctx, CreateDraftRequest{
		HostID:       "host",
		Title:        "Friday",
		Participants: []outing.Participant{{ID: "ana", Name: "Ana"}},
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if d, err = c.AddStop(ctx, AddStopRequest{DraftID: d.ID, Actor: "ana", VenueName: "Neon Bar"}); err != nil {
		t.Fatalf("add stop: %v", err)
	}

	stale := d.Version - 1
	_, err = c.UpdateStop(ctx, UpdateStopRequest{DraftID: d.ID, StopID: d.Stops[0].ID, Actor: "ana", Field: outing.FieldNotes, Value: "x", ExpectedVersion: &stale})
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || !toolErr.IsConflict() {
		t.Fatalf("expected a conflict, got %v", err)
	}
	if toolErr.Conflict.Draft == nil || toolErr.Conflict.Draft.Version != d.Version {
		t.Errorf("conflict should carry the current draft, got %+v", toolErr.Conflict)
	}

	p, err := c.ConvertToLivePlan(ctx, d.ID, "host")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(p.Stops) != 1 || p.SourceDraftID != d.ID {
		t.Fatalf("unexpected plan: %+v", p)
	}
	if _, err := c.GetDraft(ctx, d.ID); err == nil {
		t.Fatal("converted draft should be gone")
	}

	schema, err := c.GetSchema(ctx)
	if err != nil {
		t.Fatalf("get schema: %v", err)
	}
	if schema.SchemaVersion == "" {
		t.Fatal("expected non-empty schema version")
	}
	if err := c.Compatible(ctx); err != nil {
		t.Fatalf("compatible: %v", err)
	}
}
