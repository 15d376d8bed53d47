// Package mcp exposes plan engine operations as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/application"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// Server wraps an MCP server bound to one engine.
type Server struct {
	mcpServer *mcp.Server
	engine    *application.Engine
	logger    *slog.Logger
}

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

// NewServer registers the engine's tools on a new MCP server.
func NewServer(engine *application.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	info := mcp.ServerInfo{
		Name:    "comesocial",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("Comesocial Plan Engine"),
			mcp.WithDescription("Collaborative night-out drafts, live plans and friend attendance."),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Create a draft, add and order stops, convert it to a live plan, then drive progress and attendance. Pass the acting participant id as actor."),
		),
		engine: engine,
		logger: logger,
	}

	s.registerTools()
	s.registerSchemaResource()
	return s
}

// toolErr turns an engine error into a message an MCP client can act on.
// Domain errors are shown as-is; a conflict also carries the current draft as
// JSON after outing.ConflictDetailPrefix. Anything else is logged and hidden.
func (s *Server) toolErr(action string, err error) error {
	var conflict *outing.ConflictError
	switch {
	case errors.As(err, &conflict):
		detail, jerr := json.Marshal(conflict)
		if jerr != nil {
			s.logger.Warn("conflict detail not encoded", "draft_id", conflict.DraftID, "error", jerr)
			return fmt.Errorf("%s: draft %s is at version %d, not %d; fetch it with draft_get and retry", action, conflict.DraftID, conflict.Current, conflict.Expected)
		}
		return fmt.Errorf("%s: draft %s is at version %d, not %d; retry against the current draft. %s%s",
			action, conflict.DraftID, conflict.Current, conflict.Expected, outing.ConflictDetailPrefix, detail)
	case errors.Is(err, outing.ErrNotFound),
		errors.Is(err, outing.ErrForbidden),
		errors.Is(err, outing.ErrInvalidState),
		errors.Is(err, outing.ErrInvalidInput):
		return fmt.Errorf("%s: %s", action, err)
	default:
		s.logger.Error("mcp tool failed", "action", action, "error", err)
		return fmt.Errorf("%s failed; see server logs", action)
	}
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}

func (s *Server) ServeWebSocket(ctx context.Context, addr string) error {
	return mcp.ServeWebSocket(ctx, s.mcpServer, addr)
}

// Serve runs the named transport: stdio, http or ws.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	switch transport {
	case "", "stdio":
		return s.ServeStdio(ctx)
	case "http":
		return s.ServeHTTP(ctx, addr)
	case "ws", "websocket":
		return s.ServeWebSocket(ctx, addr)
	default:
		return fmt.Errorf("unknown transport %q (use stdio, http or ws)", transport)
	}
}
