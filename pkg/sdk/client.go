package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/mcp-go/client"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// Client is a typed Go client for the Comesocial MCP server.
type Client struct {
	mcp      *client.Client
	retryCfg retry.Config
	timeout  time.Duration
}

// NewClient creates a new SDK client wrapping the given MCP transport.
func NewClient(transport client.Transport, opts ...Option) *Client {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Client{
		mcp:     client.New(transport, client.WithTimeout(o.timeout)),
		timeout: o.timeout,
		retryCfg: retry.Config{
			MaxAttempts:   o.maxAttempts,
			InitialDelay:  o.initialDelay,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Initialize performs the MCP initialize handshake.
func (c *Client) Initialize(ctx context.Context) (*client.ServerInfo, error) {
	return c.mcp.Initialize(ctx)
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.mcp.Close()
}

// call invokes a tool with retry. Only transport failures are retried; a
// tool error result is final.
func (c *Client) call(ctx context.Context, tool string, args map[string]any) (*client.ToolResult, error) {
	r := retry.New[*client.ToolResult](c.retryCfg)
	result, err := r.Do(ctx, func(ctx context.Context) (*client.ToolResult, error) {
		return c.mcp.CallTool(ctx, tool, args)
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", tool, err)
	}
	if result.IsError {
		msg := ""
		if len(result.Content) > 0 {
			msg = result.Content[0].Text
		}
		return nil, newToolError(tool, msg)
	}
	return result, nil
}

// unmarshalText extracts Content[0].Text from a tool result and unmarshals it as JSON.
func unmarshalText[T any](result *client.ToolResult) (*T, error) {
	text, err := textResult(result)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &v, nil
}

// textResult extracts Content[0].Text from a tool result.
func textResult(result *client.ToolResult) (string, error) {
	if len(result.Content) == 0 {
		return "", ErrNoContent
	}
	return result.Content[0].Text, nil
}

func callJSON[T any](ctx context.Context, c *Client, tool string, args map[string]any) (*T, error) {
	res, err := c.call(ctx, tool, args)
	if err != nil {
		return nil, err
	}
	return unmarshalText[T](res)
}

// --- Schema ---

// GetSchema reads the comesocial://schema resource from the server.
func (c *Client) GetSchema(ctx context.Context) (*SchemaInfo, error) {
	rc, err := c.mcp.ReadResource(ctx, SchemaURI)
	if err != nil {
		return nil, fmt.Errorf("read schema resource: %w", err)
	}
	var info SchemaInfo
	if err := json.Unmarshal([]byte(rc.Text), &info); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	return &info, nil
}

// Compatible checks if the server schema is compatible with this SDK version.
// Returns nil if compatible, error with details if not.
func (c *Client) Compatible(ctx context.Context) error {
	info, err := c.GetSchema(ctx)
	if err != nil {
		return fmt.Errorf("check compatibility: %w", err)
	}
	serverMajor := majorVersion(info.SchemaVersion)
	if serverMajor != SupportedSchemaMajor {
		return fmt.Errorf("incompatible schema: server=%s (major %s), sdk supports major %s",
			info.SchemaVersion, serverMajor, SupportedSchemaMajor)
	}
	return nil
}

// majorVersion extracts the major version from a semver string.
func majorVersion(v string) string {
	for i, ch := range v {
		if ch == '.' {
			return v[:i]
		}
	}
	return v
}

// --- Drafts ---

// CreateDraftRequest describes a new draft.
type CreateDraftRequest struct {
	HostID       string
	Title        string
	Description  string
	PlanType     string
	Date         string
	Time         string
	ChatOpen     bool
	HostOnly     bool
	Participants []outing.Participant
}

// CreateDraft creates a draft hosted by req.HostID.
func (c *Client) CreateDraft(ctx context.Context, req CreateDraftRequest) (*outing.Draft, error) {
	args := map[string]any{"host_id": req.HostID, "title": req.Title}
	setIf(args, "description", req.Description)
	setIf(args, "plan_type", req.PlanType)
	setIf(args, "date", req.Date)
	setIf(args, "time", req.Time)
	if req.ChatOpen {
		args["chat_open"] = true
	}
	if req.HostOnly {
		args["host_only"] = true
	}
	if len(req.Participants) > 0 {
		args["participants"] = req.Participants
	}
	return callJSON[outing.Draft](ctx, c, "draft_create", args)
}

// GetDraft retrieves a draft.
func (c *Client) GetDraft(ctx context.Context, draftID string) (*outing.Draft, error) {
	return callJSON[outing.Draft](ctx, c, "draft_get", map[string]any{"draft_id": draftID})
}

// AddStopRequest appends a stop. Set Query instead of VenueName to resolve
// the venue through the server's venue lookup.
type AddStopRequest struct {
	DraftID       string
	Actor         string
	VenueName     string
	VenueID       string
	Query         string
	Notes         string
	EstimatedTime int
}

// AddStop appends a stop to a draft.
func (c *Client) AddStop(ctx context.Context, req AddStopRequest) (*outing.Draft, error) {
	args := map[string]any{"draft_id": req.DraftID, "actor": req.Actor}
	setIf(args, "venue_name", req.VenueName)
	setIf(args, "venue_id", req.VenueID)
	setIf(args, "query", req.Query)
	setIf(args, "notes", req.Notes)
	if req.EstimatedTime > 0 {
		args["estimated_time"] = req.EstimatedTime
	}
	return callJSON[outing.Draft](ctx, c, "stop_add", args)
}

// UpdateStopRequest edits one field of a stop. ExpectedVersion enables the
// optimistic concurrency check.
type UpdateStopRequest struct {
	DraftID         string
	StopID          string
	Actor           string
	Field           outing.StopField
	Value           string
	ExpectedVersion *int64
}

// UpdateStop edits one field of a stop.
func (c *Client) UpdateStop(ctx context.Context, req UpdateStopRequest) (*outing.Draft, error) {
	args := map[string]any{
		"draft_id": req.DraftID,
		"stop_id":  req.StopID,
		"actor":    req.Actor,
		"field":    string(req.Field),
		"value":    req.Value,
	}
	if req.ExpectedVersion != nil {
		args["expected_version"] = *req.ExpectedVersion
	}
	return callJSON[outing.Draft](ctx, c, "stop_update", args)
}

// DeleteStop removes a stop from a draft.
func (c *Client) DeleteStop(ctx context.Context, draftID, stopID, actor string) (*outing.Draft, error) {
	return callJSON[outing.Draft](ctx, c, "stop_delete", map[string]any{
		"draft_id": draftID,
		"stop_id":  stopID,
		"actor":    actor,
	})
}

// ReorderStopRequest moves StopID before TargetStopID, or to the end when
// TargetStopID is empty.
type ReorderStopRequest struct {
	DraftID         string
	StopID          string
	TargetStopID    string
	Actor           string
	ExpectedVersion *int64
}

// ReorderStop moves a stop.
func (c *Client) ReorderStop(ctx context.Context, req ReorderStopRequest) (*outing.Draft, error) {
	args := map[string]any{"draft_id": req.DraftID, "stop_id": req.StopID, "actor": req.Actor}
	setIf(args, "target_stop_id", req.TargetStopID)
	if req.ExpectedVersion != nil {
		args["expected_version"] = *req.ExpectedVersion
	}
	return callJSON[outing.Draft](ctx, c, "stop_reorder", args)
}

// ToggleLock locks or unlocks a draft and returns the server's summary.
func (c *Client) ToggleLock(ctx context.Context, draftID, actor string) (string, error) {
	res, err := c.call(ctx, "draft_toggle_lock", map[string]any{"draft_id": draftID, "actor": actor})
	if err != nil {
		return "", err
	}
	return textResult(res)
}

// ConvertToLivePlan converts a draft into a live plan.
func (c *Client) ConvertToLivePlan(ctx context.Context, draftID, actor string) (*outing.Plan, error) {
	return callJSON[outing.Plan](ctx, c, "draft_convert", map[string]any{"draft_id": draftID, "actor": actor})
}

// --- Plans ---

// GetPlan retrieves a live plan.
func (c *Client) GetPlan(ctx context.Context, planID string) (*outing.Plan, error) {
	return callJSON[outing.Plan](ctx, c, "plan_get", map[string]any{"plan_id": planID})
}

// GetPlanForDraft retrieves the plan a draft was converted into.
func (c *Client) GetPlanForDraft(ctx context.Context, draftID string) (*outing.Plan, error) {
	return callJSON[outing.Plan](ctx, c, "plan_get", map[string]any{"draft_id": draftID})
}

// StartPlan starts a plan toward its first stop.
func (c *Client) StartPlan(ctx context.Context, planID, actor string) (*outing.Plan, error) {
	return callJSON[outing.Plan](ctx, c, "plan_start", map[string]any{"plan_id": planID, "actor": actor})
}

// CheckIn checks the group in at the current stop. stopRef may be empty.
func (c *Client) CheckIn(ctx context.Context, planID, stopRef, actor string) (*outing.Plan, error) {
	args := map[string]any{"plan_id": planID, "actor": actor}
	setIf(args, "stop_id", stopRef)
	return callJSON[outing.Plan](ctx, c, "plan_check_in", args)
}

// MoveToNext leaves the current stop for the next one, or completes the plan.
func (c *Client) MoveToNext(ctx context.Context, planID, actor string) (*outing.Plan, error) {
	return callJSON[outing.Plan](ctx, c, "plan_next", map[string]any{"plan_id": planID, "actor": actor})
}

// PingGroup notifies the rest of the group.
func (c *Client) PingGroup(ctx context.Context, planID, actor, message string) error {
	args := map[string]any{"plan_id": planID, "actor": actor}
	setIf(args, "message", message)
	_, err := c.call(ctx, "plan_ping", args)
	return err
}

// --- Attendance ---

// FriendStatusRequest reports a participant's own status.
type FriendStatusRequest struct {
	PlanID        string
	ParticipantID string
	Status        outing.AttendanceStatus
	ETA           string
	VenueID       string
}

// SetFriendStatus records a participant's status for the plan.
func (c *Client) SetFriendStatus(ctx context.Context, req FriendStatusRequest) (*outing.FriendStatus, error) {
	args := map[string]any{
		"plan_id":        req.PlanID,
		"participant_id": req.ParticipantID,
		"status":         string(req.Status),
	}
	setIf(args, "eta", req.ETA)
	setIf(args, "venue_id", req.VenueID)
	return callJSON[outing.FriendStatus](ctx, c, "friend_status_set", args)
}

// StopAttendance buckets the plan's participants for one stop.
func (c *Client) StopAttendance(ctx context.Context, planID, stopID string) (*outing.StopAttendance, error) {
	return callJSON[outing.StopAttendance](ctx, c, "stop_attendance", map[string]any{"plan_id": planID, "stop_id": stopID})
}

// PlanAttendance buckets the plan's participants for every stop.
func (c *Client) PlanAttendance(ctx context.Context, planID string) ([]outing.StopAttendance, error) {
	v, err := callJSON[[]outing.StopAttendance](ctx, c, "stop_attendance", map[string]any{"plan_id": planID})
	if err != nil {
		return nil, err
	}
	return *v, nil
}

func setIf(args map[string]any, key, value string) {
	if value != "" {
		args[key] = value
	}
}
