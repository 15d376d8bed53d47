package mcp

import (
	"context"
	"fmt"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/application"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

type DraftCreateArgs struct {
	HostID       string               `json:"host_id" jsonschema:"description=Participant id of the host"`
	Title        string               `json:"title" jsonschema:"description=Title of the night out"`
	Description  string               `json:"description,omitempty" jsonschema:"description=Free-text description"`
	PlanType     string               `json:"plan_type,omitempty" jsonschema:"description=Kind of outing, e.g. bar crawl"`
	Date         string               `json:"date,omitempty" jsonschema:"description=Date of the outing"`
	Time         string               `json:"time,omitempty" jsonschema:"description=Start time of the outing"`
	ChatOpen     FlexBool             `json:"chat_open,omitempty" jsonschema:"description=Open the group chat"`
	HostOnly     FlexBool             `json:"host_only,omitempty" jsonschema:"description=Only the host may edit stops"`
	Participants []outing.Participant `json:"participants,omitempty" jsonschema:"description=Invited participants (id, name, avatar)"`
}

type DraftArgs struct {
	DraftID string `json:"draft_id" jsonschema:"description=The draft id"`
}

type DraftActorArgs struct {
	DraftID string `json:"draft_id" jsonschema:"description=The draft id"`
	Actor   string `json:"actor" jsonschema:"description=Acting participant id"`
}

type StopAddArgs struct {
	DraftID       string  `json:"draft_id" jsonschema:"description=The draft id"`
	Actor         string  `json:"actor" jsonschema:"description=Acting participant id"`
	VenueName     string  `json:"venue_name,omitempty" jsonschema:"description=Venue name for a custom stop"`
	VenueID       string  `json:"venue_id,omitempty" jsonschema:"description=Venue id, if known"`
	Query         string  `json:"query,omitempty" jsonschema:"description=Search the venue lookup instead of naming the venue"`
	Notes         string  `json:"notes,omitempty" jsonschema:"description=Notes for the stop"`
	EstimatedTime FlexInt `json:"estimated_time,omitempty" jsonschema:"description=Minutes planned at the stop"`
}

type StopUpdateArgs struct {
	DraftID         string   `json:"draft_id" jsonschema:"description=The draft id"`
	StopID          string   `json:"stop_id" jsonschema:"description=The stop id"`
	Actor           string   `json:"actor" jsonschema:"description=Acting participant id"`
	Field           string   `json:"field" jsonschema:"description=venue_id, venue_name, notes or estimated_time"`
	Value           string   `json:"value" jsonschema:"description=New value; minutes for estimated_time"`
	ExpectedVersion *FlexInt `json:"expected_version,omitempty" jsonschema:"description=Draft version the edit was based on"`
}

type StopDeleteArgs struct {
	DraftID string `json:"draft_id" jsonschema:"description=The draft id"`
	StopID  string `json:"stop_id" jsonschema:"description=The stop id"`
	Actor   string `json:"actor" jsonschema:"description=Acting participant id"`
}

type StopReorderArgs struct {
	DraftID         string   `json:"draft_id" jsonschema:"description=The draft id"`
	StopID          string   `json:"stop_id" jsonschema:"description=The stop to move"`
	TargetStopID    string   `json:"target_stop_id,omitempty" jsonschema:"description=Place the stop before this one; empty moves it to the end"`
	Actor           string   `json:"actor" jsonschema:"description=Acting participant id"`
	ExpectedVersion *FlexInt `json:"expected_version,omitempty" jsonschema:"description=Draft version the move was based on"`
}

type PlanGetArgs struct {
	PlanID  string `json:"plan_id,omitempty" jsonschema:"description=The plan id"`
	DraftID string `json:"draft_id,omitempty" jsonschema:"description=Look the plan up by the draft it was converted from"`
}

type PlanActorArgs struct {
	PlanID string `json:"plan_id" jsonschema:"description=The plan id"`
	Actor  string `json:"actor" jsonschema:"description=Acting participant id"`
}

type PlanCheckInArgs struct {
	PlanID string `json:"plan_id" jsonschema:"description=The plan id"`
	Actor  string `json:"actor" jsonschema:"description=Acting participant id"`
	StopID string `json:"stop_id,omitempty" jsonschema:"description=Stop or venue id; must be the current stop"`
}

type PlanPingArgs struct {
	PlanID  string `json:"plan_id" jsonschema:"description=The plan id"`
	Actor   string `json:"actor" jsonschema:"description=Acting participant id"`
	Message string `json:"message,omitempty" jsonschema:"description=Message for the group"`
}

type FriendStatusArgs struct {
	PlanID        string `json:"plan_id" jsonschema:"description=The plan id"`
	ParticipantID string `json:"participant_id" jsonschema:"description=Participant reporting the status"`
	Status        string `json:"status" jsonschema:"description=no-response, en-route, checked-in or left-early"`
	ETA           string `json:"eta,omitempty" jsonschema:"description=Estimated arrival, free text"`
	VenueID       string `json:"venue_id,omitempty" jsonschema:"description=Stop or venue the status refers to; defaults to the current stop"`
}

type StopAttendanceArgs struct {
	PlanID string `json:"plan_id" jsonschema:"description=The plan id"`
	StopID string `json:"stop_id,omitempty" jsonschema:"description=Stop or venue id; empty returns every stop"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("draft_create").
		Description("Create a draft night out hosted by host_id").
		Handler(s.handleDraftCreate)

	s.mcpServer.Tool("draft_get").
		Description("Retrieve a draft with its stops, participants and presence").
		Handler(s.handleDraftGet)

	s.mcpServer.Tool("stop_add").
		Description("Append a stop to a draft, by venue name or by venue search").
		Handler(s.handleStopAdd)

	s.mcpServer.Tool("stop_update").
		Description("Edit one field of a stop").
		Handler(s.handleStopUpdate)

	s.mcpServer.Tool("stop_delete").
		Description("Remove a stop from a draft").
		Handler(s.handleStopDelete)

	s.mcpServer.Tool("stop_reorder").
		Description("Move a stop before another stop").
		Handler(s.handleStopReorder)

	s.mcpServer.Tool("draft_toggle_lock").
		Description("Lock or unlock a draft's stops (host only)").
		Handler(s.handleToggleLock)

	s.mcpServer.Tool("draft_convert").
		Description("Convert a draft into a live plan (host only)").
		Handler(s.handleConvert)

	s.mcpServer.Tool("plan_get").
		Description("Retrieve a live plan").
		Handler(s.handlePlanGet)

	s.mcpServer.Tool("plan_start").
		Description("Start a live plan toward its first stop").
		Handler(s.handlePlanStart)

	s.mcpServer.Tool("plan_check_in").
		Description("Check the group in at the current stop").
		Handler(s.handlePlanCheckIn)

	s.mcpServer.Tool("plan_next").
		Description("Leave the current stop for the next one, or finish the plan").
		Handler(s.handlePlanNext)

	s.mcpServer.Tool("plan_ping").
		Description("Ping the rest of the group").
		Handler(s.handlePlanPing)

	s.mcpServer.Tool("friend_status_set").
		Description("Report a participant's own attendance status").
		Handler(s.handleFriendStatusSet)

	s.mcpServer.Tool("stop_attendance").
		Description("Show who is present, en route, silent or gone at a stop").
		Handler(s.handleStopAttendance)
}

func (s *Server) handleDraftCreate(ctx context.Context, args DraftCreateArgs) (any, error) {
	allowAll := !bool(args.HostOnly)
	d, err := s.engine.Lifecycle.CreateDraft(ctx, outing.DraftSpec{
		Title:        args.Title,
		Description:  args.Description,
		PlanType:     args.PlanType,
		Date:         args.Date,
		Time:         args.Time,
		ChatOpen:     bool(args.ChatOpen),
		AllowAllEdit: &allowAll,
		HostID:       args.HostID,
		Participants: args.Participants,
	})
	if err != nil {
		return nil, s.toolErr("create draft", err)
	}
	return d, nil
}

func (s *Server) handleDraftGet(ctx context.Context, args DraftArgs) (any, error) {
	d, err := s.engine.Lifecycle.GetDraft(ctx, args.DraftID)
	if err != nil {
		return nil, s.toolErr("get draft", err)
	}
	return d, nil
}

func (s *Server) handleStopAdd(ctx context.Context, args StopAddArgs) (any, error) {
	var (
		d   *outing.Draft
		err error
	)
	if args.VenueName == "" && args.Query != "" {
		d, err = s.engine.Edits.AddStopFromSearch(ctx, args.DraftID, args.Query, args.Notes, int(args.EstimatedTime), args.Actor)
	} else {
		d, err = s.engine.Edits.AddStop(ctx, args.DraftID, application.StopInput{
			VenueID:       args.VenueID,
			VenueName:     args.VenueName,
			Notes:         args.Notes,
			EstimatedTime: int(args.EstimatedTime),
		}, args.Actor)
	}
	if err != nil {
		return nil, s.toolErr("add stop", err)
	}
	return d, nil
}

func (s *Server) handleStopUpdate(ctx context.Context, args StopUpdateArgs) (any, error) {
	d, err := s.engine.Edits.UpdateStopField(ctx, args.DraftID, args.StopID, outing.StopField(args.Field), args.Value, args.Actor, version(args.ExpectedVersion))
	if err != nil {
		return nil, s.toolErr("update stop", err)
	}
	return d, nil
}

func (s *Server) handleStopDelete(ctx context.Context, args StopDeleteArgs) (any, error) {
	d, err := s.engine.Edits.DeleteStop(ctx, args.DraftID, args.StopID, args.Actor)
	if err != nil {
		return nil, s.toolErr("delete stop", err)
	}
	return d, nil
}

func (s *Server) handleStopReorder(ctx context.Context, args StopReorderArgs) (any, error) {
	d, err := s.engine.Edits.ReorderStop(ctx, args.DraftID, args.StopID, args.TargetStopID, args.Actor, version(args.ExpectedVersion))
	if err != nil {
		return nil, s.toolErr("reorder stop", err)
	}
	return d, nil
}

func (s *Server) handleToggleLock(ctx context.Context, args DraftActorArgs) (string, error) {
	d, err := s.engine.Lifecycle.ToggleLock(ctx, args.DraftID, args.Actor)
	if err != nil {
		return "", s.toolErr("toggle lock", err)
	}
	if d.IsLocked {
		return fmt.Sprintf("Draft %s locked at version %d", d.ID, d.Version), nil
	}
	return fmt.Sprintf("Draft %s unlocked at version %d", d.ID, d.Version), nil
}

func (s *Server) handleConvert(ctx context.Context, args DraftActorArgs) (any, error) {
	p, err := s.engine.Lifecycle.ConvertToLivePlan(ctx, args.DraftID, args.Actor)
	if err != nil {
		return nil, s.toolErr("convert draft", err)
	}
	return p, nil
}

func (s *Server) handlePlanGet(ctx context.Context, args PlanGetArgs) (any, error) {
	var (
		p   *outing.Plan
		err error
	)
	switch {
	case args.PlanID != "":
		p, err = s.engine.Progress.GetPlan(ctx, args.PlanID)
	case args.DraftID != "":
		p, err = s.engine.Lifecycle.GetPlanForDraft(ctx, args.DraftID)
	default:
		return nil, fmt.Errorf("get plan: plan_id or draft_id is required")
	}
	if err != nil {
		return nil, s.toolErr("get plan", err)
	}
	return p, nil
}

func (s *Server) handlePlanStart(ctx context.Context, args PlanActorArgs) (any, error) {
	p, err := s.engine.Progress.StartPlan(ctx, args.PlanID, args.Actor)
	if err != nil {
		return nil, s.toolErr("start plan", err)
	}
	return p, nil
}

func (s *Server) handlePlanCheckIn(ctx context.Context, args PlanCheckInArgs) (any, error) {
	p, err := s.engine.Progress.CheckIn(ctx, args.PlanID, args.StopID, args.Actor)
	if err != nil {
		return nil, s.toolErr("check in", err)
	}
	return p, nil
}

func (s *Server) handlePlanNext(ctx context.Context, args PlanActorArgs) (any, error) {
	p, err := s.engine.Progress.MoveToNext(ctx, args.PlanID, args.Actor)
	if err != nil {
		return nil, s.toolErr("move to next stop", err)
	}
	return p, nil
}

func (s *Server) handlePlanPing(ctx context.Context, args PlanPingArgs) (string, error) {
	if err := s.engine.Progress.PingGroup(ctx, args.PlanID, args.Actor, args.Message); err != nil {
		return "", s.toolErr("ping group", err)
	}
	return fmt.Sprintf("Group of plan %s pinged", args.PlanID), nil
}

func (s *Server) handleFriendStatusSet(ctx context.Context, args FriendStatusArgs) (any, error) {
	fs, err := s.engine.Attendance.SetFriendStatus(ctx, application.FriendStatusUpdate{
		PlanID:        args.PlanID,
		ParticipantID: args.ParticipantID,
		Status:        outing.AttendanceStatus(args.Status),
		ETA:           args.ETA,
		VenueID:       args.VenueID,
	}, args.ParticipantID)
	if err != nil {
		return nil, s.toolErr("set friend status", err)
	}
	return fs, nil
}

func (s *Server) handleStopAttendance(ctx context.Context, args StopAttendanceArgs) (any, error) {
	if args.StopID == "" {
		all, err := s.engine.Attendance.GetPlanAttendance(ctx, args.PlanID)
		if err != nil {
			return nil, s.toolErr("get attendance", err)
		}
		return all, nil
	}
	a, err := s.engine.Attendance.GetStopAttendance(ctx, args.PlanID, args.StopID)
	if err != nil {
		return nil, s.toolErr("get attendance", err)
	}
	return a, nil
}
