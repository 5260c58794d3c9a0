// Package mcpserver exposes reminder operations as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hray3182/remindbot/internal/command"
	"github.com/hray3182/remindbot/internal/reminder"
)

const (
	serverName    = "remindbot"
	serverVersion = "1.0.0"
)

// Trigger runs a secret-guarded scan.
type Trigger interface {
	Trigger(ctx context.Context, secret string, now time.Time) (reminder.Summary, error)
}

// Server is the MCP server for reminder management.
type Server struct {
	mcpServer *server.MCPServer
	reminders *reminder.Service
	trigger   Trigger
	now       func() time.Time
}

// reminderView is the JSON shape returned by the tools. Times are rendered in
// the service's display zone.
type reminderView struct {
	Index      int    `json:"index,omitempty"`
	ID         string `json:"id"`
	Body       string `json:"body"`
	DueAt      string `json:"due_at"`
	IsNotified bool   `json:"is_notified"`
	IsComplete bool   `json:"is_completed,omitempty"`
}

func NewServer(reminders *reminder.Service, trigger Trigger) *Server {
	s := &Server{
		reminders: reminders,
		trigger:   trigger,
		now:       time.Now,
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("add_reminder",
			mcp.WithDescription("Add a reminder from text in the form 'M/D H:MM body', e.g. '3/20 9:00 A廠商開會'. The year is the current year."),
			mcp.WithString("owner_id", mcp.Required(), mcp.Description("Owner (Telegram user id)")),
			mcp.WithString("text", mcp.Required(), mcp.Description("Reminder command text")),
		),
		s.handleAddReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_reminders",
			mcp.WithDescription("List the owner's reminders that are not completed, earliest first"),
			mcp.WithString("owner_id", mcp.Required(), mcp.Description("Owner (Telegram user id)")),
		),
		s.handleListReminders,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("complete_reminder",
			mcp.WithDescription("Mark one of the owner's reminders as completed"),
			mcp.WithString("owner_id", mcp.Required(), mcp.Description("Owner (Telegram user id)")),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleCompleteReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("delete_reminder",
			mcp.WithDescription("Delete one of the owner's reminders permanently"),
			mcp.WithString("owner_id", mcp.Required(), mcp.Description("Owner (Telegram user id)")),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleDeleteReminder,
	)

	if s.trigger != nil {
		s.mcpServer.AddTool(
			mcp.NewTool("run_notification_scan",
				mcp.WithDescription("Notify every reminder due within the lookahead window that has not been notified yet"),
				mcp.WithString("api_key", mcp.Required(), mcp.Description("Shared scan secret")),
			),
			s.handleRunScan,
		)
	}
}

func (s *Server) handleAddReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner := req.GetString("owner_id", "")
	text := req.GetString("text", "")

	r, err := s.reminders.CreateFromText(ctx, owner, text)
	if err != nil {
		return toolError("add reminder", err), nil
	}

	return jsonResult(reminderView{
		ID:    r.ID,
		Body:  r.Body,
		DueAt: reminder.FormatConfirmTime(r.DueAt, s.reminders.Location()),
	})
}

func (s *Server) handleListReminders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.reminders.ListPending(ctx, req.GetString("owner_id", ""))
	if err != nil {
		return toolError("list reminders", err), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("No reminders found."), nil
	}

	views := make([]reminderView, 0, len(items))
	for _, item := range items {
		views = append(views, reminderView{
			Index:      item.Index,
			ID:         item.ID,
			Body:       item.Body,
			DueAt:      reminder.FormatConfirmTime(item.DueAtLocal, s.reminders.Location()),
			IsNotified: item.IsNotified,
		})
	}
	return jsonResult(views)
}

func (s *Server) handleCompleteReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := s.reminders.CompleteReminder(ctx, req.GetString("owner_id", ""), req.GetString("id", ""))
	if err != nil {
		return toolError("complete reminder", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reminder %s marked as completed: %s", r.ID, r.Body)), nil
}

func (s *Server) handleDeleteReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := s.reminders.DeleteReminder(ctx, req.GetString("owner_id", ""), req.GetString("id", ""))
	if err != nil {
		return toolError("delete reminder", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reminder %s deleted: %s", r.ID, r.Body)), nil
}

func (s *Server) handleRunScan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.trigger.Trigger(ctx, req.GetString("api_key", ""), s.now())
	if err != nil {
		return toolError("run notification scan", err), nil
	}
	return jsonResult(map[string]int{
		"candidates": sum.Candidates,
		"notified":   sum.Notified,
		"failed":     sum.Failed,
		"skipped":    sum.Skipped,
	})
}

// toolError maps the error taxonomy to a tool error without leaking backend
// detail.
func toolError(op string, err error) *mcp.CallToolResult {
	var pe *command.ParseError
	var ve *reminder.ValidationError
	switch {
	case errors.As(err, &pe):
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s: expected 'M/D H:MM body'", op, pe.Kind))
	case errors.As(err, &ve):
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", op, ve))
	case errors.Is(err, reminder.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("%s: reminder not found", op))
	case errors.Is(err, reminder.ErrUnauthorized):
		return mcp.NewToolResultError(fmt.Sprintf("%s: unauthorized", op))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("%s: backend unavailable, try again later", op))
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(output)), nil
}
