// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Recall tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/memoryservice"
	"github.com/starford/recall/internal/models"
	"github.com/starford/recall/internal/structure"
)

// Server wraps the MCP server with Recall tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *memoryservice.Service
	owner string
}

// New creates a new MCP server acting on behalf of owner.
func New(svc *memoryservice.Service, owner string) *Server {
	s := &Server{svc: svc, owner: owner}

	s.mcp = server.NewMCPServer(
		"Recall",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("capture_note",
		mcp.WithDescription("Save a note as a memory. It is classified, and a reminder "+
			"is created when it mentions a date. Read "+policyURI+" for the rules."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The note text, as the user said it")),
	), s.captureNote)

	s.mcp.AddTool(mcp.NewTool("search_memories",
		mcp.WithDescription("Search memories by text, optionally filtered by category."),
		mcp.WithString("query", mcp.Description("Text to look for in summaries and transcripts")),
		mcp.WithString("category", mcp.Description("Category filter"), mcp.Enum("task", "reminder", "idea", "note")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchMemories)

	s.mcp.AddTool(mcp.NewTool("get_memory",
		mcp.WithDescription("Get a memory with its full transcript."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Memory ID")),
	), s.getMemory)

	s.mcp.AddTool(mcp.NewTool("list_reminders",
		mcp.WithDescription("List open reminders grouped into Today, This Week and Later, "+
			"or as a flat list."),
		mcp.WithString("view", mcp.Description("grouped (default) or flat"), mcp.Enum("grouped", "flat")),
		mcp.WithBoolean("include_completed", mcp.Description("Include completed reminders (flat view only)")),
	), s.listReminders)

	s.mcp.AddTool(mcp.NewTool("create_reminder",
		mcp.WithDescription("Create a reminder, optionally linked to a memory."),
		mcp.WithString("description", mcp.Required(), mcp.Description("What to be reminded of")),
		mcp.WithString("due_date", mcp.Required(), mcp.Description("Due date, e.g. 2025-11-26 or 2025-11-26T17:00")),
		mcp.WithString("memory_id", mcp.Description("Memory to link the reminder to")),
	), s.createReminder)

	s.mcp.AddTool(mcp.NewTool("complete_reminder",
		mcp.WithDescription("Mark a reminder completed, or reopen it."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		mcp.WithBoolean("completed", mcp.Description("false reopens the reminder (default true)")),
	), s.completeReminder)

	// Resource: classification policy.
	s.mcp.AddResource(
		mcp.NewResource(policyURI, "Classification Policy",
			mcp.WithResourceDescription("How captured notes are summarized, categorized and dated."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPolicyResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrTranscription):
		return mcp.NewToolResultError("could not process recording")
	case errors.Is(err, apperr.ErrPersistence):
		return mcp.NewToolResultError("memory was not saved, try again")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) captureNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.CreateFromText(ctx, s.owner, text, "")
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) searchMemories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.Search(ctx, models.SearchParams{
		OwnerID:  s.owner,
		Query:    strings.TrimSpace(req.GetString("query", "")),
		Category: models.Category(req.GetString("category", "")),
		Limit:    req.GetInt("limit", 20),
	})
	if err != nil {
		return toolError(err), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no memories found"), nil
	}
	return jsonResult(items), nil
}

func (s *Server) getMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.GetMemory(ctx, s.owner, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(m), nil
}

func (s *Server) listReminders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetString("view", "grouped") == "flat" {
		items, err := s.svc.ListReminders(ctx, s.owner, req.GetBool("include_completed", false))
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(items), nil
	}
	groups, err := s.svc.GroupedReminders(ctx, s.owner)
	if err != nil {
		return toolError(err), nil
	}
	if len(groups) == 0 {
		return mcp.NewToolResultText("no open reminders"), nil
	}
	return jsonResult(groups), nil
}

func (s *Server) createReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	desc, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawDue, err := req.RequireString("due_date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	due, ok := structure.ParseDate(rawDue, s.svc.Now().Location())
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("invalid due_date: %s", rawDue)), nil
	}
	r, err := s.svc.CreateReminder(ctx, s.owner, memoryservice.NewReminder{
		MemoryID:    req.GetString("memory_id", ""),
		Description: desc,
		DueDate:     due,
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(r), nil
}

func (s *Server) completeReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := s.svc.SetReminderCompleted(ctx, s.owner, id, req.GetBool("completed", true))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(r), nil
}

func (s *Server) readPolicyResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      policyURI,
			MIMEType: "text/markdown",
			Text:     PolicyDocument,
		},
	}, nil
}
