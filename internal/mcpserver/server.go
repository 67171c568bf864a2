// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Skriva journal tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/halvard/skriva/internal/apperr"
	"github.com/halvard/skriva/internal/entry"
	"github.com/halvard/skriva/internal/journal"
)

// Server wraps the MCP server with Skriva tools.
type Server struct {
	mcp *server.MCPServer
	svc *journal.Service
}

// New creates a new MCP server with all Skriva tools registered.
func New(svc *journal.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Skriva",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("read_entry",
		mcp.WithDescription("Read the journal entry for a date, including title, tags, mood rating, and any attached reflection."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Entry date in YYYY-MM-DD form")),
	), s.readEntry)

	s.mcp.AddTool(mcp.NewTool("write_entry",
		mcp.WithDescription("Create or replace the journal entry for a date. "+
			"The body MUST follow the canonical entry format (Markdown body; metadata "+
			"is supplied through the tool arguments, never inline). Read the contract "+
			"first via the get_entry_contract tool or the skriva://entry-format resource."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Entry date in YYYY-MM-DD form")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Markdown body of the entry")),
		mcp.WithString("title", mcp.Description("Optional title (defaults to the formatted date)")),
	), s.writeEntry)

	s.mcp.AddTool(mcp.NewTool("attach_reflection",
		mcp.WithDescription("Attach an AI reflection document to an existing entry. "+
			"The reflection is stored in the entry header and survives re-edits."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Entry date in YYYY-MM-DD form")),
		mcp.WithString("reflection", mcp.Required(), mcp.Description("Reflection document as a JSON object string")),
	), s.attachReflection)

	s.mcp.AddTool(mcp.NewTool("search_entries",
		mcp.WithDescription("Full-text search through entry bodies and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchEntries)

	s.mcp.AddTool(mcp.NewTool("list_entry_dates",
		mcp.WithDescription("List every date that has a journal entry, one ISO date per line."),
	), s.listEntryDates)

	s.mcp.AddTool(mcp.NewTool("get_entry_contract",
		mcp.WithDescription("Returns the canonical Skriva entry format contract. "+
			"Call this before writing entries to ensure correct structure."),
	), s.getEntryContract)

	// Resource: entry format contract.
	s.mcp.AddResource(
		mcp.NewResource("skriva://entry-format", "Entry Format Contract",
			mcp.WithResourceDescription("Canonical journal entry format that all entries must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntryFormatResource,
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

func requireDate(req mcp.CallToolRequest) (entry.Date, error) {
	raw, err := req.RequireString("date")
	if err != nil {
		return entry.Date{}, err
	}
	return entry.ParseDate(raw)
}

func (s *Server) readEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := requireDate(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.Get(ctx, d)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no entry for %s", d)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) writeEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := requireDate(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in := journal.EntryInput{Body: body}
	if title, titleErr := req.RequireString("title"); titleErr == nil && title != "" {
		in.Title = &title
	}
	if _, err := s.svc.Put(ctx, d, in); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", d)), nil
}

func (s *Server) attachReflection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := requireDate(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("reflection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var reflection map[string]any
	if err := json.Unmarshal([]byte(raw), &reflection); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reflection is not a JSON object: %v", err)), nil
	}
	if len(reflection) == 0 {
		return mcp.NewToolResultError("reflection must not be empty"), nil
	}
	if _, err := s.svc.AttachReflection(ctx, d, reflection); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no entry for %s", d)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("reflection attached: %s", d)), nil
}

func (s *Server) searchEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type hit struct {
		Date    string `json:"date"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	}
	hits := make([]hit, len(results))
	for i, r := range results {
		hits[i] = hit{Date: r.Date.String(), Title: r.Title, Snippet: r.Snippet}
	}
	out, _ := json.MarshalIndent(hits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listEntryDates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dates, err := s.svc.Dates(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(dates) == 0 {
		return mcp.NewToolResultText("no entries yet"), nil
	}
	lines := make([]string, len(dates))
	for i, d := range dates {
		lines[i] = d.String()
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getEntryContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EntryFormatContract), nil
}

func (s *Server) readEntryFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "skriva://entry-format",
			MIMEType: "text/markdown",
			Text:     EntryFormatContract,
		},
	}, nil
}
