// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Gebo page-sync tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gebo/internal/annotation"
	"github.com/starford/gebo/internal/blocktree"
	"github.com/starford/gebo/internal/engine"
	"github.com/starford/gebo/internal/notebook"
	"github.com/starford/gebo/internal/store"
)

// Server wraps the MCP server with Gebo tools.
type Server struct {
	mcp      *server.MCPServer
	sched    *engine.Scheduler
	notebook notebook.Adapter
	states   store.StateStore
}

// New creates a new MCP server with all Gebo tools registered.
func New(sched *engine.Scheduler, nb notebook.Adapter, states store.StateStore) *Server {
	s := &Server{sched: sched, notebook: nb, states: states}

	s.mcp = server.NewMCPServer(
		"Gebo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_shared_pages",
		mcp.WithDescription("List the notebook pages that currently have a shared document state."),
	), s.listSharedPages)

	s.mcp.AddTool(mcp.NewTool("get_page_state",
		mcp.WithDescription("Encode a notebook page into its flat shared document (content plus annotations) and return it as JSON."),
		mcp.WithString("page", mcp.Required(), mcp.Description("Page title (e.g. Inbox)")),
	), s.getPageState)

	s.mcp.AddTool(mcp.NewTool("apply_page_state",
		mcp.WithDescription("Apply a shared document to a notebook page, mutating its block tree to match. "+
			"The state MUST follow the canonical shared document format. Read the contract first via "+
			"the get_state_contract tool or the gebo://state-format resource."),
		mcp.WithString("page", mcp.Required(), mcp.Description("Page title to reconcile")),
		mcp.WithString("state", mcp.Required(), mcp.Description("Shared document as a JSON string following the state format contract")),
	), s.applyPageState)

	s.mcp.AddTool(mcp.NewTool("get_page_outline",
		mcp.WithDescription("Read a page's block tree as an indented Markdown outline."),
		mcp.WithString("page", mcp.Required(), mcp.Description("Page title to read")),
	), s.getPageOutline)

	s.mcp.AddTool(mcp.NewTool("get_state_contract",
		mcp.WithDescription("Returns the canonical Gebo shared document format contract. "+
			"Call this before applying page states to ensure correct structure."),
	), s.getStateContract)

	// Resource: shared document format contract.
	s.mcp.AddResource(
		mcp.NewResource("gebo://state-format", "Shared Document Format Contract",
			mcp.WithResourceDescription("Canonical flat document format that all applied page states must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readStateFormatResource,
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

func (s *Server) listSharedPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.states.Pages()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(pages) == 0 {
		return mcp.NewToolResultText("no shared pages"), nil
	}
	return mcp.NewToolResultText(strings.Join(pages, "\n")), nil
}

func (s *Server) getPageState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := req.RequireString("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, sum, err := s.sched.EncodeNow(ctx, page)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode %s: %v", page, err)), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"page":     page,
		"checksum": sum,
		"state":    doc,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) applyPageState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := req.RequireString("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var doc annotation.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid state JSON: %v", err)), nil
	}
	if err := doc.Validate(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid state: %v", err)), nil
	}

	ops, err := s.sched.ApplyRemote(ctx, page, &doc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("apply to %s: %v", page, err)), nil
	}
	if len(ops) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("%s already converged, no mutations", page)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "applied %d mutations to %s:\n", len(ops), page)
	for _, op := range ops {
		fmt.Fprintf(&b, "- %s %s\n", op.Kind, op.Target())
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getPageOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := req.RequireString("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tree, err := s.notebook.PageTree(ctx, page)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("page not found: %s", page)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", page)
	writeOutline(&b, tree, 0)
	return mcp.NewToolResultText(b.String()), nil
}

func writeOutline(b *strings.Builder, nodes []*blocktree.Node, depth int) {
	for _, n := range nodes {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString("- ")
		b.WriteString(strings.ReplaceAll(n.Content, "\n", " "))
		b.WriteString("\n")
		writeOutline(b, n.Children, depth+1)
	}
}

func (s *Server) getStateContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(StateFormatContract), nil
}

func (s *Server) readStateFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "gebo://state-format",
			MIMEType: "text/markdown",
			Text:     StateFormatContract,
		},
	}, nil
}
