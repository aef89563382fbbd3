// Package mcp exposes the calculator over the Model Context Protocol so
// AI assistants can drive sessions as tools.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tallyhq/tally/pkg/calc"
	"github.com/tallyhq/tally/pkg/session"
)

// Server wraps the session store to provide MCP tool access.
type Server struct {
	store          *session.Store
	defaultSession string
	server         *server.MCPServer
}

// NewServer creates a new MCP server over the given session store.
// defaultSession names the session used when a tool call omits one.
func NewServer(store *session.Store, defaultSession, version string) *Server {
	s := &Server{
		store:          store,
		defaultSession: defaultSession,
	}
	if s.defaultSession == "" {
		s.defaultSession = "default"
	}

	mcpServer := server.NewMCPServer(
		"tally",
		version,
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)

	s.server = mcpServer
	return s
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	// press - feed keystrokes to a calculator session
	mcpServer.AddTool(
		mcp.NewTool("press",
			mcp.WithDescription("Press calculator keys. Digits 0-9, '.', operators + - * / (or × ÷), '=' to evaluate. Returns the display after the keys are applied."),
			mcp.WithString("keys",
				mcp.Required(),
				mcp.Description("Keystroke sequence (e.g. '12+3=')"),
			),
			mcp.WithString("session",
				mcp.Description("Session id (default: 'default')"),
			),
		),
		s.handlePress,
	)

	// display - read the current display
	mcpServer.AddTool(
		mcp.NewTool("display",
			mcp.WithDescription("Read the calculator display: the pending-operation line and the current value."),
			mcp.WithString("session",
				mcp.Description("Session id (default: 'default')"),
			),
		),
		s.handleDisplay,
	)

	// clear - reset a session
	mcpServer.AddTool(
		mcp.NewTool("clear",
			mcp.WithDescription("Clear the calculator, resetting it to 0."),
			mcp.WithString("session",
				mcp.Description("Session id (default: 'default')"),
			),
		),
		s.handleClear,
	)

	// sessions - list active sessions
	mcpServer.AddTool(
		mcp.NewTool("sessions",
			mcp.WithDescription("List active calculator sessions."),
		),
		s.handleSessions,
	)
}

// handlePress handles the press tool.
func (s *Server) handlePress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keys := request.GetString("keys", "")
	if keys == "" {
		return mcp.NewToolResultError("keys parameter is required"), nil
	}

	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open session: %v", err)), nil
	}

	st, err := sess.ApplyKeys(keys)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("press failed: %v", err)), nil
	}
	_ = sess.Save()

	return mcp.NewToolResultText(formatDisplay(st)), nil
}

// handleDisplay handles the display tool.
func (s *Server) handleDisplay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open session: %v", err)), nil
	}

	return mcp.NewToolResultText(formatDisplay(sess.State())), nil
}

// handleClear handles the clear tool.
func (s *Server) handleClear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open session: %v", err)), nil
	}

	st := sess.Reset()
	_ = sess.Save()
	return mcp.NewToolResultText(formatDisplay(st)), nil
}

// handleSessions handles the sessions tool.
func (s *Server) handleSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := s.store.List()
	if len(ids) == 0 {
		return mcp.NewToolResultText("No active sessions."), nil
	}

	var sb strings.Builder
	sb.WriteString("Active sessions:\n")
	for _, id := range ids {
		sess, ok := s.store.Lookup(id)
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", id, sess.State().ValueLine()))
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// session resolves the session named in a tool call, creating it on
// first use.
func (s *Server) session(request mcp.CallToolRequest) (session.Session, error) {
	id := request.GetString("session", s.defaultSession)
	if id == "" {
		id = s.defaultSession
	}
	return s.store.Get(id)
}

// formatDisplay renders the two display projections as tool output.
func formatDisplay(st calc.State) string {
	if h := st.HistoryLine(); h != "" {
		return h + "\n" + st.ValueLine()
	}
	return st.ValueLine()
}

// ServeStdio starts the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.server)
}
