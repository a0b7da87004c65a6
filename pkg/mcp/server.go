// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp exposes the extension host over the Model Context Protocol and
// provides a small client for talking to such servers.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jllopis/pi-extensions/pkg/core"
	"github.com/jllopis/pi-extensions/pkg/extension"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SystemPromptName is the MCP prompt that returns the system prompt after
// every before_agent_start handler has run.
const SystemPromptName = "system_prompt"

// Server wraps the mcp-go server and routes calls into an extension host.
type Server struct {
	mcpServer *server.MCPServer
	host      *extension.Host
	logger    *slog.Logger
	cwd       string

	mu        sync.Mutex
	sessionID string
	started   bool
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWorkingDir sets the working directory reported to extensions.
func WithWorkingDir(dir string) ServerOption {
	return func(s *Server) {
		s.cwd = dir
	}
}

// NewServer creates an MCP server exposing every tool registered on host.
// The whole server lifetime is one extension session.
func NewServer(name, version string, host *extension.Host, opts ...ServerOption) (*Server, error) {
	s := &Server{
		mcpServer: server.NewMCPServer(name, version,
			server.WithToolCapabilities(false),
			server.WithPromptCapabilities(false),
		),
		host:      host,
		logger:    slog.Default(),
		sessionID: core.NewSessionID(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, tool := range host.Tools() {
		if err := s.registerTool(tool); err != nil {
			return nil, err
		}
	}
	s.mcpServer.AddPrompt(
		mcp.NewPrompt(SystemPromptName,
			mcp.WithPromptDescription("System prompt after extension injection"),
			mcp.WithArgument("system", mcp.ArgumentDescription("Base system prompt")),
			mcp.WithArgument("prompt", mcp.ArgumentDescription("User prompt for the coming turn")),
		),
		s.handleSystemPrompt,
	)
	return s, nil
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves MCP over stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP serves MCP over streamable HTTP until ctx is cancelled.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(addr)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return httpServer.Shutdown(context.WithoutCancel(ctx))
	}
}

func (s *Server) registerTool(tool extension.Tool) error {
	def := tool.Definition()
	schema, err := def.SchemaJSON()
	if err != nil {
		return fmt.Errorf("tool %s schema: %w", tool.Name(), err)
	}
	name := tool.Name()
	s.mcpServer.AddTool(
		mcp.NewToolWithRawSchema(name, def.Function.Description, schema),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return s.callTool(ctx, name, req)
		},
	)
	return nil
}

// session starts the extension session on first use so session_start
// handlers run once per server.
func (s *Server) session(ctx context.Context) *extension.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	ec := &extension.Context{Cwd: s.cwd, SessionID: s.sessionID}
	if !s.started {
		s.started = true
		if err := s.host.StartSession(ctx, ec); err != nil {
			s.logger.WarnContext(ctx, "mcp.session.start_error", slog.String("error", err.Error()))
		}
	}
	return ec
}

func (s *Server) callTool(ctx context.Context, name string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.Params.Arguments
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	outcome, err := s.host.ExecuteTool(ctx, name, raw, s.session(ctx))
	if err != nil {
		return nil, err
	}
	return toolResult(outcome), nil
}

func (s *Server) handleSystemPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	ev := extension.BeforeAgentStartEvent{
		Prompt:       req.Params.Arguments["prompt"],
		SystemPrompt: req.Params.Arguments["system"],
	}
	prompt, err := s.host.BeforeAgentStart(ctx, ev, s.session(ctx))
	if err != nil {
		s.logger.WarnContext(ctx, "mcp.prompt.handler_error", slog.String("error", err.Error()))
	}
	return mcp.NewGetPromptResult(
		"System prompt after extension injection",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(prompt)),
		},
	), nil
}

func toolResult(outcome extension.Outcome) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(outcome.Content))
	for _, c := range outcome.Content {
		content = append(content, mcp.TextContent{Type: "text", Text: c.Text})
	}
	return &mcp.CallToolResult{
		Content:           content,
		StructuredContent: outcome.Details,
		IsError:           outcome.Failed(),
	}
}
