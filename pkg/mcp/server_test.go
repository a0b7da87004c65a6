// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jllopis/pi-extensions/pkg/audit"
	"github.com/jllopis/pi-extensions/pkg/errors"
	"github.com/jllopis/pi-extensions/pkg/extension"
	pimcp "github.com/jllopis/pi-extensions/pkg/mcp"
	"github.com/jllopis/pi-extensions/pkg/soul"
	ptesting "github.com/jllopis/pi-extensions/pkg/testing"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type stubExtension struct {
	tools []extension.Tool
}

func (s *stubExtension) Name() string { return "stub" }

func (s *stubExtension) Register(api extension.API) error {
	for _, tool := range s.tools {
		if err := api.RegisterTool(tool); err != nil {
			return err
		}
	}
	return nil
}

func newTestClient(t *testing.T, host *extension.Host, cwd string) *pimcp.Client {
	t.Helper()
	srv, err := pimcp.NewServer("piext-test", "test", host, pimcp.WithWorkingDir(cwd))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	httpServer := server.NewTestStreamableHTTPServer(srv.MCPServer())
	t.Cleanup(httpServer.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := pimcp.NewClientWithStreamableHTTP(ctx, httpServer.URL, pimcp.WithRetry(0, 0))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestServerListsHostTools(t *testing.T) {
	echo := ptesting.NewStubTool("echo").WithSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
	})
	host := extension.NewHost()
	if err := host.Load(&stubExtension{tools: []extension.Tool{echo, ptesting.NewStubTool("other")}}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	client := newTestClient(t, host, t.TempDir())

	tools, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Name] = true
	}
	if !names["echo"] || !names["other"] {
		t.Fatalf("unexpected tools: %v", names)
	}
}

func TestServerCallTool(t *testing.T) {
	echo := ptesting.NewStubTool("echo").OnExecute(func(_ context.Context, params json.RawMessage) extension.Outcome {
		var p struct {
			Text string `json:"text"`
		}
		_ = json.Unmarshal(params, &p)
		return extension.TextOutcome("echo: "+p.Text, map[string]any{"length": len(p.Text)})
	})
	store := audit.NewMemoryStore()
	host := extension.NewHost(extension.WithAuditStore(store))
	if err := host.Load(&stubExtension{tools: []extension.Tool{echo}}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	client := newTestClient(t, host, t.TempDir())

	res, err := client.CallTool(context.Background(), "echo", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result")
	}
	if got := pimcp.TextContent(res.Content); got != "echo: hi" {
		t.Fatalf("unexpected text %q", got)
	}
	if echo.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", echo.CallCount())
	}
	if echo.Calls()[0].SessionID == "" {
		t.Fatalf("expected session id on call")
	}

	records, err := store.List(context.Background(), audit.Filter{Name: "echo"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(records))
	}
}

func TestServerCallToolFailure(t *testing.T) {
	failing := ptesting.NewStubTool("fail").
		WithDefaultOutcome(extension.FailureOutcome(errors.CodeAPIError, "upstream broke", nil))
	host := extension.NewHost()
	if err := host.Load(&stubExtension{tools: []extension.Tool{failing}}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	client := newTestClient(t, host, t.TempDir())

	res, err := client.CallTool(context.Background(), "fail", nil)
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected error result")
	}
	if got := pimcp.TextContent(res.Content); got != "upstream broke" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestServerSystemPrompt(t *testing.T) {
	project := t.TempDir()
	if err := os.WriteFile(filepath.Join(project, soul.FileName), []byte("  I am calm.  \n"), 0o644); err != nil {
		t.Fatalf("write soul: %v", err)
	}
	host := extension.NewHost()
	if err := host.Load(soul.NewExtension(soul.Locations{})); err != nil {
		t.Fatalf("Load: %v", err)
	}
	client := newTestClient(t, host, project)

	res, err := client.GetPrompt(context.Background(), pimcp.SystemPromptName, map[string]string{
		"system": "You are helpful.",
		"prompt": "hello",
	})
	if err != nil {
		t.Fatalf("GetPrompt: %v", err)
	}
	if len(res.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(res.Messages))
	}
	got := pimcp.TextContent([]mcp.Content{res.Messages[0].Content})
	if want := "I am calm.\n\n---\n\nYou are helpful."; got != want {
		t.Fatalf("unexpected prompt %q", got)
	}
}
