// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jllopis/pi-extensions/pkg/errors"
	"github.com/jllopis/pi-extensions/pkg/extension"
	pimcp "github.com/jllopis/pi-extensions/pkg/mcp"
	ptesting "github.com/jllopis/pi-extensions/pkg/testing"
)

// testEnv isolates a CLI run from the real home directory and credentials.
type testEnv struct {
	project string
	home    string
	sets    []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("BRAVE_API_KEY", "")
	root := t.TempDir()
	env := &testEnv{
		project: filepath.Join(root, "project"),
		home:    filepath.Join(root, "home"),
	}
	require.NoError(t, os.MkdirAll(env.project, 0o755))
	require.NoError(t, os.MkdirAll(env.home, 0o755))
	env.sets = []string{
		"soul.project_dir=" + env.project,
		"soul.home_dir=" + env.home,
		"soul.extension_dir=" + filepath.Join(root, "ext", "a", "b"),
		"log.format=none",
		"search.rate_limit=0",
	}
	return env
}

func (e *testEnv) set(kv string) *testEnv {
	e.sets = append(e.sets, kv)
	return e
}

func (e *testEnv) writeSoul(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(e.project, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (e *testEnv) execute(args ...string) (string, string, error) {
	full := make([]string, 0, len(args)+2*len(e.sets))
	for _, kv := range e.sets {
		full = append(full, "--set", kv)
	}
	full = append(full, args...)
	return execute(full...)
}

func execute(args ...string) (string, string, error) {
	cmd := newRootCmd()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func braveServer(t *testing.T, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

const twoResults = `{"web":{"results":[
	{"title":"A","url":"http://a","description":"d1"},
	{"title":"B","url":"http://b","description":"d2"}
]}}`

func TestVersionCmd(t *testing.T) {
	out, _, err := execute("version")

	require.NoError(t, err)
	assert.Equal(t, "piext version dev\n", out)
}

func TestRootCmd_RejectsUnknownOutput(t *testing.T) {
	_, _, err := execute("--output", "xml", "version")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"config", "set", "profile", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag %s", name)
	}
	assert.Equal(t, "o", cmd.PersistentFlags().Lookup("output").Shorthand)
}

func TestRootCmd_ConfigFileAndSetLayering(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "piext.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"soul:\n  mode: static\n  default_text: From file.\n"), 0o644))
	env.set("soul.static_path=" + filepath.Join(t.TempDir(), "missing.md")).
		set("soul.default_text=From flag.")

	out, _, err := env.execute("--config", path, "soul", "prompt", "--system", "base")

	require.NoError(t, err)
	assert.Equal(t, "From flag.\n\n---\n\nbase\n", out)
}

func TestRootCmd_RejectsMalformedSet(t *testing.T) {
	_, _, err := execute("--set", "no-equals", "session")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
	assert.Contains(t, err.Error(), "no-equals")
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	_, _, err := execute("search")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestSearchCmd_HasCountFlag(t *testing.T) {
	flag := newSearchCmd(&rootOptions{}).Flags().Lookup("count")
	require.NotNil(t, flag)
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "5", flag.DefValue)
}

func TestSearchCmd_PrintsResults(t *testing.T) {
	srv, calls := braveServer(t, twoResults)
	env := newTestEnv(t).
		set("search.base_url=" + srv.URL).
		set("search.api_key=test-key")

	out, _, err := env.execute("search", "golang", "generics", "-n", "2")

	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t,
		"Search results for \"golang generics\":\n\n1. A\n   URL: http://a\n   d1\n\n2. B\n   URL: http://b\n   d2\n",
		out)
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	srv, _ := braveServer(t, `{"web":{"results":[]}}`)
	env := newTestEnv(t).
		set("search.base_url=" + srv.URL).
		set("search.api_key=test-key")

	out, _, err := env.execute("-o", "json", "search", "xyzzy")
	require.NoError(t, err)

	var res toolResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "brave_search", res.Tool)
	assert.Equal(t, "No results found for: xyzzy", res.Text)
	assert.Empty(t, res.Error)
	details, ok := res.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(0), details["count"])
}

func TestSearchCmd_MissingAPIKey(t *testing.T) {
	srv, calls := braveServer(t, twoResults)
	env := newTestEnv(t).set("search.base_url=" + srv.URL)

	out, _, err := env.execute("search", "anything")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeMissingAPIKey))
	assert.Empty(t, out)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))

	var ce *CLIError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Hint, "BRAVE_API_KEY")
}

func TestSearchCmd_DisabledExtension(t *testing.T) {
	env := newTestEnv(t).set(`extensions.enabled=["soul"]`)

	_, _, err := env.execute("search", "anything")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestSoulCmd_ReportsPath(t *testing.T) {
	env := newTestEnv(t)
	env.writeSoul(t, "SOUL.md", "root soul")
	want := env.writeSoul(t, filepath.Join(".pi", "SOUL.md"), "config soul")

	out, _, err := env.execute("soul")

	require.NoError(t, err)
	assert.Equal(t, "Soul: "+want+"\n", out)
}

func TestSoulCmd_NoDocument(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.execute("soul")

	require.NoError(t, err)
	assert.Equal(t, "[warning] No SOUL.md found\n", out)
}

func TestSoulPromptCmd_Injects(t *testing.T) {
	env := newTestEnv(t)
	env.writeSoul(t, "SOUL.md", "\n  Be kind.  \n")

	out, _, err := env.execute("soul", "prompt", "--system", "You are an agent.")

	require.NoError(t, err)
	assert.Equal(t, "Be kind.\n\n---\n\nYou are an agent.\n", out)
}

func TestSoulPromptCmd_StaticDefault(t *testing.T) {
	env := newTestEnv(t).
		set("soul.mode=static").
		set("soul.static_path=" + filepath.Join(t.TempDir(), "missing.md")).
		set("soul.default_text=Stay curious.")

	out, _, err := env.execute("-o", "yaml", "soul", "prompt", "--system", "base")
	require.NoError(t, err)

	var res map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Stay curious.\n\n---\n\nbase", res["system_prompt"])
	assert.Equal(t, "☯ default", res["status"])
}

func TestSessionCmd_JSON(t *testing.T) {
	env := newTestEnv(t)
	env.writeSoul(t, "SOUL.md", "identity")

	out, _, err := env.execute("--output", "json", "session", "--system", "sys")
	require.NoError(t, err)

	var res sessionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, []string{"brave_search"}, res.Tools)
	assert.Equal(t, "identity\n\n---\n\nsys", res.SystemPrompt)
	assert.Equal(t, "☯ SOUL.md", res.Status["soul"])
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, extension.LevelWarning, res.Notifications[0].Level)
	assert.Equal(t, "Brave Search: BRAVE_API_KEY not set", res.Notifications[0].Message)
	require.Len(t, res.Commands, 1)
	assert.Equal(t, "soul", res.Commands[0].Name)
}

func TestStatusCmd_DegradedWithoutKey(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.execute("-o", "json", "status")
	require.NoError(t, err)

	var res statusResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "DEGRADED", string(res.Overall))
	assert.Equal(t, []string{"brave-search", "soul"}, res.Extensions)
}

func TestStatusCmd_Text(t *testing.T) {
	env := newTestEnv(t).set("search.api_key=k")

	out, _, err := env.execute("status")

	require.NoError(t, err)
	assert.Contains(t, out, "COMPONENT")
	assert.Contains(t, out, "brave-search")
	assert.Contains(t, out, "HEALTHY")
}

func TestAuditListCmd_SQLite(t *testing.T) {
	srv, _ := braveServer(t, twoResults)
	dsn := filepath.Join(t.TempDir(), "audit.db")
	env := newTestEnv(t).
		set("search.base_url=" + srv.URL).
		set("search.api_key=k").
		set("audit.enabled=true").
		set("audit.driver=sqlite").
		set("audit.dsn=" + dsn)

	_, _, err := env.execute("search", "first")
	require.NoError(t, err)
	_, _, err = env.execute("search", "second")
	require.NoError(t, err)

	out, _, err := env.execute("-o", "json", "audit", "list", "--kind", "tool")
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "brave_search", rec["name"])
		assert.Equal(t, "ok", rec["outcome"])
	}
}

func TestAuditListCmd_Disabled(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.execute("audit", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit is disabled")
}

func TestAuditListCmd_RejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t).set("audit.enabled=true")

	_, _, err := env.execute("audit", "list", "--kind", "bogus")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestMCPClientCmds(t *testing.T) {
	tool := ptesting.NewStubTool("echo").
		WithDefaultOutcome(extension.TextOutcome("pong", map[string]any{"n": 1}))
	host := extension.NewHost()
	require.NoError(t, host.RegisterTool(tool))
	srv, err := pimcp.NewServer("piext-test", "test", host)
	require.NoError(t, err)
	httpServer := server.NewTestStreamableHTTPServer(srv.MCPServer())
	t.Cleanup(httpServer.Close)

	out, _, err := execute("mcp", "tools", "--url", httpServer.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "echo")
	assert.Contains(t, out, "stub tool echo")

	out, _, err = execute("mcp", "call", "echo", "--url", httpServer.URL, "--args", `{"x":1}`)
	require.NoError(t, err)
	assert.Equal(t, "pong\n", out)
	assert.Equal(t, 1, tool.CallCount())
}

func TestMCPCallCmd_RemoteFailure(t *testing.T) {
	tool := ptesting.NewStubTool("broken").
		WithDefaultOutcome(extension.FailureOutcome(errors.CodeAPIError, "Brave Search API error: 500 Internal Server Error\n",
			map[string]any{"error": "api_error", "status": 500}))
	host := extension.NewHost()
	require.NoError(t, host.RegisterTool(tool))
	srv, err := pimcp.NewServer("piext-test", "test", host)
	require.NoError(t, err)
	httpServer := server.NewTestStreamableHTTPServer(srv.MCPServer())
	t.Cleanup(httpServer.Close)

	out, _, err := execute("mcp", "call", "broken", "--url", httpServer.URL)

	require.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, err.Error(), "Brave Search API error: 500")
}

func TestMCPCallCmd_InvalidArgs(t *testing.T) {
	_, _, err := execute("mcp", "call", "echo", "--args", "not json")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestPrintError(t *testing.T) {
	err := NewNotFoundError("tool", "nope")

	var text bytes.Buffer
	printError(&text, err, false)
	assert.Equal(t,
		"Error [not_found]: tool 'nope' not found\n  Hint: check that the tool is enabled in extensions.enabled\n",
		text.String())

	var js bytes.Buffer
	printError(&js, err, true)
	var payload map[string]map[string]string
	require.NoError(t, json.Unmarshal(js.Bytes(), &payload))
	assert.Equal(t, "not_found", payload["error"]["code"])
	assert.Equal(t, "tool 'nope' not found", payload["error"]["message"])
}

func TestRun_ExitCodes(t *testing.T) {
	assert.Equal(t, 0, run(context.Background(), []string{"version"}))
	assert.Equal(t, 1, run(context.Background(), []string{"--output", "xml", "version"}))
}
