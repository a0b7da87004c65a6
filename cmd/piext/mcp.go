// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/jllopis/pi-extensions/pkg/config"
	"github.com/jllopis/pi-extensions/pkg/errors"
	pimcp "github.com/jllopis/pi-extensions/pkg/mcp"
	"github.com/jllopis/pi-extensions/pkg/telemetry"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  `Commands for exposing extension tools over the Model Context Protocol (MCP).`,
	}
	cmd.AddCommand(newMCPServeCmd(opts), newMCPToolsCmd(opts), newMCPCallCmd(opts))
	return cmd
}

func newMCPServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start an MCP server exposing every registered extension tool and the
system_prompt prompt.

By default the server communicates over stdio. Use --http to serve the
streamable HTTP transport instead.

When --config is given the file is watched and a changed search.api_key is
applied without restarting.

Examples:
  # Stdio mode
  piext mcp serve

  # HTTP mode
  piext mcp serve --http :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var watcher *config.Watcher
			var cfg *config.Config
			if opts.configPath != "" {
				w, err := config.NewWatcher(opts.configOptions())
				if err != nil {
					return NewConfigError(err, opts.configPath)
				}
				watcher, cfg = w, w.Config()
			} else {
				loaded, err := config.LoadWithOptions(opts.configOptions())
				if err != nil {
					return NewConfigError(err, opts.configPath)
				}
				cfg = loaded
			}

			a, err := newApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if watcher != nil {
				watcher.OnChange(a.applyConfig)
				watcher.Start(ctx)
				defer watcher.Stop()
			}

			srv, err := pimcp.NewServer(serviceName, version, a.host,
				pimcp.WithServerLogger(telemetry.Component(a.logger, "mcp")),
				pimcp.WithWorkingDir(a.extensionContext().Cwd),
			)
			if err != nil {
				return err
			}

			if addr != "" {
				a.logger.InfoContext(ctx, "mcp.serve.http", slog.String("addr", addr))
				fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s/mcp\n", displayAddr(addr))
				return srv.ServeHTTP(ctx, addr)
			}
			a.logger.InfoContext(ctx, "mcp.serve.stdio")
			return srv.ServeStdio()
		},
	}
	cmd.Flags().StringVar(&addr, "http", "", "serve streamable HTTP on this address instead of stdio")
	return cmd
}

func newMCPToolsCmd(opts *rootOptions) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List tools exposed by a running MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := pimcp.NewClientWithStreamableHTTP(cmd.Context(), url)
			if err != nil {
				return WrapConnectionError(err, url)
			}
			defer client.Close()

			tools, err := client.ListTools(cmd.Context())
			if err != nil {
				return WrapConnectionError(err, url)
			}
			if tools == nil {
				tools = []mcp.Tool{}
			}
			p := opts.printer(cmd)
			return p.print(tools, func(io.Writer) error {
				writer := p.table()
				writeRow(writer, "TOOL", "DESCRIPTION")
				for _, tool := range tools {
					writeRow(writer, tool.Name, truncate(tool.Description, 80))
				}
				return writer.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:8080/mcp", "streamable HTTP endpoint")
	return cmd
}

func newMCPCallCmd(opts *rootOptions) *cobra.Command {
	var url, rawArgs string
	cmd := &cobra.Command{
		Use:   "call [tool]",
		Short: "Call a tool on a running MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params map[string]any
			if strings.TrimSpace(rawArgs) != "" {
				if err := json.Unmarshal([]byte(rawArgs), &params); err != nil {
					return NewInvalidArgumentError("args", fmt.Sprintf("not a JSON object: %v", err))
				}
			}

			client, err := pimcp.NewClientWithStreamableHTTP(cmd.Context(), url)
			if err != nil {
				return WrapConnectionError(err, url)
			}
			defer client.Close()

			res, err := client.CallTool(cmd.Context(), args[0], params)
			if err != nil {
				return WrapConnectionError(err, url)
			}

			text := pimcp.TextContent(res.Content)
			p := opts.printer(cmd)
			if p.structured() {
				out := toolResult{Tool: args[0], Text: text, Details: res.StructuredContent}
				if res.IsError {
					out.Error = remoteCode(res)
				}
				if err := p.print(out, nil); err != nil {
					return err
				}
			} else if !res.IsError {
				fmt.Fprintln(p.w, text)
			}
			if res.IsError {
				return errors.New(remoteCode(res), text, nil)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:8080/mcp", "streamable HTTP endpoint")
	cmd.Flags().StringVar(&rawArgs, "args", "", "tool arguments as a JSON object")
	return cmd
}

// remoteCode recovers the failure code a piext server puts in the
// structured content of a failed call.
func remoteCode(res *mcp.CallToolResult) errors.ErrorCode {
	if details, ok := res.StructuredContent.(map[string]any); ok {
		if code, ok := details["error"].(string); ok && code != "" && !strings.Contains(code, " ") {
			return errors.ErrorCode(code)
		}
	}
	return errors.CodeInternal
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
