// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jllopis/pi-extensions/pkg/errors"
	"github.com/jllopis/pi-extensions/pkg/extension"
	"github.com/jllopis/pi-extensions/pkg/websearch"
)

// toolResult is the structured rendering of a tool outcome.
type toolResult struct {
	Tool    string           `json:"tool" yaml:"tool"`
	Text    string           `json:"text" yaml:"text"`
	Error   errors.ErrorCode `json:"error,omitempty" yaml:"error,omitempty"`
	Details any              `json:"details,omitempty" yaml:"details,omitempty"`
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the web with Brave Search",
		Long: `Runs the brave_search tool through the extension host and prints the
formatted results. Requires BRAVE_API_KEY or search.api_key.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{"query": strings.Join(args, " ")}
			if cmd.Flags().Changed("count") {
				params["count"] = count
			}
			return runTool(cmd, opts, websearch.ToolName, params)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", websearch.DefaultCount,
		fmt.Sprintf("number of results (%d-%d)", websearch.MinCount, websearch.MaxCount))
	return cmd
}

// runTool executes a registered tool and prints its outcome. A failed
// outcome becomes the command error.
func runTool(cmd *cobra.Command, opts *rootOptions, name string, params map[string]any) error {
	a, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer a.close(cmd.Context())

	if _, ok := a.host.Tool(name); !ok {
		return NewNotFoundError("tool", name)
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}

	outcome, err := a.host.ExecuteTool(cmd.Context(), name, raw, a.extensionContext())
	if err != nil {
		return err
	}

	p := opts.printer(cmd)
	if p.structured() {
		if err := p.print(toolResult{
			Tool:    name,
			Text:    outcome.Text(),
			Error:   outcome.Code,
			Details: outcome.Details,
		}, nil); err != nil {
			return err
		}
	}
	if outcome.Failed() {
		return outcomeError(outcome)
	}
	if !p.structured() {
		fmt.Fprintln(p.w, outcome.Text())
	}
	return nil
}

func outcomeError(outcome extension.Outcome) error {
	te := errors.New(outcome.Code, outcome.Text(), nil)
	switch outcome.Code {
	case errors.CodeMissingAPIKey:
		return NewCLIError(te, "export BRAVE_API_KEY or pass --set search.api_key=...")
	case errors.CodeAPIError:
		return NewCLIError(te, "check the API key and plan limits")
	default:
		return te
	}
}
