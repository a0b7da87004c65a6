// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jllopis/pi-extensions/pkg/errors"
	"github.com/jllopis/pi-extensions/pkg/extension"
	"github.com/jllopis/pi-extensions/pkg/soul"
)

type soulResult struct {
	Notifications []notification `json:"notifications" yaml:"notifications"`
}

func newSoulCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "soul",
		Short: "Show current SOUL.md location",
		Long: `Runs the soul command: reports which SOUL.md the current project would
inject, searching .pi/SOUL.md, SOUL.md, ~/.pi/agent/SOUL.md and the bundled
copy in that order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			ui := newCaptureUI()
			ec := a.extensionContext()
			ec.UI = ui
			if err := a.host.RunCommand(cmd.Context(), soul.CommandName, "", ec); err != nil {
				if errors.Is(err, errors.CodeNotFound) {
					return NewNotFoundError("extension", soul.ExtensionName)
				}
				return err
			}

			notes, _ := ui.snapshot()
			res := soulResult{Notifications: notes}
			return opts.printer(cmd).print(res, func(w io.Writer) error {
				for _, n := range res.Notifications {
					if n.Level == extension.LevelInfo {
						fmt.Fprintln(w, n.Message)
					} else {
						fmt.Fprintf(w, "[%s] %s\n", n.Level, n.Message)
					}
				}
				return nil
			})
		},
	}
	cmd.AddCommand(newSoulPromptCmd(opts))
	return cmd
}

func newSoulPromptCmd(opts *rootOptions) *cobra.Command {
	var system, prompt string
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the system prompt after SOUL.md injection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			res := runSession(cmd, a, extension.BeforeAgentStartEvent{Prompt: prompt, SystemPrompt: system})
			out := struct {
				Status       string `json:"status,omitempty" yaml:"status,omitempty"`
				SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`
			}{Status: res.Status[soul.StatusKey], SystemPrompt: res.SystemPrompt}
			return opts.printer(cmd).print(out, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, out.SystemPrompt)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&system, "system", "", "base system prompt")
	cmd.Flags().StringVar(&prompt, "prompt", "", "user prompt for the turn")
	return cmd
}
