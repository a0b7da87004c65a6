// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jllopis/pi-extensions/pkg/extension"
)

type notification struct {
	Level   extension.Level `json:"level" yaml:"level"`
	Message string          `json:"message" yaml:"message"`
}

// captureUI records what extensions show to the user so commands can render
// it in any output format.
type captureUI struct {
	mu            sync.Mutex
	notifications []notification
	status        map[string]string
}

func newCaptureUI() *captureUI {
	return &captureUI{status: make(map[string]string)}
}

func (u *captureUI) Notify(message string, level extension.Level) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.notifications = append(u.notifications, notification{Level: level, Message: message})
}

func (u *captureUI) SetStatus(key, text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status[key] = text
}

func (u *captureUI) snapshot() ([]notification, map[string]string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	status := make(map[string]string, len(u.status))
	for k, v := range u.status {
		status[k] = v
	}
	return append([]notification(nil), u.notifications...), status
}

type sessionResult struct {
	SessionID     string                  `json:"session_id" yaml:"session_id"`
	Tools         []string                `json:"tools" yaml:"tools"`
	Commands      []extension.CommandInfo `json:"commands" yaml:"commands"`
	Status        map[string]string       `json:"status,omitempty" yaml:"status,omitempty"`
	Notifications []notification          `json:"notifications,omitempty" yaml:"notifications,omitempty"`
	SystemPrompt  string                  `json:"system_prompt" yaml:"system_prompt"`
	Errors        []string                `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func newSessionCmd(opts *rootOptions) *cobra.Command {
	var system, prompt string
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Simulate an agent session start and one turn",
		Long: `Starts a session on the extension host, runs one before_agent_start
round with the given system prompt and prints what the agent would receive,
together with the status entries and notifications extensions produced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			res := runSession(cmd, a, extension.BeforeAgentStartEvent{Prompt: prompt, SystemPrompt: system})
			return opts.printer(cmd).print(res, func(w io.Writer) error {
				printSessionText(w, res)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&system, "system", "", "base system prompt")
	cmd.Flags().StringVar(&prompt, "prompt", "", "user prompt for the turn")
	return cmd
}

func runSession(cmd *cobra.Command, a *app, ev extension.BeforeAgentStartEvent) sessionResult {
	ui := newCaptureUI()
	ec := a.extensionContext()
	ec.UI = ui

	res := sessionResult{SessionID: ec.SessionID}
	if err := a.host.StartSession(cmd.Context(), ec); err != nil {
		res.Errors = append(res.Errors, err.Error())
	}
	systemPrompt, err := a.host.BeforeAgentStart(cmd.Context(), ev, ec)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
	}
	res.SystemPrompt = systemPrompt
	for _, tool := range a.host.Tools() {
		res.Tools = append(res.Tools, tool.Name())
	}
	res.Commands = a.host.Commands()
	res.Notifications, res.Status = ui.snapshot()
	return res
}

func printSessionText(w io.Writer, res sessionResult) {
	fmt.Fprintf(w, "Session: %s\n", res.SessionID)
	for _, n := range res.Notifications {
		fmt.Fprintf(w, "[%s] %s\n", n.Level, n.Message)
	}
	keys := make([]string, 0, len(res.Status))
	for k := range res.Status {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "[status] %s: %s\n", k, res.Status[k])
	}
	for _, e := range res.Errors {
		fmt.Fprintf(w, "[error] %s\n", e)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, res.SystemPrompt)
}
