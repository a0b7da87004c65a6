// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jllopis/pi-extensions/pkg/config"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	profile    string
	sets       []string
	output     string
}

func (o *rootOptions) configOptions() config.Options {
	return config.Options{
		Path:      o.configPath,
		Profile:   o.profile,
		Overrides: o.sets,
	}
}

// open loads configuration and wires the extension host. Callers must close
// the returned app.
func (o *rootOptions) open(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadWithOptions(o.configOptions())
	if err != nil {
		return nil, NewConfigError(err, o.configPath)
	}
	return newApp(cfg, cmd.ErrOrStderr())
}

func (o *rootOptions) printer(cmd *cobra.Command) *printer {
	return newPrinter(cmd.OutOrStdout(), o.output)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "piext",
		Short: "Run pi agent extensions outside the agent",
		Long: `piext hosts the brave-search and soul extensions in-process.

It can run a web search, show which SOUL.md would be injected, simulate an
agent session, and expose the registered tools over the Model Context
Protocol.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			switch opts.output {
			case outputText, outputJSON, outputYAML:
				return nil
			default:
				return NewInvalidArgumentError("output", fmt.Sprintf("unsupported format %q", opts.output))
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config file")
	flags.StringVar(&opts.profile, "profile", "", "config profile (loads config.<profile>.yaml)")
	flags.StringArrayVar(&opts.sets, "set", nil, "override a config key (key=value, repeatable)")
	flags.StringVarP(&opts.output, "output", "o", outputText, "output format: text, json or yaml")

	cmd.AddCommand(
		newSearchCmd(opts),
		newSoulCmd(opts),
		newSessionCmd(opts),
		newStatusCmd(opts),
		newAuditCmd(opts),
		newMCPCmd(opts),
		newVersionCmd(),
	)
	return cmd
}
