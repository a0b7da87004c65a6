// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jllopis/pi-extensions/pkg/audit"
	"github.com/jllopis/pi-extensions/pkg/errors"
)

func newAuditCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect recorded tool, command and hook invocations",
	}
	cmd.AddCommand(newAuditListCmd(opts))
	return cmd
}

func newAuditListCmd(opts *rootOptions) *cobra.Command {
	var filter audit.Filter
	var kind string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit records in the order they were written",
		Long: `Lists audit records from the configured store. Records only survive
between runs with audit.driver=sqlite.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			if a.audit == nil {
				return NewCLIError(
					errors.New(errors.CodeInvalidInput, "audit is disabled", nil),
					"pass --set audit.enabled=true --set audit.driver=sqlite --set audit.dsn=<file>",
				)
			}
			switch audit.Kind(kind) {
			case "", audit.KindTool, audit.KindCommand, audit.KindHook:
				filter.Kind = audit.Kind(kind)
			default:
				return NewInvalidArgumentError("kind", "must be tool, command or hook")
			}

			records, err := a.audit.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if records == nil {
				records = []audit.Record{}
			}
			p := opts.printer(cmd)
			return p.print(records, func(io.Writer) error {
				writer := p.table()
				writeRow(writer, "STARTED", "KIND", "NAME", "OUTCOME", "DURATION_MS", "SESSION")
				for _, rec := range records {
					writeRow(writer,
						rec.StartedAt.Format("2006-01-02 15:04:05"),
						string(rec.Kind),
						rec.Name,
						rec.Outcome,
						strconv.FormatInt(rec.Duration.Milliseconds(), 10),
						truncate(rec.SessionID, 24),
					)
				}
				return writer.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&filter.SessionID, "session", "", "filter by session id")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind (tool, command, hook)")
	cmd.Flags().StringVar(&filter.Name, "name", "", "filter by tool, command or hook name")
	cmd.Flags().StringVar(&filter.Outcome, "outcome", "", "filter by outcome")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 50, "maximum number of records")
	return cmd
}
