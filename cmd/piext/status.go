// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/jllopis/pi-extensions/pkg/core"
)

type statusResult struct {
	Version    string              `json:"version" yaml:"version"`
	Overall    core.HealthStatus   `json:"overall" yaml:"overall"`
	Extensions []string            `json:"extensions" yaml:"extensions"`
	Components []core.HealthResult `json:"components" yaml:"components"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show loaded extensions and component health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			components, overall := a.health.CheckAll(cmd.Context())
			res := statusResult{
				Version:    version,
				Overall:    overall,
				Extensions: a.host.Extensions(),
				Components: components,
			}
			p := opts.printer(cmd)
			return p.print(res, func(io.Writer) error {
				writer := p.table()
				writeRow(writer, "COMPONENT", "STATUS", "MESSAGE")
				for _, c := range res.Components {
					writeRow(writer, c.Component, string(c.Status), c.Message)
				}
				writeRow(writer, "overall", string(res.Overall), "")
				return writer.Flush()
			})
		},
	}
}
