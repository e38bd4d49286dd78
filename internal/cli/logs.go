// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// maxLogLines caps how many lines the logs command prints.
const maxLogLines = 500

func newLogsCmd(g *globalOptions) *cobra.Command {
	var lines int
	var path bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the most recent log lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lines < 1 || lines > maxLogLines {
				return fmt.Errorf("--lines must be between 1 and %d", maxLogLines)
			}

			app, err := newApp(g, appOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			if path {
				fmt.Fprintln(cmd.OutOrStdout(), app.Logger.Path())
				return nil
			}
			return printLogs(cmd.OutOrStdout(), app.Logger, lines)
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show")
	cmd.Flags().BoolVar(&path, "path", false, "Print the log file path instead")
	return cmd
}
