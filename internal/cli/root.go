// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version info, set from main at startup (which gets it from ldflags).
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	noColor    bool
}

// NewRootCmd builds the command tree. Running the root command without a
// subcommand starts the web server.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}
	serve := &serveOptions{}

	root := &cobra.Command{
		Use:   "localchat",
		Short: "Chat with a locally hosted language model",
		Long: `localchat forwards your messages to a language model served on this
machine and shows the replies, from a browser page or the terminal.

Examples:
  localchat                          Start the web UI on 127.0.0.1:8501
  localchat chat                     Full-screen terminal chat
  localchat chat --plain             Line-based chat with history
  localchat ask "What is Go?"        Send a single prompt
  localchat logs -n 20               Show recent log lines
  localchat config init              Write a config file with the defaults`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				ForceColorsEnabled(false)
			}
			applyColorProfile()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, serve)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Config file (default ./localchat.toml, then ~/.localchat/config.toml)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: DEBUG, INFO, WARNING, ERROR, CRITICAL")
	pf.BoolVar(&g.noColor, "no-color", false, "Disable colored output")
	serve.bind(root)

	root.AddCommand(
		newServeCmd(g),
		newAskCmd(g),
		newChatCmd(g),
		newLogsCmd(g),
		newConfigCmd(g),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), err)
		stop()
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "localchat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
