// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/server"
)

// gatewayGrace is added to the model timeout for the HTTP write timeout so a
// slow reply can still be delivered.
const gatewayGrace = 30 * time.Second

type serveOptions struct {
	addr string
}

func (o *serveOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.addr, "addr", "", "Listen address (default from config, 127.0.0.1:8501)")
}

func newServeCmd(g *globalOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		Long: `Start the browser chat page and JSON API.

The server runs until interrupted. If it was loaded from a file, the config
file is watched: log level and model defaults for new sessions are applied
on save.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, g *globalOptions, opts *serveOptions) error {
	app, err := newApp(g, appOptions{console: true, consoleWriter: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.Config
	addr := cfg.Server.Addr
	if opts.addr != "" {
		addr = opts.addr
	}

	srv := server.NewServer(addr, app.Sessions).
		WithLogger(app.Logger.Logger).
		WithHealthChecker(app.Client).
		WithLogControl(app.Logger).
		WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst).
		WithMaxBody(cfg.Server.MaxBodyBytes).
		WithWriteTimeout(cfg.Model.Timeout + gatewayGrace).
		WithVersion(Version)

	fmt.Fprintf(cmd.OutOrStdout(), "%s http://%s\n", TitleStyle.Render("localchat is listening on"), addr)
	app.Logger.Info("Starting localchat", "version", Version, "endpoint", cfg.Model.Endpoint, "model", cfg.Model.Name)

	p := pool.New().WithContext(cmd.Context()).WithCancelOnError()
	p.Go(srv.Run)
	p.Go(app.Sessions.Run)
	if cfg.Source != "" {
		p.Go(func(ctx context.Context) error {
			return config.Watch(ctx, cfg.Source, app.Logger.Logger, app.applyConfig)
		})
	}
	return p.Wait()
}
