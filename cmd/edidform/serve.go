package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/edidform/internal/server"
	"github.com/matthewbaird/edidform/internal/session"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the forms over HTTP and WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.registry()
			if err != nil {
				return err
			}

			cfg := opts.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.Run(ctx, server.Config{
				Port:            cfg.Server.Port,
				Registry:        reg,
				Sessions:        session.NewManager(cfg.Session.MaxAge, cfg.Session.IdleTimeout),
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
				CleanupInterval: cfg.Session.CleanupInterval,
			})
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}
