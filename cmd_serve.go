package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SmartLoan360X/server/internal/api"
	"github.com/SmartLoan360X/server/internal/events"
	"github.com/SmartLoan360X/server/internal/market"
)

func newServeCmd(envFile *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}

			a, err := bootstrap(ctx, cfg, events.Noop{})
			if err != nil {
				return err
			}
			defer a.Close()

			srv := api.NewServer(cfg.HTTP, a.orchestrator, a.uploads, market.NewProvider())
			return srv.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides HTTP_ADDR")
	return cmd
}
