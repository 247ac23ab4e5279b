package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chittyos/registry-sync/internal/config"
	"github.com/chittyos/registry-sync/internal/pkg/logger"
	"github.com/chittyos/registry-sync/internal/pkg/secrets"
	"github.com/chittyos/registry-sync/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(&secrets.OpResolver{})
			if err != nil {
				return err
			}

			log := logger.New(logger.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})

			srv, err := server.New(cfg, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Run(ctx)
		},
	}
}
