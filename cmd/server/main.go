package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chittyos/registry-sync/internal/config"
	"github.com/chittyos/registry-sync/internal/pkg/logger"
	"github.com/chittyos/registry-sync/internal/pkg/secrets"
	"github.com/chittyos/registry-sync/internal/server"
)

func main() {
	cfg, err := config.Load(&secrets.OpResolver{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
