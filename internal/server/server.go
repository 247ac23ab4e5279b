package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chittyos/registry-sync/internal/api/handlers"
	"github.com/chittyos/registry-sync/internal/api/router"
	"github.com/chittyos/registry-sync/internal/cloudflare"
	"github.com/chittyos/registry-sync/internal/config"
	"github.com/chittyos/registry-sync/internal/pkg/logger"
	"github.com/chittyos/registry-sync/internal/statestore"
	"github.com/chittyos/registry-sync/internal/syncer"
	"github.com/chittyos/registry-sync/internal/worker"
	"github.com/chittyos/registry-sync/pkg/client"
)

// ServiceName appears in liveness responses and log context.
const ServiceName = "registry-sync"

// Server owns the webhook listener and its background machinery: the task
// dispatcher, the optional cron scheduler and the HTTP listener itself.
type Server struct {
	cfg        *config.Config
	log        *logger.Logger
	dispatcher *worker.Dispatcher
	scheduler  *worker.Scheduler
	http       *http.Server
}

// New wires the full service graph from configuration.
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}

	cf := cloudflare.NewClient(cfg.Cloudflare, log)
	registry := client.NewClient(client.Config{
		BaseURL: cfg.Registry.BaseURL,
		APIKey:  cfg.Registry.APIKey,
		Timeout: cfg.Registry.Timeout,
	})
	store := statestore.New(statestore.Config{
		RunLogPath:   cfg.State.RunLogPath,
		EventLogPath: cfg.Webhook.EventLogPath,
		SnapshotPath: cfg.State.SnapshotPath,
	})

	var publisher syncer.Publisher
	if cfg.Sync.PublishToKV {
		publisher = cloudflare.NewSnapshotPublisher(cf, cfg.Sync.KVTitle)
	}
	orchestrator := syncer.New(cf, &syncer.RegistryAdapter{Client: registry}, store, publisher, log)

	dispatcher := worker.NewDispatcher(cfg.Webhook.Workers, cfg.Webhook.QueueSize, log)
	scheduler := worker.NewScheduler(log)
	if cfg.Sync.Schedule != "" {
		err := scheduler.AddSync(cfg.Sync.Schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if _, err := orchestrator.Run(ctx, nil); err != nil {
				log.ErrorWithErr(err, "scheduled sync failed")
			}
		})
		if err != nil {
			return nil, fmt.Errorf("invalid sync schedule %q: %w", cfg.Sync.Schedule, err)
		}
	}

	h := &router.Handlers{
		Health:  handlers.NewHealthHandler(ServiceName),
		Status:  handlers.NewStatusHandler(store, log),
		Webhook: handlers.NewWebhookHandler(cfg.Webhook.Secret, dispatcher, registry, store, log),
		Sync:    handlers.NewSyncHandler(cfg.Registry.APIKey, orchestrator, dispatcher, log),
	}

	return &Server{
		cfg:        cfg,
		log:        log,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router.New(cfg, log, h),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts everything down in
// order: listener first, then the scheduler, then the dispatcher so queued
// tasks drain before the process exits.
func (s *Server) Run(ctx context.Context) error {
	s.dispatcher.Start(ctx)
	s.scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("webhook listener started on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.log.ErrorWithErr(err, "http shutdown failed")
	}
	s.scheduler.Stop(shutdownCtx)
	s.dispatcher.Stop()

	return nil
}
