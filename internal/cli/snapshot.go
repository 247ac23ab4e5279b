package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chittyos/registry-sync/internal/cloudflare"
	"github.com/chittyos/registry-sync/internal/config"
	"github.com/chittyos/registry-sync/internal/pkg/logger"
	"github.com/chittyos/registry-sync/internal/pkg/secrets"
	"github.com/chittyos/registry-sync/internal/statestore"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Work with the full-sync snapshot",
	}

	cmd.AddCommand(newSnapshotShowCmd())
	cmd.AddCommand(newSnapshotPublishCmd())

	return cmd
}

func newSnapshotShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the latest snapshot summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(&secrets.OpResolver{})
			if err != nil {
				return err
			}
			store := statestore.New(statestore.Config{
				RunLogPath:   cfg.State.RunLogPath,
				EventLogPath: cfg.Webhook.EventLogPath,
				SnapshotPath: cfg.State.SnapshotPath,
			})

			snap, err := store.ReadSnapshot()
			if err != nil {
				return fmt.Errorf("failed to read snapshot: %w", err)
			}
			if snap == nil {
				fmt.Println("No snapshot written yet.")
				return nil
			}

			if format := getOutputFormat(); format != "table" {
				return printOutput(snap)
			}

			fmt.Printf("Snapshot from %s\n\n", snap.Timestamp.Format(time.RFC3339))
			table := NewTable("TYPE", "COUNT")
			for key, recs := range snap.Resources {
				table.AddRow(key, fmt.Sprintf("%d", len(recs)))
			}
			table.Render()
			return nil
		},
	}
}

func newSnapshotPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Publish the latest snapshot to Cloudflare KV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(&secrets.OpResolver{})
			if err != nil {
				return err
			}
			if err := cfg.ValidateCloudflare(); err != nil {
				return err
			}

			store := statestore.New(statestore.Config{
				RunLogPath:   cfg.State.RunLogPath,
				EventLogPath: cfg.Webhook.EventLogPath,
				SnapshotPath: cfg.State.SnapshotPath,
			})
			snap, err := store.ReadSnapshot()
			if err != nil {
				return fmt.Errorf("failed to read snapshot: %w", err)
			}
			if snap == nil {
				return fmt.Errorf("no snapshot to publish; run a sync first")
			}

			log := logger.New(logger.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			cf := cloudflare.NewClient(cfg.Cloudflare, log)
			publisher := cloudflare.NewSnapshotPublisher(cf, cfg.Sync.KVTitle)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			if err := publisher.PublishSnapshot(ctx, snap); err != nil {
				return fmt.Errorf("failed to publish snapshot: %w", err)
			}
			fmt.Printf("Published snapshot to KV namespace %q\n", cfg.Sync.KVTitle)
			return nil
		},
	}
}
