package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/chittyos/registry-sync/internal/cloudflare"
	"github.com/chittyos/registry-sync/internal/config"
	"github.com/chittyos/registry-sync/internal/domain/resource"
	"github.com/chittyos/registry-sync/internal/pkg/logger"
	"github.com/chittyos/registry-sync/internal/pkg/secrets"
	"github.com/chittyos/registry-sync/internal/statestore"
	"github.com/chittyos/registry-sync/internal/syncer"
	"github.com/chittyos/registry-sync/pkg/client"
)

// loadPipeline builds the sync pipeline from environment configuration.
func loadPipeline() (*config.Config, *syncer.Orchestrator, *logger.Logger, error) {
	cfg, err := config.Load(&secrets.OpResolver{})
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.ValidateCloudflare(); err != nil {
		return nil, nil, nil, err
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

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

	return cfg, syncer.New(cf, &syncer.RegistryAdapter{Client: registry}, store, publisher, log), log, nil
}

func newSyncCmd() *cobra.Command {
	var types []string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a full sync of Cloudflare resources into the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := resolveKinds(types)
			if err != nil {
				return err
			}

			_, orchestrator, _, err := loadPipeline()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			summary, err := orchestrator.Run(ctx, kinds)
			if err != nil {
				return err
			}

			if format := getOutputFormat(); format != "table" {
				if err := printOutput(summary); err != nil {
					return err
				}
			} else {
				printSummary(summary)
			}

			if !summary.OK() {
				return fmt.Errorf("sync completed with %d error(s)", len(summary.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "resource types to sync (domains, workers, pages, r2_buckets, kv_namespaces, durable_objects); default all")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall sync timeout")

	return cmd
}

// resolveKinds maps plural type keys to kinds. Empty input means every kind.
func resolveKinds(types []string) ([]resource.Kind, error) {
	if len(types) == 0 {
		return nil, nil
	}
	kinds := make([]resource.Kind, 0, len(types))
	for _, t := range types {
		if t == "all" {
			return nil, nil
		}
		k, err := resource.KindFromKey(t)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func printSummary(summary *resource.Summary) {
	fmt.Printf("Sync run %s at %s\n\n", summary.RunID, summary.Timestamp.Format(time.RFC3339))

	table := NewTable("TYPE", "SYNCED", "ERROR")
	keys := make([]string, 0, len(summary.Synced)+len(summary.Errors))
	for k := range summary.Synced {
		keys = append(keys, k)
	}
	for k := range summary.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if msg, failed := summary.Errors[k]; failed {
			table.AddRow(k, "-", truncate(msg, 60))
		} else {
			table.AddRow(k, fmt.Sprintf("%d", summary.Synced[k]), "")
		}
	}
	table.Render()

	fmt.Printf("\nTotal: %d resources\n", summary.Total)
}
