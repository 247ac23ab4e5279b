package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chittyos/registry-sync/internal/config"
	"github.com/chittyos/registry-sync/internal/pkg/secrets"
	"github.com/chittyos/registry-sync/internal/statestore"
)

func newStatusCmd() *cobra.Command {
	var history int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the outcome of recent sync runs",
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

			runs, err := store.ReadRunLog()
			if err != nil {
				return fmt.Errorf("failed to read run log: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println("No sync runs recorded yet.")
				return nil
			}
			if history > 0 && len(runs) > history {
				runs = runs[len(runs)-history:]
			}

			if format := getOutputFormat(); format != "table" {
				return printOutput(runs)
			}

			table := NewTable("TIMESTAMP", "RUN", "TOTAL", "ERRORS", "RESULT")
			for _, run := range runs {
				result := "ok"
				if !run.OK() {
					result = "failed"
				}
				table.AddRow(
					run.Timestamp.Format(time.RFC3339),
					truncate(run.RunID, 8),
					fmt.Sprintf("%d", run.Total),
					fmt.Sprintf("%d", len(run.Errors)),
					result,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&history, "last", "n", 10, "number of runs to show")

	return cmd
}
