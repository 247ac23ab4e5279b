package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newResourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Inspect resources held by the registry",
	}

	cmd.AddCommand(newResourceListCmd())
	cmd.AddCommand(newResourceDeleteCmd())

	return cmd
}

func newResourceListCmd() *cobra.Command {
	var resourceType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			resources, err := apiClient.Resources().List(ctx, resourceType)
			if err != nil {
				return fmt.Errorf("failed to list resources: %w", err)
			}

			if format := getOutputFormat(); format != "table" {
				return printOutput(resources)
			}

			table := NewTable("ID", "NAME", "TYPE", "PROVIDER")
			for _, r := range resources {
				table.AddRow(truncate(r.ID, 36), truncate(r.Name, 40), r.Type, r.Provider)
			}
			table.Render()
			fmt.Printf("\n%d resource(s)\n", len(resources))
			return nil
		},
	}

	cmd.Flags().StringVarP(&resourceType, "type", "t", "", "filter by resource type")

	return cmd
}

func newResourceDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a resource from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Resources().Delete(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to delete resource: %w", err)
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}
