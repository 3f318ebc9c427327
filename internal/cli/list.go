package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all experiments",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		experiments, err := a.store.ListExperiments(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list experiments: %w", err)
		}

		if len(experiments) == 0 {
			fmt.Println("No experiments yet. Create one with: splitlab create <name> --variants \"Control,B\"")
			return nil
		}

		fmt.Println("ID        NAME                  TYPE          STATUS     VARIANTS  CREATED")
		fmt.Println(strings.Repeat("─", 80))
		for _, e := range experiments {
			id := e.ID
			if len(id) > 8 {
				id = id[:8]
			}
			name := e.Name
			if len(name) > 20 {
				name = name[:17] + "..."
			}
			fmt.Printf("%-8s  %-20s  %-12s  %-9s  %-8d  %s\n",
				id, name, e.Type, e.Status, len(e.Variants), e.CreatedAt.Format("2006-01-02"))
		}
		return nil
	})
}
