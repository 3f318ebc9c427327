package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newAssignCmd(), newTrackCmd())
}

func newAssignCmd() *cobra.Command {
	var attrs []string

	cmd := &cobra.Command{
		Use:   "assign <experiment-id> <user-id>",
		Short: "Assign a user to a variant",
		Long:  `Assign a user to a variant, creating the sticky assignment on first contact.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				variant, err := a.engine.Assign(context.Background(), args[0], args[1], parseAttrs(attrs))
				if err != nil {
					return err
				}
				if variant == nil {
					fmt.Println("Experiment is not accepting traffic")
					return nil
				}
				fmt.Printf("%s\n", variant.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "assignment context as key=value, repeatable (e.g. --attr device=mobile)")
	return cmd
}

func newTrackCmd() *cobra.Command {
	var (
		value float64
		attrs []string
	)

	cmd := &cobra.Command{
		Use:   "track <experiment-id> <variant-id> <user-id>",
		Short: "Record a conversion event",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				err := a.recorder.TrackConversion(context.Background(), args[0], args[1], args[2], value, parseAttrs(attrs))
				if err != nil {
					return err
				}
				fmt.Println("ok")
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&value, "value", 0, "conversion value")
	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "event context as key=value, repeatable")
	return cmd
}

func parseAttrs(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if k, v, ok := strings.Cut(p, "="); ok {
			out[k] = v
		}
	}
	return out
}
