package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newStartCmd(), newPauseCmd(), newResumeCmd(), newStopCmd(), newArchiveCmd())
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>",
		Short: "Start a draft experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				if err := a.controller.Start(context.Background(), args[0]); err != nil {
					return err
				}
				fmt.Printf("Experiment %s is running\n", args[0])
				return nil
			})
		},
	}
}

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <id>",
		Short: "Pause a running experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				if err := a.controller.Pause(context.Background(), args[0]); err != nil {
					return err
				}
				fmt.Printf("Experiment %s paused\n", args[0])
				return nil
			})
		},
	}
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id>",
		Short: "Resume a paused experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				if err := a.controller.Resume(context.Background(), args[0]); err != nil {
					return err
				}
				fmt.Printf("Experiment %s is running\n", args[0])
				return nil
			})
		},
	}
}

func newStopCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "stop <id>",
		Short: "Stop an experiment and freeze its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				if err := a.controller.Stop(context.Background(), args[0], reason); err != nil {
					return err
				}
				fmt.Printf("Experiment %s completed\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "stop reason recorded with the results")
	return cmd
}

func newArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				if err := a.controller.Archive(context.Background(), args[0]); err != nil {
					return err
				}
				fmt.Printf("Experiment %s archived\n", args[0])
				return nil
			})
		},
	}
}
