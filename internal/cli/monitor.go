package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the periodic evaluation loop",
	Long: `Run the early-stopping monitor: on every tick each running
experiment is re-evaluated and auto-stopped when a sequential boundary
or the maximum duration is reached. Press Ctrl+C to stop.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := a.controller.LoadActive(ctx); err != nil {
			return err
		}

		if a.cfg.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					a.logger.Error("metrics server failed", zap.Error(err))
				}
			}()
			defer srv.Close()
		}

		fmt.Printf("Monitoring running experiments every %s\n", a.cfg.EvalInterval)

		runCycle(ctx, a)
		ticker := time.NewTicker(a.cfg.EvalInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				fmt.Println("\nStopped")
				return nil
			case <-ticker.C:
				runCycle(ctx, a)
			}
		}
	})
}

func runCycle(ctx context.Context, a *app) {
	if err := a.controller.EvaluateActiveExperiments(ctx); err != nil {
		a.logger.Error("evaluation cycle failed", zap.Error(err))
	}
}
