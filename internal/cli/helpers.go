package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/splitlab/splitlab/internal/assign"
	"github.com/splitlab/splitlab/internal/config"
	"github.com/splitlab/splitlab/internal/events"
	"github.com/splitlab/splitlab/internal/lifecycle"
	"github.com/splitlab/splitlab/internal/logging"
	"github.com/splitlab/splitlab/internal/metrics"
	"github.com/splitlab/splitlab/internal/stats"
	"github.com/splitlab/splitlab/internal/store"
	"github.com/splitlab/splitlab/internal/traffic"
)

// app wires the engine together for one command invocation.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      *store.SQLite
	bus        *events.Bus
	registry   *prometheus.Registry
	metrics    *metrics.Collector
	controller *lifecycle.Controller
	engine     *assign.Engine
	recorder   *assign.Recorder
}

// withApp opens the database, builds the engine, executes fn, and cleans
// up.
func withApp(fn func(*app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	bus := events.NewBus()
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector("splitlab", registry)
	analyzer := stats.NewAnalyzer(stats.WithLogger(logger))
	estimator := traffic.NewStatic(cfg.DailyTraffic)

	controller := lifecycle.NewController(s, analyzer, estimator, bus, logger,
		lifecycle.WithMetrics(collector))

	a := &app{
		cfg:        cfg,
		logger:     logger,
		store:      s,
		bus:        bus,
		registry:   registry,
		metrics:    collector,
		controller: controller,
		engine:     assign.NewEngine(controller, s, collector, logger),
		recorder:   assign.NewRecorder(controller, s, bus, collector, logger),
	}
	return fn(a)
}
