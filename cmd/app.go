package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/conneroisu/tessera/internal/config"
	"github.com/conneroisu/tessera/internal/configuration"
	"github.com/conneroisu/tessera/internal/logging"
	"github.com/conneroisu/tessera/internal/metrics"
	"github.com/conneroisu/tessera/internal/pipeline"
	"github.com/conneroisu/tessera/internal/processors"
	"github.com/conneroisu/tessera/internal/renderer"
	"github.com/conneroisu/tessera/internal/store"
)

// app holds the components shared by every command
type app struct {
	config   *config.Config
	logger   logging.Logger
	store    *store.FileStore
	resolver *configuration.Resolver
	engine   *pipeline.Engine
	renderer *renderer.ComponentRenderer

	// registry is nil when metrics are disabled
	registry *prometheus.Registry
}

// newApp wires a FileStore, resolver, engine and renderer from cfg. Logs
// go to logOut.
func newApp(cfg *config.Config, logOut io.Writer) (*app, error) {
	lc := cfg.LoggerConfig()
	lc.Output = logOut
	logger := logging.NewLogger(lc)

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
	}

	fs := store.NewFileStore(cfg.Store.Root, store.WithReservedPrefixes(cfg.Store.ReservedPrefixes))
	resolver := configuration.NewResolver(fs,
		configuration.WithLogger(logger),
		configuration.WithMetrics(recorder),
		configuration.WithDefaultMode(cfg.Mode()),
	)

	engine := pipeline.NewEngine(pipeline.WithLogger(logger), pipeline.WithMetrics(recorder))
	if err := engine.Register(processors.Defaults(cfg.Store.ReservedPrefixes)...); err != nil {
		return nil, fmt.Errorf("registering processors: %w", err)
	}
	if err := engine.Register(
		processors.NewGlobalProperties(cfg.Global),
		processors.NewDesignProperties(cfg.Design),
	); err != nil {
		return nil, fmt.Errorf("registering shared properties: %w", err)
	}
	rules, err := cfg.BuildRules()
	if err != nil {
		return nil, err
	}
	if err := engine.Register(rules...); err != nil {
		return nil, fmt.Errorf("registering rules: %w", err)
	}

	r := renderer.NewComponentRenderer(engine, resolver,
		renderer.WithLogger(logger),
		renderer.WithMetrics(recorder),
		renderer.WithPageData(cfg.Page),
	)

	return &app{
		config:   cfg,
		logger:   logger,
		store:    fs,
		resolver: resolver,
		engine:   engine,
		renderer: r,
		registry: registry,
	}, nil
}

// loadApp loads the configuration and wires an app from it
func loadApp(logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return newApp(cfg, logOut)
}

// commandContext returns the command's context, or a background context
// when the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
