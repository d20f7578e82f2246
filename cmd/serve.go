package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/tessera/internal/metrics"
	"github.com/conneroisu/tessera/internal/server"
	"github.com/conneroisu/tessera/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve content models with live invalidation",
	Long: `Start the HTTP server. Content models, rendered components and distilled
configuration are served per component type; live clients on /ws are told
when component definitions change on disk.

Endpoints:
  GET /model/{type}    content model JSON (?path=, ?prop=name=value, ?keys=a,b)
  GET /render/{type}   component wrapper with embedded model
  GET /config/{type}   distilled configuration (?mode=, ?flatten=)
  GET /ws              invalidation feed
  GET /metrics         Prometheus metrics, when enabled

Examples:
  tessera serve
  tessera serve --port 9090 --root ./site/components
  tessera serve --no-watch`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().Bool("no-watch", false, "Don't watch component definitions for changes")
	AddFlagValidation(serveCmd, "port", ValidatePort)

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if noWatch, _ := cmd.Flags().GetBool("no-watch"); noWatch {
		a.config.Watch.Enabled = false
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, fw, err := a.newServer(ctx)
	if err != nil {
		return err
	}
	if fw != nil {
		defer fw.Stop()
	}

	return srv.Start(ctx)
}

// newServer builds the HTTP server and, when watching is enabled, a
// running FileWatcher whose batches invalidate the resolver before live
// clients are notified.
func (a *app) newServer(ctx context.Context) (*server.Server, *watcher.FileWatcher, error) {
	var metricsHandler http.Handler
	if a.registry != nil {
		metricsHandler = metrics.HTTPHandler(a.registry)
	}

	srv := server.New(server.Config{
		Host:           a.config.Server.Host,
		Port:           a.config.Server.Port,
		AllowedOrigins: a.config.Server.AllowedOrigins,
		Metrics:        metricsHandler,
	}, a.renderer, a.resolver, a.logger)

	if !a.config.Watch.Enabled {
		return srv, nil, nil
	}

	// Invalidators run in name order
	notifier := watcher.NewNotifier(a.logger)
	if err := notifier.Register("configuration", a.resolver); err != nil {
		return nil, nil, err
	}
	if err := notifier.Register("live-reload", srv); err != nil {
		return nil, nil, err
	}

	fw, err := watcher.NewFileWatcher(a.config.Watch.Debounce)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	fw.SetLogger(a.logger)
	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.ComponentDefinitionFilter)
	fw.AddHandler(notifier.Handler(ctx))

	if err := fw.AddRecursive(a.store.Root()); err != nil {
		fw.Stop()
		return nil, nil, fmt.Errorf("failed to watch %s: %w", a.store.Root(), err)
	}
	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return nil, nil, fmt.Errorf("failed to start watcher: %w", err)
	}

	a.logger.Info(ctx, "Watching component definitions", "root", a.store.Root())
	return srv, fw, nil
}
