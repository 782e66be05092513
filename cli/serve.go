/*
serve.go - HTTP server lifecycle

STARTUP SEQUENCE:
  1. Load config (file, then CASELOAD_* env)
  2. Initialize SQLite store and Prometheus registry
  3. Create engine, API handler and router
  4. Start the rebalance scheduler (if enabled)
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (waits for an in-flight run)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

FLAGS:
  --port   Overrides server.port
  --db     Overrides database.path (":memory:" for an in-memory database)
*/
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/warp/caseload-engine/api"
	"github.com/warp/caseload-engine/config"
	"github.com/warp/caseload-engine/metrics"
	"github.com/warp/caseload-engine/workload"
)

func buildServeCommand(opts *rootOptions) *cobra.Command {
	var (
		port   int
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, opts, func(c *config.Config) {
				if port != 0 {
					c.Server.Port = port
				}
				if dbPath != "" {
					c.Database.Path = dbPath
				}
			})
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	return cmd
}

func runServer(cmd *cobra.Command, opts *rootOptions, override func(*config.Config)) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	recorder := metrics.NewPrometheus(reg, "")

	a, err := opts.openWith(cmd, override, workload.WithRecorder(recorder))
	if err != nil {
		return err
	}
	defer a.Close()

	routerOpts := api.RouterOptions{AllowedOrigins: a.cfg.Server.AllowedOrigins}
	if a.cfg.Metrics.Enabled {
		routerOpts.Metrics = reg
		routerOpts.MetricsPath = a.cfg.Metrics.Path
	}
	router := api.NewRouter(api.NewHandler(a.engine, a.store), routerOpts)

	scheduler := api.NewRebalanceScheduler(a.engine, a.logger)
	scheduler.Enabled = a.cfg.Scheduler.Enabled
	scheduler.Interval = a.cfg.Scheduler.Interval
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting",
			"addr", server.Addr,
			"db", a.cfg.Database.Path,
			"metrics", a.cfg.Metrics.Enabled,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}
