package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/nexus/pkg/analyzer"
	"github.com/platinummonkey/nexus/pkg/bus"
	"github.com/platinummonkey/nexus/pkg/config"
	"github.com/platinummonkey/nexus/pkg/observability"
)

var watchConfig bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analyzer",
	Long: `Start the analyzer.

The analyzer will:
  - Load configuration from --config, then apply NEXUS_* environment overrides
  - Connect to Redis and subscribe the request topics
  - Serve /metrics and /health endpoints on metrics_addr
  - Reload cache_duration when the configuration file changes

Environment variables:
  NEXUS_REDIS_URL        - Redis URL (default: redis://localhost:6379/0)
  NEXUS_CACHE_DURATION   - Analysis cache lifetime in seconds (default: 300)
  NEXUS_LOG_LEVEL        - Log level: debug, info, warn, error
  NEXUS_METRICS_ADDR     - Metrics and health listen address (default: :9090)
  NEXUS_NODE_ID          - Sender node stamped on published messages
  NEXUS_HANDLER_WORKERS  - Concurrent message handlers (default: 8)
  NEXUS_OTEL_ENABLED     - Export traces over OTLP gRPC
  NEXUS_OTEL_ENDPOINT    - OTLP collector address (default: localhost:4317)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&watchConfig, "watch", true, "reload the configuration file when it changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	bootLog := observability.NewLogger("info", os.Stdout)
	cfg := config.LoadConfig(cfgFile, bootLog)

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)
	logger.WithFields(logrus.Fields{
		"version": version,
		"node_id": cfg.NodeID,
	}).Info("Starting nexus-analyzer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracing(ctx, observability.OTelConfig{
		Enabled:        cfg.OTel.Enabled,
		Endpoint:       cfg.OTel.Endpoint,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: version,
		Insecure:       cfg.OTel.Insecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	b, err := bus.NewRedisBus(bus.RedisConfig{
		URL:             cfg.RedisURL,
		NodeID:          cfg.NodeID,
		Workers:         cfg.HandlerWorkers,
		ShutdownTimeout: 20 * time.Second,
	}, logger)
	if err != nil {
		return err
	}

	svc, err := analyzer.New(b, cfg,
		analyzer.WithLogger(logger),
		analyzer.WithMetrics(metrics),
	)
	if err != nil {
		b.Close()
		return err
	}
	if err := svc.Start(); err != nil {
		b.Close()
		return err
	}

	router := mux.NewRouter()
	router.Use(observability.RecoveryMiddleware(logger), observability.LoggingMiddleware(logger))
	observability.RegisterMetricsEndpoint(router, metrics)
	observability.RegisterHealthRoutes(router, observability.NewHealthChecker(b.Client(), svc.Store(), version))
	server := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Stop receiving and drain handlers first, then the endpoints, then flush spans
	shutdown := observability.NewShutdownManager(logger, 30*time.Second)
	shutdown.Register("bus", func(context.Context) error { return b.Close() })
	shutdown.Register("http", server.Shutdown)
	shutdown.Register("tracing", func(ctx context.Context) error {
		return observability.ShutdownTracing(ctx, tp, logger)
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.Run(gctx)
	})

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			logger.WithField("addr", cfg.MetricsAddr).Info("Serving metrics and health endpoints")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	if cfgFile != "" && watchConfig {
		g.Go(func() error {
			defer observability.RecoverPanic(logger, "config watcher")
			return config.Watch(gctx, cfgFile, logger, func(updated *config.Config) {
				logger.SetLevel(observability.ParseLevel(updated.LogLevel))
				svc.ApplyConfig(updated)
			})
		})
	}

	g.Go(func() error {
		return shutdown.WaitForShutdown(gctx)
	})

	return g.Wait()
}
