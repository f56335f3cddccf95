// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes the analyzer's observability infrastructure: JSON
// logging with logrus, metrics collection, health checks, distributed tracing
// and ordered graceful shutdown.
//
// # Structured Logging
//
//	logger := observability.NewLogger("info", os.Stdout)
//	logger.WithField("topic", topic).Info("Message handled")
//
// Inside a traced handler:
//
//	observability.WithTraceContext(ctx, logger.WithField("module", name)).Warn("cycle found")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordMessage("nexus.analyze.request", observability.OutcomeSuccess, elapsed)
//	metrics.RecordCache(true)
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(redisClient, store, version)
//	observability.RegisterHealthRoutes(router, checker)
//
// Readiness fails while Redis is unreachable.
//
// # OpenTelemetry
//
//	tp, err := observability.InitTracing(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "nexus-analyzer",
//		Insecure:    true,
//	}, logger)
//	defer observability.ShutdownTracing(ctx, tp, logger)
//
// # Related Packages
//
//   - pkg/analyzer: records metrics and spans per handled message
//   - pkg/config: observability configuration
package observability
