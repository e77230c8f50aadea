package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/toolvault/toolvault/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
)

// AppMetrics holds the instruments for this service's business signals: the
// login handshake, catalog mutations, the list cache, and startup/health
// plumbing. Record* helpers are no-ops until InitMetrics installs them.
type AppMetrics struct {
	loginAttempts    metric.Int64Counter
	codesIssued      metric.Int64Counter
	codesVerified    metric.Int64Counter
	authDuration     metric.Float64Histogram
	toolMutations    metric.Int64Counter
	cacheLookups     metric.Int64Counter
	middlewareEvents metric.Int64Counter
	healthResults    metric.Int64Counter
	healthDuration   metric.Float64Histogram
	startupEvents    metric.Int64Counter
	startupDuration  metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func currentMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := telemetryResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "auth.request.duration"},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
				Boundaries: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			}},
		)),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("toolvault")
	m := &AppMetrics{}
	var firstErr error
	counter := func(name string) metric.Int64Counter {
		c, err := meter.Int64Counter(name)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return c
	}
	histogram := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithUnit("s"), metric.WithDescription(desc))
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return h
	}

	m.loginAttempts = counter("auth.login.attempts")
	m.codesIssued = counter("auth.verification_code.issued")
	m.codesVerified = counter("auth.verification_code.verified")
	m.authDuration = histogram("auth.request.duration", "Duration of auth endpoint requests in seconds")
	m.toolMutations = counter("catalog.tool.mutations")
	m.cacheLookups = counter("catalog.list.cache.events")
	m.middlewareEvents = counter("http.middleware.validation.events")
	m.healthResults = counter("health.check.results")
	m.healthDuration = histogram("health.check.duration", "Duration of health dependency checks in seconds")
	m.startupEvents = counter("db.startup.events")
	m.startupDuration = histogram("db.startup.duration", "Duration of database migrate, seed and backfill steps in seconds")
	if firstErr != nil {
		return nil, firstErr
	}

	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func RecordAuthLogin(ctx context.Context, status string) {
	if m := currentMetrics(); m != nil {
		m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordCodeIssued(ctx context.Context, purpose, status string) {
	if m := currentMetrics(); m != nil {
		m.codesIssued.Add(ctx, 1, metric.WithAttributes(
			attribute.String("purpose", purpose),
			attribute.String("status", status),
		))
	}
}

func RecordCodeVerified(ctx context.Context, purpose, outcome string) {
	if m := currentMetrics(); m != nil {
		m.codesVerified.Add(ctx, 1, metric.WithAttributes(
			attribute.String("purpose", purpose),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordAuthRequestDuration(ctx context.Context, endpoint, status string, duration time.Duration) {
	if m := currentMetrics(); m != nil {
		m.authDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
			attribute.String("endpoint", endpoint),
			attribute.String("status", status),
		))
	}
}

func RecordToolMutation(ctx context.Context, action string) {
	if m := currentMetrics(); m != nil {
		m.toolMutations.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
	}
}

func RecordCacheLookup(ctx context.Context, key, outcome string) {
	if m := currentMetrics(); m != nil {
		m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
			attribute.String("key", key),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordMiddlewareValidationEvent(ctx context.Context, middlewareName, event string) {
	if m := currentMetrics(); m != nil {
		m.middlewareEvents.Add(ctx, 1, metric.WithAttributes(
			attribute.String("middleware", middlewareName),
			attribute.String("event", event),
		))
	}
}

func RecordHealthCheckResult(ctx context.Context, check, outcome string) {
	if m := currentMetrics(); m != nil {
		m.healthResults.Add(ctx, 1, metric.WithAttributes(
			attribute.String("check", check),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordHealthCheckDuration(ctx context.Context, check string, duration time.Duration) {
	if m := currentMetrics(); m != nil {
		m.healthDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("check", check)))
	}
}

func RecordDatabaseStartupEvent(ctx context.Context, step, outcome string) {
	if m := currentMetrics(); m != nil {
		m.startupEvents.Add(ctx, 1, metric.WithAttributes(
			attribute.String("step", step),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordDatabaseStartupDuration(ctx context.Context, step string, duration time.Duration) {
	if m := currentMetrics(); m != nil {
		m.startupDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("step", step)))
	}
}
