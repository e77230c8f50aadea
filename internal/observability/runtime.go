package observability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/toolvault/toolvault/internal/config"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Runtime bundles the three OTel providers so the app can flush them
// together on shutdown.
type Runtime struct {
	LoggerProvider *sdklog.LoggerProvider
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
}

// InitRuntime stands up logs, then metrics, then tracing. A failure tears
// down whatever already started so nothing leaks exporter goroutines.
func InitRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{}

	var err error
	if rt.LoggerProvider, err = InitLogs(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if rt.MeterProvider, err = InitMetrics(ctx, cfg, logger); err != nil {
		_ = rt.Shutdown(ctx)
		return nil, err
	}
	if rt.TracerProvider, err = InitTracing(ctx, cfg, logger); err != nil {
		_ = rt.Shutdown(ctx)
		return nil, err
	}
	return rt, nil
}

func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.LoggerProvider != nil {
		errs = append(errs, r.LoggerProvider.Shutdown(ctx))
	}
	if r.MeterProvider != nil {
		errs = append(errs, r.MeterProvider.Shutdown(ctx))
	}
	if r.TracerProvider != nil {
		errs = append(errs, r.TracerProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
