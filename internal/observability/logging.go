package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/toolvault/toolvault/internal/config"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/trace"
)

var (
	loggerMu     sync.RWMutex
	globalLogger *slog.Logger
)

// telemetryResource identifies this process to the collector; shared by the
// log and trace exporters.
func telemetryResource(ctx context.Context, cfg *config.Config) (*resource.Resource, error) {
	return resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.OTELServiceName),
		attribute.String("deployment.environment", cfg.OTELEnvironment),
	))
}

// fanoutHandler duplicates records to every wrapped handler; used to keep
// stdout JSON logs alongside the OTLP export.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, hh := range h.handlers {
		if err := hh.Handle(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.rewrap(func(hh slog.Handler) slog.Handler { return hh.WithAttrs(attrs) })
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	return h.rewrap(func(hh slog.Handler) slog.Handler { return hh.WithGroup(name) })
}

func (h *fanoutHandler) rewrap(f func(slog.Handler) slog.Handler) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = f(hh)
	}
	return &fanoutHandler{handlers: next}
}

// spanContextHandler stamps the active trace and span ids onto every record
// so log lines correlate with traces.
type spanContextHandler struct {
	next slog.Handler
}

func (h *spanContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *spanContextHandler) Handle(ctx context.Context, r slog.Record) error {
	var traceID, spanID string
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		traceID = sc.TraceID().String()
		spanID = sc.SpanID().String()
	}
	r.AddAttrs(slog.String("trace_id", traceID), slog.String("span_id", spanID))
	return h.next.Handle(ctx, r)
}

func (h *spanContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &spanContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *spanContextHandler) WithGroup(name string) slog.Handler {
	return &spanContextHandler{next: h.next.WithGroup(name)}
}

// NewLogger returns the process logger, or a plain JSON logger before
// InitLogger has run.
func NewLogger() *slog.Logger {
	loggerMu.RLock()
	l := globalLogger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// NewBootstrapLogger covers the window before the OTel pipeline is up.
func NewBootstrapLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.OTELLogLevel)}))
}

// InitLogger builds the process logger: stdout JSON always, plus the OTLP
// bridge when log export is enabled. The result is installed as slog default.
func InitLogger(cfg *config.Config, lp *sdklog.LoggerProvider) *slog.Logger {
	stdout := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.OTELLogLevel)})

	var inner slog.Handler = stdout
	if cfg.OTELLogsEnabled && lp != nil {
		inner = &fanoutHandler{handlers: []slog.Handler{
			stdout,
			otelslog.NewHandler(cfg.OTELServiceName, otelslog.WithLoggerProvider(lp)),
		}}
	}

	l := slog.New(&spanContextHandler{next: inner})
	loggerMu.Lock()
	globalLogger = l
	loggerMu.Unlock()
	slog.SetDefault(l)
	return l
}

func InitLogs(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdklog.LoggerProvider, error) {
	if !cfg.OTELLogsEnabled {
		logger.Info("otel logs disabled")
		return nil, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp log exporter: %w", err)
	}

	res, err := telemetryResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create logs resource: %w", err)
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	logger.Info("otel logs initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return lp, nil
}

func parseLogLevel(v string) slog.Level {
	switch v {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
