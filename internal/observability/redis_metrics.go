package observability

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var redisHookOnce sync.Once

// InstrumentRedisClient attaches command latency, error and cache-outcome
// metrics to the client. The hook is installed once per process; extra calls
// are no-ops.
func InstrumentRedisClient(client redis.UniversalClient, logger *slog.Logger) {
	if client == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	redisHookOnce.Do(func() {
		hook, err := newRedisHook(client)
		if err != nil {
			logger.Warn("redis instrumentation disabled", "error", err)
			return
		}
		client.AddHook(hook)
		logger.Info("redis instrumentation enabled")
	})
}

// redisHook covers the two redis consumers in this process: the list cache
// (GET/SET/DEL/EXISTS) and the fixed-window limiter script (EVAL). GET and
// EXISTS outcomes feed the hit ratio gauge.
type redisHook struct {
	commands metric.Int64Counter
	errors   metric.Int64Counter
	latency  metric.Float64Histogram

	hits   atomic.Int64
	misses atomic.Int64
}

func newRedisHook(client redis.UniversalClient) (*redisHook, error) {
	meter := otel.Meter("toolvault")

	commands, err := meter.Int64Counter("redis.command.total",
		metric.WithDescription("Redis commands issued by the catalog backend"))
	if err != nil {
		return nil, err
	}
	cmdErrors, err := meter.Int64Counter("redis.command.errors",
		metric.WithDescription("Redis commands that returned a non-nil error"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("redis.command.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Redis command round-trip latency"))
	if err != nil {
		return nil, err
	}
	hitRatio, err := meter.Float64ObservableGauge("redis.cache.hit_ratio",
		metric.WithUnit("1"),
		metric.WithDescription("Hit ratio of client-observed cache reads"))
	if err != nil {
		return nil, err
	}
	poolSaturation, err := meter.Float64ObservableGauge("redis.pool.saturation",
		metric.WithUnit("1"),
		metric.WithDescription("Connection pool saturation (used / total)"))
	if err != nil {
		return nil, err
	}

	hook := &redisHook{commands: commands, errors: cmdErrors, latency: latency}

	_, err = meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		hits, misses := hook.hits.Load(), hook.misses.Load()
		if hits+misses > 0 {
			obs.ObserveFloat64(hitRatio, float64(hits)/float64(hits+misses))
		}
		if stats := client.PoolStats(); stats != nil && stats.TotalConns > 0 {
			used := float64(stats.TotalConns - stats.IdleConns)
			obs.ObserveFloat64(poolSaturation, used/float64(stats.TotalConns))
		}
		return nil
	}, hitRatio, poolSaturation)
	if err != nil {
		return nil, err
	}
	return hook, nil
}

func (h *redisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *redisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.record(ctx, cmd, time.Since(start))
		return err
	}
}

func (h *redisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		elapsed := time.Since(start)
		for _, cmd := range cmds {
			h.record(ctx, cmd, elapsed)
		}
		return err
	}
}

func (h *redisHook) record(ctx context.Context, cmd redis.Cmder, elapsed time.Duration) {
	name := strings.ToLower(cmd.Name())
	err := cmd.Err()

	status := "success"
	switch {
	case err == redis.Nil:
		status = "miss"
	case err != nil:
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("command", name),
		attribute.String("status", status),
	)
	h.commands.Add(ctx, 1, attrs)
	h.latency.Record(ctx, elapsed.Seconds(), attrs)
	if status == "error" {
		h.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("command", name)))
	}

	switch name {
	case "get":
		if err == redis.Nil {
			h.misses.Add(1)
		} else if err == nil {
			h.hits.Add(1)
		}
	case "exists":
		if intCmd, ok := cmd.(*redis.IntCmd); ok && intCmd.Err() == nil {
			if intCmd.Val() > 0 {
				h.hits.Add(1)
			} else {
				h.misses.Add(1)
			}
		}
	}
}
