package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/toolvault/toolvault/internal/config"
	"github.com/toolvault/toolvault/internal/observability"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, db *gorm.DB, redisClient redis.UniversalClient) *App {
	return &App{
		Config:                       cfg,
		Logger:                       logger,
		Server:                       server,
		Observability:                runtime,
		DB:                           db,
		Redis:                        redisClient,
		ShutdownTimeout:              cfg.ShutdownTimeout,
		ShutdownHTTPDrainTimeout:     cfg.ShutdownTimeout / 2,
		ShutdownObservabilityTimeout: cfg.ShutdownTimeout / 4,
	}
}

// Run serves until ctx is cancelled, then drains in stages: HTTP first so
// in-flight requests finish, then the telemetry pipeline so their spans and
// metrics are flushed, then the data connections.
func (a *App) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		return errors.Join(append([]error{err}, a.closeConnections()...)...)
	case <-ctx.Done():
	}
	a.Logger.Info("shutdown requested")
	return a.shutdown()
}

func (a *App) shutdown() error {
	total := a.ShutdownTimeout
	if total <= 0 {
		total = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), total)
	defer cancel()

	var errs []error

	drain := a.ShutdownHTTPDrainTimeout
	if drain <= 0 {
		drain = 10 * time.Second
	}
	httpCtx, httpCancel := context.WithTimeout(ctx, drain)
	if err := a.Server.Shutdown(httpCtx); err != nil {
		errs = append(errs, err)
	}
	httpCancel()

	if a.Observability != nil {
		flush := a.ShutdownObservabilityTimeout
		if flush <= 0 {
			flush = 8 * time.Second
		}
		obsCtx, obsCancel := context.WithTimeout(ctx, flush)
		if err := a.Observability.Shutdown(obsCtx); err != nil {
			errs = append(errs, err)
		}
		obsCancel()
	}

	errs = append(errs, a.closeConnections()...)
	return errors.Join(errs...)
}

func (a *App) closeConnections() []error {
	var errs []error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}
