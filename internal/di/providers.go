package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/toolvault/toolvault/internal/app"
	"github.com/toolvault/toolvault/internal/config"
	"github.com/toolvault/toolvault/internal/database"
	"github.com/toolvault/toolvault/internal/health"
	"github.com/toolvault/toolvault/internal/http/handler"
	"github.com/toolvault/toolvault/internal/http/middleware"
	"github.com/toolvault/toolvault/internal/http/router"
	"github.com/toolvault/toolvault/internal/observability"
	"github.com/toolvault/toolvault/internal/repository"
	"github.com/toolvault/toolvault/internal/security"
	"github.com/toolvault/toolvault/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewRoleRepository,
	repository.NewTypeRepository,
	repository.NewToolRepository,
	repository.NewSessionRepository,
	repository.NewVerificationCodeRepository,
)

var SecuritySet = wire.NewSet(provideJWTManager)

var ServiceSet = wire.NewSet(
	provideListCache,
	provideMailer,
	provideTwoFactorService,
	provideTokenService,
	provideAuthService,
	provideTypeService,
	service.NewToolService,
	service.NewRoleService,
	service.NewUserService,
)

var HTTPSet = wire.NewSet(
	handler.NewAuthHandler,
	handler.NewToolHandler,
	handler.NewTypeHandler,
	handler.NewRoleHandler,
	handler.NewUserHandler,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if err := database.Seed(db, cfg.BootstrapOwnerEmail, cfg.BootstrapOwnerPassword); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.CacheRedisEnabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret)
}

func provideListCache(cfg *config.Config, redisClient redis.UniversalClient, logger *slog.Logger) *service.ListCache {
	if cfg.CacheRedisEnabled && redisClient != nil {
		return service.NewListCache(service.NewRedisListCacheStore(redisClient, cfg.CachePrefix), logger)
	}
	return service.NewListCache(service.NewInMemoryListCacheStore(), logger)
}

func provideMailer(cfg *config.Config, logger *slog.Logger) service.Mailer {
	if cfg.MailSMTPEnabled {
		return service.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return service.NewDevMailer(logger)
}

func provideTwoFactorService(cfg *config.Config, codeRepo repository.VerificationCodeRepository, mailer service.Mailer, logger *slog.Logger) *service.TwoFactorService {
	return service.NewTwoFactorService(codeRepo, mailer, logger, cfg.VerificationCodeTTL)
}

func provideTokenService(cfg *config.Config, jwtMgr *security.JWTManager, sessionRepo repository.SessionRepository) *service.TokenService {
	return service.NewTokenService(jwtMgr, sessionRepo, cfg.SessionTokenPepper, cfg.SessionTTL)
}

func provideAuthService(cfg *config.Config, userRepo repository.UserRepository, twoFactor *service.TwoFactorService, tokenSvc *service.TokenService, logger *slog.Logger) *service.AuthService {
	return service.NewAuthService(userRepo, twoFactor, tokenSvc, logger, cfg.ResendCooldown)
}

func provideTypeService(cfg *config.Config, typeRepo repository.TypeRepository, cache *service.ListCache, logger *slog.Logger) *service.TypeService {
	return service.NewTypeService(typeRepo, cache, cfg.TypesCacheTTL, logger)
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) func(http.Handler) http.Handler {
	if cfg.CacheRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.CachePrefix+":rl:api")
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.APIRateLimitPerMin,
			time.Minute,
			middleware.FailOpen,
			"api",
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute).Middleware()
}

func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) func(http.Handler) http.Handler {
	if cfg.CacheRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.CachePrefix+":rl:auth")
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.AuthRateLimitPerMin,
			time.Minute,
			middleware.FailClosed,
			"auth",
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.AuthRateLimitPerMin, time.Minute).Middleware()
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	toolHandler *handler.ToolHandler,
	typeHandler *handler.TypeHandler,
	roleHandler *handler.RoleHandler,
	userHandler *handler.UserHandler,
	tokenSvc *service.TokenService,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:       authHandler,
		ToolHandler:       toolHandler,
		TypeHandler:       typeHandler,
		RoleHandler:       roleHandler,
		UserHandler:       userHandler,
		TokenService:      tokenSvc,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		AuthRateLimitRPM:  cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:   cfg.APIRateLimitPerMin,
		GlobalRateLimiter: provideGlobalRateLimiter(cfg, redisClient),
		AuthRateLimiter:   provideAuthRateLimiter(cfg, redisClient),
		Readiness:         readiness,
		EnableOTelHTTP:    cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient) *health.ProbeRunner {
	checkers := make([]health.Checker, 0, 2)
	if c := health.NewDBChecker(db); c != nil {
		checkers = append(checkers, c)
	}
	if cfg.CacheRedisEnabled {
		if c := health.NewRedisChecker(redisClient); c != nil {
			checkers = append(checkers, c)
		}
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient)
}
