package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseURL string

	JWTIssuer          string
	JWTAudience        string
	JWTAccessSecret    string
	SessionTokenPepper string
	SessionTTL         time.Duration

	VerificationCodeTTL time.Duration
	ResendCooldown      time.Duration

	CacheRedisEnabled bool
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	CachePrefix       string
	TypesCacheTTL     time.Duration

	MailSMTPEnabled bool
	SMTPAddr        string
	SMTPFrom        string
	SMTPUsername    string
	SMTPPassword    string

	CORSAllowedOrigins  []string
	AuthRateLimitPerMin int
	APIRateLimitPerMin  int

	BootstrapOwnerEmail    string
	BootstrapOwnerPassword string

	ReadinessProbeTimeout  time.Duration
	ServerStartGracePeriod time.Duration
	ShutdownTimeout        time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:                env,
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTIssuer:          getEnv("JWT_ISSUER", "toolvault"),
		JWTAudience:        getEnv("JWT_AUDIENCE", "toolvault-api"),
		JWTAccessSecret:    os.Getenv("JWT_ACCESS_SECRET"),
		SessionTokenPepper: os.Getenv("SESSION_TOKEN_PEPPER"),

		CacheRedisEnabled: getEnvBool("CACHE_REDIS_ENABLED", false),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		CachePrefix:       getEnv("CACHE_PREFIX", "toolvault_cache"),

		MailSMTPEnabled: getEnvBool("MAIL_SMTP_ENABLED", false),
		SMTPAddr:        getEnv("SMTP_ADDR", "localhost:1025"),
		SMTPFrom:        getEnv("SMTP_FROM", "no-reply@toolvault.local"),
		SMTPUsername:    os.Getenv("SMTP_USERNAME"),
		SMTPPassword:    os.Getenv("SMTP_PASSWORD"),

		CORSAllowedOrigins:  splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		AuthRateLimitPerMin: getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:  getEnvInt("API_RATE_LIMIT_PER_MIN", 120),

		BootstrapOwnerEmail:    strings.TrimSpace(strings.ToLower(os.Getenv("BOOTSTRAP_OWNER_EMAIL"))),
		BootstrapOwnerPassword: os.Getenv("BOOTSTRAP_OWNER_PASSWORD"),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "toolvault"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", true),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", true),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	durations := []struct {
		dst *time.Duration
		key string
		def string
	}{
		{&cfg.SessionTTL, "SESSION_TTL", "24h"},
		{&cfg.VerificationCodeTTL, "VERIFICATION_CODE_TTL", "10m"},
		{&cfg.ResendCooldown, "RESEND_COOLDOWN", "60s"},
		{&cfg.TypesCacheTTL, "TYPES_CACHE_TTL", "1h"},
		{&cfg.ReadinessProbeTimeout, "READINESS_PROBE_TIMEOUT", "2s"},
		{&cfg.ServerStartGracePeriod, "SERVER_START_GRACE_PERIOD", "10s"},
		{&cfg.ShutdownTimeout, "SHUTDOWN_TIMEOUT", "20s"},
		{&cfg.OTELMetricsExportInterval, "OTEL_METRICS_EXPORT_INTERVAL", "10s"},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.JWTAccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 chars")
	}
	if len(c.SessionTokenPepper) < 16 {
		errs = append(errs, "SESSION_TOKEN_PEPPER must be at least 16 chars")
	}
	if c.SessionTTL <= 0 || c.SessionTTL > (30*24*time.Hour) {
		errs = append(errs, "SESSION_TTL must be between 1s and 30d")
	}
	if c.VerificationCodeTTL <= 0 || c.VerificationCodeTTL > time.Hour {
		errs = append(errs, "VERIFICATION_CODE_TTL must be between 1s and 1h")
	}
	if c.ResendCooldown < 0 {
		errs = append(errs, "RESEND_COOLDOWN must not be negative")
	}
	if c.TypesCacheTTL <= 0 {
		errs = append(errs, "TYPES_CACHE_TTL must be > 0")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.CacheRedisEnabled && c.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required when CACHE_REDIS_ENABLED=true")
	}
	if c.MailSMTPEnabled && c.SMTPAddr == "" {
		errs = append(errs, "SMTP_ADDR is required when MAIL_SMTP_ENABLED=true")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
