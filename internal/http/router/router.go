package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/toolvault/toolvault/internal/domain"
	"github.com/toolvault/toolvault/internal/health"
	"github.com/toolvault/toolvault/internal/http/handler"
	"github.com/toolvault/toolvault/internal/http/middleware"
	"github.com/toolvault/toolvault/internal/http/response"
	"github.com/toolvault/toolvault/internal/service"
)

type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	ToolHandler       *handler.ToolHandler
	TypeHandler       *handler.TypeHandler
	RoleHandler       *handler.RoleHandler
	UserHandler       *handler.UserHandler
	TokenService      *service.TokenService
	CORSOrigins       []string
	AuthRateLimitRPM  int
	APIRateLimitRPM   int
	GlobalRateLimiter func(http.Handler) http.Handler
	AuthRateLimiter   func(http.Handler) http.Handler
	Readiness         *health.ProbeRunner
	EnableOTelHTTP    bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())
	}

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute).Middleware()
	}
	authn := middleware.AuthMiddleware(dep.TokenService)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
			r.With(authLimiter).Post("/verify-2fa", dep.AuthHandler.Verify2FA)
			r.With(authLimiter).Post("/resend-2fa", dep.AuthHandler.Resend2FA)
			r.With(authn).Post("/logout", dep.AuthHandler.Logout)
		})

		r.With(authn).Get("/me", dep.AuthHandler.Me)

		// The type listing stays public so the catalog UI can render its
		// navigation before login.
		r.Route("/ai-tools-types", func(r chi.Router) {
			r.Get("/", dep.TypeHandler.List)
			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Get("/{id}", dep.TypeHandler.GetByID)
				r.With(middleware.RequireRole(domain.RoleOwner)).Post("/", dep.TypeHandler.Create)
				r.With(middleware.RequireRole(domain.RoleOwner)).Post("/clear-cache", dep.TypeHandler.ClearCache)
			})
		})

		r.Route("/ai-tools", func(r chi.Router) {
			r.Use(authn)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleOwner, domain.RoleFrontend, domain.RoleBackend))
				r.Get("/", dep.ToolHandler.List)
				r.Get("/{id}", dep.ToolHandler.GetByID)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleOwner, domain.RoleBackend))
				r.Post("/", dep.ToolHandler.Create)
				r.Put("/{id}", dep.ToolHandler.Update)
			})
			r.With(middleware.RequireRole(domain.RoleOwner)).Delete("/{id}", dep.ToolHandler.Delete)
		})

		r.Route("/roles", func(r chi.Router) {
			r.Use(authn)
			r.Get("/", dep.RoleHandler.List)
			r.With(middleware.RequireRole(domain.RoleOwner)).Post("/", dep.RoleHandler.Create)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authn)
			r.Use(middleware.RequireRole(domain.RoleOwner))
			r.Get("/", dep.UserHandler.List)
			r.Post("/", dep.UserHandler.Create)
			r.Patch("/{id}/status", dep.UserHandler.SetStatus)
			r.Patch("/{id}/roles", dep.UserHandler.SetRoles)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
