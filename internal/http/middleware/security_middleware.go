package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/toolvault/toolvault/internal/observability"
)

func RequestID(next http.Handler) http.Handler { return chimiddleware.RequestID(next) }

// SecurityHeaders sets the standard browser hardening headers. HSTS is only
// meaningful over TLS, so it is withheld on plain HTTP.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'")
		if r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// CORS reflects the origin back only when it is on the allow-list, and short
// circuits preflight requests.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					observability.RecordMiddlewareValidationEvent(r.Context(), "cors", "allow_origin")
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				} else {
					observability.RecordMiddlewareValidationEvent(r.Context(), "cors", "rejected_origin")
				}
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			}
			if r.Method == http.MethodOptions {
				observability.RecordMiddlewareValidationEvent(r.Context(), "cors", "preflight")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BodyLimit caps request bodies via http.MaxBytesReader and counts the
// rejections as they surface during handler reads.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = &limitedBody{
				inner: http.MaxBytesReader(w, r.Body, maxBytes),
				ctx:   r.Context(),
			}
			next.ServeHTTP(w, r)
		})
	}
}

type limitedBody struct {
	inner   io.ReadCloser
	ctx     context.Context
	counted bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.inner.Read(p)
	if err == nil || errors.Is(err, io.EOF) || b.counted {
		return n, err
	}
	b.counted = true

	event := "read_error"
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		event = "rejected_too_large"
	}
	observability.RecordMiddlewareValidationEvent(b.ctx, "body_limit", event)
	return n, err
}

func (b *limitedBody) Close() error { return b.inner.Close() }
