package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/toolvault/toolvault/internal/http/middleware"
	"github.com/toolvault/toolvault/internal/http/response"
	"github.com/toolvault/toolvault/internal/service"
)

func parsePathID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

func clientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}

// callerID extracts the authenticated user id placed by the auth middleware.
func callerID(r *http.Request) (uint, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return 0, false
	}
	id, err := claims.UserID()
	if err != nil {
		return 0, false
	}
	return id, true
}

// writeValidationError maps a rejected payload to 422 with per-field details.
// Returns false when err is not a validation failure.
func writeValidationError(w http.ResponseWriter, r *http.Request, err error) bool {
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	response.Error(w, r, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "the given data was invalid", verr.Fields)
	return true
}
