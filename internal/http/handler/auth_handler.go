package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/toolvault/toolvault/internal/http/middleware"
	"github.com/toolvault/toolvault/internal/http/response"
	"github.com/toolvault/toolvault/internal/observability"
	"github.com/toolvault/toolvault/internal/service"
)

type AuthHandler struct {
	authSvc *service.AuthService
}

func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login checks email and password, then mails a verification code. The
// session is only issued once Verify2FA succeeds.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "login", status, time.Since(start))
	}()

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	pending, err := h.authSvc.Login(r.Context(), body.Email, body.Password, clientIP(r), r.UserAgent())
	if err != nil {
		status = "failure"
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			observability.Audit(r, "auth.login.failed", "reason", "invalid_credentials")
			response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil)
		case errors.Is(err, service.ErrAccountDeactivated):
			observability.Audit(r, "auth.login.failed", "reason", "account_deactivated")
			response.Error(w, r, http.StatusForbidden, "ACCOUNT_DEACTIVATED", "account is deactivated", nil)
		case errors.Is(err, service.ErrDeliveryFailed):
			observability.Audit(r, "auth.login.failed", "reason", "code_delivery")
			response.Error(w, r, http.StatusInternalServerError, "CODE_DELIVERY_FAILED", "failed to send verification code", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
		}
		return
	}

	observability.Audit(r, "auth.login.code_sent", "user_id", pending.UserID)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"requires_2fa": true,
		"user_id":      pending.UserID,
		"email":        pending.Email,
		"message":      "verification code sent",
	})
}

// Verify2FA redeems the mailed code and returns the bearer token with the
// caller's profile.
func (h *AuthHandler) Verify2FA(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "verify_2fa", status, time.Since(start))
	}()

	var body struct {
		UserID uint   `json:"user_id"`
		Code   string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	result, err := h.authSvc.Verify2FA(r.Context(), body.UserID, body.Code, clientIP(r), r.UserAgent())
	if err != nil {
		status = "failure"
		if errors.Is(err, service.ErrCodeInvalid) {
			observability.Audit(r, "auth.verify.failed", "user_id", body.UserID, "reason", "code_rejected")
			response.Error(w, r, http.StatusUnauthorized, "CODE_INVALID", "verification code is invalid or expired", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "verification failed", nil)
		return
	}

	observability.Audit(r, "auth.login.success", "user_id", result.User.ID)
	response.JSON(w, r, http.StatusOK, result)
}

// Resend2FA issues a fresh code for a pending login.
func (h *AuthHandler) Resend2FA(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "resend_2fa", status, time.Since(start))
	}()

	var body struct {
		UserID uint `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	if err := h.authSvc.Resend2FA(r.Context(), body.UserID, clientIP(r), r.UserAgent()); err != nil {
		status = "failure"
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
		case errors.Is(err, service.ErrResendThrottled):
			observability.Audit(r, "auth.resend.throttled", "user_id", body.UserID)
			response.Error(w, r, http.StatusTooManyRequests, "RESEND_THROTTLED", "a code was sent recently, try again later", nil)
		case errors.Is(err, service.ErrDeliveryFailed):
			response.Error(w, r, http.StatusInternalServerError, "CODE_DELIVERY_FAILED", "failed to send verification code", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "resend failed", nil)
		}
		return
	}

	observability.Audit(r, "auth.resend.sent", "user_id", body.UserID)
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "verification code sent"})
}

// Logout revokes the presented token. Repeating the call with the same token
// fails auth middleware, never this handler.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "logout", status, time.Since(start))
	}()

	token, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		status = "failure"
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	if err := h.authSvc.Logout(r.Context(), token); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "logout failed", nil)
		return
	}
	observability.Audit(r, "auth.logout.success")
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := callerID(r)
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	profile, err := h.authSvc.ProfileByID(r.Context(), uid)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "account no longer exists", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load profile", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, profile)
}
