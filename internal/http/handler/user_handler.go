package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/toolvault/toolvault/internal/http/response"
	"github.com/toolvault/toolvault/internal/observability"
	"github.com/toolvault/toolvault/internal/service"
)

type UserHandler struct {
	userSvc *service.UserService
}

func NewUserHandler(userSvc *service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userSvc.List(r.Context())
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list users", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, users)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.UserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	created, err := h.userSvc.Create(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			response.Error(w, r, http.StatusConflict, "CONFLICT", "email is already registered", nil)
		case writeValidationError(w, r, err):
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to create user", nil)
		}
		return
	}
	observability.Audit(r, "user.create", "user_id", created.ID, "email", created.Email)
	response.JSON(w, r, http.StatusCreated, created)
}

// SetStatus toggles the active flag on an account.
func (h *UserHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	var body struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Active == nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "active flag is required", nil)
		return
	}
	updated, err := h.userSvc.SetActive(r.Context(), userID, *body.Active)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to update user", nil)
		return
	}
	observability.Audit(r, "user.status", "user_id", userID, "active", *body.Active)
	response.JSON(w, r, http.StatusOK, updated)
}

// SetRoles replaces a user's full role set.
func (h *UserHandler) SetRoles(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	var body struct {
		RoleIDs []uint `json:"role_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	updated, err := h.userSvc.SetRoles(r.Context(), userID, body.RoleIDs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
		case writeValidationError(w, r, err):
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to update roles", nil)
		}
		return
	}
	observability.Audit(r, "user.roles", "user_id", userID)
	response.JSON(w, r, http.StatusOK, updated)
}
