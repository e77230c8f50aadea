package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/toolvault/toolvault/internal/http/response"
	"github.com/toolvault/toolvault/internal/observability"
	"github.com/toolvault/toolvault/internal/service"
)

type RoleHandler struct {
	roleSvc *service.RoleService
}

func NewRoleHandler(roleSvc *service.RoleService) *RoleHandler {
	return &RoleHandler{roleSvc: roleSvc}
}

func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleSvc.List(r.Context())
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list roles", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, roles)
}

func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.RoleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	created, err := h.roleSvc.Create(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRoleExists):
			response.Error(w, r, http.StatusConflict, "CONFLICT", "role already exists", nil)
		case writeValidationError(w, r, err):
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to create role", nil)
		}
		return
	}
	observability.Audit(r, "role.create", "role_id", created.ID, "name", created.Name)
	response.JSON(w, r, http.StatusCreated, created)
}
