package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/toolvault/toolvault/internal/http/response"
	"github.com/toolvault/toolvault/internal/observability"
	"github.com/toolvault/toolvault/internal/service"
)

type ToolHandler struct {
	toolSvc *service.ToolService
}

func NewToolHandler(toolSvc *service.ToolService) *ToolHandler {
	return &ToolHandler{toolSvc: toolSvc}
}

// List returns the tools visible to the caller: everything for owners, the
// role-filtered subset otherwise.
func (h *ToolHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := callerID(r)
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	tools, err := h.toolSvc.ListForUser(r.Context(), uid)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list tools", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, tools)
}

func (h *ToolHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	toolID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid tool id", nil)
		return
	}
	tool, err := h.toolSvc.Get(r.Context(), toolID)
	if err != nil {
		if errors.Is(err, service.ErrToolNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "tool not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load tool", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, tool)
}

func (h *ToolHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.ToolInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	created, err := h.toolSvc.Create(r.Context(), in)
	if err != nil {
		if writeValidationError(w, r, err) {
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to create tool", nil)
		return
	}
	observability.Audit(r, "tool.create", "tool_id", created.ID, "name", created.Name)
	response.JSON(w, r, http.StatusCreated, created)
}

func (h *ToolHandler) Update(w http.ResponseWriter, r *http.Request) {
	toolID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid tool id", nil)
		return
	}
	var in service.ToolInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	updated, err := h.toolSvc.Update(r.Context(), toolID, in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrToolNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "tool not found", nil)
		case writeValidationError(w, r, err):
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to update tool", nil)
		}
		return
	}
	observability.Audit(r, "tool.update", "tool_id", toolID)
	response.JSON(w, r, http.StatusOK, updated)
}

func (h *ToolHandler) Delete(w http.ResponseWriter, r *http.Request) {
	toolID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid tool id", nil)
		return
	}
	if err := h.toolSvc.Delete(r.Context(), toolID); err != nil {
		if errors.Is(err, service.ErrToolNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "tool not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to delete tool", nil)
		return
	}
	observability.Audit(r, "tool.delete", "tool_id", strconv.FormatUint(uint64(toolID), 10))
	response.JSON(w, r, http.StatusOK, map[string]any{"deleted": true})
}
