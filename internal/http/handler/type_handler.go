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

type TypeHandler struct {
	typeSvc *service.TypeService
}

func NewTypeHandler(typeSvc *service.TypeService) *TypeHandler {
	return &TypeHandler{typeSvc: typeSvc}
}

// List returns every type with its tool count, served from the list cache.
func (h *TypeHandler) List(w http.ResponseWriter, r *http.Request) {
	types, err := h.typeSvc.ListWithCounts(r.Context())
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list types", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, types)
}

func (h *TypeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	typeID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid type id", nil)
		return
	}
	toolType, err := h.typeSvc.Get(r.Context(), typeID)
	if err != nil {
		if errors.Is(err, service.ErrToolTypeNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "type not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load type", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, toolType)
}

func (h *TypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.TypeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	created, err := h.typeSvc.Create(r.Context(), in)
	if err != nil {
		if writeValidationError(w, r, err) {
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to create type", nil)
		return
	}
	observability.Audit(r, "type.create", "type_id", created.ID, "name", created.Name)
	response.JSON(w, r, http.StatusCreated, created)
}

// ClearCache drops the cached type listing.
func (h *TypeHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	removed := h.typeSvc.ClearCache(r.Context())
	observability.Audit(r, "type.cache.clear", "removed", removed)
	response.JSON(w, r, http.StatusOK, map[string]any{"cleared": removed})
}
