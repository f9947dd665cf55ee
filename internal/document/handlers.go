package document

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/tenant"
)

// Handler exposes document endpoints under /api/v1/documents/{type}.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the document endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/{type}", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Post("/{id}/submit", h.Submit)
	})
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (orgID string, docType Type, ok bool) {
	orgID, found := tenant.OrgFromContext(r.Context())
	if !found {
		common.JSONError(w, http.StatusForbidden, "ORG_REQUIRED", "request is not scoped to an organization", nil)
		return "", "", false
	}
	docType, found = ParseType(chi.URLParam(r, "type"))
	if !found {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "unknown document type", nil)
		return "", "", false
	}
	return orgID, docType, true
}

// List handles GET /api/v1/documents/{type}.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, docType, ok := h.scope(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, 20, 200)
	filter := ListFilter{
		Type:   docType,
		Status: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	}
	docs, total, err := h.service.List(r.Context(), orgID, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       docs,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Create handles POST /api/v1/documents/{type}.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, docType, ok := h.scope(w, r)
	if !ok {
		return
	}
	var doc Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return
	}
	doc.Type = docType
	created, err := h.service.Create(r.Context(), orgID, doc)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// Get handles GET /api/v1/documents/{type}/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, docType, ok := h.scope(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Get(r.Context(), orgID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if doc.Type != docType {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "document not found", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": doc})
}

// Update handles PUT /api/v1/documents/{type}/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := h.scope(w, r)
	if !ok {
		return
	}
	var doc Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return
	}
	updated, err := h.service.Update(r.Context(), orgID, chi.URLParam(r, "id"), doc)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// Delete handles DELETE /api/v1/documents/{type}/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), orgID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus handles PATCH /api/v1/documents/{type}/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := h.scope(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return
	}
	updated, err := h.service.UpdateStatus(r.Context(), orgID, chi.URLParam(r, "id"), body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// Submit handles POST /api/v1/documents/{type}/{id}/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := h.scope(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Submit(r.Context(), orgID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusAccepted, map[string]any{"data": doc})
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code := appErr.Code
		if code == "" {
			code = "INTERNAL"
		}
		message := appErr.Message
		if message == "" {
			message = "internal error"
		}
		common.JSONError(w, status, code, message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
