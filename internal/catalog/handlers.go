package catalog

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

// Handler exposes product endpoints scoped to the caller's organization.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the product endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List handles GET /api/v1/products.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenant.OrgFromContext(r.Context())
	if !ok {
		common.JSONError(w, http.StatusForbidden, "ORG_REQUIRED", "request is not scoped to an organization", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50, 200)
	onlyActive := !strings.EqualFold(r.URL.Query().Get("include_inactive"), "true")

	result, err := h.service.List(r.Context(), orgID, onlyActive, page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.Pagination{Page: result.Page, PerPage: result.Limit, TotalItems: int(result.Total)},
	})
}

// Get handles GET /api/v1/products/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenant.OrgFromContext(r.Context())
	if !ok {
		common.JSONError(w, http.StatusForbidden, "ORG_REQUIRED", "request is not scoped to an organization", nil)
		return
	}
	product, err := h.service.Get(r.Context(), orgID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

// Create handles POST /api/v1/products.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenant.OrgFromContext(r.Context())
	if !ok {
		common.JSONError(w, http.StatusForbidden, "ORG_REQUIRED", "request is not scoped to an organization", nil)
		return
	}
	var input ProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return
	}
	product, err := h.service.Create(r.Context(), orgID, input)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": product})
}

// Update handles PUT /api/v1/products/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenant.OrgFromContext(r.Context())
	if !ok {
		common.JSONError(w, http.StatusForbidden, "ORG_REQUIRED", "request is not scoped to an organization", nil)
		return
	}
	var input ProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return
	}
	product, err := h.service.Update(r.Context(), orgID, chi.URLParam(r, "id"), input)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

// Delete handles DELETE /api/v1/products/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenant.OrgFromContext(r.Context())
	if !ok {
		common.JSONError(w, http.StatusForbidden, "ORG_REQUIRED", "request is not scoped to an organization", nil)
		return
	}
	if err := h.service.Delete(r.Context(), orgID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
