package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sales-api/internal/common"
)

// Handler wires the catalog service to HTTP.
type Handler struct {
	Svc            *Service
	Validate       *validator.Validate
	DefaultPerPage int
	MaxPerPage     int
}

type productRequest struct {
	Title       string          `json:"title" validate:"required,min=2,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	CategoryID  string          `json:"categoryId" validate:"omitempty,uuid"`
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

type productResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  string          `json:"categoryId,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type categoryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateProduct handles POST /products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	categoryID, ok := parseOptionalUUID(w, payload.CategoryID)
	if !ok {
		return
	}
	p, err := h.Svc.CreateProduct(r.Context(), Product{
		Title:       payload.Title,
		Description: payload.Description,
		Price:       payload.Price,
		CategoryID:  categoryID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, toProductResponse(p))
}

// GetProduct handles GET /products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.Svc.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, toProductResponse(p))
}

// ListProducts handles GET /products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, h.defaultPerPage(), h.MaxPerPage)
	products, total, err := h.Svc.ListProducts(r.Context(), page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]productResponse, 0, len(products))
	for _, p := range products {
		items = append(items, toProductResponse(p))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": items,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: total,
		},
	})
}

// UpdateProduct handles PUT /products/{id}.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	payload, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	categoryID, ok := parseOptionalUUID(w, payload.CategoryID)
	if !ok {
		return
	}
	current, err := h.Svc.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	current.Title = payload.Title
	current.Description = payload.Description
	current.Price = payload.Price
	current.CategoryID = categoryID
	updated, err := h.Svc.UpdateProduct(r.Context(), current)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, toProductResponse(updated))
}

// DeleteProduct handles DELETE /products/{id}.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Svc.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateCategory handles POST /categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeCategory(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.CreateCategory(r.Context(), Category{
		Name:        payload.Name,
		Description: payload.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, toCategoryResponse(c))
}

// GetCategory handles GET /categories/{id}.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Svc.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, toCategoryResponse(c))
}

// ListCategories handles GET /categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Svc.ListCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		items = append(items, toCategoryResponse(c))
	}
	common.JSONData(w, http.StatusOK, items)
}

// UpdateCategory handles PUT /categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	payload, ok := h.decodeCategory(w, r)
	if !ok {
		return
	}
	current, err := h.Svc.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	current.Name = payload.Name
	current.Description = payload.Description
	updated, err := h.Svc.UpdateCategory(r.Context(), current)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, toCategoryResponse(updated))
}

// DeleteCategory handles DELETE /categories/{id}.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Svc.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request) (productRequest, bool) {
	var payload productRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return productRequest{}, false
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed", common.FieldViolations(err))
		return productRequest{}, false
	}
	return payload, true
}

func (h *Handler) decodeCategory(w http.ResponseWriter, r *http.Request) (categoryRequest, bool) {
	var payload categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return categoryRequest{}, false
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed", common.FieldViolations(err))
		return categoryRequest{}, false
	}
	return payload, true
}

func (h *Handler) defaultPerPage() int {
	if h.DefaultPerPage > 0 {
		return h.DefaultPerPage
	}
	return 20
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalUUID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}

func toProductResponse(p Product) productResponse {
	resp := productResponse{
		ID:          p.ID.String(),
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.CategoryID != uuid.Nil {
		resp.CategoryID = p.CategoryID.String()
	}
	return resp
}

func toCategoryResponse(c Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID.String(),
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
