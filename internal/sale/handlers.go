package sale

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
	"github.com/noah-isme/sales-api/internal/pricing"
)

// Handler wires the sale service to HTTP.
type Handler struct {
	Svc            *Service
	Validate       *validator.Validate
	DefaultPerPage int
	MaxPerPage     int
}

type cartItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type createCartRequest struct {
	UserID    string            `json:"userId" validate:"required,uuid"`
	StoreName string            `json:"storeName" validate:"required,min=2,max=100"`
	Items     []cartItemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateCartRequest struct {
	Items []cartItemRequest `json:"items" validate:"required,min=1,dive"`
}

type lineItemResponse struct {
	ProductID           string          `json:"productId"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unitPrice"`
	DiscountPercentage  decimal.Decimal `json:"discountPercentage"`
	DiscountAmount      decimal.Decimal `json:"discountAmount"`
	TotalBeforeDiscount decimal.Decimal `json:"totalBeforeDiscount"`
	TotalAfterDiscount  decimal.Decimal `json:"totalAfterDiscount"`
}

type cartResponse struct {
	ID              string             `json:"id"`
	SaleNumber      int64              `json:"saleNumber"`
	Status          string             `json:"status"`
	StoreName       string             `json:"storeName"`
	BoughtBy        string             `json:"boughtBy"`
	CreatedBy       string             `json:"createdBy"`
	SoldAt          time.Time          `json:"soldAt"`
	CancelledAt     *time.Time         `json:"cancelledAt,omitempty"`
	CancelledBy     *string            `json:"cancelledBy,omitempty"`
	DeletedAt       *time.Time         `json:"deletedAt,omitempty"`
	DeletedBy       *string            `json:"deletedBy,omitempty"`
	TotalSaleAmount decimal.Decimal    `json:"totalSaleAmount"`
	Items           []lineItemResponse `json:"items"`
}

// Create handles POST /carts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload createCartRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed", common.FieldViolations(err))
		return
	}
	boughtBy, err := uuid.Parse(payload.UserID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	createdBy := boughtBy
	if actor, ok := actorUUID(r); ok {
		createdBy = actor
	}
	lines, err := parseLines(payload.Items)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	cart, err := h.Svc.Create(r.Context(), CreateInput{
		BoughtBy:  boughtBy,
		CreatedBy: createdBy,
		StoreName: payload.StoreName,
		Lines:     lines,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, toCartResponse(cart))
}

// List handles GET /carts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, h.defaultPerPage(), h.MaxPerPage)
	carts, total, err := h.Svc.List(r.Context(), page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]cartResponse, 0, len(carts))
	for i := range carts {
		items = append(items, toCartResponse(&carts[i]))
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

// Get handles GET /carts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	cart, err := h.Svc.Get(r.Context(), cartID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, toCartResponse(cart))
}

// Update handles PUT /carts/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	var payload updateCartRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed", common.FieldViolations(err))
		return
	}
	lines, err := parseLines(payload.Items)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	cart, err := h.Svc.Update(r.Context(), cartID, lines)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, toCartResponse(cart))
}

// Cancel handles POST /carts/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	actor, ok := actorUUID(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	cart, err := h.Svc.Cancel(r.Context(), cartID, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, toCartResponse(cart))
}

// Delete handles DELETE /carts/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	actor, ok := actorUUID(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	cart, err := h.Svc.Delete(r.Context(), cartID, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, toCartResponse(cart))
}

func (h *Handler) cartID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) defaultPerPage() int {
	if h.DefaultPerPage > 0 {
		return h.DefaultPerPage
	}
	return 20
}

func actorUUID(r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.ActorID(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func parseLines(items []cartItemRequest) ([]LineInput, error) {
	lines := make([]LineInput, 0, len(items))
	for _, item := range items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, LineInput{ProductID: productID, Quantity: item.Quantity})
	}
	return lines, nil
}

func toCartResponse(c *Cart) cartResponse {
	items := make([]lineItemResponse, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, lineItemResponse{
			ProductID:           item.ProductID.String(),
			Quantity:            item.Quantity,
			UnitPrice:           item.UnitPrice,
			DiscountPercentage:  item.DiscountPercentage,
			DiscountAmount:      item.DiscountAmount,
			TotalBeforeDiscount: item.TotalBeforeDiscount,
			TotalAfterDiscount:  item.TotalAfterDiscount,
		})
	}
	return cartResponse{
		ID:              c.ID.String(),
		SaleNumber:      c.SaleNumber,
		Status:          string(c.Status),
		StoreName:       c.StoreName,
		BoughtBy:        c.BoughtBy.String(),
		CreatedBy:       c.CreatedBy.String(),
		SoldAt:          c.SoldAt,
		CancelledAt:     c.CancelledAt,
		CancelledBy:     uuidStringPtr(c.CancelledBy),
		DeletedAt:       c.DeletedAt,
		DeletedBy:       uuidStringPtr(c.DeletedBy),
		TotalSaleAmount: c.TotalSaleAmount,
		Items:           items,
	}
}

func uuidStringPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// writeError maps domain failures onto the canonical error envelope.
func writeError(w http.ResponseWriter, err error) {
	var (
		limitErr      *QuantityLimitExceededError
		transitionErr *InvalidStateTransitionError
		productErr    *ProductNotFoundError
		cartErr       *CartNotFoundError
	)
	switch {
	case errors.As(err, &limitErr):
		common.JSONError(w, http.StatusUnprocessableEntity, "QUANTITY_LIMIT_EXCEEDED", limitErr.Error(), map[string]any{
			"productId": limitErr.ProductID.String(),
			"requested": limitErr.Requested,
			"max":       limitErr.Max,
		})
	case errors.As(err, &transitionErr):
		common.JSONError(w, http.StatusConflict, "INVALID_STATE_TRANSITION", transitionErr.Error(), map[string]any{
			"from": transitionErr.From,
			"to":   transitionErr.To,
		})
	case errors.As(err, &productErr):
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", productErr.Error(), map[string]any{
			"productId": productErr.ProductID.String(),
		})
	case errors.As(err, &cartErr):
		common.JSONError(w, http.StatusNotFound, "CART_NOT_FOUND", cartErr.Error(), map[string]any{
			"cartId": cartErr.CartID.String(),
		})
	case errors.Is(err, ErrNoLines), errors.Is(err, pricing.ErrNonPositiveQuantity):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
	case errors.Is(err, ErrConcurrencyConflict):
		common.JSONError(w, http.StatusConflict, "CONCURRENCY_CONFLICT", "cart was modified concurrently, retry the operation", nil)
	case errors.Is(err, ErrSaleNumberExhausted):
		common.JSONError(w, http.StatusServiceUnavailable, "SALE_NUMBER_EXHAUSTED", "could not allocate a sale number, retry later", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
