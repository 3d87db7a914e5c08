package sale_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sales-api/internal/common"
	"github.com/noah-isme/sales-api/internal/sale"
)

func newRouter(t *testing.T, gateway *fakeGateway, catalog fakeCatalog) chi.Router {
	t.Helper()
	svc, _ := newService(t, gateway, catalog)
	h := &sale.Handler{Svc: svc, Validate: validator.New(), DefaultPerPage: 20, MaxPerPage: 100}

	r := chi.NewRouter()
	r.Route("/api/v1/carts", func(c chi.Router) {
		c.Get("/", h.List)
		c.Post("/", h.Create)
		c.Get("/{id}", h.Get)
		c.Put("/{id}", h.Update)
		c.Post("/{id}/cancel", h.Cancel)
		c.Delete("/{id}", h.Delete)
	})
	return r
}

func createBody(t *testing.T, userID uuid.UUID, productID uuid.UUID, quantity int) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"userId":    userID.String(),
		"storeName": "Main Street",
		"items": []map[string]any{
			{"productId": productID.String(), "quantity": quantity},
		},
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func TestCreateCartEndpoint(t *testing.T) {
	productID := uuid.New()
	gateway := newFakeGateway()
	router := newRouter(t, gateway, seedCatalog(map[uuid.UUID]string{productID: "10.00"}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/", createBody(t, uuid.New(), productID, 5))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	env := decodeEnvelope(t, rr)
	require.Nil(t, env.Error)

	var resp struct {
		SaleNumber      int64  `json:"saleNumber"`
		Status          string `json:"status"`
		TotalSaleAmount string `json:"totalSaleAmount"`
		Items           []struct {
			DiscountPercentage string `json:"discountPercentage"`
			TotalAfterDiscount string `json:"totalAfterDiscount"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Equal(t, "active", resp.Status)
	require.GreaterOrEqual(t, resp.SaleNumber, int64(100_000_000))
	require.True(t, decimal.RequireFromString("45.00").Equal(decimal.RequireFromString(resp.TotalSaleAmount)))
	require.Len(t, resp.Items, 1)
	require.True(t, decimal.RequireFromString("10").Equal(decimal.RequireFromString(resp.Items[0].DiscountPercentage)))
}

func TestCreateCartRejectsMalformedBody(t *testing.T) {
	router := newRouter(t, newFakeGateway(), seedCatalog(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeEnvelope(t, rr)
	require.NotNil(t, env.Error)
	require.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestCreateCartValidatesStoreName(t *testing.T) {
	router := newRouter(t, newFakeGateway(), seedCatalog(nil))

	body, err := json.Marshal(map[string]any{
		"userId":    uuid.New().String(),
		"storeName": "x",
		"items": []map[string]any{
			{"productId": uuid.New().String(), "quantity": 1},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeEnvelope(t, rr)
	require.NotNil(t, env.Error)
	require.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestCreateCartQuantityLimitMapsTo422(t *testing.T) {
	productID := uuid.New()
	router := newRouter(t, newFakeGateway(), seedCatalog(map[uuid.UUID]string{productID: "10.00"}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/", createBody(t, uuid.New(), productID, 25))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	env := decodeEnvelope(t, rr)
	require.NotNil(t, env.Error)
	require.Equal(t, "QUANTITY_LIMIT_EXCEEDED", env.Error.Code)
	require.EqualValues(t, 25, env.Error.Details["requested"])
	require.EqualValues(t, 20, env.Error.Details["max"])
}

func TestGetUnknownCartMapsTo404(t *testing.T) {
	router := newRouter(t, newFakeGateway(), seedCatalog(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/carts/"+uuid.NewString(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	env := decodeEnvelope(t, rr)
	require.NotNil(t, env.Error)
	require.Equal(t, "CART_NOT_FOUND", env.Error.Code)
}

func TestGetCartRejectsMalformedID(t *testing.T) {
	router := newRouter(t, newFakeGateway(), seedCatalog(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/carts/not-a-uuid", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCancelRequiresAuthentication(t *testing.T) {
	router := newRouter(t, newFakeGateway(), seedCatalog(nil))

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/carts/%s/cancel", uuid.NewString()), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCancelTwiceMapsTo409(t *testing.T) {
	productID := uuid.New()
	gateway := newFakeGateway()
	router := newRouter(t, gateway, seedCatalog(map[uuid.UUID]string{productID: "10.00"}))
	actor := uuid.New()

	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/carts/", createBody(t, uuid.New(), productID, 1))
	createRR := httptest.NewRecorder()
	router.ServeHTTP(createRR, createReq)
	require.Equal(t, http.StatusCreated, createRR.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, createRR).Data, &created))

	cancelPath := fmt.Sprintf("/api/v1/carts/%s/cancel", created.ID)
	first := httptest.NewRequest(http.MethodPost, cancelPath, nil)
	first = first.WithContext(common.WithActorID(first.Context(), actor.String()))
	firstRR := httptest.NewRecorder()
	router.ServeHTTP(firstRR, first)
	require.Equal(t, http.StatusOK, firstRR.Code)

	second := httptest.NewRequest(http.MethodPost, cancelPath, nil)
	second = second.WithContext(common.WithActorID(second.Context(), actor.String()))
	secondRR := httptest.NewRecorder()
	router.ServeHTTP(secondRR, second)

	require.Equal(t, http.StatusConflict, secondRR.Code)
	env := decodeEnvelope(t, secondRR)
	require.NotNil(t, env.Error)
	require.Equal(t, "INVALID_STATE_TRANSITION", env.Error.Code)
	require.Equal(t, "cancelled", env.Error.Details["from"])
}

func TestDeleteHidesCartFromGetEndpoint(t *testing.T) {
	productID := uuid.New()
	gateway := newFakeGateway()
	router := newRouter(t, gateway, seedCatalog(map[uuid.UUID]string{productID: "10.00"}))
	actor := uuid.New()

	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/carts/", createBody(t, uuid.New(), productID, 1))
	createRR := httptest.NewRecorder()
	router.ServeHTTP(createRR, createReq)
	require.Equal(t, http.StatusCreated, createRR.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, createRR).Data, &created))

	deleteReq := httptest.NewRequest(http.MethodDelete, "/api/v1/carts/"+created.ID, nil)
	deleteReq = deleteReq.WithContext(common.WithActorID(deleteReq.Context(), actor.String()))
	deleteRR := httptest.NewRecorder()
	router.ServeHTTP(deleteRR, deleteReq)
	require.Equal(t, http.StatusOK, deleteRR.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/carts/"+created.ID, nil)
	getRR := httptest.NewRecorder()
	router.ServeHTTP(getRR, getReq)
	require.Equal(t, http.StatusNotFound, getRR.Code)
}

func TestUpdateConflictMapsTo409(t *testing.T) {
	productID := uuid.New()
	gateway := newFakeGateway()
	router := newRouter(t, gateway, seedCatalog(map[uuid.UUID]string{productID: "10.00"}))

	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/carts/", createBody(t, uuid.New(), productID, 2))
	createRR := httptest.NewRecorder()
	router.ServeHTTP(createRR, createReq)
	require.Equal(t, http.StatusCreated, createRR.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, createRR).Data, &created))

	gateway.saveErr = sale.ErrConcurrencyConflict

	body, err := json.Marshal(map[string]any{
		"items": []map[string]any{
			{"productId": productID.String(), "quantity": 3},
		},
	})
	require.NoError(t, err)

	updateReq := httptest.NewRequest(http.MethodPut, "/api/v1/carts/"+created.ID, bytes.NewReader(body))
	updateRR := httptest.NewRecorder()
	router.ServeHTTP(updateRR, updateReq)

	require.Equal(t, http.StatusConflict, updateRR.Code)
	env := decodeEnvelope(t, updateRR)
	require.NotNil(t, env.Error)
	require.Equal(t, "CONCURRENCY_CONFLICT", env.Error.Code)
}

func TestListClampsPerPage(t *testing.T) {
	productID := uuid.New()
	gateway := newFakeGateway()
	router := newRouter(t, gateway, seedCatalog(map[uuid.UUID]string{productID: "10.00"}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/carts/?limit=1000000", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var listing struct {
		Pagination struct {
			PerPage int `json:"per_page"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listing))
	require.Equal(t, 100, listing.Pagination.PerPage)
}
