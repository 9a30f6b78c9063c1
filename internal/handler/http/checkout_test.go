package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/curatedcode/toshi-sub000/internal/auth"
	"github.com/curatedcode/toshi-sub000/internal/domain"
	"github.com/curatedcode/toshi-sub000/internal/service"
	apperrors "github.com/curatedcode/toshi-sub000/pkg/errors"
	"github.com/curatedcode/toshi-sub000/pkg/middleware"
)

func setupCheckoutRouter(carts *mockCartRepository, orders *mockOrderRepository, jwtManager *auth.JWTManager) *chi.Mux {
	taxRate := decimal.RequireFromString("0.07")
	svc := service.NewCheckoutService(carts, orders, testProducer(), testLogger(), taxRate)
	handler := NewCheckoutHandler(svc, testLogger())
	requireAuth := middleware.Auth(tokenValidator(jwtManager))

	r := chi.NewRouter()
	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(requireAuth)

		r.Get("/totals", handler.GetTotals)
		r.Post("/", handler.PlaceOrder)
	})
	return r
}

// ============================================================================
// GET /api/v1/checkout/totals - GetTotals
// ============================================================================

func TestGetTotals_Success(t *testing.T) {
	carts := new(mockCartRepository)
	orders := new(mockOrderRepository)
	jwtManager := testJWTManager()
	router := setupCheckoutRouter(carts, orders, jwtManager)

	carts.On("Get", mock.Anything, "user-123").Return(cartFixture(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/totals", nil)
	req.Header.Set("Authorization", bearerToken(t, jwtManager, "user-123", domain.RoleCustomer))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	require.NotNil(t, resp.Data)

	// 2 x 19.99 at 7% tax.
	data := resp.Data.(map[string]any)
	assert.Equal(t, "39.98", data["subtotal"])
	assert.Equal(t, "2.80", data["tax_to_be_collected"])
	assert.Equal(t, "42.78", data["total_after_tax"])

	// The response echoes the cart the totals were computed from.
	cart, ok := data["cart"].(map[string]any)
	require.True(t, ok)
	items, ok := cart["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	line := items[0].(map[string]any)
	assert.Equal(t, validProductID, line["product_id"])
	assert.Equal(t, float64(2), line["quantity"])
	carts.AssertExpectations(t)
}

func TestGetTotals_MissingCartIsZero(t *testing.T) {
	carts := new(mockCartRepository)
	orders := new(mockOrderRepository)
	jwtManager := testJWTManager()
	router := setupCheckoutRouter(carts, orders, jwtManager)

	carts.On("Get", mock.Anything, "user-123").Return(nil, apperrors.NotFound("cart", "user-123"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/totals", nil)
	req.Header.Set("Authorization", bearerToken(t, jwtManager, "user-123", domain.RoleCustomer))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "0.00", data["subtotal"])
	assert.Equal(t, "0.00", data["total_after_tax"])
}

func TestGetTotals_MissingToken_Returns401(t *testing.T) {
	carts := new(mockCartRepository)
	orders := new(mockOrderRepository)
	router := setupCheckoutRouter(carts, orders, testJWTManager())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/totals", nil)
	// No Authorization header.
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================================================
// POST /api/v1/checkout - PlaceOrder
// ============================================================================

func TestPlaceOrder_Success(t *testing.T) {
	carts := new(mockCartRepository)
	orders := new(mockOrderRepository)
	jwtManager := testJWTManager()
	router := setupCheckoutRouter(carts, orders, jwtManager)

	carts.On("Get", mock.Anything, "user-123").Return(cartFixture(), nil)
	orders.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)
	carts.On("Delete", mock.Anything, "user-123").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t, jwtManager, "user-123", domain.RoleCustomer))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Data)
	carts.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestPlaceOrder_EmptyCart_Returns400(t *testing.T) {
	carts := new(mockCartRepository)
	orders := new(mockOrderRepository)
	jwtManager := testJWTManager()
	router := setupCheckoutRouter(carts, orders, jwtManager)

	carts.On("Get", mock.Anything, "user-123").Return(nil, apperrors.NotFound("cart", "user-123"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t, jwtManager, "user-123", domain.RoleCustomer))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPlaceOrder_OutOfStock_Returns422(t *testing.T) {
	carts := new(mockCartRepository)
	orders := new(mockOrderRepository)
	jwtManager := testJWTManager()
	router := setupCheckoutRouter(carts, orders, jwtManager)

	carts.On("Get", mock.Anything, "user-123").Return(cartFixture(), nil)
	orders.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).
		Return(apperrors.OutOfStock(validProductID))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t, jwtManager, "user-123", domain.RoleCustomer))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "OUT_OF_STOCK", resp.Error.Code)

	// The cart survives a failed checkout.
	carts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
