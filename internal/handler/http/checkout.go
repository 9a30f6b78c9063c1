package http

import (
	"log/slog"
	"net/http"

	"github.com/curatedcode/toshi-sub000/internal/service"
	"github.com/curatedcode/toshi-sub000/pkg/httputil"
	"github.com/curatedcode/toshi-sub000/pkg/middleware"
)

// CheckoutHandler handles HTTP requests for checkout endpoints.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// GetTotals handles GET /api/v1/checkout/totals
// Returns the priced view of the current cart: subtotal, tax, and grand total.
func (h *CheckoutHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	totals, err := h.service.ComputeTotals(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: totals})
}

// PlaceOrder handles POST /api/v1/checkout
// Converts the current cart into an order and clears the cart.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	order, err := h.service.PlaceOrder(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}
