package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/curatedcode/toshi-sub000/internal/domain"
	"github.com/curatedcode/toshi-sub000/internal/event"
	"github.com/curatedcode/toshi-sub000/internal/repository"
	apperrors "github.com/curatedcode/toshi-sub000/pkg/errors"
)

// CheckoutService turns a cart into an order: it prices the cart at the
// configured tax rate and commits the order with a transactional stock
// decrement.
type CheckoutService struct {
	carts    repository.CartRepository
	orders   repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
	taxRate  decimal.Decimal
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	carts repository.CartRepository,
	orders repository.OrderRepository,
	producer *event.Producer,
	logger *slog.Logger,
	taxRate decimal.Decimal,
) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		orders:   orders,
		producer: producer,
		logger:   logger,
		taxRate:  taxRate,
	}
}

// CartTotals is the priced view of a cart shown before the order is placed.
// The cart itself is echoed back so the client can render the line items
// the totals were computed from.
type CartTotals struct {
	Cart             *domain.Cart `json:"cart"`
	Subtotal         string       `json:"subtotal"`
	TaxToBeCollected string       `json:"tax_to_be_collected"`
	TotalAfterTax    string       `json:"total_after_tax"`
	ItemCount        int          `json:"item_count"`
}

// ComputeTotals prices the user's current cart: subtotal over the items,
// tax at the configured rate, and the grand total, all as fixed two-decimal
// strings. An empty or missing cart prices to zero.
func (s *CheckoutService) ComputeTotals(ctx context.Context, userID string) (*CartTotals, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.getCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	subtotal := cart.Subtotal()
	totals := domain.ComputeTotals(subtotal, s.taxRate)

	return &CartTotals{
		Cart:             cart,
		Subtotal:         subtotal.StringFixed(2),
		TaxToBeCollected: totals.TaxToBeCollected,
		TotalAfterTax:    totals.TotalAfterTax,
		ItemCount:        cart.ItemCount(),
	}, nil
}

// PlaceOrder converts the user's cart into an order. The order and its
// stock decrements commit in one transaction; if any line exceeds the
// available stock the whole order fails and the cart is left intact. On
// success the cart is cleared.
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID string) (*domain.Order, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.getCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	subtotal := cart.Subtotal()
	tax := subtotal.Mul(s.taxRate).Round(2)
	total := subtotal.Add(tax)

	now := time.Now().UTC()
	order := &domain.Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    domain.OrderStatusPending,
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     total,
		Items:     make([]domain.OrderItem, len(cart.Items)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	for i, item := range cart.Items {
		order.Items[i] = domain.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  item.Quantity,
		}
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.carts.Delete(ctx, userID); err != nil {
		// The order exists; a stale cart is recoverable.
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			slog.String("user_id", userID),
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
		slog.String("total", total.StringFixed(2)),
	)

	return order, nil
}

// getCart loads the user's cart, treating a missing cart as empty.
func (s *CheckoutService) getCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &domain.Cart{UserID: userID, Items: []domain.CartItem{}}, nil
		}
		return nil, fmt.Errorf("get cart for checkout: %w", err)
	}
	return cart, nil
}
