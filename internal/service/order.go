package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/curatedcode/toshi-sub000/internal/domain"
	"github.com/curatedcode/toshi-sub000/internal/repository"
	apperrors "github.com/curatedcode/toshi-sub000/pkg/errors"
)

// OrderService implements the business logic for order history and status
// transitions.
type OrderService struct {
	orders repository.OrderRepository
	logger *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(orders repository.OrderRepository, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders: orders,
		logger: logger,
	}
}

// GetOrder retrieves an order with its items. A user may only read their
// own orders; admins may read any.
func (s *OrderService) GetOrder(ctx context.Context, id, userID, role string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	if order.UserID != userID && role != domain.RoleAdmin {
		return nil, apperrors.Forbidden("order belongs to another user")
	}

	return order, nil
}

// ListOrders returns one page of the user's orders, newest first, with the
// total count.
func (s *OrderService) ListOrders(ctx context.Context, userID string, page, perPage int) ([]domain.Order, int, error) {
	if userID == "" {
		return nil, 0, apperrors.InvalidInput("user id is required")
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > domain.DefaultPerPage {
		perPage = domain.DefaultPerPage
	}

	orders, total, err := s.orders.ListByUser(ctx, userID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	return orders, total, nil
}

// UpdateStatus moves an order to a new status, enforcing the allowed
// transitions.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for status update: %w", err)
	}

	if !domain.CanTransition(order.Status, status) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot transition order from %q to %q", order.Status, status))
	}

	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	order.Status = status

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("status", status),
	)

	return order, nil
}
