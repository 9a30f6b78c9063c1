package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/curatedcode/toshi-sub000/internal/domain"
	apperrors "github.com/curatedcode/toshi-sub000/pkg/errors"
)

func pendingOrder() *domain.Order {
	return &domain.Order{
		ID:       "order-1",
		UserID:   "user-1",
		Status:   domain.OrderStatusPending,
		Subtotal: decimal.RequireFromString("35"),
		Tax:      decimal.RequireFromString("2.45"),
		Total:    decimal.RequireFromString("37.45"),
	}
}

func TestGetOrder_Owner(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := NewOrderService(orders, newTestLogger())
	ctx := context.Background()

	orders.On("GetByID", ctx, "order-1").Return(pendingOrder(), nil)

	order, err := svc.GetOrder(ctx, "order-1", "user-1", domain.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
	orders.AssertExpectations(t)
}

func TestGetOrder_OtherUserForbidden(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := NewOrderService(orders, newTestLogger())
	ctx := context.Background()

	orders.On("GetByID", ctx, "order-1").Return(pendingOrder(), nil)

	order, err := svc.GetOrder(ctx, "order-1", "user-2", domain.RoleCustomer)
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestGetOrder_AdminMayReadAny(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := NewOrderService(orders, newTestLogger())
	ctx := context.Background()

	orders.On("GetByID", ctx, "order-1").Return(pendingOrder(), nil)

	order, err := svc.GetOrder(ctx, "order-1", "admin-1", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
}

func TestListOrders_ClampsPagination(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := NewOrderService(orders, newTestLogger())
	ctx := context.Background()

	orders.On("ListByUser", ctx, "user-1", 1, domain.DefaultPerPage).
		Return([]domain.Order{*pendingOrder()}, 1, nil)

	got, total, err := svc.ListOrders(ctx, "user-1", 0, 500)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, total)
	orders.AssertExpectations(t)
}

func TestUpdateStatus_ValidTransition(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := NewOrderService(orders, newTestLogger())
	ctx := context.Background()

	orders.On("GetByID", ctx, "order-1").Return(pendingOrder(), nil)
	orders.On("UpdateStatus", ctx, "order-1", domain.OrderStatusPaid).Return(nil)

	order, err := svc.UpdateStatus(ctx, "order-1", domain.OrderStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	orders.AssertExpectations(t)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := NewOrderService(orders, newTestLogger())
	ctx := context.Background()

	orders.On("GetByID", ctx, "order-1").Return(pendingOrder(), nil)

	order, err := svc.UpdateStatus(ctx, "order-1", domain.OrderStatusDelivered)
	assert.Nil(t, order)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}
