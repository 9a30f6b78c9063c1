package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/curatedcode/toshi-sub000/internal/domain"
	apperrors "github.com/curatedcode/toshi-sub000/pkg/errors"
)

// --- Mock CartRepository ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	args := m.Called(ctx, cart, expectedVersion)
	return args.Bool(0), args.Error(1)
}

func (m *mockCartRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newCartService(carts *mockCartRepository, products *mockProductRepository) *CartService {
	return NewCartService(carts, products, testEventProducer(), newTestLogger(), 24*time.Hour)
}

func cartWithWidget() *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:     "cart-001",
		UserID: "user-1",
		Items: []domain.CartItem{
			{ProductID: "prod-1", Name: "Widget", Price: decimal.RequireFromString("19.99"), Quantity: 2},
		},
		Version:   3,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

func widgetProduct() *domain.Product {
	return &domain.Product{
		ID:       "prod-1",
		Name:     "Widget",
		Slug:     "widget",
		Price:    decimal.RequireFromString("19.99"),
		Quantity: 10,
	}
}

// --- Tests ---

func TestGetCart_MissingReturnsEmpty(t *testing.T) {
	carts := new(mockCartRepository)
	svc := newCartService(carts, new(mockProductRepository))
	ctx := context.Background()

	carts.On("Get", ctx, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

	cart, err := svc.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", cart.UserID)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.Version)
	carts.AssertExpectations(t)
}

func TestAddItem_NewCart(t *testing.T) {
	carts := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newCartService(carts, products)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(widgetProduct(), nil)
	carts.On("Get", ctx, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))
	carts.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 0).Return(true, nil)

	cart, err := svc.AddItem(ctx, "user-1", "prod-1", 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "prod-1", cart.Items[0].ProductID)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	// The price snapshot comes from the catalog, never the client.
	assert.True(t, cart.Items[0].Price.Equal(decimal.RequireFromString("19.99")))
	carts.AssertExpectations(t)
	products.AssertExpectations(t)
}

func TestAddItem_MergesQuantity(t *testing.T) {
	carts := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newCartService(carts, products)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(widgetProduct(), nil)
	carts.On("Get", ctx, "user-1").Return(cartWithWidget(), nil)
	carts.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 3).Return(true, nil)

	cart, err := svc.AddItem(ctx, "user-1", "prod-1", 3)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	carts.AssertExpectations(t)
}

func TestAddItem_CappedAtStock(t *testing.T) {
	carts := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newCartService(carts, products)
	ctx := context.Background()

	// Only 4 units in stock; merging 2 + 5 clamps to 4.
	product := widgetProduct()
	product.Quantity = 4
	products.On("GetByID", ctx, "prod-1").Return(product, nil)
	carts.On("Get", ctx, "user-1").Return(cartWithWidget(), nil)
	carts.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 3).Return(true, nil)

	cart, err := svc.AddItem(ctx, "user-1", "prod-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Items[0].Quantity)
	carts.AssertExpectations(t)
}

func TestAddItem_OutOfStock(t *testing.T) {
	carts := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newCartService(carts, products)
	ctx := context.Background()

	product := widgetProduct()
	product.Quantity = 0
	products.On("GetByID", ctx, "prod-1").Return(product, nil)

	cart, err := svc.AddItem(ctx, "user-1", "prod-1", 1)
	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrOutOfStock)
	carts.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc := newCartService(new(mockCartRepository), new(mockProductRepository))
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "user-1", "prod-1", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.AddItem(ctx, "user-1", "prod-1", MaxQuantityPerItem+1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAddItem_VersionConflict(t *testing.T) {
	carts := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newCartService(carts, products)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(widgetProduct(), nil)
	carts.On("Get", ctx, "user-1").Return(cartWithWidget(), nil)
	carts.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 3).Return(false, nil)

	cart, err := svc.AddItem(ctx, "user-1", "prod-1", 1)
	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	carts.AssertExpectations(t)
}

func TestUpdateItemQuantity_ZeroRemovesItem(t *testing.T) {
	carts := new(mockCartRepository)
	svc := newCartService(carts, new(mockProductRepository))
	ctx := context.Background()

	carts.On("Get", ctx, "user-1").Return(cartWithWidget(), nil)
	carts.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 3).Return(true, nil)

	cart, err := svc.UpdateItemQuantity(ctx, "user-1", "prod-1", 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	carts.AssertExpectations(t)
}

func TestUpdateItemQuantity_CappedAtStock(t *testing.T) {
	carts := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newCartService(carts, products)
	ctx := context.Background()

	product := widgetProduct()
	product.Quantity = 3
	products.On("GetByID", ctx, "prod-1").Return(product, nil)
	carts.On("Get", ctx, "user-1").Return(cartWithWidget(), nil)
	carts.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 3).Return(true, nil)

	cart, err := svc.UpdateItemQuantity(ctx, "user-1", "prod-1", 8)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	carts.AssertExpectations(t)
}

func TestUpdateItemQuantity_StockGone(t *testing.T) {
	carts := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newCartService(carts, products)
	ctx := context.Background()

	product := widgetProduct()
	product.Quantity = 0
	products.On("GetByID", ctx, "prod-1").Return(product, nil)
	carts.On("Get", ctx, "user-1").Return(cartWithWidget(), nil)

	cart, err := svc.UpdateItemQuantity(ctx, "user-1", "prod-1", 5)
	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrOutOfStock)
}

func TestUpdateItemQuantity_ItemNotInCart(t *testing.T) {
	carts := new(mockCartRepository)
	svc := newCartService(carts, new(mockProductRepository))
	ctx := context.Background()

	carts.On("Get", ctx, "user-1").Return(cartWithWidget(), nil)

	cart, err := svc.UpdateItemQuantity(ctx, "user-1", "prod-other", 1)
	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRemoveItem_Success(t *testing.T) {
	carts := new(mockCartRepository)
	svc := newCartService(carts, new(mockProductRepository))
	ctx := context.Background()

	carts.On("Get", ctx, "user-1").Return(cartWithWidget(), nil)
	carts.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 3).Return(true, nil)

	cart, err := svc.RemoveItem(ctx, "user-1", "prod-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	carts.AssertExpectations(t)
}

func TestRemoveItem_NotInCart(t *testing.T) {
	carts := new(mockCartRepository)
	svc := newCartService(carts, new(mockProductRepository))
	ctx := context.Background()

	carts.On("Get", ctx, "user-1").Return(cartWithWidget(), nil)

	cart, err := svc.RemoveItem(ctx, "user-1", "prod-other")
	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClearCart_Success(t *testing.T) {
	carts := new(mockCartRepository)
	svc := newCartService(carts, new(mockProductRepository))
	ctx := context.Background()

	carts.On("Delete", ctx, "user-1").Return(nil)

	err := svc.ClearCart(ctx, "user-1")
	assert.NoError(t, err)
	carts.AssertExpectations(t)
}
