package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/curatedcode/toshi-sub000/internal/domain"
	"github.com/curatedcode/toshi-sub000/internal/event"
	"github.com/curatedcode/toshi-sub000/internal/repository"
	apperrors "github.com/curatedcode/toshi-sub000/pkg/errors"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerItem is the maximum quantity allowed for a single cart item.
	MaxQuantityPerItem = 100
	// MaxItemsPerCart is the maximum number of distinct items allowed in a cart.
	MaxItemsPerCart = 50
)

// CartService implements the business logic for cart operations. Prices on
// cart items come from the catalog, never from the client, and quantities
// are capped at the available stock.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
	cartTTL  time.Duration
}

// NewCartService creates a new cart service.
func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	producer *event.Producer,
	logger *slog.Logger,
	cartTTL time.Duration,
) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		producer: producer,
		logger:   logger,
		cartTTL:  cartTTL,
	}
}

// GetCart retrieves the cart for a user. If no cart exists, returns an empty cart.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(userID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return cart, nil
}

// AddItem adds a product to the user's cart, merging quantities when the
// product is already present. The merged quantity is capped at the available
// stock. Uses optimistic locking to prevent lost updates on concurrent
// modifications.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product for cart: %w", err)
	}
	if !product.InStock() {
		return nil, apperrors.OutOfStock(productID)
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	expectedVersion := cart.Version

	idx := cart.FindItemIndex(productID)
	if idx >= 0 {
		newQty := cart.Items[idx].Quantity + quantity
		if newQty > MaxQuantityPerItem {
			newQty = MaxQuantityPerItem
		}
		if newQty > product.Quantity {
			newQty = product.Quantity
		}
		cart.Items[idx].Quantity = newQty
		// Refresh the snapshot fields in case the catalog changed.
		cart.Items[idx].Name = product.Name
		cart.Items[idx].Price = product.Price
	} else {
		if len(cart.Items) >= MaxItemsPerCart {
			return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
		}
		if quantity > product.Quantity {
			quantity = product.Quantity
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  quantity,
		})
	}

	if err := s.saveCart(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.publishCartUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// UpdateItemQuantity updates the quantity of an item in the cart. A quantity
// of 0 removes the item. The new quantity is capped at the available stock.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if quantity < 0 {
		return nil, apperrors.InvalidInput("quantity must not be negative")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart for update: %w", err)
	}

	expectedVersion := cart.Version

	idx := cart.FindItemIndex(productID)
	if idx < 0 {
		return nil, apperrors.NotFound("cart item", productID)
	}

	if quantity == 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	} else {
		product, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("get product for cart: %w", err)
		}
		if quantity > product.Quantity {
			quantity = product.Quantity
		}
		if quantity == 0 {
			return nil, apperrors.OutOfStock(productID)
		}
		cart.Items[idx].Quantity = quantity
		cart.Items[idx].Price = product.Price
	}

	if err := s.saveCart(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.publishCartUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// RemoveItem removes a specific item from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart for remove: %w", err)
	}

	expectedVersion := cart.Version

	idx := cart.FindItemIndex(productID)
	if idx < 0 {
		return nil, apperrors.NotFound("cart item", productID)
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

	if err := s.saveCart(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.publishCartUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
	)

	return cart, nil
}

// ClearCart removes all items from the user's cart.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}

	if err := s.carts.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	if err := s.producer.PublishCartCleared(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("user_id", userID),
	)

	return nil
}

// saveCart stamps and persists the cart under optimistic locking.
func (s *CartService) saveCart(ctx context.Context, cart *domain.Cart, expectedVersion int) error {
	now := time.Now().UTC()
	cart.UpdatedAt = now
	cart.ExpiresAt = now.Add(s.cartTTL)

	ok, err := s.carts.SaveIfVersion(ctx, cart, expectedVersion)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if !ok {
		return apperrors.Conflict("cart was modified concurrently, please retry")
	}

	return nil
}

func (s *CartService) publishCartUpdated(ctx context.Context, cart *domain.Cart) {
	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// getOrCreateCart retrieves the cart for a user, creating an empty one if it does not exist.
func (s *CartService) getOrCreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(userID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// newEmptyCart creates a new empty cart for the given user.
func (s *CartService) newEmptyCart(userID string) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     []domain.CartItem{},
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.cartTTL),
	}
}
