package repository

import (
	"context"

	"github.com/curatedcode/toshi-sub000/internal/domain"
)

// ProductRepository defines the interface for product persistence and search.
type ProductRepository interface {
	// Create inserts a new product into the store.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetBySlug retrieves a product by its URL-friendly slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// Update modifies an existing product in the store.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product from the store by its identifier.
	Delete(ctx context.Context, id string) error

	// Search returns one page of products matching the query, each row
	// carrying its review aggregate and company.
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchProduct, error)

	// CountSearch returns the total number of products matching the query,
	// ignoring pagination.
	CountSearch(ctx context.Context, q domain.SearchQuery) (int, error)

	// SearchFacets returns the distinct category names across every product
	// matching the query, ignoring pagination.
	SearchFacets(ctx context.Context, q domain.SearchQuery) ([]string, error)

	// PrimaryImages returns the first image for each of the given products.
	PrimaryImages(ctx context.Context, productIDs []string) (map[string]domain.ProductImage, error)

	// CategoryNames returns the category names attached to each of the given
	// products.
	CategoryNames(ctx context.Context, productIDs []string) (map[string][]string, error)

	// Images returns all images for a product ordered by sort order.
	Images(ctx context.Context, productID string) ([]domain.ProductImage, error)

	// AddImage attaches an image to a product.
	AddImage(ctx context.Context, img *domain.ProductImage) error

	// SetCategories replaces the category assignments of a product.
	SetCategories(ctx context.Context, productID string, categoryIDs []string) error
}

// ReviewRepository defines the interface for review persistence.
type ReviewRepository interface {
	// Create inserts a new review.
	Create(ctx context.Context, review *domain.Review) error

	// ListByProduct returns the reviews for a product, newest first.
	ListByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Review, int, error)

	// Summary returns the aggregate rating statistics for a product.
	Summary(ctx context.Context, productID string) (*domain.ReviewSummary, error)
}

// CategoryRepository defines the interface for category persistence.
type CategoryRepository interface {
	// Create inserts a new category.
	Create(ctx context.Context, category *domain.Category) error

	// GetBySlug retrieves a category by its slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)

	// List returns all categories ordered by name.
	List(ctx context.Context) ([]domain.Category, error)
}

// OrderRepository defines the interface for order persistence. Create runs
// in a transaction that also decrements product stock; it fails the whole
// order when any line exceeds the available quantity.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, page, perPage int) ([]domain.Order, int, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// UserRepository defines the interface for user account persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// CartRepository defines the interface for cart storage. Carts expire; Get
// returns a not-found error for a missing or expired cart and callers start
// a fresh one.
type CartRepository interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// Save persists a cart, overwriting any existing cart for the user.
	Save(ctx context.Context, cart *domain.Cart) error

	// SaveIfVersion persists a cart only if the stored version still matches
	// expectedVersion, bumping the version on success. It returns false when
	// another writer got there first.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)

	Delete(ctx context.Context, userID string) error
}
