package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/curatedcode/toshi-sub000/internal/domain"
	"github.com/curatedcode/toshi-sub000/internal/event"
	"github.com/curatedcode/toshi-sub000/internal/repository"
	apperrors "github.com/curatedcode/toshi-sub000/pkg/errors"
)

// slugRegexp matches characters not allowed in a slug.
var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// CatalogService implements the business logic for products, categories, and
// storefront search.
type CatalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	reviews    repository.ReviewRepository
	producer   *event.Producer
	logger     *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	reviews repository.ReviewRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		reviews:    reviews,
		producer:   producer,
		logger:     logger,
	}
}

// Search runs a storefront product search: it counts the full match set,
// fetches one page with review aggregates and companies, collects the
// category facets across all matches, and batch-loads primary images and
// category names for the returned page.
func (s *CatalogService) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	if err := normalizeSearchQuery(&q); err != nil {
		return nil, err
	}

	total, err := s.products.CountSearch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count search: %w", err)
	}

	result := &domain.SearchResult{
		Products:     []domain.SearchProduct{},
		Categories:   []string{},
		TotalResults: total,
		TotalPages:   (total + q.PerPage - 1) / q.PerPage,
		Page:         q.Page,
		PerPage:      q.PerPage,
	}
	result.HasNext = q.Page < result.TotalPages
	result.HasPrev = q.Page > 1 && total > 0

	if total == 0 {
		return result, nil
	}

	products, err := s.products.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	facets, err := s.products.SearchFacets(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search facets: %w", err)
	}
	result.Categories = facets

	productIDs := make([]string, len(products))
	for i := range products {
		productIDs[i] = products[i].ID
	}

	primaryImages, err := s.products.PrimaryImages(ctx, productIDs)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load primary images for search page",
			slog.String("error", err.Error()),
		)
		primaryImages = map[string]domain.ProductImage{}
	}

	categoryNames, err := s.products.CategoryNames(ctx, productIDs)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load category names for search page",
			slog.String("error", err.Error()),
		)
		categoryNames = map[string][]string{}
	}

	for i := range products {
		if img, ok := primaryImages[products[i].ID]; ok {
			products[i].PrimaryImage = &img
		}
		if names, ok := categoryNames[products[i].ID]; ok {
			products[i].Categories = names
		}
	}
	result.Products = products

	s.logger.DebugContext(ctx, "search completed",
		slog.String("text", q.Text),
		slog.Int("total_results", total),
		slog.Int("page", q.Page),
	)

	return result, nil
}

// normalizeSearchQuery applies defaults and validates the caller-supplied
// parts of a search query.
func normalizeSearchQuery(q *domain.SearchQuery) error {
	q.Text = strings.TrimSpace(q.Text)

	if q.SortBy == "" {
		q.SortBy = domain.SortDefault
	}
	if !domain.IsValidSortBy(q.SortBy) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid sort_by %q", q.SortBy))
	}

	if q.MinRating < domain.MinRating || q.MinRating > domain.MaxRating {
		return apperrors.InvalidInput(fmt.Sprintf("rating must be between %g and %g", domain.MinRating, domain.MaxRating))
	}

	if q.MinPrice != nil && q.MinPrice.IsNegative() {
		return apperrors.InvalidInput("min price must not be negative")
	}
	if q.MaxPrice != nil && q.MaxPrice.IsNegative() {
		return apperrors.InvalidInput("max price must not be negative")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return apperrors.InvalidInput("min price must not exceed max price")
	}

	// A zero page means the caller left it unset; anything below that is an
	// explicit, invalid request.
	if q.Page < 0 {
		return apperrors.InvalidInput("page must be at least 1")
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 || q.PerPage > domain.DefaultPerPage {
		q.PerPage = domain.DefaultPerPage
	}

	return nil
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name        string
	Description string
	CompanyID   string
	Price       decimal.Decimal
	Quantity    int
	CategoryIDs []string
}

// UpdateProductInput holds the parameters for updating a product.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Quantity    *int
	CategoryIDs []string
}

// CreateProduct creates a new product with the given input.
func (s *CatalogService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.CompanyID == "" {
		return nil, apperrors.InvalidInput("company id is required")
	}
	if input.Price.IsNegative() {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if input.Quantity < 0 {
		return nil, apperrors.InvalidInput("quantity must not be negative")
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Slug:        generateSlug(input.Name),
		Description: input.Description,
		CompanyID:   input.CompanyID,
		Price:       input.Price,
		Quantity:    input.Quantity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if len(input.CategoryIDs) > 0 {
		if err := s.products.SetCategories(ctx, product.ID, input.CategoryIDs); err != nil {
			return nil, fmt.Errorf("assign categories: %w", err)
		}
	}

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// GetProduct retrieves a product by its ID.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// GetProductDetail retrieves a product by slug and enriches it with images,
// categories, company, and the review summary.
func (s *CatalogService) GetProductDetail(ctx context.Context, slug string) (*domain.ProductDetail, error) {
	product, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get product by slug: %w", err)
	}

	detail := &domain.ProductDetail{
		Product:    *product,
		Images:     []domain.ProductImage{},
		Categories: []string{},
	}

	images, err := s.products.Images(ctx, product.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load product images",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	} else {
		detail.Images = images
	}

	categoryNames, err := s.products.CategoryNames(ctx, []string{product.ID})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load product categories",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	} else if names, ok := categoryNames[product.ID]; ok {
		detail.Categories = names
	}

	summary, err := s.reviews.Summary(ctx, product.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load review summary",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	} else {
		detail.Reviews = summary
	}

	return detail, nil
}

// UpdateProduct applies partial updates to an existing product.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("product name must not be empty")
		}
		product.Name = *input.Name
		product.Slug = generateSlug(*input.Name)
	}

	if input.Description != nil {
		product.Description = *input.Description
	}

	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, apperrors.InvalidInput("price must not be negative")
		}
		product.Price = *input.Price
	}

	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, apperrors.InvalidInput("quantity must not be negative")
		}
		product.Quantity = *input.Quantity
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if input.CategoryIDs != nil {
		if err := s.products.SetCategories(ctx, product.ID, input.CategoryIDs); err != nil {
			return nil, fmt.Errorf("assign categories: %w", err)
		}
	}

	if err := s.producer.PublishProductUpdated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// DeleteProduct removes a product by its ID.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	// Verify the product exists before deleting.
	if _, err := s.products.GetByID(ctx, id); err != nil {
		return fmt.Errorf("get product for delete: %w", err)
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if err := s.producer.PublishProductDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
	)

	return nil
}

// AddProductImage attaches an image to a product.
func (s *CatalogService) AddProductImage(ctx context.Context, productID, url, altText string, sortOrder int) (*domain.ProductImage, error) {
	if url == "" {
		return nil, apperrors.InvalidInput("image url is required")
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("get product for image: %w", err)
	}

	img := &domain.ProductImage{
		ID:        uuid.New().String(),
		ProductID: productID,
		URL:       url,
		AltText:   altText,
		SortOrder: sortOrder,
	}

	if err := s.products.AddImage(ctx, img); err != nil {
		return nil, fmt.Errorf("add product image: %w", err)
	}

	return img, nil
}

// CreateCategory creates a new category.
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	if name == "" {
		return nil, apperrors.InvalidInput("category name is required")
	}

	category := &domain.Category{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      generateSlug(name),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", category.ID),
		slog.String("slug", category.Slug),
	)

	return category, nil
}

// ListCategories returns all categories.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// generateSlug creates a URL-friendly slug from the given name.
func generateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugRegexp.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	return slug
}
