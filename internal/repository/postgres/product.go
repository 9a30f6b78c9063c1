package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/curatedcode/toshi-sub000/internal/domain"
	"github.com/curatedcode/toshi-sub000/pkg/database"
	apperrors "github.com/curatedcode/toshi-sub000/pkg/errors"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, name, slug, description, company_id, price, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Slug,
		p.Description,
		p.CompanyID,
		p.Price.String(),
		p.Quantity,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, name, slug, description, company_id, price::text, quantity, created_at, updated_at
		FROM products
		WHERE id = $1`

	return r.scanProduct(ctx, query, id)
}

// GetBySlug retrieves a product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `
		SELECT id, name, slug, description, company_id, price::text, quantity, created_at, updated_at
		FROM products
		WHERE slug = $1`

	return r.scanProduct(ctx, query, slug)
}

// Update modifies an existing product in the database.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, company_id = $4,
		    price = $5, quantity = $6, updated_at = $7
		WHERE id = $8`

	ct, err := r.db.Exec(ctx, query,
		p.Name,
		p.Slug,
		p.Description,
		p.CompanyID,
		p.Price.String(),
		p.Quantity,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM products WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// searchClauses collects the WHERE and HAVING predicates for a search query,
// shared between the page, count, and facet queries so all three see the
// same match set.
type searchClauses struct {
	where  []string
	having string
	args   []any
}

func buildSearchClauses(q domain.SearchQuery) searchClauses {
	var (
		c        searchClauses
		argIndex = 1
	)

	// Text matches on the product name only; descriptions are out of scope
	// for the storefront search box.
	if q.Text != "" {
		c.where = append(c.where, fmt.Sprintf("p.name ILIKE $%d", argIndex))
		c.args = append(c.args, "%"+q.Text+"%")
		argIndex++
	}

	if q.MinPrice != nil {
		c.where = append(c.where, fmt.Sprintf("p.price >= $%d", argIndex))
		c.args = append(c.args, q.MinPrice.String())
		argIndex++
	}

	if q.MaxPrice != nil {
		c.where = append(c.where, fmt.Sprintf("p.price <= $%d", argIndex))
		c.args = append(c.args, q.MaxPrice.String())
		argIndex++
	}

	if q.Category != "" {
		c.where = append(c.where, fmt.Sprintf(
			`EXISTS (
				SELECT 1 FROM product_categories pc
				JOIN categories cat ON cat.id = pc.category_id
				WHERE pc.product_id = p.id AND cat.slug = $%d
			)`, argIndex))
		c.args = append(c.args, q.Category)
		argIndex++
	}

	if !q.IncludeOutOfStock {
		c.where = append(c.where, "p.quantity > 0")
	}

	// A rating floor of 0 admits products with no reviews at all, so the
	// HAVING clause only appears for a positive floor.
	if q.MinRating > 0 {
		c.having = fmt.Sprintf("HAVING avg(r.rating) >= $%d", argIndex)
		c.args = append(c.args, q.MinRating)
		argIndex++
	}

	return c
}

func (c searchClauses) whereClause() string {
	if len(c.where) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(c.where, " AND ")
}

// searchOrderBy maps a sort mode to its ORDER BY clause. Products without
// reviews sort last under the rating mode. The product ID breaks ties so
// pages never overlap.
func searchOrderBy(sortBy string) string {
	switch sortBy {
	case domain.SortNewest:
		return "ORDER BY p.created_at DESC, p.id"
	case domain.SortRating:
		return "ORDER BY avg(r.rating) DESC NULLS LAST, p.id"
	case domain.SortPriceAsc:
		return "ORDER BY p.price ASC, p.id"
	case domain.SortPriceDesc:
		return "ORDER BY p.price DESC, p.id"
	default:
		return "ORDER BY p.name ASC, p.id"
	}
}

// Search returns one page of products matching the query. Each product row
// aggregates its reviews via a LEFT JOIN, so products without reviews still
// appear, with a null rating.
func (r *ProductRepository) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchProduct, error) {
	c := buildSearchClauses(q)
	argIndex := len(c.args) + 1

	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.slug, p.price::text, p.quantity,
			   avg(r.rating), count(r.id),
			   c.id, c.name
		FROM products p
		JOIN companies c ON c.id = p.company_id
		LEFT JOIN reviews r ON r.product_id = p.id
		%s
		GROUP BY p.id, c.id
		%s
		%s
		LIMIT $%d OFFSET $%d`,
		c.whereClause(), c.having, searchOrderBy(q.SortBy), argIndex, argIndex+1,
	)

	args := append(c.args, q.PerPage, q.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	var products []domain.SearchProduct

	for rows.Next() {
		var (
			p         domain.SearchProduct
			priceText string
			avgRating *float64
			company   domain.Company
		)

		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Slug,
			&priceText,
			&p.Quantity,
			&avgRating,
			&p.ReviewCount,
			&company.ID,
			&company.Name,
		); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}

		p.Price, err = decimal.NewFromString(priceText)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", priceText, err)
		}

		if avgRating != nil {
			rounded := domain.RoundRating(*avgRating)
			p.Rating = &rounded
		}

		p.Company = &company
		p.Categories = []string{}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}

	if products == nil {
		products = []domain.SearchProduct{}
	}

	return products, nil
}

// CountSearch returns the total number of products matching the query. The
// grouped predicate is wrapped in a subquery because a HAVING clause cannot
// be counted directly.
func (r *ProductRepository) CountSearch(ctx context.Context, q domain.SearchQuery) (int, error) {
	c := buildSearchClauses(q)

	query := fmt.Sprintf(`
		SELECT count(*) FROM (
			SELECT p.id
			FROM products p
			LEFT JOIN reviews r ON r.product_id = p.id
			%s
			GROUP BY p.id
			%s
		) AS matched`,
		c.whereClause(), c.having,
	)

	var count int
	if err := r.db.QueryRow(ctx, query, c.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count search: %w", err)
	}

	return count, nil
}

// SearchFacets returns the distinct category names attached to any product
// matching the query, across all pages.
func (r *ProductRepository) SearchFacets(ctx context.Context, q domain.SearchQuery) ([]string, error) {
	c := buildSearchClauses(q)

	query := fmt.Sprintf(`
		SELECT DISTINCT cat.name
		FROM categories cat
		JOIN product_categories pc ON pc.category_id = cat.id
		WHERE pc.product_id IN (
			SELECT p.id
			FROM products p
			LEFT JOIN reviews r ON r.product_id = p.id
			%s
			GROUP BY p.id
			%s
		)
		ORDER BY cat.name`,
		c.whereClause(), c.having,
	)

	rows, err := r.db.Query(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("search facets: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan facet row: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facet rows: %w", err)
	}

	return names, nil
}

// PrimaryImages returns the lowest sort-order image for each given product
// in a single query.
func (r *ProductRepository) PrimaryImages(ctx context.Context, productIDs []string) (map[string]domain.ProductImage, error) {
	if len(productIDs) == 0 {
		return map[string]domain.ProductImage{}, nil
	}

	query := `
		SELECT DISTINCT ON (product_id) id, product_id, url, alt_text, sort_order
		FROM product_images
		WHERE product_id = ANY($1)
		ORDER BY product_id, sort_order, id`

	rows, err := r.db.Query(ctx, query, productIDs)
	if err != nil {
		return nil, fmt.Errorf("primary images: %w", err)
	}
	defer rows.Close()

	images := make(map[string]domain.ProductImage, len(productIDs))
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.AltText, &img.SortOrder); err != nil {
			return nil, fmt.Errorf("scan image row: %w", err)
		}
		images[img.ProductID] = img
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image rows: %w", err)
	}

	return images, nil
}

// CategoryNames returns the category names attached to each given product in
// a single query.
func (r *ProductRepository) CategoryNames(ctx context.Context, productIDs []string) (map[string][]string, error) {
	if len(productIDs) == 0 {
		return map[string][]string{}, nil
	}

	query := `
		SELECT pc.product_id, cat.name
		FROM product_categories pc
		JOIN categories cat ON cat.id = pc.category_id
		WHERE pc.product_id = ANY($1)
		ORDER BY cat.name`

	rows, err := r.db.Query(ctx, query, productIDs)
	if err != nil {
		return nil, fmt.Errorf("category names: %w", err)
	}
	defer rows.Close()

	names := make(map[string][]string, len(productIDs))
	for rows.Next() {
		var productID, name string
		if err := rows.Scan(&productID, &name); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		names[productID] = append(names[productID], name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	return names, nil
}

// Images returns all images for a product ordered by sort order.
func (r *ProductRepository) Images(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	query := `
		SELECT id, product_id, url, alt_text, sort_order
		FROM product_images
		WHERE product_id = $1
		ORDER BY sort_order, id`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	images := []domain.ProductImage{}
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.AltText, &img.SortOrder); err != nil {
			return nil, fmt.Errorf("scan image row: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image rows: %w", err)
	}

	return images, nil
}

// AddImage attaches an image to a product.
func (r *ProductRepository) AddImage(ctx context.Context, img *domain.ProductImage) error {
	query := `
		INSERT INTO product_images (id, product_id, url, alt_text, sort_order)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, img.ID, img.ProductID, img.URL, img.AltText, img.SortOrder)
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}

	return nil
}

// SetCategories replaces the category assignments of a product.
func (r *ProductRepository) SetCategories(ctx context.Context, productID string, categoryIDs []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin set categories: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM product_categories WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}

	for _, categoryID := range categoryIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO product_categories (product_id, category_id) VALUES ($1, $2)`,
			productID, categoryID,
		); err != nil {
			return fmt.Errorf("assign category: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// scanProduct is a helper that executes a query expected to return a single product row.
func (r *ProductRepository) scanProduct(ctx context.Context, query string, args ...any) (*domain.Product, error) {
	var (
		p         domain.Product
		priceText string
	)

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.CompanyID,
		&priceText,
		&p.Quantity,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	p.Price, err = decimal.NewFromString(priceText)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", priceText, err)
	}

	return &p, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
