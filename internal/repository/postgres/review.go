package postgres

import (
	"context"
	"fmt"

	"github.com/curatedcode/toshi-sub000/internal/domain"
	"github.com/curatedcode/toshi-sub000/pkg/database"
	apperrors "github.com/curatedcode/toshi-sub000/pkg/errors"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	db database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(db database.DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a new review. A user may review a product at most once;
// a second attempt surfaces as an already-exists error.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, product_id, user_id, rating, title, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		review.ID,
		review.ProductID,
		review.UserID,
		review.Rating,
		review.Title,
		review.Body,
		review.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("review", "product", review.ProductID)
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// ListByProduct returns the reviews for a product, newest first, with the
// total count.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Review, int, error) {
	query := `
		SELECT id, product_id, user_id, rating, title, body, created_at,
			   count(*) OVER() AS total_count
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	offset := 0
	if page > 1 {
		offset = (page - 1) * perPage
	}

	rows, err := r.db.Query(ctx, query, productID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)

	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.ProductID,
			&rv.UserID,
			&rv.Rating,
			&rv.Title,
			&rv.Body,
			&rv.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	return reviews, totalCount, nil
}

// Summary returns the aggregate rating for a product. The average is nil
// when the product has no reviews.
func (r *ReviewRepository) Summary(ctx context.Context, productID string) (*domain.ReviewSummary, error) {
	query := `
		SELECT avg(rating), count(*)
		FROM reviews
		WHERE product_id = $1`

	var (
		avg   *float64
		count int
	)
	if err := r.db.QueryRow(ctx, query, productID).Scan(&avg, &count); err != nil {
		return nil, fmt.Errorf("review summary: %w", err)
	}

	summary := &domain.ReviewSummary{TotalCount: count}
	if avg != nil {
		rounded := domain.RoundRating(*avg)
		summary.AverageRating = &rounded
	}

	return summary, nil
}
