package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/curatedcode/toshi-sub000/internal/domain"
	"github.com/curatedcode/toshi-sub000/internal/event"
	"github.com/curatedcode/toshi-sub000/internal/repository"
	apperrors "github.com/curatedcode/toshi-sub000/pkg/errors"
)

// ReviewService implements the business logic for product reviews.
type ReviewService struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	products repository.ProductRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		products: products,
		producer: producer,
		logger:   logger,
	}
}

// CreateReviewInput holds the parameters for submitting a review.
type CreateReviewInput struct {
	ProductID string
	UserID    string
	Rating    float64
	Title     string
	Body      string
}

// CreateReview submits a review for a product. A user may review each
// product once.
func (s *ReviewService) CreateReview(ctx context.Context, input *CreateReviewInput) (*domain.Review, error) {
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.UserID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if input.Rating < domain.MinRating || input.Rating > domain.MaxRating {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %g and %g", domain.MinRating, domain.MaxRating))
	}
	if input.Title == "" {
		return nil, apperrors.InvalidInput("review title is required")
	}

	if _, err := s.products.GetByID(ctx, input.ProductID); err != nil {
		return nil, fmt.Errorf("get product for review: %w", err)
	}

	review := &domain.Review{
		ID:        uuid.New().String(),
		ProductID: input.ProductID,
		UserID:    input.UserID,
		Rating:    input.Rating,
		Title:     input.Title,
		Body:      input.Body,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		slog.Float64("rating", review.Rating),
	)

	return review, nil
}

// ListReviews returns one page of reviews for a product, newest first, with
// the total count.
func (s *ReviewService) ListReviews(ctx context.Context, productID string, page, perPage int) ([]domain.Review, int, error) {
	if productID == "" {
		return nil, 0, apperrors.InvalidInput("product id is required")
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > domain.DefaultPerPage {
		perPage = domain.DefaultPerPage
	}

	reviews, total, err := s.reviews.ListByProduct(ctx, productID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	return reviews, total, nil
}

// GetSummary returns the aggregate rating for a product. The average is nil
// when the product has no reviews.
func (s *ReviewService) GetSummary(ctx context.Context, productID string) (*domain.ReviewSummary, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	summary, err := s.reviews.Summary(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("review summary: %w", err)
	}

	return summary, nil
}
