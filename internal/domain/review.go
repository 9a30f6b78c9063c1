package domain

import (
	"math"
	"time"
)

// Rating bounds for a review.
const (
	MinRating = 0.0
	MaxRating = 5.0
)

// Review represents a product review submitted by a user.
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	Rating    float64   `json:"rating"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewSummary contains aggregate review statistics for a product.
// AverageRating is nil when the product has no reviews; it is never 0 or NaN
// in that case.
type ReviewSummary struct {
	AverageRating *float64 `json:"average_rating"`
	TotalCount    int      `json:"total_count"`
}

// RoundRating rounds an average rating to one decimal place.
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}

// SummarizeRatings computes the displayed aggregate for a list of ratings:
// the arithmetic mean rounded to one decimal place, or nil for an empty list.
func SummarizeRatings(ratings []float64) *float64 {
	if len(ratings) == 0 {
		return nil
	}
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	avg := RoundRating(sum / float64(len(ratings)))
	return &avg
}
