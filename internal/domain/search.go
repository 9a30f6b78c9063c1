package domain

import (
	"github.com/shopspring/decimal"
)

// Sort modes for product search.
const (
	SortDefault   = "default"
	SortNewest    = "newest"
	SortRating    = "rating"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// DefaultPerPage is the page size used when the caller does not specify one.
// It is also the maximum; larger requests are clamped down.
const DefaultPerPage = 12

// IsValidSortBy reports whether s names a supported sort mode.
func IsValidSortBy(s string) bool {
	switch s {
	case SortDefault, SortNewest, SortRating, SortPriceAsc, SortPriceDesc:
		return true
	}
	return false
}

// SearchQuery is a normalized product search request. Zero values mean
// "no constraint": an empty Text matches everything, nil price bounds are
// unbounded, and MinRating 0 admits products with no reviews at all.
type SearchQuery struct {
	Text              string
	MinPrice          *decimal.Decimal
	MaxPrice          *decimal.Decimal
	MinRating         float64
	Category          string
	IncludeOutOfStock bool
	SortBy            string
	Page              int
	PerPage           int
}

// Offset returns the row offset for the requested page.
func (q *SearchQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// SearchProduct is one row of a search result page. Rating is nil when the
// product has no reviews.
type SearchProduct struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	Rating       *float64        `json:"rating"`
	ReviewCount  int             `json:"review_count"`
	PrimaryImage *ProductImage   `json:"primary_image,omitempty"`
	Company      *Company        `json:"company,omitempty"`
	Categories   []string        `json:"categories"`
}

// SearchResult is a page of matching products plus the facet and paging
// metadata computed over the full match set.
type SearchResult struct {
	Products     []SearchProduct `json:"products"`
	Categories   []string        `json:"categories"`
	TotalResults int             `json:"total_results"`
	TotalPages   int             `json:"total_pages"`
	Page         int             `json:"page"`
	PerPage      int             `json:"per_page"`
	HasNext      bool            `json:"has_next"`
	HasPrev      bool            `json:"has_prev"`
}
