package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	CompanyID   string          `json:"company_id"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.Quantity > 0
}

// ProductImage is an image associated with a product, ordered by SortOrder.
type ProductImage struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	URL       string `json:"url"`
	AltText   string `json:"alt_text,omitempty"`
	SortOrder int    `json:"sort_order"`
}

// Company is the seller that owns a product.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductDetail is an enriched product response with images, categories,
// company, and the aggregate review summary.
type ProductDetail struct {
	Product
	Images     []ProductImage `json:"images"`
	Categories []string       `json:"categories"`
	Company    *Company       `json:"company,omitempty"`
	Reviews    *ReviewSummary `json:"reviews,omitempty"`
}
