package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart represents a shopping cart. Carts are ephemeral and live in Redis
// keyed by user; Version supports optimistic concurrency on save.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// CartItem is one product-quantity pair within a cart.
type CartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url,omitempty"`
}

// LineTotal returns unit price times quantity for this item.
func (i *CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Subtotal computes the pre-tax subtotal of the cart in a single pass over
// the items. An empty cart yields zero.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for i := range c.Items {
		total = total.Add(c.Items[i].LineTotal())
	}
	return total
}

// ItemCount returns the total number of units across all items.
func (c *Cart) ItemCount() int {
	var count int
	for i := range c.Items {
		count += c.Items[i].Quantity
	}
	return count
}

// FindItemIndex returns the index of the item for the given product, or -1.
func (c *Cart) FindItemIndex(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
