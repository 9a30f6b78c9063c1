package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. An order starts as pending and moves forward only.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// orderTransitions lists the allowed status transitions.
var orderTransitions = map[string][]string{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Order is a placed order with its captured totals. Amounts are snapshots
// taken at checkout time; later price changes do not affect them.
type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Status        string          `json:"status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Items         []OrderItem     `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ItemCount returns the total number of units across all order lines,
// matching how the cart counts its items.
func (o *Order) ItemCount() int {
	count := 0
	for i := range o.Items {
		count += o.Items[i].Quantity
	}
	return count
}

// OrderItem is a line of an order with the unit price captured at checkout.
type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns unit price times quantity for this line.
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
