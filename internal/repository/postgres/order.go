package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/curatedcode/toshi-sub000/internal/domain"
	"github.com/curatedcode/toshi-sub000/pkg/database"
	apperrors "github.com/curatedcode/toshi-sub000/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	db database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts an order and its items and decrements product stock, all in
// one transaction. Stock is decremented with a conditional UPDATE so two
// concurrent orders can never oversell: the guard quantity >= $n makes the
// losing transaction affect zero rows, which fails the whole order.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback(ctx)

	orderQuery := `
		INSERT INTO orders (id, user_id, status, subtotal, tax, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := tx.Exec(ctx, orderQuery,
		o.ID,
		o.UserID,
		o.Status,
		o.Subtotal.String(),
		o.Tax.String(),
		o.Total.String(),
		o.CreatedAt,
		o.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	stockQuery := `
		UPDATE products
		SET quantity = quantity - $1, updated_at = now()
		WHERE id = $2 AND quantity >= $1`

	for i := range o.Items {
		item := &o.Items[i]

		if _, err := tx.Exec(ctx, itemQuery,
			item.ID,
			o.ID,
			item.ProductID,
			item.Name,
			item.UnitPrice.String(),
			item.Quantity,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}

		ct, err := tx.Exec(ctx, stockQuery, item.Quantity, item.ProductID)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.OutOfStock(item.ProductID)
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, user_id, status, subtotal::text, tax::text, total::text, created_at, updated_at
		FROM orders
		WHERE id = $1`

	o, err := r.scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return o, nil
}

// ListByUser returns the orders for a user, newest first, with the total
// count. Items are not loaded for list views.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, page, perPage int) ([]domain.Order, int, error) {
	query := `
		SELECT id, user_id, status, subtotal::text, tax::text, total::text, created_at, updated_at,
			   count(*) OVER() AS total_count
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	offset := 0
	if page > 1 {
		offset = (page - 1) * perPage
	}

	rows, err := r.db.Query(ctx, query, userID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var (
		orders     []domain.Order
		totalCount int
	)

	for rows.Next() {
		var (
			o                                domain.Order
			subtotalText, taxText, totalText string
		)

		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Status,
			&subtotalText,
			&taxText,
			&totalText,
			&o.CreatedAt,
			&o.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}

		if err := parseOrderAmounts(&o, subtotalText, taxText, totalText); err != nil {
			return nil, 0, err
		}

		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	if orders == nil {
		orders = []domain.Order{}
	}

	return orders, totalCount, nil
}

// UpdateStatus moves an order to a new status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = now()
		WHERE id = $2`

	ct, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}

	return nil
}

func (r *OrderRepository) listItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, name, unit_price::text, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var (
			item      domain.OrderItem
			priceText string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &priceText, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item row: %w", err)
		}
		item.UnitPrice, err = decimal.NewFromString(priceText)
		if err != nil {
			return nil, fmt.Errorf("parse unit price %q: %w", priceText, err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}

	return items, nil
}

func (r *OrderRepository) scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                                domain.Order
		subtotalText, taxText, totalText string
	)

	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&subtotalText,
		&taxText,
		&totalText,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := parseOrderAmounts(&o, subtotalText, taxText, totalText); err != nil {
		return nil, err
	}

	return &o, nil
}

func parseOrderAmounts(o *domain.Order, subtotal, tax, total string) error {
	var err error
	if o.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return fmt.Errorf("parse subtotal %q: %w", subtotal, err)
	}
	if o.Tax, err = decimal.NewFromString(tax); err != nil {
		return fmt.Errorf("parse tax %q: %w", tax, err)
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return fmt.Errorf("parse total %q: %w", total, err)
	}
	return nil
}
