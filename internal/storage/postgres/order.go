package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glamlocks/storefront/internal/domain/order"
)

const (
	orderColumns = `id, order_number, user_id, guest, lines, subtotal, shipping, tax,
		discount, total, coupon_id, status, payment_status, payment_method,
		shipping_address, billing_address, shipping_method, tracking_number,
		carrier, notes, created_at`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	countOrdersSQL = `SELECT COUNT(*) FROM orders`

	updateOrderSQL = `UPDATE orders SET status = $2, payment_status = $3,
		tracking_number = $4, carrier = $5, notes = $6
		WHERE id = $1`

	// An order counts as a delivered purchase when any of its JSONB lines
	// references the product.
	hasDeliveredProductSQL = `SELECT EXISTS (
		SELECT 1 FROM orders o, jsonb_array_elements(o.lines) AS line
		WHERE o.user_id = $1 AND o.status = 'delivered' AND line->>'productId' = $2
	)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// items, addresses, and guest contacts are stored as JSONB snapshots.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}
	shipAddrJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}
	billAddrJSON, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return fmt.Errorf("marshaling billing address: %w", err)
	}
	var guestJSON []byte
	if o.Guest != nil {
		guestJSON, err = json.Marshal(o.Guest)
		if err != nil {
			return fmt.Errorf("marshaling guest contact: %w", err)
		}
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.OrderNumber, o.UserID, guestJSON, linesJSON,
		o.Subtotal, o.Shipping, o.Tax, o.Discount, o.Total,
		o.CouponID, o.Status, o.PaymentStatus, o.PaymentMethod,
		shipAddrJSON, billAddrJSON, o.ShippingMethod,
		o.TrackingNumber, o.Carrier, o.Notes, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// List returns a page of all orders with the total count, newest first.
func (r *OrderRepository) List(ctx context.Context, page order.Page) ([]order.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countOrdersSQL).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	offset := (page.Number - 1) * page.Limit
	rows, err := r.pool.Query(ctx, listOrdersSQL, page.Limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Update writes the mutable fulfillment fields of an order.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, o.Status, o.PaymentStatus, o.TrackingNumber, o.Carrier, o.Notes,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// HasDeliveredProduct reports whether the user has a delivered order
// containing the product.
func (r *OrderRepository) HasDeliveredProduct(ctx context.Context, userID, productID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, hasDeliveredProductSQL, userID, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking delivered purchase: %w", err)
	}
	return exists, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o        order.Order
		guest    []byte
		lines    []byte
		shipAddr []byte
		billAddr []byte
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &guest, &lines,
		&o.Subtotal, &o.Shipping, &o.Tax, &o.Discount, &o.Total,
		&o.CouponID, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&shipAddr, &billAddr, &o.ShippingMethod,
		&o.TrackingNumber, &o.Carrier, &o.Notes, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}

	if err := json.Unmarshal(lines, &o.Lines); err != nil {
		return o, fmt.Errorf("unmarshaling lines for %q: %w", o.ID, err)
	}
	if err := json.Unmarshal(shipAddr, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("unmarshaling shipping address for %q: %w", o.ID, err)
	}
	if err := json.Unmarshal(billAddr, &o.BillingAddress); err != nil {
		return o, fmt.Errorf("unmarshaling billing address for %q: %w", o.ID, err)
	}
	if len(guest) > 0 {
		o.Guest = new(order.Guest)
		if err := json.Unmarshal(guest, o.Guest); err != nil {
			return o, fmt.Errorf("unmarshaling guest contact for %q: %w", o.ID, err)
		}
	}
	return o, nil
}
