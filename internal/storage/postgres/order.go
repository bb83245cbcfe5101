package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/larder/internal/domain/client"
	"github.com/xenking/larder/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (client_id, total) VALUES ($1, $2) RETURNING id, created_at`

	createOrderLineSQL = `INSERT INTO order_lines
		(order_id, menu_item_id, menu_item_name, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)`

	orderColumns = `o.id, o.client_id, c.name, o.total, o.created_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders o JOIN clients c ON c.id = o.client_id
		WHERE o.id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders o JOIN clients c ON c.id = o.client_id
		WHERE ($1::bigint = 0 OR o.client_id = $1::bigint)
		ORDER BY o.created_at DESC, o.id DESC`

	listOrderLinesSQL = `SELECT order_id, menu_item_id, menu_item_name, quantity, unit_price, subtotal
		FROM order_lines WHERE order_id = ANY($1) ORDER BY order_id, id`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository returns an OrderRepository on db.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order header and then all lines in one batch. Run it
// inside a unit of work so a failed line leaves no header behind.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := r.db.QueryRow(ctx, createOrderSQL, o.ClientID, o.Total).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if code, _ := constraintError(err); code == codeForeignKeyViolation {
			return client.ErrNotFound
		}
		return fmt.Errorf("creating order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, l := range o.Lines {
		var menuItemID *int64
		if l.MenuItemID != 0 {
			menuItemID = &l.MenuItemID
		}
		batch.Queue(createOrderLineSQL, o.ID, menuItemID, l.MenuItemName, l.Quantity, l.UnitPrice, l.Subtotal)
	}
	br := r.db.SendBatch(ctx, batch)
	for range o.Lines {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("creating lines of order %d: %w", o.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("creating lines of order %d: %w", o.ID, err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.db.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	orders := []order.Order{o}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, listOrdersSQL, f.ClientID)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Delete removes an order; its lines cascade. Ingredient stock is untouched.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

type orderLineRow struct {
	orderID int64
	line    order.Line
}

func (r *OrderRepository) attachLines(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = i
	}

	rows, err := r.db.Query(ctx, listOrderLinesSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order lines: %w", err)
	}
	lines, err := pgx.CollectRows(rows, scanOrderLine)
	if err != nil {
		return fmt.Errorf("listing order lines: %w", err)
	}
	for _, lr := range lines {
		i := byID[lr.orderID]
		orders[i].Lines = append(orders[i].Lines, lr.line)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.ClientID, &o.ClientName, &o.Total, &o.CreatedAt)
	return o, err
}

func scanOrderLine(row pgx.CollectableRow) (orderLineRow, error) {
	var (
		lr         orderLineRow
		menuItemID *int64
	)
	err := row.Scan(&lr.orderID, &menuItemID, &lr.line.MenuItemName, &lr.line.Quantity,
		&lr.line.UnitPrice, &lr.line.Subtotal)
	if menuItemID != nil {
		lr.line.MenuItemID = *menuItemID
	}
	return lr, err
}
