package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"line_supervisor/internal/models"
)

// Production order statuses.
const (
	OrderOpen     = "ABERTA"
	OrderRunning  = "EM_EXECUCAO"
	OrderFinished = "FINALIZADA"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderOpen, OrderRunning, OrderFinished:
		return true
	}
	return false
}

type OrderSQLite struct {
	db *sql.DB
}

func NewOrderSQLite(db *sql.DB) *OrderSQLite { return &OrderSQLite{db: db} }

var _ OrderRepo = (*OrderSQLite)(nil)

const (
	insertOrderSQL = `INSERT INTO production_orders (code, product, description, target, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	selectOrderSQL = `SELECT id, code, product, description, target, status, created_at
		FROM production_orders WHERE code = ?`
	listOrdersSQL = `SELECT id, code, product, description, target, status, created_at
		FROM production_orders`
	updateOrderStatusSQL = `UPDATE production_orders SET status = ? WHERE code = ?`
	deleteOrderSQL       = `DELETE FROM production_orders WHERE code = ?`
)

func (r *OrderSQLite) Create(ctx context.Context, o models.ProductionOrder) (int, error) {
	if o.Status == "" {
		o.Status = OrderOpen
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, insertOrderSQL,
		strings.TrimSpace(o.Code), o.Product, nullable(o.Description), o.Target, o.Status,
		o.CreatedAt.UTC().Format(sqliteTimestamp),
	)
	if err != nil {
		return 0, wrapConstraint(fmt.Errorf("insert order %q: %w", o.Code, err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id for order %q: %w", o.Code, err)
	}
	return int(id), nil
}

// GetByCode returns (nil, nil) when the order does not exist.
func (r *OrderSQLite) GetByCode(ctx context.Context, code string) (*models.ProductionOrder, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, selectOrderSQL, strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select order %q: %w", code, err)
	}
	return o, nil
}

// List returns orders, newest first, optionally filtered by status.
func (r *OrderSQLite) List(ctx context.Context, status string) ([]models.ProductionOrder, error) {
	q, args := listOrdersSQL, []any{}
	if status = strings.ToUpper(strings.TrimSpace(status)); status != "" {
		q += " WHERE status = ?"
		args = append(args, status)
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []models.ProductionOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *OrderSQLite) UpdateStatus(ctx context.Context, code, status string) error {
	res, err := r.db.ExecContext(ctx, updateOrderStatusSQL, status, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("update order %q: %w", code, err)
	}
	return expectOne(res)
}

func (r *OrderSQLite) Delete(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, deleteOrderSQL, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("delete order %q: %w", code, err)
	}
	return expectOne(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.ProductionOrder, error) {
	var (
		o    models.ProductionOrder
		desc sql.NullString
	)
	if err := row.Scan(&o.ID, &o.Code, &o.Product, &desc, &o.Target, &o.Status, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.Description = desc.String
	o.CreatedAt = o.CreatedAt.UTC()
	return &o, nil
}
