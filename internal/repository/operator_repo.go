package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"line_supervisor/internal/models"
)

type OperatorSQLite struct {
	db *sql.DB
}

func NewOperatorSQLite(db *sql.DB) *OperatorSQLite { return &OperatorSQLite{db: db} }

var _ OperatorRepo = (*OperatorSQLite)(nil)

const (
	insertOperatorSQL     = `INSERT INTO operators (name, photo, rfid_tag) VALUES (?, ?, ?)`
	selectOperatorSQL     = `SELECT id, name, photo, rfid_tag FROM operators WHERE id = ?`
	selectOperatorRFIDSQL = `SELECT id, name, photo, rfid_tag FROM operators WHERE rfid_tag = ?`
	listOperatorsSQL      = `SELECT id, name, photo, rfid_tag FROM operators ORDER BY name ASC`
	updateOperatorSQL     = `UPDATE operators SET name = ?, photo = ?, rfid_tag = ? WHERE id = ?`
	deleteOperatorSQL     = `DELETE FROM operators WHERE id = ?`
)

// Create inserts an operator and returns its id.
func (r *OperatorSQLite) Create(ctx context.Context, op models.Operator) (int, error) {
	res, err := r.db.ExecContext(ctx, insertOperatorSQL, op.Name, nullable(op.Photo), nullable(normalizeTag(op.RFIDTag)))
	if err != nil {
		return 0, wrapConstraint(fmt.Errorf("insert operator %q: %w", op.Name, err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id for operator %q: %w", op.Name, err)
	}
	return int(id), nil
}

// Get returns (nil, nil) when no operator has the id.
func (r *OperatorSQLite) Get(ctx context.Context, id int) (*models.Operator, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, selectOperatorSQL, id))
}

// GetByRFID returns (nil, nil) when no operator carries the tag.
func (r *OperatorSQLite) GetByRFID(ctx context.Context, tag string) (*models.Operator, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, selectOperatorRFIDSQL, normalizeTag(tag)))
}

func (r *OperatorSQLite) List(ctx context.Context) ([]models.Operator, error) {
	rows, err := r.db.QueryContext(ctx, listOperatorsSQL)
	if err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	defer rows.Close()

	var out []models.Operator
	for rows.Next() {
		var (
			op          models.Operator
			photo, rfid sql.NullString
		)
		if err := rows.Scan(&op.ID, &op.Name, &photo, &rfid); err != nil {
			return nil, err
		}
		op.Photo, op.RFIDTag = photo.String, rfid.String
		out = append(out, op)
	}
	return out, rows.Err()
}

func (r *OperatorSQLite) Update(ctx context.Context, op models.Operator) error {
	res, err := r.db.ExecContext(ctx, updateOperatorSQL, op.Name, nullable(op.Photo), nullable(normalizeTag(op.RFIDTag)), op.ID)
	if err != nil {
		return wrapConstraint(fmt.Errorf("update operator %d: %w", op.ID, err))
	}
	return expectOne(res)
}

func (r *OperatorSQLite) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, deleteOperatorSQL, id)
	if err != nil {
		return fmt.Errorf("delete operator %d: %w", id, err)
	}
	return expectOne(res)
}

func (r *OperatorSQLite) scanOne(row *sql.Row) (*models.Operator, error) {
	var (
		op          models.Operator
		photo, rfid sql.NullString
	)
	if err := row.Scan(&op.ID, &op.Name, &photo, &rfid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select operator: %w", err)
	}
	op.Photo, op.RFIDTag = photo.String, rfid.String
	return &op, nil
}

func normalizeTag(tag string) string {
	return strings.ToUpper(strings.TrimSpace(tag))
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// wrapConstraint marks unique violations so callers can answer 409.
func wrapConstraint(err error) error {
	if err != nil && strings.Contains(strings.ToUpper(err.Error()), "UNIQUE") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
