package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"line_supervisor/internal/models"
)

// ErrNotFound is returned by updates and deletes that matched no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique column already holds the value.
var ErrDuplicate = errors.New("record already exists")

type OperatorRepo interface {
	Create(ctx context.Context, op models.Operator) (int, error)
	Get(ctx context.Context, id int) (*models.Operator, error)
	GetByRFID(ctx context.Context, tag string) (*models.Operator, error)
	List(ctx context.Context) ([]models.Operator, error)
	Update(ctx context.Context, op models.Operator) error
	Delete(ctx context.Context, id int) error
}

type OrderRepo interface {
	Create(ctx context.Context, o models.ProductionOrder) (int, error)
	GetByCode(ctx context.Context, code string) (*models.ProductionOrder, error)
	List(ctx context.Context, status string) ([]models.ProductionOrder, error)
	UpdateStatus(ctx context.Context, code, status string) error
	Delete(ctx context.Context, code string) error
}

type JournalRepo interface {
	Append(ctx context.Context, e models.JournalEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.JournalEvent, error)
}

type Repository struct {
	Operators OperatorRepo
	Orders    OrderRepo
	Journal   JournalRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Operators: NewOperatorSQLite(db),
		Orders:    NewOrderSQLite(db),
		Journal:   NewJournalSQLite(db),
	}
}
