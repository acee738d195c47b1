package repository

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"line_supervisor/internal/models"
)

var orderColumns = []string{"id", "code", "product", "description", "target", "status", "created_at"}

func TestOrderCreate_DefaultsStatus(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(insertOrderSQL)).
		WithArgs("OP-100", "045CP01", nil, 20, OrderOpen, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(4, 1))

	id, err := NewOrderSQLite(db).Create(testCtx(t), models.ProductionOrder{Code: " OP-100 ", Product: "045CP01", Target: 20})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != 4 {
		t.Fatalf("want id 4, got %d", id)
	}
}

func TestOrderGetByCode(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func() { _ = db.Close() }()

	created := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(selectOrderSQL)).
		WithArgs("OP-1").
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(1, "OP-1", "045CP01", nil, 20, OrderOpen, created))
	mock.ExpectQuery(regexp.QuoteMeta(selectOrderSQL)).
		WithArgs("OP-2").
		WillReturnRows(sqlmock.NewRows(orderColumns))

	repo := NewOrderSQLite(db)
	o, err := repo.GetByCode(testCtx(t), "OP-1")
	if err != nil || o == nil {
		t.Fatalf("GetByCode: %v %v", o, err)
	}
	if o.Target != 20 || o.Status != OrderOpen || !o.CreatedAt.Equal(created) {
		t.Fatalf("unexpected order %+v", o)
	}

	o, err = repo.GetByCode(testCtx(t), "OP-2")
	if err != nil || o != nil {
		t.Fatalf("want (nil, nil), got %v %v", o, err)
	}
}

func TestOrderList_ByStatus(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(listOrdersSQL + " WHERE status = ? ORDER BY created_at DESC")).
		WithArgs(OrderRunning).
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(2, "OP-2", "P", "night shift", 5, OrderRunning, time.Now()))

	got, err := NewOrderSQLite(db).List(testCtx(t), "em_execucao")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Description != "night shift" {
		t.Fatalf("unexpected orders %+v", got)
	}
}

func TestOrderUpdateStatus_NotFound(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(updateOrderStatusSQL)).
		WithArgs(OrderFinished, "OP-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewOrderSQLite(db).UpdateStatus(testCtx(t), "OP-9", OrderFinished)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []string{OrderOpen, OrderRunning, OrderFinished} {
		if !ValidOrderStatus(s) {
			t.Errorf("%s should be valid", s)
		}
	}
	if ValidOrderStatus("CANCELADA") {
		t.Error("CANCELADA should be invalid")
	}
}
