package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"line_supervisor/internal/models"
	"line_supervisor/internal/service"
)

func TestOperatorHandlers(t *testing.T) {
	ops := &mockOperators{ops: []models.Operator{{ID: 1, Name: "Ana", RFIDTag: "A1"}}}
	auth := &mockAuth{verifyErr: service.ErrInvalidPassword}
	r := newTestRouter(&service.Service{Operators: ops, Authorization: auth})

	w := doJSON(t, r, http.MethodPost, "/api/v1/operators", map[string]string{"name": "Bia", "rfid_tag": "B2"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	if w := doJSON(t, r, http.MethodPost, "/api/v1/operators", map[string]string{}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("create without name status=%d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/operators", nil, nil)
	var list struct {
		Count int `json:"count"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if w.Code != http.StatusOK || list.Count != 1 {
		t.Fatalf("list status=%d count=%d", w.Code, list.Count)
	}

	if w := doJSON(t, r, http.MethodGet, "/api/v1/operators/1", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("get status=%d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/v1/operators/9", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("get missing status=%d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPut, "/api/v1/operators/1", map[string]string{"name": "Ana S."}, nil); w.Code != http.StatusOK {
		t.Fatalf("update status=%d", w.Code)
	}

	if w := doJSON(t, r, http.MethodDelete, "/api/v1/operators/1", nil, nil); w.Code != http.StatusForbidden {
		t.Fatalf("delete without password status=%d", w.Code)
	}
	if len(ops.deleted) != 0 {
		t.Fatalf("delete reached the service: %v", ops.deleted)
	}
	auth.verifyErr = nil
	hdr := http.Header{}
	hdr.Set(adminPasswordHeader, "s3nha")
	if w := doJSON(t, r, http.MethodDelete, "/api/v1/operators/1", nil, hdr); w.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", w.Code)
	}
	if len(ops.deleted) != 1 || ops.deleted[0] != 1 {
		t.Fatalf("deleted = %v", ops.deleted)
	}
}

func TestCheckInHandler(t *testing.T) {
	ops := &mockOperators{}
	r := newTestRouter(&service.Service{Operators: ops})

	w := doJSON(t, r, http.MethodPost, "/api/v1/operators/checkin", map[string]any{"station": 0, "rfid_tag": "A1", "direction": "entrada"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("checkin status=%d body=%s", w.Code, w.Body.String())
	}
	if ops.lastCheckIn != (service.CheckInParams{Station: 0, RFIDTag: "A1", Direction: "entrada"}) {
		t.Fatalf("params = %+v", ops.lastCheckIn)
	}

	if w := doJSON(t, r, http.MethodPost, "/api/v1/operators/checkin", map[string]any{"rfid_tag": "A1", "direction": "entrada"}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing station status=%d", w.Code)
	}

	ops.err = &service.Error{Code: service.CodeNotFound, Message: "operator not found"}
	if w := doJSON(t, r, http.MethodPost, "/api/v1/operators/checkin", map[string]any{"station": 1, "rfid_tag": "ZZ", "direction": "entrada"}, nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown tag status=%d", w.Code)
	}
}

func TestOrderHandlers(t *testing.T) {
	orders := &mockOrders{}
	auth := &mockAuth{}
	r := newTestRouter(&service.Service{Orders: orders, Authorization: auth})

	w := doJSON(t, r, http.MethodPost, "/api/v1/orders", map[string]any{"code": "OP-2", "product": "045CP01", "target": 10}, nil)
	if w.Code != http.StatusCreated || orders.created.Target != 10 {
		t.Fatalf("create status=%d created=%+v", w.Code, orders.created)
	}
	if w := doJSON(t, r, http.MethodPost, "/api/v1/orders", map[string]any{"code": "OP-3", "product": "P", "target": 0}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("zero target status=%d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/orders?status=aberta", nil, nil)
	if w.Code != http.StatusOK || orders.lastStatus != "ABERTA" {
		t.Fatalf("list status=%d filter=%q", w.Code, orders.lastStatus)
	}

	if w := doJSON(t, r, http.MethodPatch, "/api/v1/orders/OP-2/status", map[string]string{"status": "FINALIZADA"}, nil); w.Code != http.StatusOK {
		t.Fatalf("status update=%d", w.Code)
	}

	if w := doJSON(t, r, http.MethodDelete, "/api/v1/orders/OP-2", nil, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", w.Code)
	}
	auth.verifyErr = service.ErrAdminDisabled
	if w := doJSON(t, r, http.MethodDelete, "/api/v1/orders/OP-2", nil, nil); w.Code != http.StatusForbidden {
		t.Fatalf("delete with admin disabled status=%d", w.Code)
	}
}
