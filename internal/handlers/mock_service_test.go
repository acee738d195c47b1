package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"line_supervisor/internal/hub"
	"line_supervisor/internal/models"
	"line_supervisor/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	enabled   bool
	parseSub  string
	parseErr  error
	verifyErr error

	lastParseToken string
	lastPassword   string
}

func (m *mockAuth) AuthEnabled() bool { return m.enabled }
func (m *mockAuth) ParseToken(token string) (string, error) {
	m.lastParseToken = token
	return m.parseSub, m.parseErr
}
func (m *mockAuth) VerifyAdmin(password string) error {
	m.lastPassword = password
	return m.verifyErr
}

type mockLine struct {
	mu    sync.Mutex
	view  models.GlobalView
	err   error
	calls []string

	lastStart  service.StartParams
	lastTarget any
}

func (m *mockLine) record(call string) (models.GlobalView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.view, m.err
}

func (m *mockLine) Start(_ context.Context, p service.StartParams) (models.GlobalView, error) {
	m.mu.Lock()
	m.lastStart = p
	m.mu.Unlock()
	return m.record("start")
}
func (m *mockLine) Stop(context.Context) (models.GlobalView, error)    { return m.record("stop") }
func (m *mockLine) Restart(context.Context) (models.GlobalView, error) { return m.record("restart") }
func (m *mockLine) ResetCounter(context.Context) (models.GlobalView, error) {
	return m.record("reset_counter")
}
func (m *mockLine) SetTarget(_ context.Context, target any) (models.GlobalView, error) {
	m.mu.Lock()
	m.lastTarget = target
	m.mu.Unlock()
	return m.record("set_target")
}
func (m *mockLine) LineState() models.GlobalView { return m.view }

type mockStations struct {
	views  []models.StationView
	getErr error
	cmdErr error

	lastID  int
	lastCmd service.CommandParams
}

func (m *mockStations) ListStations() []models.StationView { return m.views }
func (m *mockStations) GetStation(id int) (models.StationView, error) {
	m.lastID = id
	if m.getErr != nil {
		return models.StationView{}, m.getErr
	}
	return m.views[id], nil
}
func (m *mockStations) StationCommand(_ context.Context, id int, p service.CommandParams) error {
	m.lastID = id
	m.lastCmd = p
	return m.cmdErr
}

type mockAssociations struct {
	list []models.Association
	err  error
	last service.AssociationParams
}

func (m *mockAssociations) Associate(_ context.Context, p service.AssociationParams) (models.Association, error) {
	m.last = p
	if m.err != nil {
		return models.Association{}, m.err
	}
	return models.Association{PalletCode: p.PalletCode, ProductCode: p.ProductCode, At: time.Unix(0, 0).UTC()}, nil
}
func (m *mockAssociations) ListAssociations() []models.Association { return m.list }

type mockOperators struct {
	ops []models.Operator
	err error

	lastCheckIn    service.CheckInParams
	lastAllocate   [2]int
	lastDeallocate int
	deleted        []int
}

func (m *mockOperators) CreateOperator(_ context.Context, op models.Operator) (models.Operator, error) {
	op.ID = len(m.ops) + 1
	return op, m.err
}
func (m *mockOperators) GetOperator(_ context.Context, id int) (models.Operator, error) {
	for _, op := range m.ops {
		if op.ID == id {
			return op, nil
		}
	}
	return models.Operator{}, &service.Error{Code: service.CodeNotFound, Message: "operator not found"}
}
func (m *mockOperators) ListOperators(context.Context) ([]models.Operator, error) {
	return m.ops, m.err
}
func (m *mockOperators) UpdateOperator(context.Context, models.Operator) error { return m.err }
func (m *mockOperators) DeleteOperator(_ context.Context, id int) error {
	m.deleted = append(m.deleted, id)
	return m.err
}
func (m *mockOperators) CheckIn(_ context.Context, p service.CheckInParams) (models.Operator, error) {
	m.lastCheckIn = p
	if m.err != nil {
		return models.Operator{}, m.err
	}
	return models.Operator{ID: 1, Name: "Ana", RFIDTag: p.RFIDTag}, nil
}
func (m *mockOperators) Allocate(_ context.Context, station, operatorID int) (models.Operator, error) {
	m.lastAllocate = [2]int{station, operatorID}
	return models.Operator{ID: operatorID, Name: "Ana"}, m.err
}
func (m *mockOperators) Deallocate(_ context.Context, station int) error {
	m.lastDeallocate = station
	return m.err
}

type mockOrders struct {
	err        error
	lastStatus string
	created    models.ProductionOrder
}

func (m *mockOrders) CreateOrder(_ context.Context, o models.ProductionOrder) (models.ProductionOrder, error) {
	m.created = o
	o.ID = 1
	return o, m.err
}
func (m *mockOrders) GetOrder(_ context.Context, code string) (models.ProductionOrder, error) {
	return models.ProductionOrder{Code: code}, m.err
}
func (m *mockOrders) ListOrders(_ context.Context, status string) ([]models.ProductionOrder, error) {
	m.lastStatus = status
	return []models.ProductionOrder{{Code: "OP-1", Status: status}}, m.err
}
func (m *mockOrders) UpdateOrderStatus(_ context.Context, _, status string) error {
	m.lastStatus = status
	return m.err
}
func (m *mockOrders) DeleteOrder(context.Context, string) error { return m.err }

type mockJournal struct {
	resp []models.JournalEvent
	err  error
	last service.LogFilter
}

func (m *mockJournal) ListJournal(_ context.Context, f service.LogFilter) ([]models.JournalEvent, error) {
	m.last = f
	return m.resp, m.err
}

type mockHealth struct {
	rep service.HealthReport
	err error
}

func (m *mockHealth) Check() (service.HealthReport, error) { return m.rep, m.err }

type mockSnapshots struct {
	station models.StationView
	global  models.GlobalView
}

func (m *mockSnapshots) StationSnapshotTo(id models.StationID, reply func(models.StationView)) error {
	v := m.station
	v.ID = id
	reply(v)
	return nil
}
func (m *mockSnapshots) GlobalSnapshotTo(reply func(models.GlobalView)) { reply(m.global) }

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	if s.Authorization == nil {
		s.Authorization = &mockAuth{}
	}
	h := NewHandler(s, hub.New(3), nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
