package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"line_supervisor/internal/aggregator"
	"line_supervisor/internal/hub"
	"line_supervisor/internal/logger"
	"line_supervisor/internal/models"
	"line_supervisor/internal/repository"
	"line_supervisor/internal/station"
)

type sentMessage struct {
	room hub.Room
	typ  string
	data any
}

// recordingHub captures broadcasts in order.
type recordingHub struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (h *recordingHub) Broadcast(room hub.Room, typ string, data any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentMessage{room, typ, data})
	return nil
}

func (h *recordingHub) ofType(typ string) []sentMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []sentMessage
	for _, m := range h.sent {
		if m.typ == typ {
			out = append(out, m)
		}
	}
	return out
}

type lineCall struct {
	action string
	target int
}

type stationCall struct {
	id     models.StationID
	action string
	args   map[string]any
}

type fakeEquipment struct {
	mu        sync.Mutex
	lines     []lineCall
	stations  []stationCall
	err       error
	connected bool
}

func (f *fakeEquipment) PublishStationCommand(id models.StationID, action string, args map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stations = append(f.stations, stationCall{id, action, args})
	return f.err
}

func (f *fakeEquipment) PublishLineCommand(action string, target int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, lineCall{action, target})
	return f.err
}

func (f *fakeEquipment) Connected() bool { return f.connected }

type fakeOperatorRepo struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]models.Operator
}

func newFakeOperatorRepo(ops ...models.Operator) *fakeOperatorRepo {
	r := &fakeOperatorRepo{byID: map[int]models.Operator{}}
	for _, op := range ops {
		r.byID[op.ID] = op
		if op.ID > r.nextID {
			r.nextID = op.ID
		}
	}
	return r
}

func (r *fakeOperatorRepo) Create(_ context.Context, op models.Operator) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	op.ID = r.nextID
	r.byID[op.ID] = op
	return op.ID, nil
}

func (r *fakeOperatorRepo) Get(_ context.Context, id int) (*models.Operator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return &op, nil
}

func (r *fakeOperatorRepo) GetByRFID(_ context.Context, tag string) (*models.Operator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, op := range r.byID {
		if op.RFIDTag == tag {
			o := op
			return &o, nil
		}
	}
	return nil, nil
}

func (r *fakeOperatorRepo) List(context.Context) ([]models.Operator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Operator, 0, len(r.byID))
	for _, op := range r.byID {
		out = append(out, op)
	}
	return out, nil
}

func (r *fakeOperatorRepo) Update(_ context.Context, op models.Operator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[op.ID]; !ok {
		return repository.ErrNotFound
	}
	r.byID[op.ID] = op
	return nil
}

func (r *fakeOperatorRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type fakeOrderRepo struct {
	orders   map[string]models.ProductionOrder
	statuses map[string]string
	err      error
}

func newFakeOrderRepo(orders ...models.ProductionOrder) *fakeOrderRepo {
	r := &fakeOrderRepo{orders: map[string]models.ProductionOrder{}, statuses: map[string]string{}}
	for _, o := range orders {
		r.orders[o.Code] = o
	}
	return r
}

func (r *fakeOrderRepo) Create(_ context.Context, o models.ProductionOrder) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if _, ok := r.orders[o.Code]; ok {
		return 0, repository.ErrDuplicate
	}
	o.ID = len(r.orders) + 1
	r.orders[o.Code] = o
	return o.ID, nil
}

func (r *fakeOrderRepo) GetByCode(_ context.Context, code string) (*models.ProductionOrder, error) {
	if r.err != nil {
		return nil, r.err
	}
	o, ok := r.orders[code]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *fakeOrderRepo) List(_ context.Context, status string) ([]models.ProductionOrder, error) {
	var out []models.ProductionOrder
	for _, o := range r.orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	return out, r.err
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, code, status string) error {
	if _, ok := r.orders[code]; !ok {
		return repository.ErrNotFound
	}
	r.statuses[code] = status
	return nil
}

func (r *fakeOrderRepo) Delete(_ context.Context, code string) error {
	if _, ok := r.orders[code]; !ok {
		return repository.ErrNotFound
	}
	delete(r.orders, code)
	return nil
}

type fakeJournalRepo struct {
	mu        sync.Mutex
	events    []models.JournalEvent
	appendErr error

	gotFrom, gotTo time.Time
	gotType        string
}

func (r *fakeJournalRepo) Append(_ context.Context, e models.JournalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.appendErr
}

func (r *fakeJournalRepo) List(_ context.Context, from, to time.Time, typ string) ([]models.JournalEvent, error) {
	r.gotFrom, r.gotTo, r.gotType = from, to, typ
	return r.events, nil
}

func (r *fakeJournalRepo) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	svc       *Service
	hub       *recordingHub
	equipment *fakeEquipment
	operators *fakeOperatorRepo
	orders    *fakeOrderRepo
	journal   *fakeJournalRepo
	line      *aggregator.Aggregator
	stations  *station.Registry
}

type fixtureOption func(*Deps)

func withRequireOrder() fixtureOption {
	return func(d *Deps) { d.Options.RequireOrder = true }
}

func withHub(b Broadcaster) fixtureOption {
	return func(d *Deps) { d.Hub = b }
}

func newFixture(opts ...fixtureOption) *fixture {
	f := &fixture{
		hub:       &recordingHub{},
		equipment: &fakeEquipment{connected: true},
		operators: newFakeOperatorRepo(
			models.Operator{ID: 1, Name: "Ana", RFIDTag: "A1"},
			models.Operator{ID: 2, Name: "Bia", RFIDTag: "B2"},
		),
		orders:  newFakeOrderRepo(models.ProductionOrder{ID: 1, Code: "OP-1", Product: "045CP01", Target: 20, Status: repository.OrderOpen}),
		journal: &fakeJournalRepo{},
	}
	f.line = aggregator.New(3)
	f.stations = station.NewRegistry(3, station.WithOperators(f.line))

	d := Deps{
		Repos: &repository.Repository{
			Operators: f.operators,
			Orders:    f.orders,
			Journal:   f.journal,
		},
		Stations:  f.stations,
		Line:      f.line,
		Hub:       f.hub,
		Equipment: f.equipment,
		Log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	f.svc = NewService(d)
	return f
}

func asJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
