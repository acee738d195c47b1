// Package aggregator keeps the line-wide supervisory state: production counter,
// line timer and status, operator allocation and console field locks.
package aggregator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"line_supervisor/internal/models"
)

var (
	ErrInvalidTarget   = errors.New("target must be a positive integer")
	ErrAlreadyRunning  = errors.New("line already started")
	ErrNotArmed        = errors.New("line is not waiting for equipment confirmation")
	ErrUnknownStation  = errors.New("unknown station")
	ErrUnknownOperator = errors.New("unknown operator")
)

// Sink receives global deltas. It is called with the aggregator lock held and must not block.
type Sink interface {
	OperatorUpdate(models.OperatorUpdate)
	ProductionUpdate(models.ProductionUpdate)
	LineStatus(models.LineStatusUpdate)
}

// StartRequest carries the validated parameters of a Start command.
type StartRequest struct {
	Target         int
	OrderReference string
}

type Aggregator struct {
	mu sync.RWMutex

	stations   int
	requireAck bool
	now        func() time.Time
	sink       Sink

	status  models.LineStatus
	current int
	target  int
	order   string

	timerBase time.Duration
	startedAt time.Time
	running   bool

	byStation  map[models.StationID]models.Operator
	byOperator map[int]models.StationID
	locks      map[models.StationID]models.FieldLock
}

type Option func(*Aggregator)

// WithSink sets the receiver of global deltas.
func WithSink(s Sink) Option { return func(a *Aggregator) { a.sink = s } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(a *Aggregator) { a.now = now } }

// WithEquipmentAck makes Start wait in ARMED until the equipment confirms.
func WithEquipmentAck(required bool) Option { return func(a *Aggregator) { a.requireAck = required } }

func New(stations int, opts ...Option) *Aggregator {
	a := &Aggregator{
		stations:   stations,
		now:        time.Now,
		sink:       nopSink{},
		status:     models.LineOff,
		byStation:  make(map[models.StationID]models.Operator),
		byOperator: make(map[int]models.StationID),
		locks:      make(map[models.StationID]models.FieldLock),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetSink replaces the delta receiver. Used during wiring when the sink depends on the aggregator.
func (a *Aggregator) SetSink(s Sink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s == nil {
		s = nopSink{}
	}
	a.sink = s
}

// Start arms or starts the line. Validation happens before any state changes.
func (a *Aggregator) Start(req StartRequest) (models.LineStatus, error) {
	if req.Target <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidTarget, req.Target)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status != models.LineOff {
		return a.status, ErrAlreadyRunning
	}

	a.target = req.Target
	a.order = req.OrderReference
	for i := 0; i < a.stations; i++ {
		id := models.StationID(i)
		l := a.locks[id]
		l.FieldsLocked = true
		a.locks[id] = l
	}
	if a.requireAck {
		a.status = models.LineArmed
	} else {
		a.status = models.LineOn
		a.startTimerLocked()
	}
	a.sink.ProductionUpdate(a.productionLocked())
	a.sink.LineStatus(a.lineStatusLocked())
	return a.status, nil
}

// ConfirmEquipment applies the equipment acknowledgement. ON moves ARMED to ON;
// OFF while armed aborts the start and releases the field locks Start set.
func (a *Aggregator) ConfirmEquipment(on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status != models.LineArmed {
		return ErrNotArmed
	}
	if on {
		a.status = models.LineOn
		a.startTimerLocked()
	} else {
		a.status = models.LineOff
		for id, l := range a.locks {
			l.FieldsLocked = false
			a.locks[id] = l
		}
	}
	a.sink.LineStatus(a.lineStatusLocked())
	return nil
}

// Stop freezes the timer and turns the line off. Stopping a stopped line is a no-op.
func (a *Aggregator) Stop() models.LineStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == models.LineOff {
		return a.status
	}
	a.stopTimerLocked()
	a.status = models.LineOff
	a.sink.LineStatus(a.lineStatusLocked())
	return a.status
}

// Restart turns the line off and clears counter, target, order, timer and locks.
// Operator allocations are kept.
func (a *Aggregator) Restart() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = models.LineOff
	a.running = false
	a.timerBase = 0
	a.startedAt = time.Time{}
	a.current = 0
	a.target = 0
	a.order = ""
	a.locks = make(map[models.StationID]models.FieldLock)
	a.sink.ProductionUpdate(a.productionLocked())
	a.sink.LineStatus(a.lineStatusLocked())
}

// ResetCounter zeroes only the production counter.
func (a *Aggregator) ResetCounter() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = 0
	a.sink.ProductionUpdate(a.productionLocked())
}

// SetTarget changes the target of the running order.
func (a *Aggregator) SetTarget(target int) error {
	if target <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTarget, target)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.target = target
	a.sink.ProductionUpdate(a.productionLocked())
	return nil
}

// RecordCompletion counts one finished unit. Completions are only counted while the line is ON.
func (a *Aggregator) RecordCompletion() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status != models.LineOn {
		return false
	}
	a.current++
	a.sink.ProductionUpdate(a.productionLocked())
	return true
}

// Allocate assigns op to station. If op was on another station that station is released
// first, and its id is returned.
func (a *Aggregator) Allocate(station models.StationID, op models.Operator) (prev models.StationID, moved bool, err error) {
	if !a.validStation(station) {
		return 0, false, fmt.Errorf("%w: %d", ErrUnknownStation, int(station))
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if cur, ok := a.byOperator[op.ID]; ok && cur != station {
		delete(a.byStation, cur)
		delete(a.byOperator, op.ID)
		prev, moved = cur, true
		a.sink.OperatorUpdate(models.OperatorUpdate{Station: cur, Name: cur.String()})
	}
	if old, ok := a.byStation[station]; ok && old.ID != op.ID {
		delete(a.byOperator, old.ID)
	}
	a.byStation[station] = op
	a.byOperator[op.ID] = station

	l := a.locks[station]
	l.AllocationPending = false
	a.locks[station] = l

	o := op
	a.sink.OperatorUpdate(models.OperatorUpdate{Station: station, Name: station.String(), Operator: &o})
	return prev, moved, nil
}

// Deallocate releases the operator of station, if any.
func (a *Aggregator) Deallocate(station models.StationID) (models.Operator, bool, error) {
	if !a.validStation(station) {
		return models.Operator{}, false, fmt.Errorf("%w: %d", ErrUnknownStation, int(station))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	op, ok := a.byStation[station]
	if !ok {
		return models.Operator{}, false, nil
	}
	delete(a.byStation, station)
	delete(a.byOperator, op.ID)
	a.sink.OperatorUpdate(models.OperatorUpdate{Station: station, Name: station.String()})
	return op, true, nil
}

// OperatorAt returns a copy of the operator allocated to station, or nil.
func (a *Aggregator) OperatorAt(station models.StationID) *models.Operator {
	a.mu.RLock()
	defer a.mu.RUnlock()
	op, ok := a.byStation[station]
	if !ok {
		return nil
	}
	return &op
}

// Allocations returns a copy of the whole allocation table taken under one lock,
// so no operator appears on two stations in it.
func (a *Aggregator) Allocations() map[models.StationID]models.Operator {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[models.StationID]models.Operator, len(a.byStation))
	for id, op := range a.byStation {
		out[id] = op
	}
	return out
}

// StationOf returns the station an operator is allocated to.
func (a *Aggregator) StationOf(operatorID int) (models.StationID, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	id, ok := a.byOperator[operatorID]
	return id, ok
}

// LockFields sets the console field lock of a station.
func (a *Aggregator) LockFields(station models.StationID, locked bool) error {
	if !a.validStation(station) {
		return fmt.Errorf("%w: %d", ErrUnknownStation, int(station))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	l := a.locks[station]
	l.FieldsLocked = locked
	a.locks[station] = l
	return nil
}

// RequestAllocation flags a station as waiting for an operator.
func (a *Aggregator) RequestAllocation(station models.StationID) error {
	if !a.validStation(station) {
		return fmt.Errorf("%w: %d", ErrUnknownStation, int(station))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	l := a.locks[station]
	l.AllocationPending = true
	a.locks[station] = l
	return nil
}

// Status returns the current line status.
func (a *Aggregator) Status() models.LineStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// View returns a copy of the global state.
func (a *Aggregator) View() models.GlobalView {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.viewLocked()
}

// ViewTo passes the global view to reply while the aggregator is still locked.
// Deltas emitted by mutators are therefore queued either before or after
// whatever reply queues, never around it. reply must not block.
func (a *Aggregator) ViewTo(reply func(models.GlobalView)) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	reply(a.viewLocked())
}

func (a *Aggregator) viewLocked() models.GlobalView {
	v := models.GlobalView{
		Status:         a.status,
		Current:        a.current,
		Target:         a.target,
		OrderReference: a.order,
		TimerMS:        a.elapsedLocked().Milliseconds(),
		TimerRunning:   a.running,
		Projection:     Projection(a.current, a.elapsedLocked(), a.target),
		Operators:      make(map[models.StationID]*models.Operator, a.stations),
		Locks:          make(map[models.StationID]models.FieldLock, a.stations),
		At:             a.now().UTC(),
	}
	for i := 0; i < a.stations; i++ {
		id := models.StationID(i)
		if op, ok := a.byStation[id]; ok {
			o := op
			v.Operators[id] = &o
		} else {
			v.Operators[id] = nil
		}
		v.Locks[id] = a.locks[id]
	}
	return v
}

// LineStatusTo passes the current status and timer to reply under the lock.
func (a *Aggregator) LineStatusTo(reply func(models.LineStatusUpdate)) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	reply(a.lineStatusLocked())
}

// Consistent reports whether the allocation table is injective and in range.
func (a *Aggregator) Consistent() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.byStation) != len(a.byOperator) {
		return fmt.Errorf("allocation tables disagree: %d stations, %d operators", len(a.byStation), len(a.byOperator))
	}
	for station, op := range a.byStation {
		if !a.validStation(station) {
			return fmt.Errorf("allocation on unknown station %d", int(station))
		}
		if back, ok := a.byOperator[op.ID]; !ok || back != station {
			return fmt.Errorf("operator %d allocated inconsistently", op.ID)
		}
	}
	return nil
}

// Stations is the number of stations this aggregator was built for.
func (a *Aggregator) Stations() int { return a.stations }

func (a *Aggregator) validStation(id models.StationID) bool {
	return id >= 0 && int(id) < a.stations
}

func (a *Aggregator) startTimerLocked() {
	if a.running {
		return
	}
	a.startedAt = a.now()
	a.running = true
}

func (a *Aggregator) stopTimerLocked() {
	if !a.running {
		return
	}
	a.timerBase += a.now().Sub(a.startedAt)
	a.running = false
}

func (a *Aggregator) elapsedLocked() time.Duration {
	if !a.running {
		return a.timerBase
	}
	return a.timerBase + a.now().Sub(a.startedAt)
}

func (a *Aggregator) productionLocked() models.ProductionUpdate {
	return models.ProductionUpdate{
		Current:    a.current,
		Target:     a.target,
		Projection: Projection(a.current, a.elapsedLocked(), a.target),
	}
}

func (a *Aggregator) lineStatusLocked() models.LineStatusUpdate {
	return models.LineStatusUpdate{
		Status:       a.status,
		TimerMS:      a.elapsedLocked().Milliseconds(),
		TimerRunning: a.running,
	}
}

type nopSink struct{}

func (nopSink) OperatorUpdate(models.OperatorUpdate)     {}
func (nopSink) ProductionUpdate(models.ProductionUpdate) {}
func (nopSink) LineStatus(models.LineStatusUpdate)       {}
