// Package station holds the per-station lifecycle state machine.
package station

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"line_supervisor/internal/models"
)

var (
	ErrUnknownStation    = errors.New("unknown station")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrInvalidCompletion = errors.New("completion percent must be between 0 and 100")
)

// Event is one equipment-side update for a station. Nil fields are left untouched.
type Event struct {
	Station           models.StationID
	State             *models.StationState
	ProductCode       *string
	PalletCode        *string
	Model             *string
	CompletionPercent *int
}

// Result describes the outcome of applying an Event.
type Result struct {
	View models.StationView
	// Changed is false for events that left every field as it was.
	Changed bool
	// Transitioned is true when the lifecycle state moved.
	Transitioned bool
	From         models.StationState
	// LogLine is the entry appended by this event, if any.
	LogLine *models.LogEntry
}

// OperatorLookup resolves the operator currently allocated to a station.
type OperatorLookup func(models.StationID) *models.Operator

// Station is the single live record of one physical station.
type Station struct {
	mu sync.Mutex

	id         models.StationID
	state      models.StationState
	product    string
	pallet     string
	model      string
	completion *int
	cycles     int
	log        *logRing
	updatedAt  time.Time

	// stamps holds when each state was entered in the current cycle.
	stamps  [models.StateBD + 1]time.Time
	timings models.StageTimings
	// lastDone is the unix nano time of the last BD, read by the next station.
	lastDone atomic.Int64
	prev     *Station

	operatorOf OperatorLookup
	now        func() time.Time
}

func newStation(id models.StationID, logCapacity int, lookup OperatorLookup, now func() time.Time) *Station {
	return &Station{
		id:         id,
		state:      models.StateIdle,
		log:        newLogRing(logCapacity),
		operatorOf: lookup,
		now:        now,
		updatedAt:  now().UTC(),
	}
}

// ID returns the station index.
func (s *Station) ID() models.StationID { return s.id }

// Apply validates ev against the station and mutates it. emit, when non-nil, is called
// with the result while the station is still locked, so results of one station are
// emitted in the order they were applied. A no-op event still emits the current view.
func (s *Station) Apply(ev Event, emit func(Result)) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.CompletionPercent != nil && (*ev.CompletionPercent < 0 || *ev.CompletionPercent > 100) {
		return Result{}, ErrInvalidCompletion
	}

	res := Result{From: s.state}
	now := s.now().UTC()

	if ev.State != nil && *ev.State != s.state {
		to := *ev.State
		if !allowed(s.state, to) {
			return Result{}, fmt.Errorf("%w: %s -> %s on %s", ErrInvalidTransition, s.state, to, s.id)
		}
		if to == models.StateIdle || (s.state == models.StateBD && to == models.StateBS) {
			s.clearCycle()
		}
		if to == models.StateBD {
			s.cycles++
		}
		s.stampLocked(to, now)
		s.state = to
		res.Changed = true
		res.Transitioned = true
		entry := models.LogEntry{At: now, Text: fmt.Sprintf("%s - %s (%s)", strings.ToUpper(s.id.String()), to, to.Title())}
		s.log.push(entry)
		res.LogLine = &entry
	}

	if ev.ProductCode != nil && *ev.ProductCode != s.product {
		s.product = *ev.ProductCode
		res.Changed = true
	}
	if ev.PalletCode != nil && *ev.PalletCode != s.pallet {
		s.pallet = *ev.PalletCode
		res.Changed = true
	}
	if ev.Model != nil && *ev.Model != s.model {
		s.model = *ev.Model
		res.Changed = true
	}
	if ev.CompletionPercent != nil && (s.completion == nil || *s.completion != *ev.CompletionPercent) {
		v := *ev.CompletionPercent
		s.completion = &v
		res.Changed = true
	}

	if res.Changed {
		s.updatedAt = now
	}
	res.View = s.viewLocked(s.operatorOf)
	if emit != nil {
		emit(res)
	}
	return res, nil
}

// Touch re-emits the current view without changing anything.
func (s *Station) Touch(emit func(Result)) Result {
	res, _ := s.Apply(Event{Station: s.id}, emit)
	return res
}

// Snapshot returns a copy of the station.
func (s *Station) Snapshot() models.StationView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(s.operatorOf)
}

// SnapshotTo passes a copy of the station to reply while the station is still
// locked, so the reply is ordered with the results emitted by Apply.
// reply must not block.
func (s *Station) SnapshotTo(reply func(models.StationView)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reply(s.viewLocked(s.operatorOf))
}

func (s *Station) snapshotWith(lookup OperatorLookup) models.StationView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(lookup)
}

// stampLocked records the entry into to and derives the stage that just ended.
func (s *Station) stampLocked(to models.StationState, now time.Time) {
	switch to {
	case models.StateIdle:
		s.stamps = [models.StateBD + 1]time.Time{}
		return
	case models.StateBS:
		s.stamps = [models.StateBD + 1]time.Time{}
		s.timings = models.StageTimings{
			ArrivalMS: sinceNanos(s.lastDone.Load(), now),
		}
		if s.prev != nil {
			s.timings.TransferMS = sinceNanos(s.prev.lastDone.Load(), now)
		}
	case models.StateBT1:
		s.timings.PreparationMS = s.sinceLocked(models.StateBS, now)
	case models.StateBT2:
		s.timings.AssemblyMS = s.sinceLocked(models.StateBT1, now)
	case models.StateBD:
		s.timings.WaitMS = s.sinceLocked(models.StateBT2, now)
		s.timings.CycleMS = s.timings.Total()
		s.lastDone.Store(now.UnixNano())
	}
	s.stamps[to] = now
}

func (s *Station) sinceLocked(from models.StationState, now time.Time) *int64 {
	if s.stamps[from].IsZero() {
		return nil
	}
	return millis(now.Sub(s.stamps[from]))
}

func sinceNanos(at int64, now time.Time) *int64 {
	if at == 0 {
		return nil
	}
	return millis(now.Sub(time.Unix(0, at)))
}

func millis(d time.Duration) *int64 {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return &ms
}

func (s *Station) clearCycle() {
	s.product = ""
	s.pallet = ""
	s.completion = nil
}

func (s *Station) viewLocked(lookup OperatorLookup) models.StationView {
	v := models.StationView{
		ID:          s.id,
		Name:        s.id.String(),
		State:       s.state,
		StateName:   s.state.String(),
		Title:       s.state.Title(),
		ProductCode: s.product,
		PalletCode:  s.pallet,
		Model:       s.model,
		Cycles:      s.cycles,
		Timings:     copyTimings(s.timings),
		Log:         s.log.entries(),
		UpdatedAt:   s.updatedAt,
	}
	if s.completion != nil {
		c := *s.completion
		v.CompletionPercent = &c
	}
	if lookup != nil {
		v.Operator = lookup(s.id)
	}
	return v
}

func copyTimings(t models.StageTimings) models.StageTimings {
	dup := func(v *int64) *int64 {
		if v == nil {
			return nil
		}
		c := *v
		return &c
	}
	return models.StageTimings{
		ArrivalMS:     dup(t.ArrivalMS),
		PreparationMS: dup(t.PreparationMS),
		AssemblyMS:    dup(t.AssemblyMS),
		WaitMS:        dup(t.WaitMS),
		TransferMS:    dup(t.TransferMS),
		CycleMS:       dup(t.CycleMS),
	}
}

// allowed reports whether a station may move from one state to another.
// IDLE is always reachable; BD may start a new cycle directly with BS.
func allowed(from, to models.StationState) bool {
	if !to.Valid() {
		return false
	}
	switch {
	case to == models.StateIdle:
		return true
	case from.Next() == to:
		return true
	case from == models.StateBD && to == models.StateBS:
		return true
	}
	return false
}
