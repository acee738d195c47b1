package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"line_supervisor/internal/aggregator"
	"line_supervisor/internal/hub"
	"line_supervisor/internal/logger"
	"line_supervisor/internal/metrics"
	"line_supervisor/internal/models"
	"line_supervisor/internal/repository"
	"line_supervisor/internal/station"
)

// Line commands sent to the equipment.
const (
	lineStart   = "Start"
	lineStop    = "Stop"
	lineRestart = "Restart"
)

// Alert colours used by the consoles.
const (
	colorSuccess = "#28a745"
	colorWarning = "#ffc107"
	colorError   = "#dc3545"

	alertDuration = 3000
)

// Supervisor coordinates stations, the aggregator, the hub and the equipment.
type Supervisor struct {
	stations  *station.Registry
	line      *aggregator.Aggregator
	sink      *hubSink
	equipment Equipment
	orders    repository.OrderRepo
	operators repository.OperatorRepo
	journal   *JournalService
	metrics   Metrics
	log       *logger.Logger
	now       func() time.Time

	requireOrder bool
	assoc        *associationTable
}

func NewSupervisor(d Deps, journal *JournalService) *Supervisor {
	m := d.Metrics
	if m == nil {
		m = nopMetrics{}
	}
	eq := d.Equipment
	if eq == nil {
		eq = offlineEquipment{}
	}
	return &Supervisor{
		stations:     d.Stations,
		line:         d.Line,
		sink:         newHubSink(d.Hub, m, d.Log),
		equipment:    eq,
		orders:       d.Repos.Orders,
		operators:    d.Repos.Operators,
		journal:      journal,
		metrics:      m,
		log:          d.Log,
		now:          time.Now,
		requireOrder: d.Options.RequireOrder,
		assoc:        newAssociationTable(),
	}
}

// ---- Line ----

func (s *Supervisor) Start(ctx context.Context, p StartParams) (models.GlobalView, error) {
	target, err := aggregator.ParseTarget(p.Target)
	if err != nil {
		return models.GlobalView{}, s.done("start", validationError("target must be a positive integer"))
	}
	ref := strings.TrimSpace(p.OrderReference)
	if s.requireOrder {
		if ref == "" {
			return models.GlobalView{}, s.done("start", validationError("order reference is required"))
		}
		o, err := s.orders.GetByCode(ctx, ref)
		if err != nil {
			return models.GlobalView{}, s.done("start", err)
		}
		if o == nil {
			return models.GlobalView{}, s.done("start", notFound("order "+ref))
		}
	}

	if _, err := s.line.Start(aggregator.StartRequest{Target: target, OrderReference: ref}); err != nil {
		return models.GlobalView{}, s.done("start", err)
	}
	if ref != "" && s.orders != nil {
		if err := s.orders.UpdateStatus(ctx, ref, repository.OrderRunning); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.warn("order_status_update_failed", "order", ref, "err", err)
		}
	}
	s.publishLine(lineStart, target)
	s.record(ctx, "START", fmt.Sprintf("line started, target %d", target), map[string]any{"target": target, "order": ref})
	return s.line.View(), s.done("start", nil)
}

func (s *Supervisor) Stop(ctx context.Context) (models.GlobalView, error) {
	s.line.Stop()
	s.publishLine(lineStop, 0)
	s.record(ctx, "STOP", "line stopped", nil)
	return s.line.View(), s.done("stop", nil)
}

// Restart resets the run and forgets the shift's pallet associations.
func (s *Supervisor) Restart(ctx context.Context) (models.GlobalView, error) {
	s.line.Restart()
	s.assoc.clear()
	s.publishLine(lineRestart, 0)
	s.record(ctx, "RESTART", "line restarted", nil)
	return s.line.View(), s.done("restart", nil)
}

func (s *Supervisor) ResetCounter(ctx context.Context) (models.GlobalView, error) {
	s.line.ResetCounter()
	s.record(ctx, "RESET_COUNTER", "production counter reset", nil)
	return s.line.View(), s.done("reset_counter", nil)
}

func (s *Supervisor) SetTarget(ctx context.Context, target any) (models.GlobalView, error) {
	n, err := aggregator.ParseTarget(target)
	if err != nil {
		return models.GlobalView{}, s.done("set_target", validationError("target must be a positive integer"))
	}
	if err := s.line.SetTarget(n); err != nil {
		return models.GlobalView{}, s.done("set_target", err)
	}
	s.record(ctx, "COMMAND", fmt.Sprintf("target set to %d", n), map[string]any{"target": n})
	return s.line.View(), s.done("set_target", nil)
}

func (s *Supervisor) LineState() models.GlobalView { return s.line.View() }

// ---- Stations ----

func (s *Supervisor) ListStations() []models.StationView { return s.stations.Snapshots() }

func (s *Supervisor) GetStation(id int) (models.StationView, error) {
	st, err := s.stations.Get(models.StationID(id))
	if err != nil {
		return models.StationView{}, AsError(err)
	}
	return st.Snapshot(), nil
}

func (s *Supervisor) StationCommand(ctx context.Context, id int, p CommandParams) error {
	sid := models.StationID(id)
	if !s.stations.Has(sid) {
		return s.done("station_command", notFound("station"))
	}
	action := strings.ToLower(strings.TrimSpace(p.Action))
	if action == "" {
		return s.done("station_command", validationError("action is required"))
	}

	var err error
	switch action {
	case ActionLockFields:
		err = s.line.LockFields(sid, true)
	case ActionUnlockFields:
		err = s.line.LockFields(sid, false)
	case ActionRequestAllocation:
		err = s.line.RequestAllocation(sid)
	default:
		if perr := s.equipment.PublishStationCommand(sid, action, p.Args); perr != nil {
			s.warn("station_command_publish_failed", "station", sid.String(), "action", action, "err", perr)
			return s.done("station_command", &Error{Code: CodeInternal, Message: "equipment unavailable", Err: perr})
		}
	}
	if err != nil {
		return s.done("station_command", err)
	}
	if action == ActionLockFields || action == ActionUnlockFields || action == ActionRequestAllocation {
		s.line.ViewTo(func(v models.GlobalView) { s.sink.send(hub.GlobalRoom, hub.TypeGlobalSync, v) })
	}
	s.record(ctx, "COMMAND", fmt.Sprintf("%s on %s", action, sid), map[string]any{"station": id, "action": action, "args": p.Args})
	return s.done("station_command", nil)
}

// ---- Snapshots / Health ----

// StationSnapshotTo hands the station view to reply under the station lock, the
// same lock state_changed broadcasts are emitted under.
func (s *Supervisor) StationSnapshotTo(id models.StationID, reply func(models.StationView)) error {
	st, err := s.stations.Get(id)
	if err != nil {
		return err
	}
	st.SnapshotTo(reply)
	return nil
}

// GlobalSnapshotTo hands the global view to reply under the aggregator lock.
func (s *Supervisor) GlobalSnapshotTo(reply func(models.GlobalView)) { s.line.ViewTo(reply) }

// Check verifies the station table size and that the allocation is injective.
func (s *Supervisor) Check() (HealthReport, error) {
	rep := HealthReport{
		Status:             "ok",
		Stations:           s.stations.Len(),
		EquipmentConnected: s.equipment.Connected(),
	}
	var err error
	if s.stations.Len() != s.line.Stations() {
		err = fmt.Errorf("station table has %d entries, aggregator expects %d", s.stations.Len(), s.line.Stations())
	} else {
		err = s.line.Consistent()
	}
	if err != nil {
		rep.Status = "degraded"
		rep.Error = err.Error()
	}
	return rep, err
}

// ---- Allocation ----

// AllocateOperator places op on station id, releasing any station op held before.
// Both affected stations re-emit their snapshot.
func (s *Supervisor) AllocateOperator(ctx context.Context, id models.StationID, op models.Operator) error {
	prev, moved, err := s.line.Allocate(id, op)
	if err != nil {
		return AsError(err)
	}
	if moved {
		s.touch(prev)
	}
	s.touch(id)
	s.record(ctx, "ALLOCATE", fmt.Sprintf("%s allocated to %s", op.Name, id), map[string]any{"station": int(id), "operator_id": op.ID})
	return nil
}

func (s *Supervisor) DeallocateOperator(ctx context.Context, id models.StationID) (models.Operator, bool, error) {
	op, ok, err := s.line.Deallocate(id)
	if err != nil {
		return models.Operator{}, false, AsError(err)
	}
	if ok {
		s.touch(id)
		s.record(ctx, "DEALLOCATE", fmt.Sprintf("%s released from %s", op.Name, id), map[string]any{"station": int(id), "operator_id": op.ID})
	}
	return op, ok, nil
}

func (s *Supervisor) StationOf(operatorID int) (models.StationID, bool) {
	return s.line.StationOf(operatorID)
}

func (s *Supervisor) touch(id models.StationID) {
	if st, err := s.stations.Get(id); err == nil {
		st.Touch(s.stationEmitter(id))
	}
}

// ---- helpers ----

func (s *Supervisor) publishLine(action string, target int) {
	if err := s.equipment.PublishLineCommand(action, target); err != nil {
		s.warn("line_command_publish_failed", "action", action, "err", err)
	}
}

// record appends to the command journal. Journal failures never fail a command.
func (s *Supervisor) record(ctx context.Context, typ, desc string, meta map[string]any) {
	if s.journal == nil {
		return
	}
	if err := s.journal.append(ctx, typ, desc, meta); err != nil {
		s.warn("journal_append_failed", "type", typ, "err", err)
	}
}

// done counts the command and converts err to an *Error.
func (s *Supervisor) done(action string, err error) error {
	if err != nil {
		s.metrics.Command(action, metrics.ResultError)
		return AsError(err)
	}
	s.metrics.Command(action, metrics.ResultOK)
	return nil
}

func (s *Supervisor) warn(event string, kv ...any) {
	if s.log != nil {
		s.log.Warnw(event, kv...)
	}
}
