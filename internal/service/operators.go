package service

import (
	"context"
	"fmt"
	"strings"

	"line_supervisor/internal/hub"
	"line_supervisor/internal/logger"
	"line_supervisor/internal/models"
	"line_supervisor/internal/repository"
)

// allocator is the part of the supervisor the operator service drives.
type allocator interface {
	AllocateOperator(ctx context.Context, id models.StationID, op models.Operator) error
	DeallocateOperator(ctx context.Context, id models.StationID) (models.Operator, bool, error)
	StationOf(operatorID int) (models.StationID, bool)
}

type OperatorService struct {
	repo    repository.OperatorRepo
	alloc   allocator
	hub     Broadcaster
	journal *JournalService
	log     *logger.Logger
}

func NewOperatorService(repo repository.OperatorRepo, alloc allocator, b Broadcaster, journal *JournalService, log *logger.Logger) *OperatorService {
	return &OperatorService{repo: repo, alloc: alloc, hub: b, journal: journal, log: log}
}

func (s *OperatorService) CreateOperator(ctx context.Context, op models.Operator) (models.Operator, error) {
	op.Name = strings.TrimSpace(op.Name)
	if op.Name == "" {
		return models.Operator{}, validationError("operator name is required")
	}
	id, err := s.repo.Create(ctx, op)
	if err != nil {
		return models.Operator{}, AsError(err)
	}
	op.ID = id
	op.RFIDTag = strings.ToUpper(strings.TrimSpace(op.RFIDTag))
	return op, nil
}

func (s *OperatorService) GetOperator(ctx context.Context, id int) (models.Operator, error) {
	op, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Operator{}, AsError(err)
	}
	if op == nil {
		return models.Operator{}, notFound("operator")
	}
	return *op, nil
}

func (s *OperatorService) ListOperators(ctx context.Context) ([]models.Operator, error) {
	ops, err := s.repo.List(ctx)
	if err != nil {
		return nil, AsError(err)
	}
	return ops, nil
}

func (s *OperatorService) UpdateOperator(ctx context.Context, op models.Operator) error {
	op.Name = strings.TrimSpace(op.Name)
	if op.Name == "" {
		return validationError("operator name is required")
	}
	if err := s.repo.Update(ctx, op); err != nil {
		return AsError(err)
	}
	return nil
}

// DeleteOperator releases the operator's station before removing the record.
func (s *OperatorService) DeleteOperator(ctx context.Context, id int) error {
	if station, ok := s.alloc.StationOf(id); ok {
		if _, _, err := s.alloc.DeallocateOperator(ctx, station); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return AsError(err)
	}
	return nil
}

// CheckIn handles an RFID badge read: "entrada" allocates, "saida" releases.
func (s *OperatorService) CheckIn(ctx context.Context, p CheckInParams) (models.Operator, error) {
	tag := strings.TrimSpace(p.RFIDTag)
	if tag == "" {
		return models.Operator{}, validationError("rfid tag is required")
	}
	if p.Station < 0 {
		return models.Operator{}, notFound("station")
	}
	id := models.StationID(p.Station)

	op, err := s.repo.GetByRFID(ctx, tag)
	if err != nil {
		return models.Operator{}, AsError(err)
	}
	if op == nil {
		s.alert(id, models.Alert{Message: "CRACHÁ NÃO CADASTRADO", Color: colorError, DurationMS: alertDuration})
		return models.Operator{}, notFound("operator")
	}

	switch strings.ToLower(strings.TrimSpace(p.Direction)) {
	case CheckInEntry:
		if err := s.alloc.AllocateOperator(ctx, id, *op); err != nil {
			return models.Operator{}, err
		}
		s.alert(id, models.Alert{Message: fmt.Sprintf("%s alocado no %s", op.Name, id), Color: colorSuccess, DurationMS: alertDuration})
	case CheckInExit:
		if cur, ok := s.alloc.StationOf(op.ID); !ok || cur != id {
			return models.Operator{}, validationError("operator is not allocated to this station")
		}
		if _, _, err := s.alloc.DeallocateOperator(ctx, id); err != nil {
			return models.Operator{}, err
		}
		s.alert(id, models.Alert{Message: fmt.Sprintf("%s saiu do %s", op.Name, id), Color: colorWarning, DurationMS: alertDuration})
	default:
		return models.Operator{}, validationError(`direction must be "entrada" or "saida"`)
	}
	return *op, nil
}

// Allocate places a catalog operator on a station from a console command.
func (s *OperatorService) Allocate(ctx context.Context, station, operatorID int) (models.Operator, error) {
	if station < 0 {
		return models.Operator{}, notFound("station")
	}
	op, err := s.GetOperator(ctx, operatorID)
	if err != nil {
		return models.Operator{}, err
	}
	if err := s.alloc.AllocateOperator(ctx, models.StationID(station), op); err != nil {
		return models.Operator{}, err
	}
	return op, nil
}

// Deallocate frees a station. Freeing an empty station is a no-op.
func (s *OperatorService) Deallocate(ctx context.Context, station int) error {
	if station < 0 {
		return notFound("station")
	}
	_, _, err := s.alloc.DeallocateOperator(ctx, models.StationID(station))
	return err
}

// alert goes to the station room and to the global room.
func (s *OperatorService) alert(id models.StationID, a models.Alert) {
	if s.hub == nil {
		return
	}
	for _, room := range []hub.Room{hub.StationRoom(id), hub.GlobalRoom} {
		if err := s.hub.Broadcast(room, hub.TypeAlert, a); err != nil && s.log != nil {
			s.log.Errorw("broadcast_failed", "room", room.String(), "type", hub.TypeAlert, "err", err)
		}
	}
}
