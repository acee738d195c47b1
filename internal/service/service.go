package service

import (
	"context"
	"time"

	"line_supervisor/internal/aggregator"
	"line_supervisor/internal/equipment"
	"line_supervisor/internal/hub"
	"line_supervisor/internal/logger"
	"line_supervisor/internal/models"
	"line_supervisor/internal/repository"
	"line_supervisor/internal/station"
)

// Line exposes the line-wide commands.
type Line interface {
	Start(ctx context.Context, p StartParams) (models.GlobalView, error)
	Stop(ctx context.Context) (models.GlobalView, error)
	Restart(ctx context.Context) (models.GlobalView, error)
	ResetCounter(ctx context.Context) (models.GlobalView, error)
	SetTarget(ctx context.Context, target any) (models.GlobalView, error)
	LineState() models.GlobalView
}

// Stations exposes station views and station commands.
type Stations interface {
	ListStations() []models.StationView
	GetStation(id int) (models.StationView, error)
	StationCommand(ctx context.Context, id int, p CommandParams) error
}

// Associations links pallets to products for the current shift.
type Associations interface {
	Associate(ctx context.Context, p AssociationParams) (models.Association, error)
	ListAssociations() []models.Association
}

// Operators is the operator catalog plus RFID check-in.
type Operators interface {
	CreateOperator(ctx context.Context, op models.Operator) (models.Operator, error)
	GetOperator(ctx context.Context, id int) (models.Operator, error)
	ListOperators(ctx context.Context) ([]models.Operator, error)
	UpdateOperator(ctx context.Context, op models.Operator) error
	DeleteOperator(ctx context.Context, id int) error
	CheckIn(ctx context.Context, p CheckInParams) (models.Operator, error)
	Allocate(ctx context.Context, station, operatorID int) (models.Operator, error)
	Deallocate(ctx context.Context, station int) error
}

// Orders is the production order catalog.
type Orders interface {
	CreateOrder(ctx context.Context, o models.ProductionOrder) (models.ProductionOrder, error)
	GetOrder(ctx context.Context, code string) (models.ProductionOrder, error)
	ListOrders(ctx context.Context, status string) ([]models.ProductionOrder, error)
	UpdateOrderStatus(ctx context.Context, code, status string) error
	DeleteOrder(ctx context.Context, code string) error
}

// Journal exposes the command journal with filtering.
type Journal interface {
	ListJournal(ctx context.Context, f LogFilter) ([]models.JournalEvent, error)
}

// Syncer pushes the line status to every viewer until ctx is cancelled.
type Syncer interface {
	Run(ctx context.Context, tick time.Duration)
}

// Health runs the core consistency check.
type Health interface {
	Check() (HealthReport, error)
}

// Snapshots builds the synchronous replies of the resync protocol.
type Snapshots interface {
	StationSnapshotTo(id models.StationID, reply func(models.StationView)) error
	GlobalSnapshotTo(reply func(models.GlobalView))
}

// Authorization verifies externally issued tokens and the admin password.
type Authorization interface {
	AuthEnabled() bool
	ParseToken(accessToken string) (string, error)
	VerifyAdmin(password string) error
}

// Broadcaster is the room fan-out used by the services.
type Broadcaster interface {
	Broadcast(room hub.Room, typ string, data any) error
}

// Equipment is the outbound side of the equipment channel.
type Equipment interface {
	PublishStationCommand(id models.StationID, action string, args map[string]any) error
	PublishLineCommand(action string, target int) error
	Connected() bool
}

// Metrics receives service-level counters.
type Metrics interface {
	Command(action, result string)
	Production(current int)
}

// Options are the configuration switches the services read.
type Options struct {
	RequireOrder      bool
	SigningKey        string
	AdminPasswordHash string
}

// Deps are the collaborators NewService wires together.
type Deps struct {
	Repos     *repository.Repository
	Stations  *station.Registry
	Line      *aggregator.Aggregator
	Hub       Broadcaster
	Equipment Equipment
	Metrics   Metrics
	Log       *logger.Logger
	Options   Options
}

type Service struct {
	Line
	Stations
	Associations
	Operators
	Orders
	Journal
	Syncer
	Health
	Snapshots
	Authorization

	supervisor *Supervisor
}

// NewService builds every service and routes aggregator deltas to the hub.
func NewService(d Deps) *Service {
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	if d.Equipment == nil {
		d.Equipment = offlineEquipment{}
	}
	d.Line.SetSink(newHubSink(d.Hub, d.Metrics, d.Log))

	journal := NewJournalService(d.Repos.Journal)
	sup := NewSupervisor(d, journal)
	return &Service{
		Line:          sup,
		Stations:      sup,
		Associations:  sup,
		Operators:     NewOperatorService(d.Repos.Operators, sup, d.Hub, journal, d.Log),
		Orders:        NewOrderService(d.Repos.Orders),
		Journal:       journal,
		Syncer:        NewSyncService(d.Line, d.Hub),
		Health:        sup,
		Snapshots:     sup,
		Authorization: NewAuthService(d.Options.SigningKey, d.Options.AdminPasswordHash),
		supervisor:    sup,
	}
}

// EquipmentHandler is bound to the equipment adapter.
func (s *Service) EquipmentHandler() equipment.Handler { return s.supervisor }

type nopMetrics struct{}

func (nopMetrics) Command(string, string) {}
func (nopMetrics) Production(int)         {}

type offlineEquipment struct{}

func (offlineEquipment) PublishStationCommand(models.StationID, string, map[string]any) error {
	return equipment.ErrNotConnected
}
func (offlineEquipment) PublishLineCommand(string, int) error { return equipment.ErrNotConnected }
func (offlineEquipment) Connected() bool                      { return false }
