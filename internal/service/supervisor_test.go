package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"line_supervisor/internal/equipment"
	"line_supervisor/internal/hub"
	"line_supervisor/internal/models"
	"line_supervisor/internal/repository"
)

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var e *Error
	require.True(t, errors.As(err, &e), "want *Error, got %v", err)
	return e.Code
}

func stateEvent(s models.StationState) equipment.StationEvent {
	return equipment.StationEvent{State: &s}
}

func TestStart_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, target := range []any{0, -3, "abc", nil} {
		_, err := f.svc.Start(ctx, StartParams{Target: target})
		assert.Equal(t, CodeValidation, codeOf(t, err), "target %v", target)
	}
	assert.Equal(t, models.LineOff, f.svc.LineState().Status)
	assert.Empty(t, f.equipment.lines)
	assert.Empty(t, f.journal.events)
}

func TestStart_PublishesAndJournals(t *testing.T) {
	f := newFixture()
	v, err := f.svc.Start(context.Background(), StartParams{Target: "20", OrderReference: "OP-1"})
	require.NoError(t, err)

	assert.Equal(t, models.LineOn, v.Status)
	assert.Equal(t, 20, v.Target)
	assert.Equal(t, []lineCall{{lineStart, 20}}, f.equipment.lines)
	assert.Equal(t, []string{"START"}, f.journal.types())
	assert.Equal(t, repository.OrderRunning, f.orders.statuses["OP-1"])
	assert.NotEmpty(t, f.hub.ofType(hub.TypeLineStatus))

	_, err = f.svc.Start(context.Background(), StartParams{Target: 5})
	assert.Equal(t, CodeConflict, codeOf(t, err))
}

func TestStart_RequiresKnownOrder(t *testing.T) {
	f := newFixture(withRequireOrder())
	ctx := context.Background()

	_, err := f.svc.Start(ctx, StartParams{Target: 10})
	assert.Equal(t, CodeValidation, codeOf(t, err))

	_, err = f.svc.Start(ctx, StartParams{Target: 10, OrderReference: "OP-404"})
	assert.Equal(t, CodeNotFound, codeOf(t, err))

	_, err = f.svc.Start(ctx, StartParams{Target: 10, OrderReference: "OP-1"})
	assert.NoError(t, err)
}

func TestStart_EquipmentFailureDoesNotFailCommand(t *testing.T) {
	f := newFixture()
	f.equipment.err = equipment.ErrUnavailable
	_, err := f.svc.Start(context.Background(), StartParams{Target: 3})
	assert.NoError(t, err)
	assert.Equal(t, models.LineOn, f.svc.LineState().Status)
}

func TestJournalFailureDoesNotFailCommand(t *testing.T) {
	f := newFixture()
	f.journal.appendErr = errors.New("disk full")
	_, err := f.svc.Stop(context.Background())
	assert.NoError(t, err)
}

func TestRestartClearsLineAndAssociations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.Start(ctx, StartParams{Target: 5})
	require.NoError(t, err)
	_, err = f.svc.Associate(ctx, AssociationParams{PalletCode: "PLT01", ProductCode: "045CP01002"})
	require.NoError(t, err)

	v, err := f.svc.Restart(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.LineOff, v.Status)
	assert.Zero(t, v.Target)
	assert.False(t, v.Locks[0].FieldsLocked)
	assert.Empty(t, f.svc.ListAssociations())
	assert.Equal(t, lineRestart, f.equipment.lines[len(f.equipment.lines)-1].action)
}

func TestEquipmentEvent_BroadcastsToStationRoom(t *testing.T) {
	f := newFixture()
	h := f.svc.EquipmentHandler()
	require.NoError(t, h.HandleStationEvent(context.Background(), 1, stateEvent(models.StateBS)))

	changed := f.hub.ofType(hub.TypeStateChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, hub.StationRoom(1), changed[0].room)
	assert.Equal(t, models.StateBS, changed[0].data.(models.StationView).State)

	logs := f.hub.ofType(hub.TypeLogLine)
	require.Len(t, logs, 1)
	assert.Equal(t, models.StationID(1), logs[0].data.(models.LogLine).Station)
}

func TestEquipmentEvent_DuplicateReemitsWithoutLog(t *testing.T) {
	f := newFixture()
	h := f.svc.EquipmentHandler()
	ctx := context.Background()
	require.NoError(t, h.HandleStationEvent(ctx, 0, stateEvent(models.StateBS)))
	require.NoError(t, h.HandleStationEvent(ctx, 0, stateEvent(models.StateBS)))

	assert.Len(t, f.hub.ofType(hub.TypeStateChanged), 2)
	assert.Len(t, f.hub.ofType(hub.TypeLogLine), 1)
	v, err := f.svc.GetStation(0)
	require.NoError(t, err)
	assert.Len(t, v.Log, 1)
}

func TestEquipmentEvent_UnknownStation(t *testing.T) {
	f := newFixture()
	err := f.svc.EquipmentHandler().HandleStationEvent(context.Background(), 7, stateEvent(models.StateBS))
	assert.Error(t, err)
	assert.Empty(t, f.hub.sent)
}

func TestTerminalCompletionCountsOnlyWhenOn(t *testing.T) {
	f := newFixture()
	h := f.svc.EquipmentHandler()
	ctx := context.Background()
	cycle := []models.StationState{models.StateBS, models.StateBT1, models.StateBT2, models.StateBD}

	for _, s := range cycle {
		require.NoError(t, h.HandleStationEvent(ctx, 2, stateEvent(s)))
	}
	assert.Zero(t, f.svc.LineState().Current, "line off: no count")

	_, err := f.svc.Start(ctx, StartParams{Target: 4})
	require.NoError(t, err)
	for _, s := range cycle {
		require.NoError(t, h.HandleStationEvent(ctx, 2, stateEvent(s)))
	}
	// duplicate BD is a no-op
	require.NoError(t, h.HandleStationEvent(ctx, 2, stateEvent(models.StateBD)))
	assert.Equal(t, 1, f.svc.LineState().Current)

	// a non-terminal station never counts
	for _, s := range cycle {
		require.NoError(t, h.HandleStationEvent(ctx, 0, stateEvent(s)))
	}
	assert.Equal(t, 1, f.svc.LineState().Current)
}

func TestCompletionReleasesAssociation(t *testing.T) {
	f := newFixture()
	h := f.svc.EquipmentHandler()
	ctx := context.Background()
	_, err := f.svc.Start(ctx, StartParams{Target: 4})
	require.NoError(t, err)
	_, err = f.svc.Associate(ctx, AssociationParams{PalletCode: "PLT02", ProductCode: "045CP01002"})
	require.NoError(t, err)

	require.NoError(t, h.HandlePalletRead(ctx, 2, "PLT02"))
	v, _ := f.svc.GetStation(2)
	assert.Equal(t, "045CP01002", v.ProductCode)

	for _, s := range []models.StationState{models.StateBS, models.StateBT1, models.StateBT2} {
		require.NoError(t, h.HandleStationEvent(ctx, 2, stateEvent(s)))
	}
	product := "045CP01002"
	bd := models.StateBD
	require.NoError(t, h.HandleStationEvent(ctx, 2, equipment.StationEvent{State: &bd, ProductCode: &product}))

	assert.Empty(t, f.svc.ListAssociations())
	assert.Equal(t, 1, f.svc.LineState().Current)
}

func TestEquipmentEvent_OperatorAllocation(t *testing.T) {
	f := newFixture()
	h := f.svc.EquipmentHandler()
	ctx := context.Background()
	opID := 1

	require.NoError(t, h.HandleStationEvent(ctx, 0, equipment.StationEvent{OperatorID: &opID}))
	v, _ := f.svc.GetStation(0)
	require.NotNil(t, v.Operator)
	assert.Equal(t, "Ana", v.Operator.Name)

	require.NoError(t, h.HandleStationEvent(ctx, 2, equipment.StationEvent{OperatorID: &opID}))
	v0, _ := f.svc.GetStation(0)
	v2, _ := f.svc.GetStation(2)
	assert.Nil(t, v0.Operator)
	assert.Equal(t, "Ana", v2.Operator.Name)

	// the released station re-emitted its snapshot without the operator
	var sawRelease bool
	for _, m := range f.hub.ofType(hub.TypeStateChanged) {
		if m.room == hub.StationRoom(0) && m.data.(models.StationView).Operator == nil {
			sawRelease = true
		}
	}
	assert.True(t, sawRelease)
	_, err := f.svc.Check()
	assert.NoError(t, err)
}

func TestPalletRead(t *testing.T) {
	f := newFixture()
	h := f.svc.EquipmentHandler()
	ctx := context.Background()

	require.NoError(t, h.HandlePalletRead(ctx, 0, "PLT07"))
	v, _ := f.svc.GetStation(0)
	assert.Equal(t, "PLT07", v.PalletCode)

	err := h.HandlePalletRead(ctx, 1, "PLT08")
	assert.Equal(t, CodeValidation, codeOf(t, err))
	alerts := f.hub.ofType(hub.TypeAlert)
	require.Len(t, alerts, 1)
	assert.Equal(t, hub.StationRoom(1), alerts[0].room)
}

func TestLineAckHandshake(t *testing.T) {
	f := newFixture()
	h := f.svc.EquipmentHandler()
	assert.Error(t, h.HandleLineAck(context.Background(), true), "not armed")
}

func TestAssociate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Associate(ctx, AssociationParams{PalletCode: "PLT01", ProductCode: "045CP01002"})
	assert.Equal(t, CodeValidation, codeOf(t, err), "production not started")

	_, err = f.svc.Start(ctx, StartParams{Target: 10})
	require.NoError(t, err)

	_, err = f.svc.Associate(ctx, AssociationParams{PalletCode: "PLT01", ProductCode: "045CQ01002"})
	assert.Equal(t, CodeValidation, codeOf(t, err))
	_, err = f.svc.Associate(ctx, AssociationParams{PalletCode: "PLT27", ProductCode: "045CP01002"})
	assert.Equal(t, CodeValidation, codeOf(t, err))

	a, err := f.svc.Associate(ctx, AssociationParams{PalletCode: " plt01 ", ProductCode: "045cp01002"})
	require.NoError(t, err)
	assert.Equal(t, "PLT01", a.PalletCode)
	assert.Equal(t, "045CP01002", a.ProductCode)

	_, err = f.svc.Associate(ctx, AssociationParams{PalletCode: "PLT01", ProductCode: "045CP01003"})
	assert.Equal(t, CodeAlreadyAssociated, codeOf(t, err))

	v, _ := f.svc.GetStation(0)
	assert.Equal(t, "PLT01", v.PalletCode)
	assert.Equal(t, "045CP01002", v.ProductCode)
	require.Len(t, f.equipment.stations, 1)
	assert.Equal(t, "associated", f.equipment.stations[0].action)
	assert.Len(t, f.svc.ListAssociations(), 1)
}

func TestStationCommand(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	assert.Equal(t, CodeNotFound, codeOf(t, f.svc.StationCommand(ctx, 5, CommandParams{Action: "reset"})))
	assert.Equal(t, CodeValidation, codeOf(t, f.svc.StationCommand(ctx, 1, CommandParams{})))

	require.NoError(t, f.svc.StationCommand(ctx, 1, CommandParams{Action: "reset", Args: map[string]any{"hard": true}}))
	require.Len(t, f.equipment.stations, 1)
	assert.Equal(t, models.StationID(1), f.equipment.stations[0].id)

	require.NoError(t, f.svc.StationCommand(ctx, 1, CommandParams{Action: ActionRequestAllocation}))
	assert.True(t, f.svc.LineState().Locks[1].AllocationPending)
	assert.NotEmpty(t, f.hub.ofType(hub.TypeGlobalSync))

	f.equipment.err = equipment.ErrUnavailable
	assert.Equal(t, CodeInternal, codeOf(t, f.svc.StationCommand(ctx, 1, CommandParams{Action: "reset"})))
}

func TestCheckHealth(t *testing.T) {
	f := newFixture()
	rep, err := f.svc.Check()
	require.NoError(t, err)
	assert.Equal(t, "ok", rep.Status)
	assert.Equal(t, 3, rep.Stations)
	assert.True(t, rep.EquipmentConnected)
}

func TestSnapshotsMatchBroadcastState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.svc.EquipmentHandler().HandleStationEvent(ctx, 1, stateEvent(models.StateBS)))

	var snap models.StationView
	require.NoError(t, f.svc.StationSnapshotTo(1, func(v models.StationView) { snap = v }))
	last := f.hub.ofType(hub.TypeStateChanged)
	assert.JSONEq(t, asJSON(last[len(last)-1].data), asJSON(snap))

	assert.Error(t, f.svc.StationSnapshotTo(9, func(models.StationView) { t.Error("reply for unknown station") }))

	var global models.GlobalView
	f.svc.GlobalSnapshotTo(func(v models.GlobalView) { global = v })
	assert.Equal(t, models.LineOff, global.Status)
}
