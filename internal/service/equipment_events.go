package service

import (
	"context"

	"line_supervisor/internal/equipment"
	"line_supervisor/internal/hub"
	"line_supervisor/internal/models"
	"line_supervisor/internal/station"
)

var _ equipment.Handler = (*Supervisor)(nil)

// HandleStationEvent applies one equipment event. An operator carried by the event is
// allocated first, outside the station lock.
func (s *Supervisor) HandleStationEvent(ctx context.Context, id models.StationID, ev equipment.StationEvent) error {
	st, err := s.stations.Get(id)
	if err != nil {
		s.warn("equipment_event_rejected", "station", int(id), "err", err)
		return err
	}

	if ev.OperatorID != nil {
		s.allocateByID(ctx, id, *ev.OperatorID)
	}

	res, err := st.Apply(station.Event{
		Station:           id,
		State:             ev.State,
		ProductCode:       ev.ProductCode,
		PalletCode:        ev.PalletCode,
		Model:             ev.Model,
		CompletionPercent: ev.CompletionPercent,
	}, s.stationEmitter(id))
	if err != nil {
		if s.log != nil {
			s.log.Infow("station_event_rejected", "station", id.String(), "err", err)
		}
		return err
	}
	if res.Transitioned {
		if s.log != nil {
			s.log.Debugw("station_transition", "station", id.String(), "from", res.From.String(), "to", res.View.State.String())
		}
		s.afterTransition(id, res)
	}
	return nil
}

// afterTransition counts completions of the terminal station.
func (s *Supervisor) afterTransition(id models.StationID, res station.Result) {
	if id != s.stations.Terminal() || res.View.State != models.StateBD {
		return
	}
	if s.line.RecordCompletion() && s.log != nil {
		s.log.Infow("unit_completed", "product", res.View.ProductCode, "pallet", res.View.PalletCode)
	}
	if res.View.ProductCode != "" {
		s.assoc.releaseProduct(res.View.ProductCode)
	}
}

func (s *Supervisor) allocateByID(ctx context.Context, id models.StationID, operatorID int) {
	if s.operators == nil {
		return
	}
	if cur, ok := s.line.StationOf(operatorID); ok && cur == id {
		return
	}
	op, err := s.operators.Get(ctx, operatorID)
	if err != nil || op == nil {
		s.warn("equipment_operator_unknown", "station", id.String(), "operator_id", operatorID, "err", err)
		return
	}
	if err := s.AllocateOperator(ctx, id, *op); err != nil {
		s.warn("equipment_allocation_failed", "station", id.String(), "err", err)
	}
}

// HandlePalletRead records an NFC pallet read. The first station adopts any pallet;
// later stations only accept pallets that carry an associated product.
func (s *Supervisor) HandlePalletRead(_ context.Context, id models.StationID, pallet string) error {
	st, err := s.stations.Get(id)
	if err != nil {
		s.warn("pallet_read_rejected", "station", int(id), "err", err)
		return err
	}
	ev := station.Event{Station: id, PalletCode: &pallet}
	if product, ok := s.assoc.productOf(pallet); ok {
		ev.ProductCode = &product
	} else if id != 0 {
		s.alert(hub.StationRoom(id), models.Alert{Message: "PALETE NÃO ASSOCIADO: " + pallet, Color: colorError, DurationMS: alertDuration})
		return validationError("pallet not associated")
	}
	_, err = st.Apply(ev, s.stationEmitter(id))
	return err
}

// HandleLineAck completes the start handshake.
func (s *Supervisor) HandleLineAck(_ context.Context, on bool) error {
	if err := s.line.ConfirmEquipment(on); err != nil {
		if s.log != nil {
			s.log.Infow("line_ack_ignored", "on", on, "status", string(s.line.Status()))
		}
		return err
	}
	if s.log != nil {
		s.log.Infow("line_ack", "on", on, "status", string(s.line.Status()))
	}
	return nil
}
