package service

import (
	"line_supervisor/internal/hub"
	"line_supervisor/internal/logger"
	"line_supervisor/internal/models"
	"line_supervisor/internal/station"
)

// hubSink forwards aggregator deltas to the global room.
type hubSink struct {
	hub     Broadcaster
	metrics Metrics
	log     *logger.Logger
}

func newHubSink(b Broadcaster, m Metrics, log *logger.Logger) *hubSink {
	return &hubSink{hub: b, metrics: m, log: log}
}

func (s *hubSink) OperatorUpdate(u models.OperatorUpdate) {
	s.send(hub.GlobalRoom, hub.TypeOperatorUpdate, u)
}

func (s *hubSink) ProductionUpdate(u models.ProductionUpdate) {
	s.metrics.Production(u.Current)
	s.send(hub.GlobalRoom, hub.TypeProductionUpdate, u)
}

func (s *hubSink) LineStatus(u models.LineStatusUpdate) {
	s.send(hub.GlobalRoom, hub.TypeLineStatus, u)
}

func (s *hubSink) send(room hub.Room, typ string, data any) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Broadcast(room, typ, data); err != nil && s.log != nil {
		s.log.Errorw("broadcast_failed", "room", room.String(), "type", typ, "err", err)
	}
}

// stationEmitter publishes station results to the station room. It runs under
// the station lock, so per-station broadcasts keep mutation order.
func (s *Supervisor) stationEmitter(id models.StationID) func(station.Result) {
	room := hub.StationRoom(id)
	return func(r station.Result) {
		s.sink.send(room, hub.TypeStateChanged, r.View)
		if r.LogLine != nil {
			s.sink.send(room, hub.TypeLogLine, models.LogLine{Station: id, Text: r.LogLine.Text, At: r.LogLine.At})
		}
	}
}

func (s *Supervisor) alert(room hub.Room, a models.Alert) {
	s.sink.send(room, hub.TypeAlert, a)
}
