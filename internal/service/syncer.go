package service

import (
	"context"
	"time"

	"line_supervisor/internal/hub"
	"line_supervisor/internal/models"
)

type lineStatusSource interface {
	LineStatusTo(reply func(models.LineStatusUpdate))
}

// SyncService pushes the line status and timer to the global room on every tick.
type SyncService struct {
	line lineStatusSource
	hub  Broadcaster
}

func NewSyncService(line lineStatusSource, b Broadcaster) *SyncService {
	return &SyncService{line: line, hub: b}
}

// Run ticks at the given interval until ctx is canceled.
func (s *SyncService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.push()
		}
	}
}

func (s *SyncService) push() {
	if s.hub == nil {
		return
	}
	// queued under the aggregator lock so a tick never lands after a newer status change
	s.line.LineStatusTo(func(u models.LineStatusUpdate) {
		_ = s.hub.Broadcast(hub.GlobalRoom, hub.TypeLineStatus, u)
	})
}
