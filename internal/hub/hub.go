// Package hub fans out line events to connected viewers grouped in rooms.
package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"line_supervisor/internal/logger"
	"line_supervisor/internal/models"
)

var (
	ErrUnknownRoom   = errors.New("unknown room")
	ErrNotRegistered = errors.New("client not registered")
)

// Outbound message types.
const (
	TypeStateSnapshot    = "state_snapshot"
	TypeStateChanged     = "state_changed"
	TypeGlobalSync       = "global_sync"
	TypeOperatorUpdate   = "operator_update"
	TypeProductionUpdate = "production_update"
	TypeLineStatus       = "line_status"
	TypeLogLine          = "log_line"
	TypeAlert            = "alert"
	TypeCommandResult    = "command_result"
	TypeError            = "error"
)

// Message is the websocket envelope in both directions.
type Message struct {
	Type  string          `json:"type"`
	Room  *Room           `json:"room,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// SnapshotSource builds the synchronous snapshot replies. reply runs while the
// source still holds the lock its deltas are emitted under, so a snapshot is
// never queued behind a delta newer than itself.
type SnapshotSource interface {
	StationSnapshotTo(id models.StationID, reply func(models.StationView)) error
	GlobalSnapshotTo(reply func(models.GlobalView))
}

// Observer receives hub counters. metrics.Metrics implements it.
type Observer interface {
	Broadcast(roomKind string)
	Dropped()
	Clients(n int)
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[Room]map[*Client]struct{}

	buffer   int
	observer Observer
	log      *logger.Logger
}

type Option func(*Hub)

// WithClientBuffer bounds each client's outbound queue.
func WithClientBuffer(n int) Option { return func(h *Hub) { h.buffer = n } }

func WithObserver(o Observer) Option { return func(h *Hub) { h.observer = o } }

func WithLogger(l *logger.Logger) Option { return func(h *Hub) { h.log = l } }

// New creates a hub with one room per station and the global room.
func New(stations int, opts ...Option) *Hub {
	h := &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[Room]map[*Client]struct{}, stations+1),
		buffer:  64,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.rooms[GlobalRoom] = make(map[*Client]struct{})
	for i := 0; i < stations; i++ {
		h.rooms[StationRoom(models.StationID(i))] = make(map[*Client]struct{})
	}
	return h
}

// Register creates a client that is already a member of the global room.
func (h *Hub) Register() *Client {
	c := newClient(h.buffer)
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.rooms[GlobalRoom][c] = struct{}{}
	c.rooms[GlobalRoom] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	if h.observer != nil {
		h.observer.Clients(n)
	}
	return c
}

// Unregister removes the client from every room and closes its queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		delete(h.rooms[room], c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	if h.observer != nil {
		h.observer.Clients(n)
	}
}

// Join adds the client to room. Joining twice is a no-op.
func (h *Hub) Join(c *Client, room Room) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRoom, room)
	}
	if _, ok := h.clients[c]; !ok {
		return ErrNotRegistered
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
	return nil
}

// Leave removes the client from room. The global room cannot be left.
func (h *Hub) Leave(c *Client, room Room) {
	if room.IsGlobal() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
	}
	delete(c.rooms, room)
}

// IsMember reports whether the client is in room.
func (h *Hub) IsMember(c *Client, room Room) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c]
	return ok
}

// Members is the number of clients in room.
func (h *Hub) Members(room Room) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast queues a message for every member of room. It never blocks on a client.
func (h *Hub) Broadcast(room Room, typ string, data any) error {
	msg, err := encode(typ, &room, data)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		h.deliver(c, msg)
	}
	if h.observer != nil {
		h.observer.Broadcast(room.Kind())
	}
	return nil
}

// Send queues a message for a single client.
func (h *Hub) Send(c *Client, typ string, room *Room, data any) error {
	msg, err := encode(typ, room, data)
	if err != nil {
		return err
	}
	h.deliver(c, msg)
	return nil
}

// SendError queues an error envelope for a single client.
func (h *Hub) SendError(c *Client, room *Room, reason string) {
	msg, err := json.Marshal(Message{Type: TypeError, Room: room, Error: reason})
	if err != nil {
		return
	}
	h.deliver(c, msg)
}

// RequestSnapshot replies to c with the current snapshot of room. It is a no-op
// returning false when c is not a member of room.
func (h *Hub) RequestSnapshot(c *Client, room Room, src SnapshotSource) (bool, error) {
	if !h.IsMember(c, room) {
		return false, nil
	}
	var sendErr error
	if room.IsGlobal() {
		src.GlobalSnapshotTo(func(v models.GlobalView) {
			sendErr = h.Send(c, TypeGlobalSync, &room, v)
		})
		return true, sendErr
	}
	id, _ := room.Station()
	err := src.StationSnapshotTo(id, func(v models.StationView) {
		sendErr = h.Send(c, TypeStateSnapshot, &room, v)
	})
	if err != nil {
		return false, err
	}
	return true, sendErr
}

func (h *Hub) deliver(c *Client, msg []byte) {
	if c.enqueue(msg) {
		if h.observer != nil {
			h.observer.Dropped()
		}
		if h.log != nil {
			h.log.Debugw("ws_client_queue_overflow", "client_id", c.ID(), "dropped_total", c.Dropped())
		}
	}
}

func encode(typ string, room *Room, data any) ([]byte, error) {
	m := Message{Type: typ, Room: room}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", typ, err)
		}
		m.Data = raw
	}
	return json.Marshal(m)
}
