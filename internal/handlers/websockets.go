package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"line_supervisor/internal/hub"
	"line_supervisor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
)

// Inbound message types.
const (
	typeJoin              = "join"
	typeLeave             = "leave"
	typeRequestSnapshot   = "request_snapshot"
	typeCommand           = "command"
	typeAssociationSubmit = "association_submit"
)

// Line-wide console commands. Any other action is a station command.
const (
	cmdStart        = "start"
	cmdStop         = "stop"
	cmdRestart      = "restart"
	cmdResetCounter = "reset_counter"
	cmdSetTarget    = "set_target"
	cmdAllocate     = "allocate_operator"
	cmdDeallocate   = "deallocate_operator"
)

// wsCommand is the data of a "command" message. Station falls back to the
// message room when that is a station room.
type wsCommand struct {
	Station *int           `json:"station,omitempty"`
	Action  string         `json:"action"`
	Args    map[string]any `json:"args,omitempty"`
}

type wsAssociation struct {
	ProductCode string `json:"product_code"`
	PalletCode  string `json:"pallet_code"`
}

// commandResult is sent to the initiating client only.
type commandResult struct {
	Action  string `json:"action"`
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // consoles are served from other hosts on the plant network
}

func (h *Handler) wsConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}

	client := h.rooms.Register()
	if h.log != nil {
		h.log.Infow("ws_connected", "client_id", client.ID(), "remote", c.ClientIP())
	}

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	writerDone := make(chan struct{})
	go h.writeLoop(conn, client, writerDone)

	// the global room has no join step, so its snapshot is pushed right away
	if _, err := h.rooms.RequestSnapshot(client, hub.GlobalRoom, h.services); err != nil && h.log != nil {
		h.log.Errorw("ws_global_sync_failed", "client_id", client.ID(), "err", err)
	}

	h.readLoop(c.Request.Context(), conn, client)

	h.rooms.Unregister(client)
	<-writerDone
	_ = conn.Close()
	if h.log != nil {
		h.log.Infow("ws_disconnected", "client_id", client.ID(), "dropped", client.Dropped())
	}
}

// writeLoop drains the client queue and keeps the connection alive with pings.
// It returns when the queue is closed or a write fails.
func (h *Handler) writeLoop(conn *websocket.Conn, client *hub.Client, done chan<- struct{}) {
	defer close(done)
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-client.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "client_id", client.ID(), "err", err)
				}
				// unblocks the reader
				_ = conn.Close()
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "client_id", client.ID(), "err", err)
				}
				_ = conn.Close()
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "client_id", client.ID(), "err", err)
			}
			return
		}
		var msg hub.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.rooms.SendError(client, nil, "malformed message")
			continue
		}
		h.dispatch(ctx, client, msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, client *hub.Client, msg hub.Message) {
	switch msg.Type {
	case typeJoin:
		if msg.Room == nil {
			h.rooms.SendError(client, nil, "room is required")
			return
		}
		if err := h.rooms.Join(client, *msg.Room); err != nil {
			h.rooms.SendError(client, msg.Room, err.Error())
		}

	case typeLeave:
		if msg.Room != nil {
			h.rooms.Leave(client, *msg.Room)
		}

	case typeRequestSnapshot:
		room := hub.GlobalRoom
		if msg.Room != nil {
			room = *msg.Room
		}
		ok, err := h.rooms.RequestSnapshot(client, room, h.services)
		if err != nil {
			h.rooms.SendError(client, &room, err.Error())
			return
		}
		if !ok && h.log != nil {
			h.log.Debugw("ws_snapshot_not_member", "client_id", client.ID(), "room", room.String())
		}

	case typeCommand:
		var cmd wsCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			h.rooms.SendError(client, msg.Room, "malformed command")
			return
		}
		if cmd.Station == nil && msg.Room != nil {
			if id, ok := msg.Room.Station(); ok {
				n := int(id)
				cmd.Station = &n
			}
		}
		h.reply(client, msg.Room, h.runCommand(ctx, cmd))

	case typeAssociationSubmit:
		var req wsAssociation
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.rooms.SendError(client, msg.Room, "malformed association")
			return
		}
		a, err := h.services.Associate(ctx, service.AssociationParams{PalletCode: req.PalletCode, ProductCode: req.ProductCode})
		h.reply(client, msg.Room, result(typeAssociationSubmit, a, err))

	default:
		h.rooms.SendError(client, msg.Room, "unknown message type: "+msg.Type)
	}
}

func (h *Handler) runCommand(ctx context.Context, cmd wsCommand) commandResult {
	action := strings.ToLower(strings.TrimSpace(cmd.Action))
	switch action {
	case cmdStart:
		ref, _ := cmd.Args["order_reference"].(string)
		v, err := h.services.Start(ctx, service.StartParams{Target: cmd.Args["target"], OrderReference: ref})
		return result(action, v, err)
	case cmdStop:
		v, err := h.services.Stop(ctx)
		return result(action, v, err)
	case cmdRestart:
		v, err := h.services.Restart(ctx)
		return result(action, v, err)
	case cmdResetCounter:
		v, err := h.services.ResetCounter(ctx)
		return result(action, v, err)
	case cmdSetTarget:
		v, err := h.services.SetTarget(ctx, cmd.Args["target"])
		return result(action, v, err)
	}

	if cmd.Station == nil {
		return result(action, nil, &service.Error{Code: service.CodeValidation, Message: "station is required"})
	}
	station := *cmd.Station

	switch action {
	case cmdAllocate:
		id, ok := intArg(cmd.Args, "operator_id")
		if !ok {
			return result(action, nil, &service.Error{Code: service.CodeValidation, Message: "operator_id is required"})
		}
		op, err := h.services.Allocate(ctx, station, id)
		return result(action, op, err)
	case cmdDeallocate:
		return result(action, nil, h.services.Deallocate(ctx, station))
	default:
		return result(action, nil, h.services.StationCommand(ctx, station, service.CommandParams{Action: action, Args: cmd.Args}))
	}
}

func (h *Handler) reply(client *hub.Client, room *hub.Room, res commandResult) {
	if err := h.rooms.Send(client, hub.TypeCommandResult, room, res); err != nil && h.log != nil {
		h.log.Errorw("ws_reply_failed", "client_id", client.ID(), "action", res.Action, "err", err)
	}
}

func result(action string, data any, err error) commandResult {
	if err != nil {
		e := service.AsError(err)
		return commandResult{Action: action, Code: e.Code, Message: e.Message}
	}
	return commandResult{Action: action, OK: true, Data: data}
}

// intArg reads a whole number from decoded JSON args.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}
