// Package equipment bridges the station devices on the MQTT bus to the supervisor.
package equipment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sony/gobreaker"

	"line_supervisor/internal/codes"
	"line_supervisor/internal/config"
	"line_supervisor/internal/logger"
	"line_supervisor/internal/models"
)

var (
	ErrNotConnected = errors.New("equipment channel not connected")
	ErrUnavailable  = errors.New("equipment channel unavailable")
	ErrUnknownTopic = errors.New("unknown topic")
	ErrBadPayload   = errors.New("malformed payload")
	ErrUnknownCard  = errors.New("unknown nfc card")
	ErrNoHandler    = errors.New("no handler bound")
)

const (
	connectTimeout  = 5 * time.Second
	publishTimeout  = 2 * time.Second
	subscribeWait   = 5 * time.Second
	disconnectQuiet = 250 // ms

	breakerFailures = 5
	breakerTimeout  = 10 * time.Second
)

// Handler receives decoded equipment input. Implemented by the service layer.
type Handler interface {
	HandleStationEvent(ctx context.Context, id models.StationID, ev StationEvent) error
	HandlePalletRead(ctx context.Context, id models.StationID, pallet string) error
	HandleLineAck(ctx context.Context, on bool) error
}

// Observer counts inbound events by result.
type Observer interface {
	EquipmentEvent(result string)
}

// PublishFunc sends one message to the bus.
type PublishFunc func(topic string, payload []byte) error

type Adapter struct {
	cfg   config.MQTTConfig
	cards map[string]string
	log   *logger.Logger

	breaker  *gobreaker.CircuitBreaker
	publish  PublishFunc
	observer Observer

	mu        sync.RWMutex
	client    mqtt.Client
	handler   Handler
	connected bool
	ctx       context.Context
}

type Option func(*Adapter)

// WithPublisher replaces the MQTT publish path, for tests.
func WithPublisher(fn PublishFunc) Option { return func(a *Adapter) { a.publish = fn } }

func WithObserver(o Observer) Option { return func(a *Adapter) { a.observer = o } }

// New builds an adapter. cards maps NFC card uids to pallet codes.
func New(cfg config.MQTTConfig, cards map[string]string, log *logger.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		cfg:   cfg,
		cards: make(map[string]string, len(cards)),
		log:   log,
		ctx:   context.Background(),
	}
	for uid, pallet := range cards {
		a.cards[strings.ToLower(strings.TrimSpace(uid))] = pallet
	}
	a.publish = a.mqttPublish
	a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "equipment-publish",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if a.log != nil {
				a.log.Warnw("equipment_breaker_state", "name", name, "from", from.String(), "to", to.String())
			}
		},
	})
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Bind sets the receiver of inbound equipment messages.
func (a *Adapter) Bind(h Handler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = h
}

// Connected reports the broker connection state.
func (a *Adapter) Connected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.connected
}

// Run connects to the broker and blocks until ctx is cancelled. Reconnects are
// handled by paho; subscriptions are renewed on every connect. With no broker
// configured the adapter stays idle.
func (a *Adapter) Run(ctx context.Context) error {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	if a.cfg.Broker == "" {
		if a.log != nil {
			a.log.Infow("mqtt_disabled", "reason", "mqtt.broker not set")
		}
		<-ctx.Done()
		return nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(a.cfg.Broker)
	opts.SetClientID(a.cfg.ClientID)
	if a.cfg.Username != "" {
		opts.SetUsername(a.cfg.Username)
		opts.SetPassword(a.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetOrderMatters(true)
	opts.SetCleanSession(true)

	opts.OnConnect = func(c mqtt.Client) {
		a.setConnected(true)
		if a.log != nil {
			a.log.Infow("mqtt_connected", "broker", a.cfg.Broker, "client_id", a.cfg.ClientID)
		}
		if err := a.subscribe(c); err != nil && a.log != nil {
			a.log.Errorw("mqtt_subscribe_failed", "err", err)
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		a.setConnected(false)
		if a.log != nil {
			a.log.Infow("mqtt_connection_lost", "err", err, "action", "auto_reconnect")
		}
	}

	client := mqtt.NewClient(opts)
	a.mu.Lock()
	a.client = client
	a.mu.Unlock()

	token := client.Connect()
	if token.WaitTimeout(connectTimeout) {
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
	} else if a.log != nil {
		// ConnectRetry keeps trying in the background.
		a.log.Infow("mqtt_connect_pending", "broker", a.cfg.Broker)
	}

	<-ctx.Done()
	client.Disconnect(disconnectQuiet)
	a.setConnected(false)
	if a.log != nil {
		a.log.Infow("mqtt_disconnected")
	}
	return nil
}

func (a *Adapter) subscribe(c mqtt.Client) error {
	filters := map[string]byte{
		a.cfg.StationPrefix + "/+/event":     a.cfg.QoS,
		a.cfg.StationPrefix + "/+/telemetry": a.cfg.QoS,
		a.cfg.StationPrefix + "/+/nfc":       a.cfg.QoS,
		a.cfg.LineTopic + "/ack":             a.cfg.QoS,
	}
	token := c.SubscribeMultiple(filters, func(_ mqtt.Client, msg mqtt.Message) {
		if err := a.dispatch(msg.Topic(), msg.Payload()); err != nil && a.log != nil {
			a.log.Infow("equipment_message_rejected", "topic", msg.Topic(), "err", err)
		}
	})
	if !token.WaitTimeout(subscribeWait) {
		return errors.New("subscribe timeout")
	}
	return token.Error()
}

// dispatch decodes one inbound message and hands it to the bound handler.
func (a *Adapter) dispatch(topic string, payload []byte) (err error) {
	defer func() {
		if a.observer == nil {
			return
		}
		switch {
		case err == nil:
			a.observer.EquipmentEvent("accepted")
		case errors.Is(err, ErrBadPayload), errors.Is(err, ErrUnknownTopic), errors.Is(err, ErrUnknownCard):
			a.observer.EquipmentEvent("invalid")
		default:
			a.observer.EquipmentEvent("rejected")
		}
	}()

	a.mu.RLock()
	h, ctx := a.handler, a.ctx
	a.mu.RUnlock()
	if h == nil {
		return ErrNoHandler
	}

	if topic == a.cfg.LineTopic+"/ack" {
		on, err := decodeAck(payload)
		if err != nil {
			return err
		}
		return h.HandleLineAck(ctx, on)
	}

	id, kind, err := a.parseStationTopic(topic)
	if err != nil {
		return err
	}
	switch kind {
	case "event":
		ev, err := decodeEvent(payload)
		if err != nil {
			return err
		}
		return h.HandleStationEvent(ctx, id, ev)
	case "telemetry":
		ev, err := decodeTelemetry(payload)
		if err != nil {
			return err
		}
		return h.HandleStationEvent(ctx, id, ev)
	case "nfc":
		pallet, err := a.palletForCard(payload)
		if err != nil {
			return err
		}
		return h.HandlePalletRead(ctx, id, pallet)
	}
	return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
}

// parseStationTopic splits "<prefix>/<idx>/<kind>".
func (a *Adapter) parseStationTopic(topic string) (models.StationID, string, error) {
	rest, ok := strings.CutPrefix(topic, a.cfg.StationPrefix+"/")
	if !ok {
		return 0, "", fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	idx, kind, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, "", fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(idx, "posto_"))
	if err != nil || n < 0 {
		return 0, "", fmt.Errorf("%w: station %q", ErrUnknownTopic, idx)
	}
	return models.StationID(n), kind, nil
}

// palletForCard resolves a card uid through the card table. A payload that is
// already a pallet code is accepted as is.
func (a *Adapter) palletForCard(payload []byte) (string, error) {
	uid := strings.TrimSpace(string(payload))
	if pallet, ok := a.cards[strings.ToLower(uid)]; ok {
		return codes.NormalizePallet(pallet), nil
	}
	if pallet := codes.NormalizePallet(uid); codes.ValidPallet(pallet) {
		return pallet, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCard, uid)
}

// PublishStationCommand sends an operator command to one station.
func (a *Adapter) PublishStationCommand(id models.StationID, action string, args map[string]any) error {
	payload, err := json.Marshal(StationCommand{Action: action, Args: args})
	if err != nil {
		return err
	}
	return a.send(a.cfg.CommandPrefix+"/"+strconv.Itoa(int(id)), payload)
}

// PublishLineCommand sends Start, Stop or Restart to every station.
func (a *Adapter) PublishLineCommand(action string, target int) error {
	payload, err := json.Marshal(LineCommand{Action: action, Target: target})
	if err != nil {
		return err
	}
	return a.send(a.cfg.LineTopic, payload)
}

func (a *Adapter) send(topic string, payload []byte) error {
	_, err := a.breaker.Execute(func() (interface{}, error) {
		return nil, a.publish(topic, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (a *Adapter) mqttPublish(topic string, payload []byte) error {
	a.mu.RLock()
	client, connected := a.client, a.connected
	a.mu.RUnlock()
	if client == nil || !connected {
		return ErrNotConnected
	}
	token := client.Publish(topic, a.cfg.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	return token.Error()
}

func (a *Adapter) setConnected(v bool) {
	a.mu.Lock()
	a.connected = v
	a.mu.Unlock()
}
