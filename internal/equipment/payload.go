package equipment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"line_supervisor/internal/codes"
	"line_supervisor/internal/models"
)

// StationEvent is a decoded event or telemetry message. Nil fields were absent.
type StationEvent struct {
	State             *models.StationState
	ProductCode       *string
	PalletCode        *string
	Model             *string
	CompletionPercent *int
	OperatorID        *int
}

type eventPayload struct {
	State             *string `json:"state"`
	ProductCode       *string `json:"product_code"`
	PalletCode        *string `json:"pallet_code"`
	Model             *string `json:"model"`
	CompletionPercent *int    `json:"completion_percent"`
	OperatorID        *int    `json:"operator_id"`
}

// StationCommand is published to a single station.
type StationCommand struct {
	Action string         `json:"action"`
	Args   map[string]any `json:"args,omitempty"`
}

// LineCommand is published to every station on the line topic.
type LineCommand struct {
	Action string `json:"action"`
	Target int    `json:"target,omitempty"`
}

// decodeEvent accepts either a JSON object or a bare state token such as "BT1".
func decodeEvent(payload []byte) (StationEvent, error) {
	raw := strings.TrimSpace(string(payload))
	if raw == "" {
		return StationEvent{}, fmt.Errorf("%w: empty event", ErrBadPayload)
	}
	if !strings.HasPrefix(raw, "{") {
		st, err := models.ParseStationState(raw)
		if err != nil {
			return StationEvent{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return StationEvent{State: &st}, nil
	}

	var p eventPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return StationEvent{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	ev := StationEvent{
		ProductCode:       p.ProductCode,
		PalletCode:        p.PalletCode,
		Model:             p.Model,
		CompletionPercent: p.CompletionPercent,
		OperatorID:        p.OperatorID,
	}
	if p.State != nil {
		st, err := models.ParseStationState(*p.State)
		if err != nil {
			return StationEvent{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		ev.State = &st
	}
	if ev.ProductCode != nil {
		code := codes.NormalizeProduct(*ev.ProductCode)
		if code != "" && !codes.ValidProduct(code) {
			return StationEvent{}, fmt.Errorf("%w: product code %q", ErrBadPayload, *ev.ProductCode)
		}
		ev.ProductCode = &code
	}
	if ev.PalletCode != nil {
		code := codes.NormalizePallet(*ev.PalletCode)
		if code != "" && !codes.ValidPallet(code) {
			return StationEvent{}, fmt.Errorf("%w: pallet code %q", ErrBadPayload, *ev.PalletCode)
		}
		ev.PalletCode = &code
	}
	return ev, nil
}

// decodeTelemetry accepts {"completion_percent": n} or a bare integer.
func decodeTelemetry(payload []byte) (StationEvent, error) {
	raw := strings.TrimSpace(string(payload))
	if n, err := strconv.Atoi(raw); err == nil {
		return StationEvent{CompletionPercent: &n}, nil
	}
	var p struct {
		CompletionPercent *int `json:"completion_percent"`
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.CompletionPercent == nil {
		return StationEvent{}, fmt.Errorf("%w: telemetry %q", ErrBadPayload, raw)
	}
	return StationEvent{CompletionPercent: p.CompletionPercent}, nil
}

func decodeAck(payload []byte) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(string(payload))) {
	case "ON":
		return true, nil
	case "OFF":
		return false, nil
	}
	return false, fmt.Errorf("%w: ack %q", ErrBadPayload, payload)
}
