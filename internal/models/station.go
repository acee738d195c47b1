package models

import (
	"fmt"
	"strings"
	"time"
)

// StationID is the stable index of a station on the line (0..N-1).
type StationID int

// String returns the room-style name used by the consoles, e.g. "posto_2".
func (id StationID) String() string {
	return fmt.Sprintf("posto_%d", int(id))
}

// StationState is the lifecycle state of a station.
type StationState int

const (
	StateIdle StationState = iota // IDLE
	StateBS                       // BS
	StateBT1                      // BT1
	StateBT2                      // BT2
	StateBD                       // BD
)

var stateNames = [...]string{"IDLE", "BS", "BT1", "BT2", "BD"}

// titles shown on the station cards; BT2 is labelled "Espera" on the floor.
var stateTitles = [...]string{"Arrival", "Preparo", "Montagem", "Espera", "Arrival"}

func (s StationState) Valid() bool {
	return s >= StateIdle && s <= StateBD
}

func (s StationState) String() string {
	if !s.Valid() {
		return fmt.Sprintf("StationState(%d)", int(s))
	}
	return stateNames[s]
}

// Title is the UI label of the state.
func (s StationState) Title() string {
	if !s.Valid() {
		return stateTitles[StateIdle]
	}
	return stateTitles[s]
}

// Next returns the successor of s in the station cycle.
func (s StationState) Next() StationState {
	if s == StateBD {
		return StateIdle
	}
	return s + 1
}

// ParseStationState accepts the state names published by the devices (case-insensitive).
func ParseStationState(raw string) (StationState, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	for i, name := range stateNames {
		if name == v {
			return StationState(i), nil
		}
	}
	return StateIdle, fmt.Errorf("unknown station state %q", raw)
}

// LogEntry is one operator-visible diagnostic line of a station.
type LogEntry struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// StageTimings are the stage durations of a station's current or last cycle, in
// milliseconds. A stage that has not happened yet in the cycle is nil.
type StageTimings struct {
	ArrivalMS     *int64 `json:"arrival_ms"`     // last BD to BS on this station
	PreparationMS *int64 `json:"preparation_ms"` // BS to BT1
	AssemblyMS    *int64 `json:"assembly_ms"`    // BT1 to BT2
	WaitMS        *int64 `json:"wait_ms"`        // BT2 to BD
	TransferMS    *int64 `json:"transfer_ms"`    // previous station's BD to BS here
	CycleMS       *int64 `json:"cycle_ms"`       // set on BD
}

// Total sums the stages that have a value. It is nil when none has.
func (t StageTimings) Total() *int64 {
	var sum int64
	seen := false
	for _, v := range []*int64{t.ArrivalMS, t.PreparationMS, t.AssemblyMS, t.WaitMS, t.TransferMS} {
		if v != nil {
			sum += *v
			seen = true
		}
	}
	if !seen {
		return nil
	}
	return &sum
}

// StationView is a complete, point-in-time copy of a station.
type StationView struct {
	ID                StationID    `json:"id"`
	Name              string       `json:"name"`
	State             StationState `json:"state"`
	StateName         string       `json:"state_name"`
	Title             string       `json:"title"`
	ProductCode       string       `json:"product_code,omitempty"`
	PalletCode        string       `json:"pallet_code,omitempty"`
	Model             string       `json:"model,omitempty"`
	CompletionPercent *int         `json:"completion_percent,omitempty"`
	Operator          *Operator    `json:"operator"`
	Cycles            int          `json:"cycles"`
	Timings           StageTimings `json:"timings"`
	Log               []LogEntry   `json:"log"`
	UpdatedAt         time.Time    `json:"updated_at"`
}
