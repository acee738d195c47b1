package models

import "time"

// LineStatus is the shared run status of the production line.
type LineStatus string

const (
	LineOff   LineStatus = "OFF"
	LineArmed LineStatus = "ARMED"
	LineOn    LineStatus = "ON"
)

// FieldLock holds the per-station flags used by the console forms.
type FieldLock struct {
	FieldsLocked      bool `json:"fields_locked"`
	AllocationPending bool `json:"allocation_pending"`
}

// GlobalView is the line-wide snapshot pushed on connect and on request.
type GlobalView struct {
	Status         LineStatus              `json:"status"`
	Current        int                     `json:"current"`
	Target         int                     `json:"target"`
	OrderReference string                  `json:"order_reference,omitempty"`
	TimerMS        int64                   `json:"timer_ms"`
	TimerRunning   bool                    `json:"timer_running"`
	Projection     string                  `json:"projection"`
	Operators      map[StationID]*Operator `json:"operators"`
	Locks          map[StationID]FieldLock `json:"locks"`
	At             time.Time               `json:"at"`
}

// ProductionUpdate is pushed whenever the counter or the target changes.
type ProductionUpdate struct {
	Current    int    `json:"current"`
	Target     int    `json:"target"`
	Projection string `json:"projection"`
}

// LineStatusUpdate is the periodic and on-change line status push.
type LineStatusUpdate struct {
	Status       LineStatus `json:"status"`
	TimerMS      int64      `json:"timer_ms"`
	TimerRunning bool       `json:"timer_running"`
}

// Alert is a transient popup for operators.
type Alert struct {
	Message    string `json:"message"`
	Color      string `json:"color"`
	DurationMS int    `json:"duration_ms"`
}

// LogLine carries a single new station log entry.
type LogLine struct {
	Station StationID `json:"station"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Association links a pallet to the product it carries.
type Association struct {
	PalletCode  string    `json:"pallet_code"`
	ProductCode string    `json:"product_code"`
	At          time.Time `json:"at"`
}

// ProductionOrder is an externally defined order the line can be started against.
type ProductionOrder struct {
	ID          int       `json:"id"`
	Code        string    `json:"code"`
	Product     string    `json:"product"`
	Description string    `json:"description,omitempty"`
	Target      int       `json:"target"`
	Status      string    `json:"status"` // ABERTA | EM_EXECUCAO | FINALIZADA
	CreatedAt   time.Time `json:"created_at"`
}
