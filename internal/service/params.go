package service

import "time"

// StartParams is a Start command as received from a console. Target is parsed
// with aggregator.ParseTarget so strings and JSON numbers are both accepted.
type StartParams struct {
	Target         any
	OrderReference string
}

// CommandParams is a station command. Local actions are handled by the
// supervisor; anything else is forwarded to the station device.
type CommandParams struct {
	Action string
	Args   map[string]any
}

// Station actions handled without the equipment.
const (
	ActionLockFields        = "lock_fields"
	ActionUnlockFields      = "unlock_fields"
	ActionRequestAllocation = "request_allocation"
)

// CheckIn directions read by the RFID badge readers.
const (
	CheckInEntry = "entrada"
	CheckInExit  = "saida"
)

type CheckInParams struct {
	Station   int
	RFIDTag   string
	Direction string
}

type AssociationParams struct {
	PalletCode  string
	ProductCode string
}

// LogFilter selects journal entries by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "START", "STOP", "RESTART", "RESET_COUNTER", "ALLOCATE", "DEALLOCATE", "ASSOCIATE", "COMMAND"
}

// HealthReport is served by /health.
type HealthReport struct {
	Status             string `json:"status"`
	Stations           int    `json:"stations"`
	EquipmentConnected bool   `json:"equipment_connected"`
	Error              string `json:"error,omitempty"`
}
