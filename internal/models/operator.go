package models

// Operator is a person who can be allocated to a station.
type Operator struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Photo   string `json:"photo,omitempty"`
	RFIDTag string `json:"rfid_tag,omitempty"`
}

// OperatorUpdate announces the operator of one station; a nil Operator means not allocated.
type OperatorUpdate struct {
	Station  StationID `json:"station"`
	Name     string    `json:"name"`
	Operator *Operator `json:"operator"`
}
