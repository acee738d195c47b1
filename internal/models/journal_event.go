package models

import "time"

// JournalEvent is a single entry of the command journal.
type JournalEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // START | STOP | RESTART | RESET_COUNTER | ALLOCATE | DEALLOCATE | ASSOCIATE | COMMAND
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
