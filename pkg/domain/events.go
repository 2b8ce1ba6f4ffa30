package domain

import "time"

// Activity types recorded in the append-only log.
const (
	ActivityExecutionStarted   = "execution_started"
	ActivityExecutionCompleted = "execution_completed"
	ActivityStatusChanged      = "status_changed"
	ActivityRelance            = "relance"
	ActivityNote               = "note"
)

// ActivityEntry is one immutable audit record. The core only appends; it
// never reads the log back.
type ActivityEntry struct {
	ID             string         `json:"id"`
	LeadID         string         `json:"lead_id"`
	Type           string         `json:"type"`
	Description    string         `json:"description"`
	Actor          string         `json:"actor"`
	PreviousStatus string         `json:"previous_status,omitempty"`
	NewStatus      string         `json:"new_status,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}
