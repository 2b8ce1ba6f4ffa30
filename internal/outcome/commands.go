package outcome

import (
	"strings"
	"time"

	"github.com/velora/leadflow/pkg/domain"
)

// QualifyRdvCommand records the outcome of a scheduled appointment.
// Required-field combinations are declared here and checked by Validate
// before the state machine is invoked, keeping the machine free of
// input-shape concerns.
type QualifyRdvCommand struct {
	LeadID string
	Actor  string

	Honored bool
	// AbsenceReason is required iff Honored is false.
	AbsenceReason string
	// Intent is required iff Honored is true.
	Intent string
}

// Validate checks required-field combinations. It performs no I/O.
func (c QualifyRdvCommand) Validate() error {
	if c.LeadID == "" {
		return &domain.ValidationError{Field: "lead_id", Reason: "required"}
	}
	if !c.Honored {
		if strings.TrimSpace(c.AbsenceReason) == "" {
			return &domain.ValidationError{Field: "absence_reason", Reason: "required when the appointment was not honored"}
		}
		return nil
	}
	if strings.TrimSpace(c.Intent) == "" {
		return &domain.ValidationError{Field: "intent", Reason: "required when the appointment was honored"}
	}
	return nil
}

// FollowUpCommand records a follow-up attempt on a missed appointment.
type FollowUpCommand struct {
	LeadID string
	Actor  string

	// Action is "relance" or "call".
	Action string
	// CallResult is required iff Action is "call".
	CallResult string
	// NewDate is required iff CallResult is "rdv_refixe".
	NewDate *time.Time
}

// Validate checks required-field combinations. It performs no I/O.
func (c FollowUpCommand) Validate() error {
	if c.LeadID == "" {
		return &domain.ValidationError{Field: "lead_id", Reason: "required"}
	}
	if strings.TrimSpace(c.Action) == "" {
		return &domain.ValidationError{Field: "action", Reason: "required"}
	}
	if c.Action == domain.FollowUpCall {
		if strings.TrimSpace(c.CallResult) == "" {
			return &domain.ValidationError{Field: "call_result", Reason: "required for a call follow-up"}
		}
		if c.CallResult == domain.CallResultRdvRefixe && c.NewDate == nil {
			return &domain.ValidationError{Field: "new_date", Reason: "required when the appointment is rebooked"}
		}
	}
	return nil
}
