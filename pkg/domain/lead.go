package domain

import (
	"fmt"
	"time"
)

// Lead statuses. StatusPerdu is terminal: no transition accepts a lead
// already in PERDU.
const (
	StatusRdvPlanifie       = "RDV_PLANIFIE"
	StatusRdvNonHonore      = "RDV_NON_HONORE"
	StatusDecisionEnAttente = "DECISION_EN_ATTENTE"
	StatusPerdu             = "PERDU"
)

// MaxRelances is the retry cap: reaching it moves the lead to PERDU.
const MaxRelances = 3

// Intents after an honored appointment.
const (
	IntentPoursuivre = "poursuivre"
	IntentReporter   = "reporter"
	IntentAbandon    = "abandon"
)

// Follow-up actions on a missed appointment.
const (
	FollowUpRelance = "relance"
	FollowUpCall    = "call"
)

// Call results for the follow-up call path.
const (
	CallResultRdvRefixe      = "rdv_refixe"
	CallResultInteresse      = "interesse"
	CallResultHorsLigne      = "hors_ligne"
	CallResultPasInteresse   = "pas_interesse"
	CallResultNumeroInvalide = "numero_invalide"
)

// Lost reasons recorded when a lead reaches PERDU.
const (
	LostReasonNonInteresse   = "non intéressé"
	LostReasonInjoignable    = "injoignable"
	LostReasonNumeroInvalide = "numéro invalide"
)

// Lead is the prospect record tracked through the pipeline. Created upstream;
// this core only transitions it through the outcome state machine.
type Lead struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	RelanceCount int        `json:"relance_count"`
	LostReason   string     `json:"lost_reason,omitempty"`
	DateRdv      *time.Time `json:"date_rdv,omitempty"`
	// Notes is prepended, timestamped, most-recent-first.
	Notes     string    `json:"notes,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LeadPatch is a partial update applied by LeadStore.Update. Nil fields are
// left untouched.
type LeadPatch struct {
	Status       *string
	RelanceCount *int
	LostReason   *string
	DateRdv      *time.Time
	Notes        *string
}

// PrependNote returns notes with a new timestamped entry on top,
// most-recent-first.
func PrependNote(notes string, at time.Time, text string) string {
	entry := fmt.Sprintf("[%s] %s", at.Format("02/01/2006 15:04"), text)
	if notes == "" {
		return entry
	}
	return entry + "\n" + notes
}
