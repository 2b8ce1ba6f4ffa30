package outcome_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/leadflow/internal/outcome"
	"github.com/velora/leadflow/pkg/domain"
)

func TestQualifyRdvCommand_Validate(t *testing.T) {
	t.Run("Lead ID Required", func(t *testing.T) {
		err := outcome.QualifyRdvCommand{Honored: true, Intent: domain.IntentReporter}.Validate()
		require.ErrorIs(t, err, domain.ErrValidation)

		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "lead_id", ve.Field)
	})

	t.Run("Absence Reason Required When Not Honored", func(t *testing.T) {
		err := outcome.QualifyRdvCommand{LeadID: "l", Honored: false}.Validate()
		require.ErrorIs(t, err, domain.ErrValidation)

		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "absence_reason", ve.Field)
	})

	t.Run("Intent Required When Honored", func(t *testing.T) {
		err := outcome.QualifyRdvCommand{LeadID: "l", Honored: true}.Validate()
		require.ErrorIs(t, err, domain.ErrValidation)

		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "intent", ve.Field)
	})

	t.Run("Valid Combinations", func(t *testing.T) {
		assert.NoError(t, outcome.QualifyRdvCommand{
			LeadID: "l", Honored: false, AbsenceReason: "oubli",
		}.Validate())
		assert.NoError(t, outcome.QualifyRdvCommand{
			LeadID: "l", Honored: true, Intent: domain.IntentPoursuivre,
		}.Validate())
	})
}

func TestFollowUpCommand_Validate(t *testing.T) {
	t.Run("Action Required", func(t *testing.T) {
		err := outcome.FollowUpCommand{LeadID: "l"}.Validate()
		require.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Call Result Required For Call", func(t *testing.T) {
		err := outcome.FollowUpCommand{LeadID: "l", Action: domain.FollowUpCall}.Validate()
		require.ErrorIs(t, err, domain.ErrValidation)

		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "call_result", ve.Field)
	})

	t.Run("New Date Required For Rebooking", func(t *testing.T) {
		err := outcome.FollowUpCommand{
			LeadID: "l", Action: domain.FollowUpCall, CallResult: domain.CallResultRdvRefixe,
		}.Validate()
		require.ErrorIs(t, err, domain.ErrValidation)

		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "new_date", ve.Field)
	})

	t.Run("Valid Combinations", func(t *testing.T) {
		date := time.Now()
		assert.NoError(t, outcome.FollowUpCommand{
			LeadID: "l", Action: domain.FollowUpRelance,
		}.Validate())
		assert.NoError(t, outcome.FollowUpCommand{
			LeadID: "l", Action: domain.FollowUpCall, CallResult: domain.CallResultHorsLigne,
		}.Validate())
		assert.NoError(t, outcome.FollowUpCommand{
			LeadID: "l", Action: domain.FollowUpCall, CallResult: domain.CallResultRdvRefixe, NewDate: &date,
		}.Validate())
	})
}
