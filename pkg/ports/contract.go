package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/leadflow/pkg/domain"
)

// RunExecutionStoreContract runs a suite of tests to verify that an
// ExecutionStore implementation adheres to the defined interface contract.
func RunExecutionStoreContract(t *testing.T, store ExecutionStore) {
	ctx := context.Background()
	execID := "contract-exec-" + time.Now().Format("20060102150405.000")

	t.Run("Create and Get", func(t *testing.T) {
		exec := &domain.Execution{
			ID:               execID,
			ScriptID:         "script-1",
			LeadID:           "lead-1",
			UserID:           "user-1",
			MaxPossibleScore: 20,
			CurrentNodeID:    "q1",
			StartedAt:        time.Now().UTC().Truncate(time.Second),
		}
		require.NoError(t, store.CreateExecution(ctx, exec))

		loaded, err := store.GetExecution(ctx, execID)
		require.NoError(t, err)
		assert.Equal(t, exec.ScriptID, loaded.ScriptID)
		assert.Equal(t, 0, loaded.TotalScore)
		assert.Equal(t, 20, loaded.MaxPossibleScore)
		assert.Nil(t, loaded.CompletedAt)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.GetExecution(ctx, "non-existent-"+execID)
		assert.ErrorIs(t, err, domain.ErrExecutionNotFound)
	})

	t.Run("Append Response Updates Total", func(t *testing.T) {
		updated, err := store.AppendResponse(ctx, domain.Response{
			ID:          execID + "-r1",
			ExecutionID: execID,
			NodeID:      "q1",
			Answer:      "oui",
			ScoreEarned: 5,
			CreatedAt:   time.Now().UTC(),
		}, "q2")
		require.NoError(t, err)
		assert.Equal(t, 5, updated.TotalScore)
		assert.Equal(t, "q2", updated.CurrentNodeID)

		updated, err = store.AppendResponse(ctx, domain.Response{
			ID:          execID + "-r2",
			ExecutionID: execID,
			NodeID:      "q2",
			Answer:      "non",
			ScoreEarned: 0,
			CreatedAt:   time.Now().UTC(),
		}, "")
		require.NoError(t, err)
		assert.Equal(t, 5, updated.TotalScore)
		assert.Empty(t, updated.CurrentNodeID)
	})

	t.Run("Responses Keep Creation Order", func(t *testing.T) {
		responses, err := store.ListResponses(ctx, execID)
		require.NoError(t, err)
		require.Len(t, responses, 2)
		assert.Equal(t, "q1", responses[0].NodeID)
		assert.Equal(t, "q2", responses[1].NodeID)
	})

	t.Run("Append To Non-Existent", func(t *testing.T) {
		_, err := store.AppendResponse(ctx, domain.Response{
			ID:          "orphan",
			ExecutionID: "non-existent-" + execID,
			NodeID:      "q1",
		}, "")
		assert.ErrorIs(t, err, domain.ErrExecutionNotFound)
	})

	t.Run("Complete Freezes", func(t *testing.T) {
		err := store.CompleteExecution(ctx, execID, domain.Completion{
			CompletedAt:       time.Now().UTC().Truncate(time.Second),
			ScorePercentage:   25,
			Recommendation:    "Qualification moyenne",
			RecommendedAction: domain.ActionFollowUp,
		})
		require.NoError(t, err)

		loaded, err := store.GetExecution(ctx, execID)
		require.NoError(t, err)
		require.NotNil(t, loaded.CompletedAt)
		assert.Equal(t, 25, loaded.ScorePercentage)
		assert.Equal(t, domain.ActionFollowUp, loaded.RecommendedAction)
	})
}

// RunLeadStoreContract verifies the guarded-update semantics of a LeadStore.
// The seed function persists a lead through whatever backdoor the adapter
// provides (leads are created upstream of this core).
func RunLeadStoreContract(t *testing.T, store LeadStore, seed func(ctx context.Context, lead *domain.Lead) error) {
	ctx := context.Background()
	leadID := "contract-lead-" + time.Now().Format("20060102150405.000")

	require.NoError(t, seed(ctx, &domain.Lead{
		ID:     leadID,
		Status: domain.StatusRdvPlanifie,
	}))

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.GetLead(ctx, "non-existent-"+leadID)
		assert.ErrorIs(t, err, domain.ErrLeadNotFound)
	})

	t.Run("Guarded Update Applies Patch", func(t *testing.T) {
		status := domain.StatusRdvNonHonore
		notes := "[01/02/2026 10:00] RDV non honoré"
		updated, err := store.UpdateLead(ctx, leadID, domain.StatusRdvPlanifie, domain.LeadPatch{
			Status: &status,
			Notes:  &notes,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRdvNonHonore, updated.Status)
		assert.Equal(t, notes, updated.Notes)
	})

	t.Run("Status Mismatch Rejected Without Mutation", func(t *testing.T) {
		count := 99
		_, err := store.UpdateLead(ctx, leadID, domain.StatusRdvPlanifie, domain.LeadPatch{
			RelanceCount: &count,
		})
		require.ErrorIs(t, err, domain.ErrInvalidState)

		var ise *domain.InvalidStateError
		require.ErrorAs(t, err, &ise)
		assert.Equal(t, domain.StatusRdvPlanifie, ise.Expected)
		assert.Equal(t, domain.StatusRdvNonHonore, ise.Actual)

		loaded, err := store.GetLead(ctx, leadID)
		require.NoError(t, err)
		assert.Equal(t, 0, loaded.RelanceCount)
	})

	t.Run("Nil Patch Fields Left Untouched", func(t *testing.T) {
		count := 2
		updated, err := store.UpdateLead(ctx, leadID, domain.StatusRdvNonHonore, domain.LeadPatch{
			RelanceCount: &count,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRdvNonHonore, updated.Status)
		assert.Equal(t, 2, updated.RelanceCount)
		assert.NotEmpty(t, updated.Notes)
	})

	t.Run("Update Non-Existent", func(t *testing.T) {
		status := domain.StatusPerdu
		_, err := store.UpdateLead(ctx, "non-existent-"+leadID, domain.StatusRdvPlanifie, domain.LeadPatch{
			Status: &status,
		})
		assert.ErrorIs(t, err, domain.ErrLeadNotFound)
	})
}
