package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/leadflow/pkg/domain"
)

func TestScorePercentage(t *testing.T) {
	cases := []struct {
		total, max, want int
	}{
		{0, 0, 0},
		{10, 0, 0},
		{0, 100, 0},
		{50, 100, 50},
		{1, 3, 33},
		{2, 3, 67}, // rounded, not truncated
		{30, 30, 100},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, domain.ScorePercentage(tc.total, tc.max), "%d/%d", tc.total, tc.max)
	}
}

func TestPrependNote(t *testing.T) {
	at := time.Date(2026, 2, 1, 10, 30, 0, 0, time.UTC)

	notes := domain.PrependNote("", at, "première note")
	assert.Equal(t, "[01/02/2026 10:30] première note", notes)

	notes = domain.PrependNote(notes, at.Add(time.Hour), "seconde note")
	assert.Equal(t, "[01/02/2026 11:30] seconde note\n[01/02/2026 10:30] première note", notes)
}

func TestScriptDefinition_Root(t *testing.T) {
	script := &domain.ScriptDefinition{
		Nodes: []domain.Node{{ID: "a"}, {ID: "b"}},
	}
	require.NotNil(t, script.Root())
	assert.Equal(t, "a", script.Root().ID)

	script.RootNodeID = "b"
	assert.Equal(t, "b", script.Root().ID)

	// A dangling root id falls back to the first node.
	script.RootNodeID = "ghost"
	assert.Equal(t, "a", script.Root().ID)

	assert.Nil(t, (&domain.ScriptDefinition{}).Root())
}

func TestScriptDefinition_MaxPossibleScore(t *testing.T) {
	script := &domain.ScriptDefinition{
		Nodes: []domain.Node{
			{ID: "a", ScoreWeight: 10},
			{ID: "b", ScoreWeight: -5},
			{ID: "c", ScoreWeight: 0},
			{ID: "d", ScoreWeight: 7},
		},
	}
	assert.Equal(t, 17, script.MaxPossibleScore())
}

func TestErrorTaxonomy(t *testing.T) {
	t.Run("Validation Error Unwraps", func(t *testing.T) {
		err := error(&domain.ValidationError{Field: "intent", Reason: "required"})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Contains(t, err.Error(), "intent")
	})

	t.Run("Invalid State Error Unwraps", func(t *testing.T) {
		err := error(&domain.InvalidStateError{
			LeadID:   "l1",
			Expected: domain.StatusRdvPlanifie,
			Actual:   domain.StatusPerdu,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidState)

		var ise *domain.InvalidStateError
		require.True(t, errors.As(err, &ise))
		assert.Equal(t, domain.StatusPerdu, ise.Actual)
	})

	t.Run("Unknown Enum Error Unwraps", func(t *testing.T) {
		err := error(&domain.UnknownEnumError{Kind: "call_result", Value: "répondeur"})
		assert.ErrorIs(t, err, domain.ErrUnknownEnum)
		assert.Contains(t, err.Error(), "répondeur")
	})
}
