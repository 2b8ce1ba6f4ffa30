package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/leadflow/internal/engine"
	"github.com/velora/leadflow/pkg/adapters/memory"
	"github.com/velora/leadflow/pkg/domain"
)

// demoScript is a three-question graph: budget (YES_NO, branching), timeline
// (CHOICE) and interest (RATING).
func demoScript() *domain.ScriptDefinition {
	return &domain.ScriptDefinition{
		ID:         "demo",
		Name:       "Script démo",
		RootNodeID: "budget",
		Nodes: []domain.Node{
			{
				ID:            "budget",
				Question:      "Avez-vous un budget défini ?",
				Type:          domain.NodeTypeYesNo,
				ScoreWeight:   10,
				YesNextNodeID: "timeline",
				NoNextNodeID:  "interest",
			},
			{
				ID:          "timeline",
				Question:    "Quel est votre horizon ?",
				Type:        domain.NodeTypeChoice,
				ScoreWeight: 10,
				Options: []domain.Option{
					{Value: "court", Label: "Moins de 3 mois", NextNodeID: "interest", ScoreImpact: 10},
					{Value: "long", Label: "Plus d'un an", NextNodeID: "interest", ScoreImpact: 2},
				},
			},
			{
				ID:          "interest",
				Question:    "Niveau d'intérêt de 0 à 5 ?",
				Type:        domain.NodeTypeRating,
				ScoreWeight: 10,
			},
		},
	}
}

func newEngine(t *testing.T, script *domain.ScriptDefinition) (*engine.Engine, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	if script != nil {
		require.NoError(t, store.PutScript(context.Background(), script))
	}
	return engine.New(store, store), store
}

func TestStartExecution(t *testing.T) {
	ctx := context.Background()

	t.Run("Positions On Root", func(t *testing.T) {
		eng, _ := newEngine(t, demoScript())

		state, err := eng.StartExecution(ctx, "demo", "lead-1", "user-1")
		require.NoError(t, err)

		assert.NotEmpty(t, state.ExecutionID)
		assert.False(t, state.IsComplete)
		require.NotNil(t, state.CurrentNode)
		assert.Equal(t, "budget", state.CurrentNode.ID)
		assert.Equal(t, 0, state.TotalScore)
		assert.Equal(t, 30, state.MaxPossibleScore)
	})

	t.Run("Root Falls Back To First Node", func(t *testing.T) {
		script := demoScript()
		script.RootNodeID = ""
		eng, _ := newEngine(t, script)

		state, err := eng.StartExecution(ctx, "demo", "lead-1", "user-1")
		require.NoError(t, err)
		assert.Equal(t, "budget", state.CurrentNode.ID)
	})

	t.Run("Missing Script Is A Valid Empty State", func(t *testing.T) {
		eng, _ := newEngine(t, nil)

		state, err := eng.StartExecution(ctx, "missing", "lead-1", "user-1")
		require.NoError(t, err)

		assert.True(t, state.IsComplete)
		assert.Empty(t, state.ExecutionID)
		assert.Equal(t, engine.NoScriptRecommendation, state.Recommendation)
		assert.Equal(t, domain.ActionFollowUp, state.RecommendedAction)
	})

	t.Run("Empty Script Is A Valid Empty State", func(t *testing.T) {
		eng, _ := newEngine(t, &domain.ScriptDefinition{ID: "empty"})

		state, err := eng.StartExecution(ctx, "empty", "lead-1", "user-1")
		require.NoError(t, err)
		assert.True(t, state.IsComplete)
		assert.Equal(t, engine.NoScriptRecommendation, state.Recommendation)
	})

	t.Run("Negative Weights Excluded From Maximum", func(t *testing.T) {
		script := &domain.ScriptDefinition{
			ID: "neg",
			Nodes: []domain.Node{
				{ID: "a", Type: domain.NodeTypeYesNo, ScoreWeight: 10},
				{ID: "b", Type: domain.NodeTypeChoice, ScoreWeight: -5},
			},
		}
		script.Nodes[0].DefaultNextID = "b"
		eng, _ := newEngine(t, script)

		state, err := eng.StartExecution(ctx, "neg", "lead-1", "user-1")
		require.NoError(t, err)
		assert.Equal(t, 10, state.MaxPossibleScore)
	})
}

func TestAnswerNode_Scoring(t *testing.T) {
	ctx := context.Background()

	t.Run("Oui Is Case Insensitive", func(t *testing.T) {
		for _, answer := range []string{"oui", "Oui", "OUI", "  oui  "} {
			eng, _ := newEngine(t, demoScript())
			started, err := eng.StartExecution(ctx, "demo", "lead-1", "user-1")
			require.NoError(t, err)

			state, err := eng.AnswerNode(ctx, started.ExecutionID, "budget", answer)
			require.NoError(t, err, answer)
			assert.Equal(t, 10, state.TotalScore, answer)
			assert.Equal(t, "timeline", state.CurrentNode.ID, answer)
		}
	})

	t.Run("Non Scores Zero And Takes No Branch", func(t *testing.T) {
		eng, _ := newEngine(t, demoScript())
		started, err := eng.StartExecution(ctx, "demo", "lead-1", "user-1")
		require.NoError(t, err)

		state, err := eng.AnswerNode(ctx, started.ExecutionID, "budget", "non")
		require.NoError(t, err)
		assert.Equal(t, 0, state.TotalScore)
		assert.Equal(t, "interest", state.CurrentNode.ID)
	})

	t.Run("Choice Match Scores Impact And Routes", func(t *testing.T) {
		eng, _ := newEngine(t, demoScript())
		started, err := eng.StartExecution(ctx, "demo", "lead-1", "user-1")
		require.NoError(t, err)

		state, err := eng.AnswerNode(ctx, started.ExecutionID, "budget", "oui")
		require.NoError(t, err)
		state, err = eng.AnswerNode(ctx, started.ExecutionID, "timeline", "court")
		require.NoError(t, err)

		assert.Equal(t, 20, state.TotalScore)
		assert.Equal(t, "interest", state.CurrentNode.ID)
	})

	t.Run("Choice Without Match Scores Zero And Follows Default", func(t *testing.T) {
		script := demoScript()
		timeline, _ := script.NodeByID("timeline")
		timeline.DefaultNextID = "interest"
		eng, _ := newEngine(t, script)

		started, err := eng.StartExecution(ctx, "demo", "lead-1", "user-1")
		require.NoError(t, err)
		_, err = eng.AnswerNode(ctx, started.ExecutionID, "budget", "oui")
		require.NoError(t, err)

		state, err := eng.AnswerNode(ctx, started.ExecutionID, "timeline", "jamais")
		require.NoError(t, err)
		assert.Equal(t, 10, state.TotalScore)
		assert.Equal(t, "interest", state.CurrentNode.ID)
	})

	t.Run("Rating Is Proportional And Rounded", func(t *testing.T) {
		cases := map[string]int{
			"5":      10,
			"4":      8,
			"3":      6,
			"1":      2,
			"0":      0,
			"junk":   0,
			"9":      10, // clamped to the scale
			"-3":     0,  // clamped to zero
			"  4   ": 8,
		}
		for answer, want := range cases {
			eng, _ := newEngine(t, demoScript())
			started, err := eng.StartExecution(ctx, "demo", "lead-1", "user-1")
			require.NoError(t, err)
			_, err = eng.AnswerNode(ctx, started.ExecutionID, "budget", "non")
			require.NoError(t, err)

			state, err := eng.AnswerNode(ctx, started.ExecutionID, "interest", answer)
			require.NoError(t, err, answer)
			assert.Equal(t, want, state.TotalScore, "answer %q", answer)
			assert.True(t, state.IsComplete)
		}
	})

	t.Run("Open Text Scores Weight When Non Empty", func(t *testing.T) {
		script := &domain.ScriptDefinition{
			ID: "open",
			Nodes: []domain.Node{
				{ID: "why", Question: "Pourquoi ?", Type: domain.NodeTypeOpenText, ScoreWeight: 5},
			},
		}
		for answer, want := range map[string]int{"parce que": 5, "   ": 0, "": 0} {
			eng, _ := newEngine(t, script)
			started, err := eng.StartExecution(ctx, "open", "lead-1", "user-1")
			require.NoError(t, err)

			state, err := eng.AnswerNode(ctx, started.ExecutionID, "why", answer)
			require.NoError(t, err)
			assert.Equal(t, want, state.TotalScore, "answer %q", answer)
		}
	})

	t.Run("Info Never Scores", func(t *testing.T) {
		script := &domain.ScriptDefinition{
			ID: "info",
			Nodes: []domain.Node{
				{ID: "intro", Question: "Présentation", Type: domain.NodeTypeInfo, ScoreWeight: 10},
			},
		}
		eng, _ := newEngine(t, script)
		started, err := eng.StartExecution(ctx, "info", "lead-1", "user-1")
		require.NoError(t, err)

		state, err := eng.AnswerNode(ctx, started.ExecutionID, "intro", "ok")
		require.NoError(t, err)
		assert.Equal(t, 0, state.TotalScore)
	})
}

func TestAnswerNode_Completion(t *testing.T) {
	ctx := context.Background()

	t.Run("Single No Completes With Zero Percent", func(t *testing.T) {
		script := &domain.ScriptDefinition{
			ID: "one",
			Nodes: []domain.Node{
				{ID: "only", Question: "Un budget ?", Type: domain.NodeTypeYesNo, ScoreWeight: 10},
			},
		}
		eng, _ := newEngine(t, script)
		started, err := eng.StartExecution(ctx, "one", "lead-1", "user-1")
		require.NoError(t, err)

		state, err := eng.AnswerNode(ctx, started.ExecutionID, "only", "non")
		require.NoError(t, err)

		assert.True(t, state.IsComplete)
		assert.Equal(t, 0, state.ScorePercentage)
		assert.Equal(t, domain.ActionDisqualify, state.RecommendedAction)
		assert.NotEmpty(t, state.Recommendation)
	})

	t.Run("Full Traversal Freezes Recommendation", func(t *testing.T) {
		eng, _ := newEngine(t, demoScript())
		started, err := eng.StartExecution(ctx, "demo", "lead-1", "user-1")
		require.NoError(t, err)

		_, err = eng.AnswerNode(ctx, started.ExecutionID, "budget", "oui")
		require.NoError(t, err)
		_, err = eng.AnswerNode(ctx, started.ExecutionID, "timeline", "court")
		require.NoError(t, err)
		state, err := eng.AnswerNode(ctx, started.ExecutionID, "interest", "5")
		require.NoError(t, err)

		assert.True(t, state.IsComplete)
		assert.Equal(t, 30, state.TotalScore)
		assert.Equal(t, 100, state.ScorePercentage)
		assert.Equal(t, domain.ActionBookRdv, state.RecommendedAction)

		// The frozen state survives a re-read.
		loaded, err := eng.State(ctx, started.ExecutionID)
		require.NoError(t, err)
		assert.True(t, loaded.IsComplete)
		assert.Equal(t, 100, loaded.ScorePercentage)
		assert.Equal(t, state.Recommendation, loaded.Recommendation)
	})

	t.Run("Completed Execution Rejects Further Answers", func(t *testing.T) {
		script := &domain.ScriptDefinition{
			ID: "one",
			Nodes: []domain.Node{
				{ID: "only", Question: "Un budget ?", Type: domain.NodeTypeYesNo, ScoreWeight: 10},
			},
		}
		eng, _ := newEngine(t, script)
		started, err := eng.StartExecution(ctx, "one", "lead-1", "user-1")
		require.NoError(t, err)
		_, err = eng.AnswerNode(ctx, started.ExecutionID, "only", "oui")
		require.NoError(t, err)

		_, err = eng.AnswerNode(ctx, started.ExecutionID, "only", "oui")
		assert.ErrorIs(t, err, domain.ErrExecutionCompleted)
	})

	t.Run("Unknown Node Rejected", func(t *testing.T) {
		eng, _ := newEngine(t, demoScript())
		started, err := eng.StartExecution(ctx, "demo", "lead-1", "user-1")
		require.NoError(t, err)

		_, err = eng.AnswerNode(ctx, started.ExecutionID, "ghost", "oui")
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	})

	t.Run("Unknown Execution Rejected", func(t *testing.T) {
		eng, _ := newEngine(t, demoScript())
		_, err := eng.AnswerNode(ctx, "ghost", "budget", "oui")
		assert.ErrorIs(t, err, domain.ErrExecutionNotFound)
	})
}

func TestAnswerNode_OnlyCurrentNodeAccepted(t *testing.T) {
	ctx := context.Background()

	t.Run("Re-Answering Does Not Inflate The Score", func(t *testing.T) {
		eng, _ := newEngine(t, demoScript())
		started, err := eng.StartExecution(ctx, "demo", "lead-1", "user-1")
		require.NoError(t, err)

		state, err := eng.AnswerNode(ctx, started.ExecutionID, "budget", "oui")
		require.NoError(t, err)
		assert.Equal(t, 10, state.TotalScore)

		_, err = eng.AnswerNode(ctx, started.ExecutionID, "budget", "oui")
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		_, err = eng.AnswerNode(ctx, started.ExecutionID, "budget", "oui")
		assert.ErrorIs(t, err, domain.ErrInvalidState)

		loaded, err := eng.State(ctx, started.ExecutionID)
		require.NoError(t, err)
		assert.Equal(t, 10, loaded.TotalScore)
		require.Len(t, loaded.History, 1)
		assert.LessOrEqual(t, loaded.TotalScore, loaded.MaxPossibleScore)
	})

	t.Run("Skipping Ahead Is Rejected", func(t *testing.T) {
		eng, _ := newEngine(t, demoScript())
		started, err := eng.StartExecution(ctx, "demo", "lead-1", "user-1")
		require.NoError(t, err)

		_, err = eng.AnswerNode(ctx, started.ExecutionID, "interest", "5")
		assert.ErrorIs(t, err, domain.ErrInvalidState)

		loaded, err := eng.State(ctx, started.ExecutionID)
		require.NoError(t, err)
		assert.Equal(t, 0, loaded.TotalScore)
		assert.Empty(t, loaded.History)
	})
}

func TestAnswerNode_Triggers(t *testing.T) {
	ctx := context.Background()

	t.Run("Disqualify Trigger Wins Over Score", func(t *testing.T) {
		script := &domain.ScriptDefinition{
			ID: "trig",
			Nodes: []domain.Node{
				{
					ID:            "competitor",
					Question:      "Déjà équipé chez un concurrent ?",
					Type:          domain.NodeTypeYesNo,
					ScoreWeight:   10,
					YesNextNodeID: "interest",
					NoNextNodeID:  "interest",
					Trigger: &domain.ActionTrigger{
						Type:      domain.TriggerDisqualify,
						Condition: domain.TriggerConditionYes,
					},
				},
				{ID: "interest", Question: "Intérêt ?", Type: domain.NodeTypeRating, ScoreWeight: 10},
			},
		}
		eng, _ := newEngine(t, script)
		started, err := eng.StartExecution(ctx, "trig", "lead-1", "user-1")
		require.NoError(t, err)

		_, err = eng.AnswerNode(ctx, started.ExecutionID, "competitor", "oui")
		require.NoError(t, err)
		state, err := eng.AnswerNode(ctx, started.ExecutionID, "interest", "5")
		require.NoError(t, err)

		assert.True(t, state.IsComplete)
		assert.Equal(t, domain.ActionDisqualify, state.RecommendedAction)
	})

	t.Run("Unmatched Trigger Does Not Fire", func(t *testing.T) {
		script := &domain.ScriptDefinition{
			ID: "trig",
			Nodes: []domain.Node{
				{
					ID:          "competitor",
					Question:    "Déjà équipé ?",
					Type:        domain.NodeTypeYesNo,
					ScoreWeight: 10,
					Trigger: &domain.ActionTrigger{
						Type:      domain.TriggerDisqualify,
						Condition: domain.TriggerConditionYes,
					},
				},
			},
		}
		eng, _ := newEngine(t, script)
		started, err := eng.StartExecution(ctx, "trig", "lead-1", "user-1")
		require.NoError(t, err)

		state, err := eng.AnswerNode(ctx, started.ExecutionID, "competitor", "non")
		require.NoError(t, err)
		// 0% puts it in the cold bucket, not the triggered one.
		assert.Equal(t, domain.ActionDisqualify, state.RecommendedAction)
		assert.Contains(t, state.Recommendation, "froid")
	})
}

func TestState_History(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t, demoScript())

	started, err := eng.StartExecution(ctx, "demo", "lead-1", "user-1")
	require.NoError(t, err)
	_, err = eng.AnswerNode(ctx, started.ExecutionID, "budget", "oui")
	require.NoError(t, err)
	_, err = eng.AnswerNode(ctx, started.ExecutionID, "timeline", "long")
	require.NoError(t, err)

	state, err := eng.State(ctx, started.ExecutionID)
	require.NoError(t, err)

	require.Len(t, state.History, 2)
	assert.Equal(t, "budget", state.History[0].NodeID)
	assert.Equal(t, "Avez-vous un budget défini ?", state.History[0].Question)
	assert.Equal(t, "oui", state.History[0].Answer)
	assert.Equal(t, 10, state.History[0].ScoreEarned)
	assert.Equal(t, "timeline", state.History[1].NodeID)
	assert.Equal(t, 2, state.History[1].ScoreEarned)
}

func TestEngine_DeterministicClock(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.PutScript(ctx, demoScript()))

	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	eng := engine.New(store, store, engine.WithClock(func() time.Time { return now }))

	started, err := eng.StartExecution(ctx, "demo", "lead-1", "user-1")
	require.NoError(t, err)

	exec, err := store.GetExecution(ctx, started.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, now, exec.StartedAt)
}
