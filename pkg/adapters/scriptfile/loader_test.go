package scriptfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/leadflow/pkg/adapters/scriptfile"
	"github.com/velora/leadflow/pkg/domain"
)

const demoYAML = `
id: solaire
name: Qualification solaire
category: solaire
root_node_id: budget
nodes:
  - id: budget
    question: "Avez-vous un budget défini ?"
    help_text: "Budget approximatif suffisant"
    type: YES_NO
    score_weight: 10
    yes_next_node_id: timeline
    no_next_node_id: interest
    action_trigger:
      type: SUGGEST_RDV
      condition: "yes"
  - id: timeline
    question: "Quel est votre horizon ?"
    type: CHOICE
    options:
      - value: court
        label: "Moins de 3 mois"
        next_node_id: interest
        score_impact: 10
      - value: long
        label: "Plus d'un an"
        next_node_id: interest
        score_impact: 2
  - id: interest
    question: "Niveau d'intérêt de 0 à 5 ?"
    type: RATING
    score_weight: "10"
`

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse(t *testing.T) {
	script, err := scriptfile.Parse([]byte(demoYAML))
	require.NoError(t, err)

	assert.Equal(t, "solaire", script.ID)
	assert.Equal(t, "budget", script.RootNodeID)
	require.Len(t, script.Nodes, 3)

	budget := script.Nodes[0]
	assert.Equal(t, domain.NodeTypeYesNo, budget.Type)
	assert.Equal(t, 10, budget.ScoreWeight)
	assert.Equal(t, "timeline", budget.YesNextNodeID)
	require.NotNil(t, budget.Trigger)
	assert.Equal(t, domain.TriggerSuggestRdv, budget.Trigger.Type)

	timeline := script.Nodes[1]
	require.Len(t, timeline.Options, 2)
	assert.Equal(t, "court", timeline.Options[0].Value)
	assert.Equal(t, 10, timeline.Options[0].ScoreImpact)

	// Weak typing: quoted numbers in hand-edited files still decode.
	assert.Equal(t, 10, script.Nodes[2].ScoreWeight)
}

func TestParse_Invalid(t *testing.T) {
	_, err := scriptfile.Parse([]byte("{not yaml"))
	assert.Error(t, err)
}

func TestLoader_GetScriptWithNodes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeScript(t, dir, "solaire.yaml", demoYAML)
	loader := scriptfile.NewLoader(dir)

	t.Run("Loads By Id", func(t *testing.T) {
		script, err := loader.GetScriptWithNodes(ctx, "solaire")
		require.NoError(t, err)
		assert.Equal(t, "solaire", script.ID)
		assert.Len(t, script.Nodes, 3)
	})

	t.Run("Missing File Is Script Not Found", func(t *testing.T) {
		_, err := loader.GetScriptWithNodes(ctx, "eolien")
		assert.ErrorIs(t, err, domain.ErrScriptNotFound)
	})

	t.Run("File Id Defaults To Request Id", func(t *testing.T) {
		writeScript(t, dir, "anonyme.yaml", "nodes:\n  - id: a\n    type: INFO\n")
		script, err := loader.GetScriptWithNodes(ctx, "anonyme")
		require.NoError(t, err)
		assert.Equal(t, "anonyme", script.ID)
	})
}
