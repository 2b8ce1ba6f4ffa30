package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/leadflow/pkg/adapters/sqlite"
	"github.com/velora/leadflow/pkg/domain"
	"github.com/velora/leadflow/pkg/ports"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "leadflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_ExecutionContract(t *testing.T) {
	ports.RunExecutionStoreContract(t, openStore(t))
}

func TestStore_LeadContract(t *testing.T) {
	store := openStore(t)
	ports.RunLeadStoreContract(t, store, store.PutLead)
}

func TestStore_ScriptsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	_, err := store.GetScriptWithNodes(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrScriptNotFound)

	script := &domain.ScriptDefinition{
		ID:         "s1",
		Name:       "Script solaire",
		Category:   "solaire",
		RootNodeID: "budget",
		Nodes: []domain.Node{
			{
				ID:          "budget",
				Question:    "Avez-vous un budget ?",
				Type:        domain.NodeTypeYesNo,
				ScoreWeight: 10,
				Trigger: &domain.ActionTrigger{
					Type:      domain.TriggerSuggestRdv,
					Condition: domain.TriggerConditionYes,
				},
			},
			{
				ID:   "timeline",
				Type: domain.NodeTypeChoice,
				Options: []domain.Option{
					{Value: "court", Label: "Moins de 3 mois", ScoreImpact: 10},
				},
			},
		},
	}
	require.NoError(t, store.PutScript(ctx, script))

	loaded, err := store.GetScriptWithNodes(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Script solaire", loaded.Name)
	assert.Equal(t, "budget", loaded.RootNodeID)
	require.Len(t, loaded.Nodes, 2)
	require.NotNil(t, loaded.Nodes[0].Trigger)
	assert.Equal(t, domain.TriggerSuggestRdv, loaded.Nodes[0].Trigger.Type)
	require.Len(t, loaded.Nodes[1].Options, 1)
	assert.Equal(t, 10, loaded.Nodes[1].Options[0].ScoreImpact)
}

func TestStore_ActivityAppend(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.Append(ctx, domain.ActivityEntry{
		ID:          "a1",
		LeadID:      "l1",
		Type:        domain.ActivityStatusChanged,
		Description: "Rendez-vous non honoré",
		Metadata:    map[string]any{"absence_reason": "oubli"},
	}))
}

func TestStore_LeadDateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.PutLead(ctx, &domain.Lead{
		ID:     "l1",
		Status: domain.StatusRdvNonHonore,
	}))

	lead, err := store.GetLead(ctx, "l1")
	require.NoError(t, err)
	assert.Nil(t, lead.DateRdv)
}
