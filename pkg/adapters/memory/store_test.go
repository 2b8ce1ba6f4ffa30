package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/leadflow/pkg/adapters/memory"
	"github.com/velora/leadflow/pkg/domain"
	"github.com/velora/leadflow/pkg/ports"
)

func TestStore_ExecutionContract(t *testing.T) {
	ports.RunExecutionStoreContract(t, memory.NewStore())
}

func TestStore_LeadContract(t *testing.T) {
	store := memory.NewStore()
	ports.RunLeadStoreContract(t, store, store.PutLead)
}

func TestStore_Scripts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	_, err := store.GetScriptWithNodes(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrScriptNotFound)

	script := &domain.ScriptDefinition{
		ID:    "s1",
		Nodes: []domain.Node{{ID: "a", Question: "Q?"}},
	}
	require.NoError(t, store.PutScript(ctx, script))

	loaded, err := store.GetScriptWithNodes(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", loaded.ID)
	require.Len(t, loaded.Nodes, 1)

	// The store hands out copies; mutating them must not leak back.
	loaded.Nodes[0].Question = "changed"
	again, err := store.GetScriptWithNodes(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Q?", again.Nodes[0].Question)
}

func TestStore_ActivityIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, store.Append(ctx, domain.ActivityEntry{ID: "1", LeadID: "l1", Type: domain.ActivityRelance}))
	require.NoError(t, store.Append(ctx, domain.ActivityEntry{ID: "2", LeadID: "l1", Type: domain.ActivityStatusChanged}))
	require.NoError(t, store.Append(ctx, domain.ActivityEntry{ID: "3", LeadID: "other", Type: domain.ActivityNote}))

	entries := store.Activity("l1")
	require.Len(t, entries, 2)
	assert.Equal(t, "1", entries[0].ID)
	assert.Equal(t, "2", entries[1].ID)
}
