package ports

import (
	"context"

	"github.com/velora/leadflow/pkg/domain"
)

// ScriptStore provides read-only access to published scripts.
type ScriptStore interface {
	// GetScriptWithNodes returns the script and its ordered nodes.
	// Returns domain.ErrScriptNotFound if the ID does not resolve.
	GetScriptWithNodes(ctx context.Context, scriptID string) (*domain.ScriptDefinition, error)
}

// ExecutionStore persists traversals and their append-only responses.
type ExecutionStore interface {
	// CreateExecution persists a freshly started execution.
	CreateExecution(ctx context.Context, exec *domain.Execution) error

	// GetExecution returns the execution or domain.ErrExecutionNotFound.
	GetExecution(ctx context.Context, executionID string) (*domain.Execution, error)

	// AppendResponse atomically appends one immutable response row, adds its
	// score to the execution total and moves the current-node bookkeeping to
	// nextNodeID (empty when the traversal ends). Returns the updated execution.
	AppendResponse(ctx context.Context, resp domain.Response, nextNodeID string) (*domain.Execution, error)

	// ListResponses returns the responses of an execution in creation order.
	ListResponses(ctx context.Context, executionID string) ([]domain.Response, error)

	// CompleteExecution freezes the execution with its final recommendation.
	CompleteExecution(ctx context.Context, executionID string, result domain.Completion) error
}

// LeadStore persists leads with a guarded update.
type LeadStore interface {
	// GetLead returns the lead or domain.ErrLeadNotFound.
	GetLead(ctx context.Context, leadID string) (*domain.Lead, error)

	// UpdateLead applies the patch only if the lead's current status equals
	// expectedStatus; otherwise it returns a *domain.InvalidStateError and
	// performs zero mutation. Returns the updated lead.
	UpdateLead(ctx context.Context, leadID, expectedStatus string, patch domain.LeadPatch) (*domain.Lead, error)
}

// ActivityLog is the append-only audit sink. The core never queries it.
type ActivityLog interface {
	Append(ctx context.Context, entry domain.ActivityEntry) error
}

// ScoreRefresher triggers an asynchronous score recomputation for a lead.
// Implementations must not block the caller; failures are logged by the
// implementation and never surfaced to the transition that fired them.
type ScoreRefresher interface {
	Refresh(leadID string)
}
