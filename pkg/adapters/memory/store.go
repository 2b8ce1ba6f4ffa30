// Package memory provides in-memory implementations of every store port.
// Safe for concurrent use; the default backend for tests and the CLI.
package memory

import (
	"context"
	"sync"

	"github.com/velora/leadflow/pkg/domain"
)

// Store implements ports.ScriptStore, ports.ExecutionStore, ports.LeadStore
// and ports.ActivityLog in memory.
type Store struct {
	mu         sync.RWMutex
	scripts    map[string]*domain.ScriptDefinition
	executions map[string]*domain.Execution
	responses  map[string][]domain.Response
	leads      map[string]*domain.Lead
	activity   map[string][]domain.ActivityEntry
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		scripts:    make(map[string]*domain.ScriptDefinition),
		executions: make(map[string]*domain.Execution),
		responses:  make(map[string][]domain.Response),
		leads:      make(map[string]*domain.Lead),
		activity:   make(map[string][]domain.ActivityEntry),
	}
}

// PutScript registers a published script.
func (s *Store) PutScript(ctx context.Context, script *domain.ScriptDefinition) error {
	copied := *script
	copied.Nodes = append([]domain.Node(nil), script.Nodes...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[script.ID] = &copied
	return nil
}

// GetScriptWithNodes returns a copy of the script and its ordered nodes.
func (s *Store) GetScriptWithNodes(ctx context.Context, scriptID string) (*domain.ScriptDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	script, ok := s.scripts[scriptID]
	if !ok {
		return nil, domain.ErrScriptNotFound
	}
	copied := *script
	copied.Nodes = append([]domain.Node(nil), script.Nodes...)
	return &copied, nil
}

// CreateExecution persists a freshly started execution.
func (s *Store) CreateExecution(ctx context.Context, exec *domain.Execution) error {
	copied := *exec

	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[exec.ID] = &copied
	return nil
}

// GetExecution returns a copy of the execution.
func (s *Store) GetExecution(ctx context.Context, executionID string) (*domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getExecutionLocked(executionID)
}

func (s *Store) getExecutionLocked(executionID string) (*domain.Execution, error) {
	exec, ok := s.executions[executionID]
	if !ok {
		return nil, domain.ErrExecutionNotFound
	}
	copied := *exec
	return &copied, nil
}

// AppendResponse atomically appends the response, adds its score to the total
// and moves the current-node bookkeeping.
func (s *Store) AppendResponse(ctx context.Context, resp domain.Response, nextNodeID string) (*domain.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec, ok := s.executions[resp.ExecutionID]
	if !ok {
		return nil, domain.ErrExecutionNotFound
	}

	s.responses[resp.ExecutionID] = append(s.responses[resp.ExecutionID], resp)
	exec.TotalScore += resp.ScoreEarned
	exec.CurrentNodeID = nextNodeID

	copied := *exec
	return &copied, nil
}

// ListResponses returns the responses of an execution in creation order.
func (s *Store) ListResponses(ctx context.Context, executionID string) ([]domain.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Response(nil), s.responses[executionID]...), nil
}

// CompleteExecution freezes the execution.
func (s *Store) CompleteExecution(ctx context.Context, executionID string, result domain.Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec, ok := s.executions[executionID]
	if !ok {
		return domain.ErrExecutionNotFound
	}
	completedAt := result.CompletedAt
	exec.CompletedAt = &completedAt
	exec.CurrentNodeID = ""
	exec.ScorePercentage = result.ScorePercentage
	exec.Recommendation = result.Recommendation
	exec.RecommendedAction = result.RecommendedAction
	return nil
}

// PutLead registers a lead (created upstream of this core).
func (s *Store) PutLead(ctx context.Context, lead *domain.Lead) error {
	copied := *lead

	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[lead.ID] = &copied
	return nil
}

// GetLead returns a copy of the lead.
func (s *Store) GetLead(ctx context.Context, leadID string) (*domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[leadID]
	if !ok {
		return nil, domain.ErrLeadNotFound
	}
	copied := *lead
	return &copied, nil
}

// UpdateLead applies the patch only when the current status matches.
func (s *Store) UpdateLead(ctx context.Context, leadID, expectedStatus string, patch domain.LeadPatch) (*domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[leadID]
	if !ok {
		return nil, domain.ErrLeadNotFound
	}
	if lead.Status != expectedStatus {
		return nil, &domain.InvalidStateError{LeadID: leadID, Expected: expectedStatus, Actual: lead.Status}
	}

	if patch.Status != nil {
		lead.Status = *patch.Status
	}
	if patch.RelanceCount != nil {
		lead.RelanceCount = *patch.RelanceCount
	}
	if patch.LostReason != nil {
		lead.LostReason = *patch.LostReason
	}
	if patch.DateRdv != nil {
		date := *patch.DateRdv
		lead.DateRdv = &date
	}
	if patch.Notes != nil {
		lead.Notes = *patch.Notes
	}

	copied := *lead
	return &copied, nil
}

// Append writes one immutable activity entry.
func (s *Store) Append(ctx context.Context, entry domain.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity[entry.LeadID] = append(s.activity[entry.LeadID], entry)
	return nil
}

// Activity returns the audit entries of a lead, oldest first. Test helper;
// the core itself never reads the log.
func (s *Store) Activity(leadID string) []domain.ActivityEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ActivityEntry(nil), s.activity[leadID]...)
}
