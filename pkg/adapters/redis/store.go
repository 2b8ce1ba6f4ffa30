// Package redis persists executions, leads and the activity log in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/velora/leadflow/pkg/domain"
)

// Store implements ports.ScriptStore, ports.ExecutionStore, ports.LeadStore
// and ports.ActivityLog using Redis.
//
// Guarded updates use WATCH-based optimistic transactions so a concurrent
// writer cannot slip between the status check and the write.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the expiration for execution keys (0 = no expiration).
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "leadflow:",
		ttl:    0,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) scriptKey(id string) string    { return s.prefix + "script:" + id }
func (s *Store) execKey(id string) string      { return s.prefix + "execution:" + id }
func (s *Store) responsesKey(id string) string { return s.prefix + "responses:" + id }
func (s *Store) leadKey(id string) string      { return s.prefix + "lead:" + id }
func (s *Store) activityKey(id string) string  { return s.prefix + "activity:" + id }

// PutScript registers a published script.
func (s *Store) PutScript(ctx context.Context, script *domain.ScriptDefinition) error {
	data, err := json.Marshal(script)
	if err != nil {
		return fmt.Errorf("failed to marshal script: %w", err)
	}
	return s.client.Set(ctx, s.scriptKey(script.ID), data, 0).Err()
}

// GetScriptWithNodes returns the script and its ordered nodes.
func (s *Store) GetScriptWithNodes(ctx context.Context, scriptID string) (*domain.ScriptDefinition, error) {
	val, err := s.client.Get(ctx, s.scriptKey(scriptID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrScriptNotFound
		}
		return nil, fmt.Errorf("redis error loading script: %w", err)
	}
	var script domain.ScriptDefinition
	if err := json.Unmarshal([]byte(val), &script); err != nil {
		return nil, fmt.Errorf("failed to unmarshal script: %w", err)
	}
	return &script, nil
}

// CreateExecution persists a freshly started execution.
func (s *Store) CreateExecution(ctx context.Context, exec *domain.Execution) error {
	data, err := json.Marshal(exec)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}
	return s.client.Set(ctx, s.execKey(exec.ID), data, s.ttl).Err()
}

// GetExecution returns the execution or domain.ErrExecutionNotFound.
func (s *Store) GetExecution(ctx context.Context, executionID string) (*domain.Execution, error) {
	val, err := s.client.Get(ctx, s.execKey(executionID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("redis error loading execution: %w", err)
	}
	var exec domain.Execution
	if err := json.Unmarshal([]byte(val), &exec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
	}
	return &exec, nil
}

// AppendResponse atomically appends the response row and updates the
// execution bookkeeping inside one WATCH transaction.
func (s *Store) AppendResponse(ctx context.Context, resp domain.Response, nextNodeID string) (*domain.Execution, error) {
	var updated *domain.Execution

	err := s.client.Watch(ctx, func(tx *backend.Tx) error {
		val, err := tx.Get(ctx, s.execKey(resp.ExecutionID)).Result()
		if err != nil {
			if errors.Is(err, backend.Nil) {
				return domain.ErrExecutionNotFound
			}
			return err
		}
		var exec domain.Execution
		if err := json.Unmarshal([]byte(val), &exec); err != nil {
			return fmt.Errorf("failed to unmarshal execution: %w", err)
		}

		exec.TotalScore += resp.ScoreEarned
		exec.CurrentNodeID = nextNodeID

		execData, err := json.Marshal(&exec)
		if err != nil {
			return fmt.Errorf("failed to marshal execution: %w", err)
		}
		respData, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, s.execKey(resp.ExecutionID), execData, s.ttl)
			pipe.RPush(ctx, s.responsesKey(resp.ExecutionID), respData)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &exec
		return nil
	}, s.execKey(resp.ExecutionID))

	if err != nil {
		if errors.Is(err, domain.ErrExecutionNotFound) {
			return nil, domain.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("failed to append response: %w", err)
	}
	return updated, nil
}

// ListResponses returns the responses of an execution in creation order.
func (s *Store) ListResponses(ctx context.Context, executionID string) ([]domain.Response, error) {
	values, err := s.client.LRange(ctx, s.responsesKey(executionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error listing responses: %w", err)
	}
	responses := make([]domain.Response, 0, len(values))
	for _, v := range values {
		var resp domain.Response
		if err := json.Unmarshal([]byte(v), &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// CompleteExecution freezes the execution.
func (s *Store) CompleteExecution(ctx context.Context, executionID string, result domain.Completion) error {
	err := s.client.Watch(ctx, func(tx *backend.Tx) error {
		val, err := tx.Get(ctx, s.execKey(executionID)).Result()
		if err != nil {
			if errors.Is(err, backend.Nil) {
				return domain.ErrExecutionNotFound
			}
			return err
		}
		var exec domain.Execution
		if err := json.Unmarshal([]byte(val), &exec); err != nil {
			return fmt.Errorf("failed to unmarshal execution: %w", err)
		}

		completedAt := result.CompletedAt
		exec.CompletedAt = &completedAt
		exec.CurrentNodeID = ""
		exec.ScorePercentage = result.ScorePercentage
		exec.Recommendation = result.Recommendation
		exec.RecommendedAction = result.RecommendedAction

		data, err := json.Marshal(&exec)
		if err != nil {
			return fmt.Errorf("failed to marshal execution: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, s.execKey(executionID), data, s.ttl)
			return nil
		})
		return err
	}, s.execKey(executionID))

	if errors.Is(err, domain.ErrExecutionNotFound) {
		return domain.ErrExecutionNotFound
	}
	return err
}

// PutLead registers a lead (created upstream of this core).
func (s *Store) PutLead(ctx context.Context, lead *domain.Lead) error {
	data, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("failed to marshal lead: %w", err)
	}
	return s.client.Set(ctx, s.leadKey(lead.ID), data, 0).Err()
}

// GetLead returns the lead or domain.ErrLeadNotFound.
func (s *Store) GetLead(ctx context.Context, leadID string) (*domain.Lead, error) {
	val, err := s.client.Get(ctx, s.leadKey(leadID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, fmt.Errorf("redis error loading lead: %w", err)
	}
	var lead domain.Lead
	if err := json.Unmarshal([]byte(val), &lead); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lead: %w", err)
	}
	return &lead, nil
}

// UpdateLead applies the patch only when the current status matches, inside
// one WATCH transaction.
func (s *Store) UpdateLead(ctx context.Context, leadID, expectedStatus string, patch domain.LeadPatch) (*domain.Lead, error) {
	var updated *domain.Lead

	err := s.client.Watch(ctx, func(tx *backend.Tx) error {
		val, err := tx.Get(ctx, s.leadKey(leadID)).Result()
		if err != nil {
			if errors.Is(err, backend.Nil) {
				return domain.ErrLeadNotFound
			}
			return err
		}
		var lead domain.Lead
		if err := json.Unmarshal([]byte(val), &lead); err != nil {
			return fmt.Errorf("failed to unmarshal lead: %w", err)
		}
		if lead.Status != expectedStatus {
			return &domain.InvalidStateError{LeadID: leadID, Expected: expectedStatus, Actual: lead.Status}
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

		data, err := json.Marshal(&lead)
		if err != nil {
			return fmt.Errorf("failed to marshal lead: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, s.leadKey(leadID), data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &lead
		return nil
	}, s.leadKey(leadID))

	if err != nil {
		if errors.Is(err, domain.ErrLeadNotFound) || errors.Is(err, domain.ErrInvalidState) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	return updated, nil
}

// Append writes one immutable activity entry.
func (s *Store) Append(ctx context.Context, entry domain.ActivityEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal activity entry: %w", err)
	}
	return s.client.RPush(ctx, s.activityKey(entry.LeadID), data).Err()
}
