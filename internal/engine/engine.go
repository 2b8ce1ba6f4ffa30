package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/velora/leadflow/internal/logging"
	"github.com/velora/leadflow/internal/metrics"
	"github.com/velora/leadflow/pkg/domain"
	"github.com/velora/leadflow/pkg/ports"
)

// NoScriptRecommendation is returned when a traversal is started for a
// category with no published script. This is a valid empty state, not an error.
const NoScriptRecommendation = "Aucun script configuré pour cette catégorie."

// Engine drives one traversal of a script graph for one lead, scoring answers
// and advancing state. It holds no per-traversal state itself; everything
// lives in the ExecutionStore.
type Engine struct {
	scripts    ports.ScriptStore
	executions ports.ExecutionStore

	logger  *slog.Logger
	metrics *metrics.Set
	clock   func() time.Time
	newID   func() string
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics attaches a collector set.
func WithMetrics(set *metrics.Set) Option {
	return func(e *Engine) { e.metrics = set }
}

// WithClock overrides the time source (tests).
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithIDGenerator overrides the id source (tests).
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// New creates an engine over the given stores.
func New(scripts ports.ScriptStore, executions ports.ExecutionStore, opts ...Option) *Engine {
	e := &Engine{
		scripts:    scripts,
		executions: executions,
		logger:     logging.NewNop(),
		metrics:    metrics.NewSet(nil),
		clock:      time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartExecution loads the script, computes the maximum reachable score and
// creates the traversal positioned on the root node.
//
// A missing script or a script with zero nodes yields a completed state with
// a "no script configured" recommendation and no persisted execution: there
// is nothing to answer and nothing to freeze.
func (e *Engine) StartExecution(ctx context.Context, scriptID, leadID, userID string) (*domain.ExecutionState, error) {
	script, err := e.scripts.GetScriptWithNodes(ctx, scriptID)
	if err != nil {
		if errors.Is(err, domain.ErrScriptNotFound) {
			return emptyState(), nil
		}
		return nil, fmt.Errorf("failed to load script %s: %w", scriptID, err)
	}
	if len(script.Nodes) == 0 {
		return emptyState(), nil
	}

	root := script.Root()
	exec := &domain.Execution{
		ID:               e.newID(),
		ScriptID:         scriptID,
		LeadID:           leadID,
		UserID:           userID,
		MaxPossibleScore: script.MaxPossibleScore(),
		CurrentNodeID:    root.ID,
		StartedAt:        e.clock(),
	}
	if err := e.executions.CreateExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	e.metrics.ExecutionsStarted.Inc()
	e.logger.Info("execution started",
		"execution_id", exec.ID, "script_id", scriptID, "lead_id", leadID, "root", root.ID)

	return &domain.ExecutionState{
		ExecutionID:      exec.ID,
		CurrentNode:      root,
		TotalScore:       0,
		MaxPossibleScore: exec.MaxPossibleScore,
	}, nil
}

// State rebuilds the current snapshot of an execution, history included.
func (e *Engine) State(ctx context.Context, executionID string) (*domain.ExecutionState, error) {
	exec, err := e.executions.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	script, err := e.scripts.GetScriptWithNodes(ctx, exec.ScriptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load script %s: %w", exec.ScriptID, err)
	}
	responses, err := e.executions.ListResponses(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	return e.buildState(exec, script, responses), nil
}

func (e *Engine) buildState(exec *domain.Execution, script *domain.ScriptDefinition, responses []domain.Response) *domain.ExecutionState {
	state := &domain.ExecutionState{
		ExecutionID:       exec.ID,
		IsComplete:        exec.Completed(),
		TotalScore:        exec.TotalScore,
		MaxPossibleScore:  exec.MaxPossibleScore,
		ScorePercentage:   exec.ScorePercentage,
		Recommendation:    exec.Recommendation,
		RecommendedAction: exec.RecommendedAction,
		History:           historyOf(script, responses),
	}
	if !state.IsComplete && exec.CurrentNodeID != "" {
		if node, ok := script.NodeByID(exec.CurrentNodeID); ok {
			state.CurrentNode = node
		}
	}
	return state
}

// historyOf joins responses with their question texts, in answer order.
// Prior entries are never reordered or mutated retroactively.
func historyOf(script *domain.ScriptDefinition, responses []domain.Response) []domain.HistoryEntry {
	history := make([]domain.HistoryEntry, 0, len(responses))
	for _, r := range responses {
		question := r.NodeID
		if node, ok := script.NodeByID(r.NodeID); ok {
			question = node.Question
		}
		history = append(history, domain.HistoryEntry{
			NodeID:      r.NodeID,
			Question:    question,
			Answer:      r.Answer,
			ScoreEarned: r.ScoreEarned,
		})
	}
	return history
}

func emptyState() *domain.ExecutionState {
	return &domain.ExecutionState{
		IsComplete:        true,
		Recommendation:    NoScriptRecommendation,
		RecommendedAction: domain.ActionFollowUp,
	}
}

func triggeredOf(responses []domain.Response) []string {
	var triggered []string
	for _, r := range responses {
		if r.TriggeredAction != "" {
			triggered = append(triggered, r.TriggeredAction)
		}
	}
	return triggered
}
