package engine

import (
	"context"
	"fmt"

	"github.com/velora/leadflow/internal/policy"
	"github.com/velora/leadflow/pkg/domain"
)

// AnswerNode scores the submitted answer, persists one immutable response row,
// advances the traversal and, when no next node resolves, runs the
// recommendation policy once and freezes the execution.
func (e *Engine) AnswerNode(ctx context.Context, executionID, nodeID, answer string) (*domain.ExecutionState, error) {
	exec, err := e.executions.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if exec.Completed() {
		return nil, fmt.Errorf("execution %s: %w", executionID, domain.ErrExecutionCompleted)
	}

	script, err := e.scripts.GetScriptWithNodes(ctx, exec.ScriptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load script %s: %w", exec.ScriptID, err)
	}
	node, ok := script.NodeByID(nodeID)
	if !ok {
		return nil, fmt.Errorf("node %s in script %s: %w", nodeID, exec.ScriptID, domain.ErrNodeNotFound)
	}

	// Only the current node may be answered. This keeps responses at one per
	// node and totalScore within maxPossibleScore.
	if nodeID != exec.CurrentNodeID {
		return nil, fmt.Errorf("node %s is not the current node of execution %s (expected %s): %w",
			nodeID, executionID, exec.CurrentNodeID, domain.ErrInvalidState)
	}

	scoreEarned := scoreAnswer(node, answer)
	nextID := resolveNext(node, answer)

	resp := domain.Response{
		ID:              e.newID(),
		ExecutionID:     executionID,
		NodeID:          nodeID,
		Answer:          answer,
		ScoreEarned:     scoreEarned,
		TriggeredAction: firedTrigger(node, answer),
		CreatedAt:       e.clock(),
	}

	exec, err = e.executions.AppendResponse(ctx, resp, nextID)
	if err != nil {
		return nil, fmt.Errorf("failed to append response: %w", err)
	}

	e.metrics.AnswersScored.WithLabelValues(node.Type).Inc()
	e.logger.Debug("node answered",
		"execution_id", executionID, "node", nodeID, "score", scoreEarned, "next", nextID)

	responses, err := e.executions.ListResponses(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	if nextID != "" {
		return e.buildState(exec, script, responses), nil
	}
	return e.complete(ctx, exec, script, responses)
}

// complete runs the recommendation policy once and freezes the execution.
func (e *Engine) complete(ctx context.Context, exec *domain.Execution, script *domain.ScriptDefinition, responses []domain.Response) (*domain.ExecutionState, error) {
	history := historyOf(script, responses)
	recommendation, action := policy.Recommend(exec.TotalScore, exec.MaxPossibleScore, triggeredOf(responses), history)

	result := domain.Completion{
		CompletedAt:       e.clock(),
		ScorePercentage:   domain.ScorePercentage(exec.TotalScore, exec.MaxPossibleScore),
		Recommendation:    recommendation,
		RecommendedAction: action,
	}
	if err := e.executions.CompleteExecution(ctx, exec.ID, result); err != nil {
		return nil, fmt.Errorf("failed to complete execution: %w", err)
	}

	e.metrics.ExecutionsCompleted.WithLabelValues(action).Inc()
	e.logger.Info("execution completed",
		"execution_id", exec.ID, "score", exec.TotalScore, "pct", result.ScorePercentage, "action", action)

	return &domain.ExecutionState{
		ExecutionID:       exec.ID,
		IsComplete:        true,
		TotalScore:        exec.TotalScore,
		MaxPossibleScore:  exec.MaxPossibleScore,
		ScorePercentage:   result.ScorePercentage,
		Recommendation:    recommendation,
		RecommendedAction: action,
		History:           history,
	}, nil
}
