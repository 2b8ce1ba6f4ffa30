package domain

import (
	"math"
	"time"
)

// Execution is one traversal of a script for one lead. Append-only after
// creation except for TotalScore/CurrentNodeID bookkeeping; frozen once
// CompletedAt is set.
type Execution struct {
	ID               string     `json:"id"`
	ScriptID         string     `json:"script_id"`
	LeadID           string     `json:"lead_id"`
	UserID           string     `json:"user_id"`
	TotalScore       int        `json:"total_score"`
	MaxPossibleScore int        `json:"max_possible_score"`
	CurrentNodeID    string     `json:"current_node_id,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`

	// Frozen at completion.
	ScorePercentage   int    `json:"score_percentage"`
	Recommendation    string `json:"recommendation,omitempty"`
	RecommendedAction string `json:"recommended_action,omitempty"`
}

// Completed reports whether the traversal is frozen.
func (e *Execution) Completed() bool {
	return e.CompletedAt != nil
}

// Response is one immutable answered-node row. Never updated or deleted.
type Response struct {
	ID          string    `json:"id"`
	ExecutionID string    `json:"execution_id"`
	NodeID      string    `json:"node_id"`
	Answer      string    `json:"answer"`
	ScoreEarned int       `json:"score_earned"`
	// TriggeredAction records the ActionTrigger type fired by this answer, if any.
	TriggeredAction string    `json:"triggered_action,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Completion carries the values frozen onto an Execution when the traversal ends.
type Completion struct {
	CompletedAt       time.Time `json:"completed_at"`
	ScorePercentage   int       `json:"score_percentage"`
	Recommendation    string    `json:"recommendation"`
	RecommendedAction string    `json:"recommended_action"`
}

// HistoryEntry is one answered step, in answer order.
type HistoryEntry struct {
	NodeID      string `json:"node_id"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	ScoreEarned int    `json:"score_earned"`
}

// ExecutionState is the snapshot returned to callers after start or answer.
type ExecutionState struct {
	ExecutionID       string         `json:"execution_id,omitempty"`
	CurrentNode       *Node          `json:"current_node,omitempty"`
	IsComplete        bool           `json:"is_complete"`
	TotalScore        int            `json:"total_score"`
	MaxPossibleScore  int            `json:"max_possible_score"`
	ScorePercentage   int            `json:"score_percentage"`
	Recommendation    string         `json:"recommendation,omitempty"`
	RecommendedAction string         `json:"recommended_action,omitempty"`
	History           []HistoryEntry `json:"history,omitempty"`
}

// ScorePercentage computes round(total/max*100), or 0 when max is zero.
func ScorePercentage(totalScore, maxPossibleScore int) int {
	if maxPossibleScore <= 0 {
		return 0
	}
	return int(math.Round(float64(totalScore) / float64(maxPossibleScore) * 100))
}
