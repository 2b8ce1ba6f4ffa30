// Package sqlite persists the qualification core in a single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/velora/leadflow/pkg/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS scripts (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	category     TEXT NOT NULL DEFAULT '',
	root_node_id TEXT NOT NULL DEFAULT '',
	nodes        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS executions (
	id                 TEXT PRIMARY KEY,
	script_id          TEXT NOT NULL,
	lead_id            TEXT NOT NULL,
	user_id            TEXT NOT NULL,
	total_score        INTEGER NOT NULL DEFAULT 0,
	max_possible_score INTEGER NOT NULL DEFAULT 0,
	current_node_id    TEXT NOT NULL DEFAULT '',
	started_at         TIMESTAMP NOT NULL,
	completed_at       TIMESTAMP,
	score_percentage   INTEGER NOT NULL DEFAULT 0,
	recommendation     TEXT NOT NULL DEFAULT '',
	recommended_action TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS responses (
	seq              INTEGER PRIMARY KEY AUTOINCREMENT,
	id               TEXT NOT NULL,
	execution_id     TEXT NOT NULL REFERENCES executions(id),
	node_id          TEXT NOT NULL,
	answer           TEXT NOT NULL,
	score_earned     INTEGER NOT NULL,
	triggered_action TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_responses_execution ON responses(execution_id);

CREATE TABLE IF NOT EXISTS leads (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	relance_count INTEGER NOT NULL DEFAULT 0,
	lost_reason   TEXT NOT NULL DEFAULT '',
	date_rdv      TIMESTAMP,
	notes         TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS activity_log (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	id              TEXT NOT NULL,
	lead_id         TEXT NOT NULL,
	type            TEXT NOT NULL,
	description     TEXT NOT NULL,
	actor           TEXT NOT NULL DEFAULT '',
	previous_status TEXT NOT NULL DEFAULT '',
	new_status      TEXT NOT NULL DEFAULT '',
	metadata        TEXT NOT NULL DEFAULT '{}',
	created_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_lead ON activity_log(lead_id);
`

// Store implements every store port on top of database/sql.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// modernc.org/sqlite serializes writes itself; a single connection avoids
	// SQLITE_BUSY on concurrent transactions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutScript registers a published script, replacing any previous version.
func (s *Store) PutScript(ctx context.Context, script *domain.ScriptDefinition) error {
	nodes, err := json.Marshal(script.Nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scripts (id, name, category, root_node_id, nodes) VALUES (?, ?, ?, ?, ?)`,
		script.ID, script.Name, script.Category, script.RootNodeID, string(nodes))
	return err
}

// GetScriptWithNodes returns the script and its ordered nodes.
func (s *Store) GetScriptWithNodes(ctx context.Context, scriptID string) (*domain.ScriptDefinition, error) {
	var script domain.ScriptDefinition
	var nodes string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, category, root_node_id, nodes FROM scripts WHERE id = ?`, scriptID).
		Scan(&script.ID, &script.Name, &script.Category, &script.RootNodeID, &nodes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrScriptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load script: %w", err)
	}
	if err := json.Unmarshal([]byte(nodes), &script.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}
	return &script, nil
}

// CreateExecution persists a freshly started execution.
func (s *Store) CreateExecution(ctx context.Context, exec *domain.Execution) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (id, script_id, lead_id, user_id, total_score, max_possible_score, current_node_id, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ID, exec.ScriptID, exec.LeadID, exec.UserID,
		exec.TotalScore, exec.MaxPossibleScore, exec.CurrentNodeID, exec.StartedAt)
	return err
}

// GetExecution returns the execution or domain.ErrExecutionNotFound.
func (s *Store) GetExecution(ctx context.Context, executionID string) (*domain.Execution, error) {
	return scanExecution(s.db.QueryRowContext(ctx,
		`SELECT id, script_id, lead_id, user_id, total_score, max_possible_score, current_node_id,
		        started_at, completed_at, score_percentage, recommendation, recommended_action
		 FROM executions WHERE id = ?`, executionID))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (*domain.Execution, error) {
	var exec domain.Execution
	var completedAt sql.NullTime
	err := row.Scan(&exec.ID, &exec.ScriptID, &exec.LeadID, &exec.UserID,
		&exec.TotalScore, &exec.MaxPossibleScore, &exec.CurrentNodeID,
		&exec.StartedAt, &completedAt, &exec.ScorePercentage,
		&exec.Recommendation, &exec.RecommendedAction)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrExecutionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load execution: %w", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		exec.CompletedAt = &t
	}
	return &exec, nil
}

// AppendResponse atomically appends the response row and updates the
// execution bookkeeping inside one transaction.
func (s *Store) AppendResponse(ctx context.Context, resp domain.Response, nextNodeID string) (*domain.Execution, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE executions SET total_score = total_score + ?, current_node_id = ? WHERE id = ?`,
		resp.ScoreEarned, nextNodeID, resp.ExecutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to update execution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrExecutionNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO responses (id, execution_id, node_id, answer, score_earned, triggered_action, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		resp.ID, resp.ExecutionID, resp.NodeID, resp.Answer,
		resp.ScoreEarned, resp.TriggeredAction, resp.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert response: %w", err)
	}

	exec, err := scanExecution(tx.QueryRowContext(ctx,
		`SELECT id, script_id, lead_id, user_id, total_score, max_possible_score, current_node_id,
		        started_at, completed_at, score_percentage, recommendation, recommended_action
		 FROM executions WHERE id = ?`, resp.ExecutionID))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return exec, nil
}

// ListResponses returns the responses of an execution in creation order.
func (s *Store) ListResponses(ctx context.Context, executionID string) ([]domain.Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, execution_id, node_id, answer, score_earned, triggered_action, created_at
		 FROM responses WHERE execution_id = ? ORDER BY seq`, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	var responses []domain.Response
	for rows.Next() {
		var resp domain.Response
		if err := rows.Scan(&resp.ID, &resp.ExecutionID, &resp.NodeID, &resp.Answer,
			&resp.ScoreEarned, &resp.TriggeredAction, &resp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

// CompleteExecution freezes the execution.
func (s *Store) CompleteExecution(ctx context.Context, executionID string, result domain.Completion) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE executions
		 SET completed_at = ?, current_node_id = '', score_percentage = ?, recommendation = ?, recommended_action = ?
		 WHERE id = ?`,
		result.CompletedAt, result.ScorePercentage, result.Recommendation, result.RecommendedAction, executionID)
	if err != nil {
		return fmt.Errorf("failed to complete execution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrExecutionNotFound
	}
	return nil
}

// PutLead registers a lead (created upstream of this core).
func (s *Store) PutLead(ctx context.Context, lead *domain.Lead) error {
	updatedAt := lead.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO leads (id, status, relance_count, lost_reason, date_rdv, notes, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.Status, lead.RelanceCount, lead.LostReason, lead.DateRdv, lead.Notes, updatedAt)
	return err
}

// GetLead returns the lead or domain.ErrLeadNotFound.
func (s *Store) GetLead(ctx context.Context, leadID string) (*domain.Lead, error) {
	return scanLead(s.db.QueryRowContext(ctx,
		`SELECT id, status, relance_count, lost_reason, date_rdv, notes, updated_at FROM leads WHERE id = ?`, leadID))
}

func scanLead(row rowScanner) (*domain.Lead, error) {
	var lead domain.Lead
	var dateRdv sql.NullTime
	err := row.Scan(&lead.ID, &lead.Status, &lead.RelanceCount, &lead.LostReason,
		&dateRdv, &lead.Notes, &lead.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load lead: %w", err)
	}
	if dateRdv.Valid {
		t := dateRdv.Time
		lead.DateRdv = &t
	}
	return &lead, nil
}

// UpdateLead applies the patch only when the current status matches, inside
// one transaction.
func (s *Store) UpdateLead(ctx context.Context, leadID, expectedStatus string, patch domain.LeadPatch) (*domain.Lead, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	lead, err := scanLead(tx.QueryRowContext(ctx,
		`SELECT id, status, relance_count, lost_reason, date_rdv, notes, updated_at FROM leads WHERE id = ?`, leadID))
	if err != nil {
		return nil, err
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
	lead.UpdatedAt = time.Now()

	if _, err := tx.ExecContext(ctx,
		`UPDATE leads SET status = ?, relance_count = ?, lost_reason = ?, date_rdv = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		lead.Status, lead.RelanceCount, lead.LostReason, lead.DateRdv, lead.Notes, lead.UpdatedAt,
		leadID, expectedStatus); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return lead, nil
}

// Append writes one immutable activity entry.
func (s *Store) Append(ctx context.Context, entry domain.ActivityEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO activity_log (id, lead_id, type, description, actor, previous_status, new_status, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.LeadID, entry.Type, entry.Description, entry.Actor,
		entry.PreviousStatus, entry.NewStatus, string(metadata), entry.Timestamp)
	return err
}
