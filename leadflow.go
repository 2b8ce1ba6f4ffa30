/*
Package leadflow qualifies sales leads through two cooperating mechanisms: a
branching call script scored live during a phone call, and a guarded status
state machine that governs what happens to a lead after an appointment is
kept, missed, or repeatedly unreachable.

The package is the high-level entry point for the library. It wires the
script execution engine, the recommendation policy and the outcome state
machine over pluggable stores, and serializes access per execution and per
lead.
*/
package leadflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/velora/leadflow/internal/engine"
	"github.com/velora/leadflow/internal/logging"
	"github.com/velora/leadflow/internal/metrics"
	"github.com/velora/leadflow/internal/outcome"
	"github.com/velora/leadflow/internal/refresh"
	"github.com/velora/leadflow/internal/validator"
	"github.com/velora/leadflow/pkg/domain"
	"github.com/velora/leadflow/pkg/ports"
	"github.com/velora/leadflow/pkg/session"
)

// Version is the library version, surfaced by the CLI and the MCP server.
const Version = "0.4.0"

// Stores groups the persistence collaborators of the core.
type Stores struct {
	Scripts    ports.ScriptStore
	Executions ports.ExecutionStore
	Leads      ports.LeadStore
	Activity   ports.ActivityLog
}

// Engine is the assembled qualification core.
type Engine struct {
	scripts ports.ScriptStore
	engine  *engine.Engine
	machine *outcome.Machine
	guard   *session.Guard

	logger     *slog.Logger
	metricSet  *metrics.Set
	refresher  ports.ScoreRefresher
	dispatcher *refresh.Dispatcher // owned, closed by Close; nil when refresher injected
	clock      func() time.Time
	locker     ports.DistributedLocker
	refreshFn  refresh.Func
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics registers the core's collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.metricSet = metrics.NewSet(reg) }
}

// WithLocker enables distributed locking for multi-replica deployments.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) { e.locker = locker }
}

// WithScoreRefresh wires the function the background worker calls after a
// status change. Without it, refreshes are silently skipped.
func WithScoreRefresh(fn refresh.Func) Option {
	return func(e *Engine) { e.refreshFn = fn }
}

// WithScoreRefresher injects a pre-built refresher, bypassing the internal
// dispatcher.
func WithScoreRefresher(r ports.ScoreRefresher) Option {
	return func(e *Engine) { e.refresher = r }
}

// WithClock overrides the time source (tests).
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// New assembles the qualification core over the given stores.
func New(stores Stores, opts ...Option) *Engine {
	e := &Engine{
		scripts: stores.Scripts,
		logger:  logging.NewNop(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metricSet == nil {
		e.metricSet = metrics.NewSet(nil)
	}

	if e.refresher == nil && e.refreshFn != nil {
		e.dispatcher = refresh.NewDispatcher(e.refreshFn,
			refresh.WithLogger(e.logger),
			refresh.WithMetrics(e.metricSet),
		)
		e.refresher = e.dispatcher
	}

	guardOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		guardOpts = append(guardOpts, session.WithLocker(e.locker))
	}
	e.guard = session.NewGuard(guardOpts...)

	e.engine = engine.New(stores.Scripts, stores.Executions,
		engine.WithLogger(e.logger),
		engine.WithMetrics(e.metricSet),
		engine.WithClock(e.clock),
	)

	machineOpts := []outcome.Option{
		outcome.WithLogger(e.logger),
		outcome.WithMetrics(e.metricSet),
		outcome.WithClock(e.clock),
	}
	if e.refresher != nil {
		machineOpts = append(machineOpts, outcome.WithScoreRefresher(e.refresher))
	}
	e.machine = outcome.New(stores.Leads, stores.Activity, machineOpts...)

	return e
}

// StartExecution begins a traversal of scriptID for a lead.
func (e *Engine) StartExecution(ctx context.Context, scriptID, leadID, userID string) (*domain.ExecutionState, error) {
	return e.engine.StartExecution(ctx, scriptID, leadID, userID)
}

// AnswerNode submits one answer. Calls for the same execution are serialized.
func (e *Engine) AnswerNode(ctx context.Context, executionID, nodeID, answer string) (*domain.ExecutionState, error) {
	var state *domain.ExecutionState
	err := e.guard.WithLock(ctx, "execution:"+executionID, func(ctx context.Context) error {
		var err error
		state, err = e.engine.AnswerNode(ctx, executionID, nodeID, answer)
		return err
	})
	return state, err
}

// Execution returns the current snapshot of a traversal, history included.
func (e *Engine) Execution(ctx context.Context, executionID string) (*domain.ExecutionState, error) {
	return e.engine.State(ctx, executionID)
}

// Script returns a published script definition.
func (e *Engine) Script(ctx context.Context, scriptID string) (*domain.ScriptDefinition, error) {
	return e.scripts.GetScriptWithNodes(ctx, scriptID)
}

// QualifyRdv records the outcome of a scheduled appointment. Commands for the
// same lead are serialized.
func (e *Engine) QualifyRdv(ctx context.Context, cmd outcome.QualifyRdvCommand) (*domain.Lead, error) {
	var lead *domain.Lead
	err := e.guard.WithLock(ctx, "lead:"+cmd.LeadID, func(ctx context.Context) error {
		var err error
		lead, err = e.machine.QualifyRdv(ctx, cmd)
		return err
	})
	return lead, err
}

// HandleNonHonore processes a follow-up attempt on a missed appointment.
// Commands for the same lead are serialized.
func (e *Engine) HandleNonHonore(ctx context.Context, cmd outcome.FollowUpCommand) (*domain.Lead, error) {
	var lead *domain.Lead
	err := e.guard.WithLock(ctx, "lead:"+cmd.LeadID, func(ctx context.Context) error {
		var err error
		lead, err = e.machine.HandleNonHonore(ctx, cmd)
		return err
	})
	return lead, err
}

// ValidateScript checks a script graph at publish time.
func (e *Engine) ValidateScript(script *domain.ScriptDefinition) error {
	return validator.ValidateScript(script)
}

// Close flushes the background score-refresh worker.
func (e *Engine) Close() {
	if e.dispatcher != nil {
		e.dispatcher.Close()
	}
}
