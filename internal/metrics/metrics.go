package metrics

import "github.com/prometheus/client_golang/prometheus"

// Set groups the collectors of the qualification core. Passing a nil
// registerer yields working but unregistered collectors, which is what tests
// and the no-op default use.
type Set struct {
	ExecutionsStarted   prometheus.Counter
	ExecutionsCompleted *prometheus.CounterVec
	AnswersScored       *prometheus.CounterVec
	LeadTransitions     *prometheus.CounterVec
	RefreshFailures     prometheus.Counter
	RefreshDropped      prometheus.Counter
}

// NewSet builds the collector set and registers it when reg is non-nil.
func NewSet(reg prometheus.Registerer) *Set {
	s := &Set{
		ExecutionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leadflow_executions_started_total",
			Help: "Script traversals started.",
		}),
		ExecutionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadflow_executions_completed_total",
			Help: "Script traversals completed, by recommended action.",
		}, []string{"action"}),
		AnswersScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadflow_answers_scored_total",
			Help: "Answers scored, by node type.",
		}, []string{"node_type"}),
		LeadTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadflow_lead_transitions_total",
			Help: "Lead status transitions, by previous and new status.",
		}, []string{"from", "to"}),
		RefreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leadflow_score_refresh_failures_total",
			Help: "Background score refreshes that returned an error.",
		}),
		RefreshDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leadflow_score_refresh_dropped_total",
			Help: "Score refresh requests dropped because the queue was full.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			s.ExecutionsStarted,
			s.ExecutionsCompleted,
			s.AnswersScored,
			s.LeadTransitions,
			s.RefreshFailures,
			s.RefreshDropped,
		)
	}
	return s
}
