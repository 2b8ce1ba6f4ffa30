/*
Package outcome implements the lead status state machine around appointment
outcomes and follow-up retries.

Every command checks the lead's current status against its required entry
state before touching anything; a mismatch fails with InvalidStateError and
performs zero mutation. PERDU is terminal and never accepted as entry state.
*/
package outcome

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/velora/leadflow/internal/logging"
	"github.com/velora/leadflow/internal/metrics"
	"github.com/velora/leadflow/pkg/domain"
	"github.com/velora/leadflow/pkg/ports"
)

// nopRefresher is the default when no score refresher is wired.
type nopRefresher struct{}

func (nopRefresher) Refresh(string) {}

// Machine executes outcome commands against the lead store, writing one audit
// entry and one prepended note per transition.
type Machine struct {
	leads     ports.LeadStore
	log       ports.ActivityLog
	refresher ports.ScoreRefresher

	logger  *slog.Logger
	metrics *metrics.Set
	clock   func() time.Time
	newID   func() string
}

// Option configures the Machine.
type Option func(*Machine)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// WithMetrics attaches a collector set.
func WithMetrics(set *metrics.Set) Option {
	return func(m *Machine) { m.metrics = set }
}

// WithScoreRefresher wires the asynchronous score-refresh side effect.
func WithScoreRefresher(r ports.ScoreRefresher) Option {
	return func(m *Machine) { m.refresher = r }
}

// WithClock overrides the time source (tests).
func WithClock(clock func() time.Time) Option {
	return func(m *Machine) { m.clock = clock }
}

// WithIDGenerator overrides the id source (tests).
func WithIDGenerator(gen func() string) Option {
	return func(m *Machine) { m.newID = gen }
}

// New creates a Machine over the given lead store and activity log.
func New(leads ports.LeadStore, log ports.ActivityLog, opts ...Option) *Machine {
	m := &Machine{
		leads:     leads,
		log:       log,
		refresher: nopRefresher{},
		logger:    logging.NewNop(),
		metrics:   metrics.NewSet(nil),
		clock:     time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// QualifyRdv records the outcome of a scheduled appointment.
// Entry status: RDV_PLANIFIE.
func (m *Machine) QualifyRdv(ctx context.Context, cmd QualifyRdvCommand) (*domain.Lead, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	lead, err := m.leads.GetLead(ctx, cmd.LeadID)
	if err != nil {
		return nil, err
	}
	if lead.Status != domain.StatusRdvPlanifie {
		return nil, &domain.InvalidStateError{LeadID: lead.ID, Expected: domain.StatusRdvPlanifie, Actual: lead.Status}
	}

	if !cmd.Honored {
		status := domain.StatusRdvNonHonore
		return m.apply(ctx, lead, cmd.Actor, change{
			patch:        domain.LeadPatch{Status: &status},
			note:         fmt.Sprintf("RDV non honoré : %s", cmd.AbsenceReason),
			activityType: domain.ActivityStatusChanged,
			description:  "Rendez-vous non honoré",
			metadata:     map[string]any{"absence_reason": cmd.AbsenceReason},
		})
	}

	switch cmd.Intent {
	case domain.IntentReporter:
		status := domain.StatusDecisionEnAttente
		return m.apply(ctx, lead, cmd.Actor, change{
			patch:        domain.LeadPatch{Status: &status},
			note:         "RDV honoré : décision reportée",
			activityType: domain.ActivityStatusChanged,
			description:  "Décision reportée après rendez-vous",
			metadata:     map[string]any{"intent": cmd.Intent},
		})

	case domain.IntentAbandon:
		status := domain.StatusPerdu
		reason := domain.LostReasonNonInteresse
		return m.apply(ctx, lead, cmd.Actor, change{
			patch:        domain.LeadPatch{Status: &status, LostReason: &reason},
			note:         "RDV honoré : abandon du prospect",
			activityType: domain.ActivityStatusChanged,
			description:  "Prospect perdu après rendez-vous",
			metadata:     map[string]any{"intent": cmd.Intent, "lost_reason": reason},
		})

	case domain.IntentPoursuivre:
		// Forward-moving outcome with no persisted status change: the audit
		// narrative carries it, the status stays RDV_PLANIFIE.
		return m.apply(ctx, lead, cmd.Actor, change{
			patch:        domain.LeadPatch{},
			note:         "RDV honoré : poursuite du processus",
			activityType: domain.ActivityNote,
			description:  "Poursuite du processus après rendez-vous",
			metadata:     map[string]any{"intent": cmd.Intent},
		})

	default:
		return nil, &domain.UnknownEnumError{Kind: "intent", Value: cmd.Intent}
	}
}

// HandleNonHonore processes a follow-up attempt on a missed appointment.
// Entry status: RDV_NON_HONORE.
func (m *Machine) HandleNonHonore(ctx context.Context, cmd FollowUpCommand) (*domain.Lead, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	lead, err := m.leads.GetLead(ctx, cmd.LeadID)
	if err != nil {
		return nil, err
	}
	if lead.Status != domain.StatusRdvNonHonore {
		return nil, &domain.InvalidStateError{LeadID: lead.ID, Expected: domain.StatusRdvNonHonore, Actual: lead.Status}
	}

	switch cmd.Action {
	case domain.FollowUpRelance:
		return m.relance(ctx, lead, cmd.Actor, "Relance effectuée")

	case domain.FollowUpCall:
		return m.call(ctx, lead, cmd)

	default:
		return nil, &domain.UnknownEnumError{Kind: "action", Value: cmd.Action}
	}
}

// relance bumps the retry counter and moves the lead to PERDU "injoignable"
// once the cap is reached.
func (m *Machine) relance(ctx context.Context, lead *domain.Lead, actor, label string) (*domain.Lead, error) {
	count := lead.RelanceCount + 1

	if count >= domain.MaxRelances {
		status := domain.StatusPerdu
		reason := domain.LostReasonInjoignable
		return m.apply(ctx, lead, actor, change{
			patch:        domain.LeadPatch{Status: &status, RelanceCount: &count, LostReason: &reason},
			note:         fmt.Sprintf("%s (%d/%d) : prospect injoignable", label, count, domain.MaxRelances),
			activityType: domain.ActivityStatusChanged,
			description:  "Prospect perdu : injoignable",
			metadata:     map[string]any{"relance_count": count, "lost_reason": reason},
		})
	}

	return m.apply(ctx, lead, actor, change{
		patch:        domain.LeadPatch{RelanceCount: &count},
		note:         fmt.Sprintf("%s (%d/%d)", label, count, domain.MaxRelances),
		activityType: domain.ActivityRelance,
		description:  "Relance du prospect",
		metadata:     map[string]any{"relance_count": count},
	})
}

func (m *Machine) call(ctx context.Context, lead *domain.Lead, cmd FollowUpCommand) (*domain.Lead, error) {
	switch cmd.CallResult {
	case domain.CallResultRdvRefixe:
		// Rebooking always resets the retry counter.
		status := domain.StatusRdvPlanifie
		zero := 0
		return m.apply(ctx, lead, cmd.Actor, change{
			patch:        domain.LeadPatch{Status: &status, RelanceCount: &zero, DateRdv: cmd.NewDate},
			note:         fmt.Sprintf("Appel : RDV refixé au %s", cmd.NewDate.Format("02/01/2006")),
			activityType: domain.ActivityStatusChanged,
			description:  "Rendez-vous refixé",
			metadata:     map[string]any{"call_result": cmd.CallResult, "date_rdv": cmd.NewDate.Format(time.RFC3339)},
		})

	case domain.CallResultInteresse:
		// TODO: unlike relance/hors_ligne, this path increments the counter
		// without checking MaxRelances. Confirm with the pipeline owners
		// whether genuine interest is meant to be exempt from the cap.
		count := lead.RelanceCount + 1
		status := domain.StatusDecisionEnAttente
		return m.apply(ctx, lead, cmd.Actor, change{
			patch:        domain.LeadPatch{Status: &status, RelanceCount: &count},
			note:         "Appel : prospect intéressé, décision en attente",
			activityType: domain.ActivityStatusChanged,
			description:  "Prospect intéressé après appel",
			metadata:     map[string]any{"call_result": cmd.CallResult, "relance_count": count},
		})

	case domain.CallResultHorsLigne:
		return m.relance(ctx, lead, cmd.Actor, "Appel sans réponse")

	case domain.CallResultPasInteresse:
		status := domain.StatusPerdu
		reason := domain.LostReasonNonInteresse
		return m.apply(ctx, lead, cmd.Actor, change{
			patch:        domain.LeadPatch{Status: &status, LostReason: &reason},
			note:         "Appel : prospect non intéressé",
			activityType: domain.ActivityStatusChanged,
			description:  "Prospect perdu : non intéressé",
			metadata:     map[string]any{"call_result": cmd.CallResult, "lost_reason": reason},
		})

	case domain.CallResultNumeroInvalide:
		status := domain.StatusPerdu
		reason := domain.LostReasonNumeroInvalide
		return m.apply(ctx, lead, cmd.Actor, change{
			patch:        domain.LeadPatch{Status: &status, LostReason: &reason},
			note:         "Appel : numéro invalide",
			activityType: domain.ActivityStatusChanged,
			description:  "Prospect perdu : numéro invalide",
			metadata:     map[string]any{"call_result": cmd.CallResult, "lost_reason": reason},
		})

	default:
		return nil, &domain.UnknownEnumError{Kind: "call_result", Value: cmd.CallResult}
	}
}

// change bundles everything a transition writes.
type change struct {
	patch        domain.LeadPatch
	note         string
	activityType string
	description  string
	metadata     map[string]any
}

// apply performs the guarded update, appends the audit entry, and fires the
// asynchronous score refresh when the status actually changed.
func (m *Machine) apply(ctx context.Context, lead *domain.Lead, actor string, ch change) (*domain.Lead, error) {
	now := m.clock()
	notes := domain.PrependNote(lead.Notes, now, ch.note)
	ch.patch.Notes = &notes

	updated, err := m.leads.UpdateLead(ctx, lead.ID, lead.Status, ch.patch)
	if err != nil {
		return nil, err
	}

	entry := domain.ActivityEntry{
		ID:             m.newID(),
		LeadID:         lead.ID,
		Type:           ch.activityType,
		Description:    ch.description,
		Actor:          actor,
		PreviousStatus: lead.Status,
		NewStatus:      updated.Status,
		Metadata:       ch.metadata,
		Timestamp:      now,
	}
	if err := m.log.Append(ctx, entry); err != nil {
		// No transaction spans the lead row and the activity log; the lead
		// update already committed, so the missing audit entry is only logged.
		m.logger.Error("activity log append failed", "lead_id", lead.ID, "type", ch.activityType, "err", err)
	}

	if updated.Status != lead.Status {
		m.metrics.LeadTransitions.WithLabelValues(lead.Status, updated.Status).Inc()
		m.logger.Info("lead status changed",
			"lead_id", lead.ID, "from", lead.Status, "to", updated.Status, "actor", actor)
		m.refresher.Refresh(lead.ID)
	}

	return updated, nil
}
