/*
Package policy turns a finished traversal into an action recommendation.

Recommend is a pure function: deterministic, side-effect-free, independent of
storage. Rules are evaluated in strict priority order, first match wins.
*/
package policy

import (
	"fmt"

	"github.com/velora/leadflow/pkg/domain"
)

// Score thresholds, in percent of the maximum possible score.
const (
	hotThreshold  = 75
	warmThreshold = 50
	coldThreshold = 30
)

// Recommend maps the final score and the triggers accumulated during the
// traversal to a recommendation text and an action.
func Recommend(totalScore, maxPossibleScore int, triggeredActions []string, history []domain.HistoryEntry) (string, string) {
	pct := 0.0
	if maxPossibleScore > 0 {
		pct = float64(totalScore) / float64(maxPossibleScore) * 100
	}

	triggered := func(kind string) bool {
		for _, t := range triggeredActions {
			if t == kind {
				return true
			}
		}
		return false
	}

	answered := len(history)

	switch {
	case triggered(domain.TriggerDisqualify):
		return fmt.Sprintf("Prospect disqualifié au cours de l'entretien (%d réponses).", answered),
			domain.ActionDisqualify

	case triggered(domain.TriggerSuggestRdv) && pct >= warmThreshold:
		return fmt.Sprintf("Signal fort détecté (score %.0f%%) : proposez un rendez-vous.", pct),
			domain.ActionBookRdv

	case pct >= hotThreshold:
		return fmt.Sprintf("Prospect très qualifié (score %.0f%%) : proposez un rendez-vous.", pct),
			domain.ActionBookRdv

	case pct >= warmThreshold:
		return fmt.Sprintf("Prospect intéressé (score %.0f%%) : planifiez une relance.", pct),
			domain.ActionFollowUp

	case triggered(domain.TriggerFlagCold) || pct < coldThreshold:
		return fmt.Sprintf("Prospect froid (score %.0f%%) : à disqualifier.", pct),
			domain.ActionDisqualify

	default:
		return fmt.Sprintf("Qualification moyenne (score %.0f%%) : planifiez une relance.", pct),
			domain.ActionFollowUp
	}
}
