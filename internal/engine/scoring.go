package engine

import (
	"math"
	"strconv"
	"strings"

	"github.com/velora/leadflow/pkg/domain"
)

const ratingScale = 5

// isOui reports a case-insensitive "oui" answer.
func isOui(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), "oui")
}

func isNon(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), "non")
}

// scoreAnswer computes the points earned for one answer by node type.
func scoreAnswer(node *domain.Node, answer string) int {
	switch node.Type {
	case domain.NodeTypeYesNo:
		if isOui(answer) {
			return node.ScoreWeight
		}
		return 0

	case domain.NodeTypeChoice:
		if opt := matchOption(node, answer); opt != nil {
			return opt.ScoreImpact
		}
		return 0

	case domain.NodeTypeRating:
		rating, err := strconv.Atoi(strings.TrimSpace(answer))
		if err != nil {
			return 0
		}
		// Bound the rating to the 0-5 scale so the earned score stays within
		// [0, weight] and the traversal total never exceeds the maximum.
		if rating < 0 {
			rating = 0
		}
		if rating > ratingScale {
			rating = ratingScale
		}
		return int(math.Round(float64(rating) / ratingScale * float64(node.ScoreWeight)))

	case domain.NodeTypeOpenText:
		if strings.TrimSpace(answer) != "" {
			return node.ScoreWeight
		}
		return 0

	case domain.NodeTypeInfo:
		return 0
	}
	return 0
}

// matchOption finds the CHOICE option whose value equals the answer.
func matchOption(node *domain.Node, answer string) *domain.Option {
	for i := range node.Options {
		if node.Options[i].Value == answer {
			return &node.Options[i]
		}
	}
	return nil
}

// resolveNext picks the next node id for the submitted answer. An empty
// result completes the traversal.
func resolveNext(node *domain.Node, answer string) string {
	switch node.Type {
	case domain.NodeTypeYesNo:
		next := node.NoNextNodeID
		if isOui(answer) {
			next = node.YesNextNodeID
		}
		if next != "" {
			return next
		}
		return node.DefaultNextID

	case domain.NodeTypeChoice:
		if opt := matchOption(node, answer); opt != nil && opt.NextNodeID != "" {
			return opt.NextNodeID
		}
		return node.DefaultNextID
	}
	return node.DefaultNextID
}

// firedTrigger returns the trigger type fired by this answer, or "".
func firedTrigger(node *domain.Node, answer string) string {
	t := node.Trigger
	if t == nil {
		return ""
	}
	switch t.Condition {
	case domain.TriggerConditionAny:
		return t.Type
	case domain.TriggerConditionYes:
		if isOui(answer) {
			return t.Type
		}
	case domain.TriggerConditionNo:
		if isNon(answer) {
			return t.Type
		}
	default:
		if t.Condition == answer {
			return t.Type
		}
	}
	return ""
}
