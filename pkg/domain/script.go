package domain

// NodeType constants define how a node is asked, scored and routed.
const (
	// NodeTypeYesNo scores the full weight on "oui" and routes on yes/no edges.
	NodeTypeYesNo = "YES_NO"
	// NodeTypeChoice scores the matched option's impact and routes on its edge.
	NodeTypeChoice = "CHOICE"
	// NodeTypeOpenText scores the full weight on any non-empty answer.
	NodeTypeOpenText = "OPEN_TEXT"
	// NodeTypeRating scores proportionally to a 0-5 rating.
	NodeTypeRating = "RATING"
	// NodeTypeInfo is a pure acknowledgement step, never scored.
	NodeTypeInfo = "INFO"
)

// Trigger types mark an answer as carrying a signal for the recommendation policy.
const (
	TriggerSuggestRdv      = "SUGGEST_RDV"
	TriggerFlagCold        = "FLAG_COLD"
	TriggerSuggestCallback = "SUGGEST_CALLBACK"
	TriggerDisqualify      = "DISQUALIFY"
	TriggerHighlight       = "HIGHLIGHT"
)

// Trigger conditions. Any other value is compared literally against the answer.
const (
	TriggerConditionAny = "any"
	TriggerConditionYes = "yes"
	TriggerConditionNo  = "no"
)

// ActionTrigger fires when its condition matches the submitted answer.
// Triggered types accumulate during the traversal and feed the recommendation
// policy at completion; they never alter routing.
type ActionTrigger struct {
	Type      string `json:"type" yaml:"type"`
	Condition string `json:"condition" yaml:"condition"`
	Message   string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Option is one selectable answer of a CHOICE node.
type Option struct {
	Value       string `json:"value" yaml:"value"`
	Label       string `json:"label" yaml:"label"`
	NextNodeID  string `json:"next_node_id,omitempty" yaml:"next_node_id,omitempty"`
	ScoreImpact int    `json:"score_impact" yaml:"score_impact"`
}

// Node is one question of a script.
//
// Routing: YES_NO uses YesNextNodeID/NoNextNodeID, CHOICE uses the matched
// option's NextNodeID, and every type falls back to DefaultNextID. An empty
// resolved target completes the traversal.
type Node struct {
	ID          string `json:"id" yaml:"id"`
	Question    string `json:"question" yaml:"question"`
	HelpText    string `json:"help_text,omitempty" yaml:"help_text,omitempty"`
	Type        string `json:"type" yaml:"type"`
	ScoreWeight int    `json:"score_weight" yaml:"score_weight"`

	Options []Option `json:"options,omitempty" yaml:"options,omitempty"`

	YesNextNodeID string `json:"yes_next_node_id,omitempty" yaml:"yes_next_node_id,omitempty"`
	NoNextNodeID  string `json:"no_next_node_id,omitempty" yaml:"no_next_node_id,omitempty"`
	DefaultNextID string `json:"default_next_id,omitempty" yaml:"default_next_id,omitempty"`

	Trigger *ActionTrigger `json:"action_trigger,omitempty" yaml:"action_trigger,omitempty"`
}

// ScriptDefinition is a qualification script: an ordered collection of nodes
// owned by an organization. Read-only to the engine; referential integrity of
// the next-id edges is validated at publish time, not at traversal time.
type ScriptDefinition struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Category   string `json:"category,omitempty" yaml:"category,omitempty"`
	RootNodeID string `json:"root_node_id,omitempty" yaml:"root_node_id,omitempty"`
	Nodes      []Node `json:"nodes" yaml:"nodes"`
}

// NodeByID looks up a node within the script.
func (s *ScriptDefinition) NodeByID(id string) (*Node, bool) {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i], true
		}
	}
	return nil, false
}

// Root returns the entry node: RootNodeID if set and present, otherwise the
// first node by order. Returns nil for an empty script.
func (s *ScriptDefinition) Root() *Node {
	if s.RootNodeID != "" {
		if n, ok := s.NodeByID(s.RootNodeID); ok {
			return n
		}
	}
	if len(s.Nodes) > 0 {
		return &s.Nodes[0]
	}
	return nil
}

// MaxPossibleScore sums the positive node weights. Negative weights never
// count toward the maximum.
func (s *ScriptDefinition) MaxPossibleScore() int {
	total := 0
	for i := range s.Nodes {
		if w := s.Nodes[i].ScoreWeight; w > 0 {
			total += w
		}
	}
	return total
}
