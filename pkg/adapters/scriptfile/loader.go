// Package scriptfile loads script definitions from hand-edited YAML files.
//
// Files are decoded in two steps: yaml into a generic map, then mapstructure
// with weak typing into the definition structs, so that "5" and 5 both work
// for weights in files written by hand.
package scriptfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/velora/leadflow/pkg/domain"
)

// fileScript mirrors domain.ScriptDefinition with mapstructure tags matching
// the YAML keys.
type fileScript struct {
	ID         string     `mapstructure:"id"`
	Name       string     `mapstructure:"name"`
	Category   string     `mapstructure:"category"`
	RootNodeID string     `mapstructure:"root_node_id"`
	Nodes      []fileNode `mapstructure:"nodes"`
}

type fileNode struct {
	ID            string        `mapstructure:"id"`
	Question      string        `mapstructure:"question"`
	HelpText      string        `mapstructure:"help_text"`
	Type          string        `mapstructure:"type"`
	ScoreWeight   int           `mapstructure:"score_weight"`
	Options       []fileOption  `mapstructure:"options"`
	YesNextNodeID string        `mapstructure:"yes_next_node_id"`
	NoNextNodeID  string        `mapstructure:"no_next_node_id"`
	DefaultNextID string        `mapstructure:"default_next_id"`
	Trigger       *fileTrigger  `mapstructure:"action_trigger"`
}

type fileOption struct {
	Value       string `mapstructure:"value"`
	Label       string `mapstructure:"label"`
	NextNodeID  string `mapstructure:"next_node_id"`
	ScoreImpact int    `mapstructure:"score_impact"`
}

type fileTrigger struct {
	Type      string `mapstructure:"type"`
	Condition string `mapstructure:"condition"`
	Message   string `mapstructure:"message"`
}

// Loader implements ports.ScriptStore over a directory of YAML files, one
// script per file, named <script-id>.yaml.
type Loader struct {
	dir string
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// GetScriptWithNodes reads and decodes <dir>/<scriptID>.yaml.
func (l *Loader) GetScriptWithNodes(ctx context.Context, scriptID string) (*domain.ScriptDefinition, error) {
	path := filepath.Join(l.dir, scriptID+".yaml")
	script, err := LoadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrScriptNotFound
		}
		return nil, err
	}
	if script.ID == "" {
		script.ID = scriptID
	}
	return script, nil
}

// LoadFile reads and decodes one script definition file.
func LoadFile(path string) (*domain.ScriptDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML script definition.
func Parse(data []byte) (*domain.ScriptDefinition, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse script yaml: %w", err)
	}

	var fs fileScript
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &fs,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode script: %w", err)
	}

	return fs.toDomain(), nil
}

func (fs *fileScript) toDomain() *domain.ScriptDefinition {
	script := &domain.ScriptDefinition{
		ID:         fs.ID,
		Name:       fs.Name,
		Category:   fs.Category,
		RootNodeID: fs.RootNodeID,
		Nodes:      make([]domain.Node, 0, len(fs.Nodes)),
	}
	for _, n := range fs.Nodes {
		node := domain.Node{
			ID:            n.ID,
			Question:      n.Question,
			HelpText:      n.HelpText,
			Type:          n.Type,
			ScoreWeight:   n.ScoreWeight,
			YesNextNodeID: n.YesNextNodeID,
			NoNextNodeID:  n.NoNextNodeID,
			DefaultNextID: n.DefaultNextID,
		}
		for _, o := range n.Options {
			node.Options = append(node.Options, domain.Option{
				Value:       o.Value,
				Label:       o.Label,
				NextNodeID:  o.NextNodeID,
				ScoreImpact: o.ScoreImpact,
			})
		}
		if n.Trigger != nil {
			node.Trigger = &domain.ActionTrigger{
				Type:      n.Trigger.Type,
				Condition: n.Trigger.Condition,
				Message:   n.Trigger.Message,
			}
		}
		script.Nodes = append(script.Nodes, node)
	}
	return script
}
