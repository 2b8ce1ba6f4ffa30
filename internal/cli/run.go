// Package cli implements the interactive call session behind the run command.
package cli

import (
	"fmt"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	ScriptsDir string
	ScriptID   string
	LeadID     string
	UserID     string
	Plain      bool // disable markdown rendering
	Debug      bool
}

// Execute handles the 'run' command logic.
func Execute(opts RunOptions) error {
	if opts.ScriptID == "" {
		return fmt.Errorf("a script id is required")
	}
	if opts.LeadID == "" {
		opts.LeadID = "adhoc"
	}
	return RunSession(opts)
}
