package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/velora/leadflow/internal/validator"
	"github.com/velora/leadflow/pkg/adapters/scriptfile"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Check script graphs for consistency",
	Long:  `Parses script YAML files and reports duplicate ids, broken edges and unreachable nodes. With no arguments, validates every .yaml file in the scripts directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		scriptsDir, _ := cmd.Flags().GetString("scripts")
		if err := runValidate(scriptsDir, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("All scripts are valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(scriptsDir string, args []string) error {
	paths := args
	if len(paths) == 0 {
		matches, err := filepath.Glob(filepath.Join(scriptsDir, "*.yaml"))
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return fmt.Errorf("no script files found in %s", scriptsDir)
		}
		paths = matches
	}

	var failures []string
	for _, path := range paths {
		script, err := scriptfile.LoadFile(path)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		if err := validator.ValidateScript(script); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", path, err))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d files failed:\n%s", len(failures), len(paths), strings.Join(failures, "\n"))
	}
	return nil
}
