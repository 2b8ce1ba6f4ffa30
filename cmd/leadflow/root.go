package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "leadflow",
	Short: "Leadflow is a script-driven lead qualification engine",
	Long:  `Leadflow runs branching qualification scripts during sales calls, scores the answers live, and tracks what happens to each lead after the appointment.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("scripts", "scripts", "Directory containing the script YAML files")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
}
