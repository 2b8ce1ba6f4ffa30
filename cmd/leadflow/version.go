package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/velora/leadflow"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of leadflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("leadflow version %s\n", strings.TrimSpace(leadflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
