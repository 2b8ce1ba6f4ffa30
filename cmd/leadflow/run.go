package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/velora/leadflow/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <script-id>",
	Short: "Run a qualification script interactively",
	Long:  `Starts an interactive call session on the terminal: questions are asked one at a time, answers are scored live, and the final recommendation is printed at the end.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		scriptsDir, _ := cmd.Flags().GetString("scripts")
		logLevel, _ := cmd.Flags().GetString("log-level")
		scriptID, _ := cmd.Flags().GetString("script")
		if scriptID == "" && len(args) > 0 {
			scriptID = args[0]
		}
		leadID, _ := cmd.Flags().GetString("lead")
		userID, _ := cmd.Flags().GetString("user")
		plain, _ := cmd.Flags().GetBool("plain")

		err := cli.Execute(cli.RunOptions{
			ScriptsDir: scriptsDir,
			ScriptID:   scriptID,
			LeadID:     leadID,
			UserID:     userID,
			Plain:      plain,
			Debug:      logLevel == "debug",
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("script", "", "Script id to run (also accepted as positional arg)")
	runCmd.Flags().String("lead", "", "Lead id being qualified")
	runCmd.Flags().String("user", "", "Caller id running the script")
	runCmd.Flags().Bool("plain", false, "Disable markdown rendering")
}
