package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/velora/leadflow"
	"github.com/velora/leadflow/internal/logging"
	"github.com/velora/leadflow/pkg/adapters/memory"
	mcpAdapter "github.com/velora/leadflow/pkg/adapters/mcp"
	"github.com/velora/leadflow/pkg/adapters/scriptfile"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the qualification engine as an MCP Server over stdio.
This allows AI agents to run qualification scripts and record appointment outcomes as tools.`,
	Run: func(cmd *cobra.Command, args []string) {
		scriptsDir, _ := cmd.Flags().GetString("scripts")

		// Logs go to Stderr so they don't corrupt JSON-RPC on Stdout.
		logger := logging.New(slog.LevelDebug)
		log.SetOutput(os.Stderr)

		store := memory.NewStore()
		engine := leadflow.New(leadflow.Stores{
			Scripts:    scriptfile.NewLoader(scriptsDir),
			Executions: store,
			Leads:      store,
			Activity:   store,
		}, leadflow.WithLogger(logger))
		defer engine.Close()

		srv := mcpAdapter.NewServer(engine)

		logger.Info("starting leadflow MCP server (stdio)")
		if err := srv.ServeStdio(); err != nil {
			logger.Error("MCP server execution failed", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
