package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/velora/leadflow"
	"github.com/velora/leadflow/internal/logging"
	httpAdapter "github.com/velora/leadflow/pkg/adapters/http"
	"github.com/velora/leadflow/pkg/adapters/memory"
	redisAdapter "github.com/velora/leadflow/pkg/adapters/redis"
	"github.com/velora/leadflow/pkg/adapters/scriptfile"
	sqliteAdapter "github.com/velora/leadflow/pkg/adapters/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stateless HTTP server",
	Long:  `Starts the qualification engine in server mode, exposing a JSON API over HTTP. The backing store is in-memory by default; use --redis or --db for persistence.`,
	Run: func(cmd *cobra.Command, args []string) {
		scriptsDir, _ := cmd.Flags().GetString("scripts")
		logLevel, _ := cmd.Flags().GetString("log-level")
		port, _ := cmd.Flags().GetString("port")
		redisAddr, _ := cmd.Flags().GetString("redis")
		dbPath, _ := cmd.Flags().GetString("db")

		logger := logging.New(logging.ParseLevel(logLevel))

		engine, err := buildEngine(scriptsDir, redisAddr, dbPath, logger)
		if err != nil {
			fmt.Printf("Error initializing leadflow: %v\n", err)
			os.Exit(1)
		}
		defer engine.Close()

		if _, err := httpAdapter.LoadSpec(context.Background()); err != nil {
			fmt.Printf("Invalid embedded OpenAPI spec: %v\n", err)
			os.Exit(1)
		}

		handler := httpAdapter.NewHandler(engine, logger)

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Leadflow Server on %s\n", srv.Addr)
			fmt.Printf("Serving scripts from: %s\n", scriptsDir)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			// Error when starting HTTP server.
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Leadflow Server stopped gracefully")
		}
	},
}

// buildEngine assembles the core over the store backend selected by flags.
func buildEngine(scriptsDir, redisAddr, dbPath string, logger *slog.Logger) (*leadflow.Engine, error) {
	stores := leadflow.Stores{
		Scripts: scriptfile.NewLoader(scriptsDir),
	}
	opts := []leadflow.Option{
		leadflow.WithLogger(logger),
		leadflow.WithMetrics(prometheus.DefaultRegisterer),
	}

	switch {
	case redisAddr != "" && dbPath != "":
		return nil, fmt.Errorf("--redis and --db cannot be used together")

	case redisAddr != "":
		client := goredis.NewClient(&goredis.Options{Addr: redisAddr})
		store := redisAdapter.NewFromClient(client)
		stores.Executions = store
		stores.Leads = store
		stores.Activity = store
		opts = append(opts, leadflow.WithLocker(redisAdapter.NewLocker(client, "leadflow:")))
		logger.Info("using redis store", "addr", redisAddr)

	case dbPath != "":
		store, err := sqliteAdapter.Open(dbPath)
		if err != nil {
			return nil, err
		}
		stores.Executions = store
		stores.Leads = store
		stores.Activity = store
		logger.Info("using sqlite store", "path", dbPath)

	default:
		store := memory.NewStore()
		stores.Executions = store
		stores.Leads = store
		stores.Activity = store
		logger.Info("using in-memory store")
	}

	opts = append(opts, leadflow.WithScoreRefresh(func(ctx context.Context, leadID string) error {
		lead, err := stores.Leads.GetLead(ctx, leadID)
		if err != nil {
			return err
		}
		logger.Info("lead projection refreshed",
			"lead_id", lead.ID, "status", lead.Status, "relance_count", lead.RelanceCount)
		return nil
	}))

	return leadflow.New(stores, opts...), nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for shared persistence (e.g. localhost:6379)")
	serveCmd.Flags().String("db", "", "SQLite database path for local persistence")
}
