package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/astrostocks/internal/api"
	"github.com/wonny/astrostocks/internal/api/handlers"
	"github.com/wonny/astrostocks/internal/scheduler"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                   - Health check
  POST /api/analyze              - Basic sector analysis
  POST /api/analyze/enhanced     - Sector analysis with stock signals
  GET  /api/predict              - Date-keyed market prediction
  GET  /api/transits             - Planetary transits for a date
  GET  /api/sectors/predictions  - Live sector predictions
  GET  /api/sectors/archive      - Archived sector predictions
  GET  /api/market/stocks        - Cached market data
  GET  /api/cache/stats          - Cache statistics
  POST /api/cache/cleanup        - Remove old cache entries
  GET  /ws/analyze               - Streamed analysis progress

Example:
  go run ./cmd/astro api
  go run ./cmd/astro api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "run scheduled jobs in this process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Astrostocks API Server ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	log := a.log
	loc := a.cfg.Location()

	h := api.Handlers{
		Analysis: handlers.NewAnalysisHandler(a.analysis, log),
		Transits: handlers.NewTransitHandler(a.transits, loc, log),
		Sectors:  handlers.NewSectorHandler(a.coordinator.Store(), loc, log),
		Market:   handlers.NewMarketHandler(a.market, a.cfg.Market.TrackedStocks, log),
		Cache:    handlers.NewCacheHandler(a.coordinator, a.market, a.cfg.Analysis.CacheRetentionDays, log),
		Stream:   handlers.NewStreamHandler(a.analysis, a.cfg.AllowedOrigins, log),
		Health:   a.db,
	}

	server := api.New(a.cfg, log, api.NewRouter(h, log, a.tracker))

	var sched *scheduler.Scheduler
	if apiWithScheduler {
		sched = scheduler.New(log, loc)
		if err := registerJobs(sched, a); err != nil {
			return err
		}
		sched.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	if sched != nil {
		fmt.Printf("   Scheduler running %d jobs\n", len(sched.GetAllJobs()))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")

	if sched != nil {
		sched.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
