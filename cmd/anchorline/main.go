// Command anchorline is the betting-data CLI: odds and score ingestion,
// prediction grading, and the operational HTTP server.
//
// Usage:
//
//	anchorline ingest --sport NBA
//	anchorline ingest --sport NFL --workers 8
//	anchorline grade --limit 200
//	anchorline ops
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/oddsmith/anchorline/internal/config"
	"github.com/oddsmith/anchorline/internal/db"
	"github.com/oddsmith/anchorline/internal/grading"
	"github.com/oddsmith/anchorline/internal/identity"
	"github.com/oddsmith/anchorline/internal/ingest"
	"github.com/oddsmith/anchorline/internal/ops"
	"github.com/oddsmith/anchorline/internal/provider/espn"
	"github.com/oddsmith/anchorline/internal/provider/oddsapi"
	"github.com/oddsmith/anchorline/internal/retry"
	"github.com/oddsmith/anchorline/internal/trace"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "anchorline",
		Short: "Betting data ingestion and grading CLI",
	}

	root.AddCommand(ingestCmd())
	root.AddCommand(gradeCmd())
	root.AddCommand(opsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// ingest command
// --------------------------------------------------------------------------

func ingestCmd() *cobra.Command {
	var sport string
	var workers int
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one odds and score ingestion cycle for a sport",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				if cfg.OddsAPIKey == "" {
					return fmt.Errorf("ODDS_API_KEY is required")
				}
				if workers == 0 {
					workers = cfg.Workers
				}

				source := oddsapi.NewClient(cfg.OddsAPIBaseURL, cfg.OddsAPIKey, cfg.ProviderRequestsMin, cfg.RequestTimeout, logger)
				resolver := identity.NewResolver(identity.NewPGStore(pool.Pool), cfg.CommenceTolerance)
				states := ingest.NewStateStore(pool.Pool)
				tracer := trace.NewPGRecorder(pool.Pool)
				policy := retry.New(cfg.RetryMaxAttempts, cfg.RetryBaseDelay, cfg.RetryMaxDelay)

				runner := ingest.NewRunner(source, resolver, states, tracer, policy, workers, logger)

				start := time.Now()
				result := runner.Run(ctx, sport)
				logger.Info("Ingest finished",
					"sport", sport,
					"duration", time.Since(start).Round(time.Second),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("ingest error", "error", e)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sport, "sport", "NBA", "Sport (NBA, NFL, NHL, SOCCER)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent worker count (0 = config default)")
	return cmd
}

// --------------------------------------------------------------------------
// grade command
// --------------------------------------------------------------------------

func gradeCmd() *cobra.Command {
	var limit, workers int
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade pending predictions against final-score evidence",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				if cfg.OddsAPIKey == "" {
					return fmt.Errorf("ODDS_API_KEY is required")
				}
				if limit == 0 {
					limit = cfg.GradingBatchLimit
				}
				if workers == 0 {
					workers = cfg.Workers
				}

				primary := oddsapi.NewClient(cfg.OddsAPIBaseURL, cfg.OddsAPIKey, cfg.ProviderRequestsMin, cfg.RequestTimeout, logger)
				secondary := espn.NewClient(cfg.ESPNBaseURL, cfg.ProviderRequestsMin, cfg.RequestTimeout, logger)
				states := ingest.NewStateStore(pool.Pool)
				policy := retry.New(cfg.RetryMaxAttempts, cfg.RetryBaseDelay, cfg.RetryMaxDelay)
				cascade := grading.NewCascade(primary, secondary, states, policy, logger)

				engine := grading.NewEngine(
					grading.NewPGPredictionStore(pool.Pool),
					identity.NewPGStore(pool.Pool),
					cascade,
					trace.NewPGRecorder(pool.Pool),
					cfg.StaleAfter, limit, workers, logger,
				)

				start := time.Now()
				result := engine.Run(ctx)
				logger.Info("Grading finished",
					"duration", time.Since(start).Round(time.Second),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("grading error", "error", e)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum picks per run (0 = config default)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent worker count (0 = config default)")
	return cmd
}

// --------------------------------------------------------------------------
// ops command
// --------------------------------------------------------------------------

func opsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "Serve health probes and Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				router := ops.NewRouter(pool, cfg)

				addr := fmt.Sprintf("%s:%d", cfg.OpsHost, cfg.OpsPort)
				srv := &http.Server{
					Addr:         addr,
					Handler:      router,
					ReadTimeout:  10 * time.Second,
					WriteTimeout: 30 * time.Second,
					IdleTimeout:  60 * time.Second,
				}

				errCh := make(chan error, 1)
				go func() {
					logger.Info("Starting ops server", "addr", addr, "environment", cfg.Environment)
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						errCh <- err
					}
				}()

				select {
				case err := <-errCh:
					return err
				case <-ctx.Done():
				}

				logger.Info("Shutting down...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		},
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runWithDB handles config loading, DB connection, and context cancellation.
func runWithDB(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
