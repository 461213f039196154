// Command ingest is the Courtline data ingestion CLI.
//
// Usage:
//
//	courtline-ingest update run
//	courtline-ingest update run --all --once
//	courtline-ingest migrate csv --file "Player Per Game.csv"
//	courtline-ingest verify --player "LeBron James"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/courtline/courtline-data/internal/config"
	"github.com/courtline/courtline-data/internal/db"
	"github.com/courtline/courtline-data/internal/nba"
	"github.com/courtline/courtline-data/internal/pace"
	"github.com/courtline/courtline-data/internal/pipeline"
	"github.com/courtline/courtline-data/internal/progress"
	"github.com/courtline/courtline-data/internal/reconcile"
	"github.com/courtline/courtline-data/internal/snapshot"
	"github.com/courtline/courtline-data/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "courtline-ingest",
		Short: "Courtline data ingestion CLI",
	}

	root.AddCommand(updateCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(verifyCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// update command
// --------------------------------------------------------------------------

func updateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Incrementally refresh players from the remote stats source",
	}
	cmd.AddCommand(updateRunCmd())
	cmd.AddCommand(updateResetCmd())
	return cmd
}

func updateRunCmd() *cobra.Command {
	var (
		all  bool
		once bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the incremental update loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithStore(func(ctx context.Context, cfg *config.Config, st store.Store) error {
				client := nba.NewClient(cfg.StatsBaseURL, cfg.RequestsPerMinute,
					cfg.RequestTimeout, cfg.MaxRetries, logger)

				updater := &pipeline.Updater{
					Fetcher:  client,
					Store:    st,
					Progress: progress.NewStore(cfg.ProgressFile),
					Governor: pace.New(pace.Config{
						MaxRequests:   cfg.PaceMaxRequests,
						ResetInterval: time.Duration(cfg.PaceResetSeconds) * time.Second,
						DailyLimit:    cfg.DailyLimit,
						PacingDelay:   1200 * time.Millisecond,
					}),
					Logger:     logger,
					ActiveOnly: !all,
				}

				run := func(ctx context.Context) error {
					start := time.Now()
					result, err := updater.Run(ctx)
					logger.Info("update pass finished",
						"duration", time.Since(start).Round(time.Second),
						"summary", result.Summary())
					for _, e := range result.Errors {
						logger.Error("update error", "error", e)
					}
					return err
				}

				if once {
					return run(ctx)
				}
				return pipeline.Supervise(ctx, cfg.UpdateCooldown, logger, run)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include inactive players")
	cmd.Flags().BoolVar(&once, "once", false, "Single pass, no supervisor restarts")
	return cmd
}

func updateResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the saved update cursor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := progress.NewStore(cfg.ProgressFile).Reset(); err != nil {
				return err
			}
			logger.Info("progress reset", "file", cfg.ProgressFile)
			return nil
		},
	}
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bulk-load data from downloaded snapshots",
	}
	cmd.AddCommand(migrateCSVCmd())
	return cmd
}

func migrateCSVCmd() *cobra.Command {
	var (
		file   string
		league string
		cutoff int
	)
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Reconcile and load a per-game CSV snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			return runWithStore(func(ctx context.Context, cfg *config.Config, st store.Store) error {
				logger.Info("loading snapshot", "file", file)
				rows, err := snapshot.Load(file, snapshot.Options{League: league})
				if err != nil {
					return err
				}
				logger.Info("snapshot loaded", "rows", len(rows))

				start := time.Now()
				result := pipeline.Migrate(ctx, st, rows, reconcile.Options{
					CurrentSeasonCutoff: cutoff,
					Overrides:           reconcile.DefaultOverrides,
					Logger:              logger,
				}, logger)
				logger.Info("migration finished",
					"duration", time.Since(start).Round(time.Second),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("migration error", "error", e)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Snapshot CSV path")
	cmd.Flags().StringVar(&league, "league", "NBA", "League filter (empty = all)")
	cmd.Flags().IntVar(&cutoff, "cutoff", config.CurrentSeasonCutoff, "Current-season window for identity merges")
	return cmd
}

// --------------------------------------------------------------------------
// verify command
// --------------------------------------------------------------------------

func verifyCmd() *cobra.Command {
	var player string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check store integrity counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithStore(func(ctx context.Context, cfg *config.Config, st store.Store) error {
				return pipeline.Verify(ctx, st, player, logger)
			})
		},
	}
	cmd.Flags().StringVar(&player, "player", "", "Also print this player's career line")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runWithStore handles config loading, DB connection, schema bootstrap, and
// context cancellation. A clean interrupt exits 0 with progress durable.
func runWithStore(fn func(ctx context.Context, cfg *config.Config, st store.Store) error) error {
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
	if err := pool.EnsureSchema(ctx); err != nil {
		pool.Close()
		return err
	}

	st := store.NewPostgres(pool)
	defer st.Close()

	if err := fn(ctx, cfg, st); err != nil {
		if ctx.Err() != nil {
			logger.Info("interrupted, shutting down cleanly")
			return nil
		}
		return err
	}
	return nil
}
