package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/config"
	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/domain/crossref"
	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/domain/rxnorm"
	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/platform/auth"
	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/platform/db"
	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/platform/metrics"
	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/platform/middleware"
	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/platform/rxnav"
	"github.com/rodaquino-OMNI/omni-emr-v2-sub004/internal/platform/scheduler"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "emr-server",
		Short: "Medication reference API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(cacheCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the medication API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			_, pool, err := connect()
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(context.Background())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			_, pool, err := connect()
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Resynchronize medications against the vocabulary source",
	}

	popularCmd := &cobra.Command{
		Use:   "popular",
		Short: "Sync the most-prescribed medications",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, pool, err := connect()
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := newLogger(cfg)
			_, syncer, _ := buildServices(cfg, pool, logger)

			result, err := syncer.SyncFrequentlyUsed(context.Background(), limit)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	popularCmd.Flags().Int("limit", 100, "Number of most-prescribed medications to sync")
	cmd.AddCommand(popularCmd)

	specificCmd := &cobra.Command{
		Use:   "specific [code...]",
		Short: "Sync an explicit list of vocabulary codes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pool, err := connect()
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := newLogger(cfg)
			_, syncer, _ := buildServices(cfg, pool, logger)

			items := make([]rxnorm.SyncItem, 0, len(args))
			for _, code := range args {
				items = append(items, rxnorm.SyncItem{Code: code})
			}

			result, err := syncer.SyncSpecific(context.Background(), items)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.AddCommand(specificCmd)

	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the medication caches",
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete cache rows older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("retention-days")

			cfg, pool, err := connect()
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := newLogger(cfg)
			_, _, janitor := buildServices(cfg, pool, logger)

			results := janitor.ClearExpired(context.Background(), days)
			return printJSON(results)
		},
	}
	clearCmd.Flags().Int("retention-days", rxnorm.DefaultRetentionDays, "Retention window in days")
	cmd.AddCommand(clearCmd)

	return cmd
}

func connect() (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

// buildServices wires the vocabulary client, repositories, and the three
// orchestration entry points against one pool.
func buildServices(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*rxnorm.Service, *rxnorm.Syncer, *rxnorm.Janitor) {
	vocab := rxnav.NewClient(cfg.RxNavBaseURL, cfg.RxNavTimeout(), logger)

	searches := rxnorm.NewSearchCacheRepoPG(pool)
	details := rxnorm.NewDetailsCacheRepoPG(pool)
	ndcs := rxnorm.NewNDCCacheRepoPG(pool)
	displayTerms := rxnorm.NewDisplayTermsCacheRepoPG(pool)
	interactions := rxnorm.NewInteractionCacheRepoPG(pool)
	concepts := rxnorm.NewConceptRepoPG(pool)

	svc := rxnorm.NewService(concepts, searches, details, ndcs, displayTerms, interactions, vocab, logger)
	syncer := rxnorm.NewSyncer(
		svc,
		concepts,
		rxnorm.NewFrequentMedicationSourcePG(pool),
		rxnorm.NewSyncLogRepoPG(pool),
		cfg.SyncConcurrency,
		logger,
	)
	janitor := rxnorm.NewJanitor(searches, details, ndcs, displayTerms, interactions, logger)
	return svc, syncer, janitor
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	svc, syncer, janitor := buildServices(cfg, pool, logger)
	syncLog := rxnorm.NewSyncLogRepoPG(pool)
	medsHandler := rxnorm.NewHandler(svc, syncer, janitor, syncLog)

	crossrefSvc := crossref.NewService(crossref.NewRepoPG(pool), logger)
	crossrefHandler := crossref.NewHandler(crossrefSvc)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(auth.AuthSkipper))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
			Skipper:  auth.AuthSkipper,
		}))
	}

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// API group with rate limiting
	apiV1 := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	medsHandler.RegisterRoutes(apiV1)
	crossrefHandler.RegisterRoutes(apiV1)

	// Operational surface
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// Optional in-process scheduler
	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		sched = scheduler.New(logger)
		err := sched.Start(cfg.SchedulerTimes,
			func(ctx context.Context) error {
				_, err := syncer.SyncFrequentlyUsed(ctx, cfg.SyncDefaultLimit)
				return err
			},
			func(ctx context.Context) {
				janitor.ClearExpired(ctx, cfg.CacheRetentionDays)
			},
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to start scheduler")
		}
	}

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
