// Command server runs the bottom-up quantification HTTP service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openlmis/buq/config"
	"github.com/openlmis/buq/internal/api"
	"github.com/openlmis/buq/internal/audit"
	"github.com/openlmis/buq/internal/health"
	"github.com/openlmis/buq/internal/observability"
	"github.com/openlmis/buq/internal/referencedata"
	"github.com/openlmis/buq/internal/security"
	"github.com/openlmis/buq/internal/service"
	"github.com/openlmis/buq/internal/store/postgres"
)

var (
	// Build-time variables (set via ldflags)
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "buq-server",
		Short: "Bottom-Up Quantification Service",
		Long:  "Backend service for preparing, saving and approving bottom-up quantifications of health commodity needs.",
		RunE:  runServer,
	}
	rootCmd.Flags().StringP("config", "c", "", "Path to configuration file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("BUQ Server\n")
			fmt.Printf("Version: %s\n", version)
			fmt.Printf("Commit: %s\n", commit)
			fmt.Printf("Build Time: %s\n", buildTime)
		},
	}
	rootCmd.AddCommand(versionCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE:  runMigrations,
	}
	migrateCmd.Flags().StringP("config", "c", "", "Path to configuration file")
	rootCmd.AddCommand(migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Close()

	logger := app.obs.Logger()
	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_time", buildTime).
		Msg("starting buq server")

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      app.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverChan := make(chan error, 1)
	go func() {
		logger.Info().Str("address", cfg.GetServerAddress()).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverChan <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverChan:
		return err
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
		return err
	}

	logger.Info().Msg("server shutdown completed")
	return nil
}

func runMigrations(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := postgres.NewStore(cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	migrator := postgres.NewMigrator(store.GetPool())
	if err := migrator.Run(context.Background()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println("Database migrations completed successfully")
	return nil
}

// Application holds the wired components of the service.
type Application struct {
	cfg           *config.Config
	store         *postgres.Store
	refData       *referencedata.HTTPClient
	rateLimiter   *security.RateLimiter
	healthChecker *health.Checker
	router        *api.Router
	obs           *observability.Manager
}

func NewApplication(cfg *config.Config) (*Application, error) {
	obs, err := observability.NewManager(cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	logger := obs.Logger()

	app := &Application{cfg: cfg, obs: obs}

	logger.Info().Msg("initializing postgres connection")
	store, err := postgres.NewStore(cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	app.store = store

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if cfg.Database.MigrateOnStart {
		logger.Info().Msg("running database migrations")
		migrator := postgres.NewMigrator(store.GetPool())
		if err := migrator.Run(ctx); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}

	refData := referencedata.NewHTTPClient(cfg.ReferenceData)
	app.refData = refData

	remarkRepo := postgres.NewRemarkRepository(store)
	buqRepo := postgres.NewBottomUpQuantificationRepository(store)
	auditRepo := postgres.NewAuditLogRepository(store)

	validator := service.NewValidator()
	sanitizer := security.NewSanitizer()
	auditor := audit.NewRecorder(auditRepo)
	builder := service.NewDtoBuilder(refData, remarkRepo, logger)

	remarkService := service.NewRemarkService(remarkRepo, validator, sanitizer, auditor, obs)
	buqService := service.NewBottomUpQuantificationService(
		buqRepo, auditRepo, refData, store, builder, validator, sanitizer, auditor, obs)

	rateLimiter := security.NewRateLimiter(cfg.Security.RateLimit)
	app.rateLimiter = rateLimiter

	healthChecker := health.NewChecker(5 * time.Second)
	healthChecker.RegisterComponent("database", health.DatabaseCheck(store))
	healthChecker.RegisterComponent("reference-data", health.ReferenceDataCheck(refData))
	healthChecker.StartPeriodicChecks(context.Background(), 30*time.Second)
	app.healthChecker = healthChecker

	app.router = api.NewRouter(remarkService, buqService, healthChecker, rateLimiter, obs, cfg.Server.RequestTimeout)

	logger.Info().Msg("application initialization completed")
	return app, nil
}

func (app *Application) Handler() http.Handler {
	return app.router.SetupRoutes()
}

func (app *Application) Close() error {
	logger := app.obs.Logger()

	if app.rateLimiter != nil {
		app.rateLimiter.Stop()
	}
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close postgres store")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.obs.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to shut down observability: %v\n", err)
		return err
	}
	return nil
}
