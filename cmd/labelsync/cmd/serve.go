package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/javi11/labelsync/internal/api"
	"github.com/javi11/labelsync/internal/autosync"
	"github.com/javi11/labelsync/internal/config"
	"github.com/javi11/labelsync/internal/reconcile"
	"github.com/javi11/labelsync/internal/slogutil"
)

const shutdownTimeout = 30 * time.Second

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the label sync server",
		Long:  `Start the HTTP API and the periodic Sonarr to Plex label sync.`,
		RunE:  runServe,
	}

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration first (using default logger for config loading errors)
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		slog.Default().Error("failed to load config", "err", err)
		return err
	}

	logger, leveler, redactor := setupLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("Starting label sync with log rotation configured",
		"log_file", cfg.Log.File,
		"log_level", cfg.GetLogLevel(),
		"max_size_mb", cfg.Log.MaxSize,
		"max_age_days", cfg.Log.MaxAge,
		"max_backups", cfg.Log.MaxBackups,
		"compress", cfg.Log.Compress)

	// Create config manager for dynamic configuration updates
	configManager := config.NewManager(cfg, configFile)

	configManager.OnConfigChange(func(oldConfig, newConfig *config.Config) {
		// Secrets first so the lines below are already masked
		redactor.SetSecrets(newConfig.Secrets())

		if oldConfig.GetLogLevel() != newConfig.GetLogLevel() {
			leveler.SetLevel(slogutil.ParseLevel(newConfig.GetLogLevel()))
			logger.Info("Log level updated dynamically",
				"old_level", oldConfig.GetLogLevel(),
				"new_level", newConfig.GetLogLevel())
		}

		// Log changes that still require restart
		if oldConfig.Plex.URL != newConfig.Plex.URL || oldConfig.Plex.Token != newConfig.Plex.Token ||
			oldConfig.Plex.Section != newConfig.Plex.Section {
			logger.Info("Plex connection changed (restart required)", "url", newConfig.Plex.URL)
		}
		if oldConfig.API.Port != newConfig.API.Port {
			logger.Info("API port changed (restart required)",
				"old", oldConfig.API.Port,
				"new", newConfig.API.Port)
		}
	})

	plexClient := setupPlexClient(cfg)
	sonarrService := setupSonarrService(configManager)

	engine := reconcile.NewEngine(plexClient, sonarrService,
		reconcile.WithRedactor(redactor),
		reconcile.WithMaxConcurrency(func() int {
			return configManager.GetConfig().GetMaxConcurrency()
		}),
	)

	// Create context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reloadOnHangup(ctx, configManager, logger)

	if err := waitForServices(ctx, cfg.GetStartupTimeout(), map[string]connectionTester{
		"plex":   plexClient,
		"sonarr": sonarrService,
	}); err != nil {
		// The periodic sync keeps retrying on its own schedule
		logger.Warn("Services not reachable at startup", "error", err)
	}

	worker := autosync.NewWorker(engine, configManager.GetConfigGetter())
	if err := worker.Start(ctx); err != nil {
		logger.Error("Failed to start autosync worker", "error", err)
		return err
	}

	app := createFiberApp(cfg)
	apiServer := api.NewServer(&api.Config{Prefix: cfg.GetAPIPrefix()}, engine, sonarrService, worker,
		api.WithRedactor(redactor))
	apiServer.SetupRoutes(app)

	addr := fmt.Sprintf(":%d", cfg.API.Port)
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "addr", addr, "prefix", cfg.GetAPIPrefix())
		serverErr <- app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("API server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	worker.Stop(shutdownCtx)

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Failed to shut down API server", "error", err)
		return err
	}

	logger.Info("Label sync stopped")
	return nil
}

// reloadOnHangup re-reads the configuration on SIGHUP.
func reloadOnHangup(ctx context.Context, configManager *config.Manager, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := configManager.ReloadConfig(); err != nil {
				logger.Error("Failed to reload configuration", "error", err)
				continue
			}
			logger.Info("Configuration reloaded")
		}
	}
}
