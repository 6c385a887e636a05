package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gofiber/fiber/v2"
	fLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/javi11/labelsync/internal/api"
	"github.com/javi11/labelsync/internal/arrs"
	"github.com/javi11/labelsync/internal/config"
	"github.com/javi11/labelsync/internal/httpclient"
	"github.com/javi11/labelsync/internal/plex"
	"github.com/javi11/labelsync/internal/slogutil"
)

// setupLogger builds the process logger. The returned leveler and redactor
// follow configuration reloads.
func setupLogger(cfg *config.Config) (*slog.Logger, *slogutil.DynamicLeveler, *slogutil.Redactor) {
	leveler := slogutil.NewDynamicLeveler(slogutil.ParseLevel(cfg.GetLogLevel()))
	redactor := slogutil.NewRedactor(cfg.Secrets()...)

	logger := slogutil.SetupLogRotation(cfg.Log, slogutil.Options{
		Level:    leveler,
		Redactor: redactor,
	})
	return logger, leveler, redactor
}

// setupPlexClient creates the Plex client with the configured extra headers
func setupPlexClient(cfg *config.Config) *plex.Client {
	// Keep one idle connection per concurrent series edit
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.GetMaxConcurrency()

	httpClient := httpclient.New(
		httpclient.WithTimeout(httpclient.LongTimeout),
		httpclient.WithTransport(transport),
		httpclient.WithHeaders(cfg.PlexHeaders()),
	)
	return plex.NewClient(cfg.Plex.URL, cfg.Plex.Token, cfg.Plex.Section, httpClient)
}

// setupSonarrService creates the Sonarr service with the configured extra headers
func setupSonarrService(configManager *config.Manager) *arrs.Service {
	cfg := configManager.GetConfig()
	httpClient := httpclient.New(
		httpclient.WithTimeout(httpclient.LongTimeout),
		httpclient.WithHeaders(cfg.SonarrHeaders()),
	)
	return arrs.NewService(configManager.GetConfigGetter(), httpClient)
}

type connectionTester interface {
	TestConnection(ctx context.Context) error
}

// waitForServices retries the Plex and Sonarr connection checks until both
// answer or the timeout runs out.
func waitForServices(ctx context.Context, timeout time.Duration, services map[string]connectionTester) error {
	if timeout <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	for name, svc := range services {
		err := retry.Do(
			func() error {
				return svc.TestConnection(ctx)
			},
			retry.Context(ctx),
			retry.Attempts(0),
			retry.Delay(time.Second),
			retry.MaxDelay(10*time.Second),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				slog.WarnContext(ctx, "Waiting for service", "service", name, "attempt", n+1, "error", err)
			}),
		)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		slog.InfoContext(ctx, "Service reachable", "service", name)
	}

	return errors.Join(errs...)
}

// createFiberApp creates and configures the Fiber application
func createFiberApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          api.ErrorHandler,
	})

	app.Use(recover.New())

	// Fiber request logging - only in debug mode
	if cfg.GetLogLevel() == "debug" {
		app.Use(fLogger.New())
	}

	return app
}
