// Package main provides the entry point for the Recipe Remix web service
package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	airemix "github.com/alchemorsel/recipe-remix/internal/application/ai"
	"github.com/alchemorsel/recipe-remix/internal/application/page"
	recipeapp "github.com/alchemorsel/recipe-remix/internal/application/recipe"
	"github.com/alchemorsel/recipe-remix/internal/infrastructure/ai/openai"
	"github.com/alchemorsel/recipe-remix/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-remix/internal/infrastructure/http/webserver"
	"github.com/alchemorsel/recipe-remix/internal/infrastructure/mealdb"
	"github.com/alchemorsel/recipe-remix/internal/infrastructure/monitoring"
	"github.com/alchemorsel/recipe-remix/internal/ports/inbound"
	"github.com/alchemorsel/recipe-remix/internal/ports/outbound"
	"github.com/alchemorsel/recipe-remix/pkg/healthcheck"
	"github.com/alchemorsel/recipe-remix/pkg/logger"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// configFileEnv names an explicit configuration file
const configFileEnv = "REMIX_CONFIG_FILE"

func main() {
	_ = godotenv.Load()

	app := fx.New(
		fx.WithLogger(newFxLogger),

		// Configuration
		fx.Provide(func() (*config.Config, error) {
			return config.Load(os.Getenv(configFileEnv))
		}),

		// Logger
		fx.Provide(func(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
			return logger.NewWithLevel(logger.Config{
				Level:       cfg.App.LogLevel,
				Format:      cfg.App.LogFormat,
				Development: cfg.App.Debug,
			})
		}),

		// Observability
		fx.Provide(monitoring.NewMetricsCollector),
		fx.Provide(newTelemetry),

		// Upstream adapters
		fx.Provide(newRecipeSource),
		fx.Provide(newChatCompleter),

		// Application
		fx.Provide(newFetcher),
		fx.Provide(airemix.NewRemixer),
		fx.Provide(func(f *recipeapp.Fetcher, r *airemix.Remixer, m *monitoring.MetricsCollector, t *monitoring.Telemetry) inbound.PageService {
			return page.NewController(f, r, m, t)
		}),

		// Web
		fx.Provide(func(cfg *config.Config, m *monitoring.MetricsCollector, log *zap.Logger) *webserver.SessionStore {
			return webserver.NewSessionStore(cfg.Session, m, log)
		}),
		fx.Provide(newHealthCheck),
		fx.Provide(webserver.NewWebServer),

		// Lifecycle
		fx.Invoke(watchConfig),
		fx.Invoke(registerLifecycleHooks),
	)

	app.Run()
}

// newFxLogger shows dependency injection events in development only
func newFxLogger(cfg *config.Config, log *zap.Logger) fxevent.Logger {
	if cfg.IsDevelopment() {
		return &fxevent.ZapLogger{Logger: log.Named("fx")}
	}
	return fxevent.NopLogger
}

func newTelemetry(lc fx.Lifecycle, cfg *config.Config, m *monitoring.MetricsCollector, log *zap.Logger) (*monitoring.Telemetry, error) {
	telemetry, err := monitoring.NewTelemetry(monitoring.TelemetryConfig{
		ServiceName:       cfg.App.Name,
		ServiceVersion:    cfg.App.Version,
		Environment:       cfg.App.Environment,
		TracingEnabled:    cfg.Monitoring.EnableTracing,
		Exporter:          cfg.Monitoring.TraceExporter,
		OTLPEndpoint:      cfg.Monitoring.OTLPEndpoint,
		OTLPInsecure:      cfg.Monitoring.OTLPInsecure,
		JaegerEndpoint:    cfg.Monitoring.JaegerEndpoint,
		SamplingRate:      cfg.Monitoring.SamplingRate,
		MetricsRegisterer: m.Registry(),
	}, log)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: telemetry.Shutdown,
	})
	return telemetry, nil
}

func newRecipeSource(cfg *config.Config, t *monitoring.Telemetry, m *monitoring.MetricsCollector, log *zap.Logger) *mealdb.Client {
	httpClient := t.HTTPClient(&http.Client{Timeout: cfg.MealDB.Timeout})
	return mealdb.NewClient(cfg.MealDB.BaseURL, httpClient, m, log)
}

// newChatCompleter returns a nil completer when remixing is disabled
func newChatCompleter(cfg *config.Config, t *monitoring.Telemetry, m *monitoring.MetricsCollector, log *zap.Logger) outbound.ChatCompleter {
	if !cfg.AI.Enabled {
		log.Info("Recipe remixing disabled")
		return nil
	}
	httpClient := t.HTTPClient(&http.Client{Timeout: cfg.AI.Timeout})
	return openai.NewClient(openai.Config{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
	}, httpClient, m, log)
}

func newFetcher(source *mealdb.Client, log *zap.Logger) *recipeapp.Fetcher {
	return recipeapp.NewFetcher(source, log)
}

func newHealthCheck(cfg *config.Config, source *mealdb.Client, remixer *airemix.Remixer, log *zap.Logger) *healthcheck.HealthCheck {
	hc := healthcheck.New(cfg.App.Version, log)
	hc.SetCacheTTL(cfg.Monitoring.HealthCacheTTL)

	hc.Register("mealdb", healthcheck.NewExternalServiceChecker(
		"mealdb", source.HealthURL(), &http.Client{}, cfg.MealDB.Timeout,
	))
	hc.Register("remix", healthcheck.NewCustomChecker("remix", func(ctx context.Context) (healthcheck.Status, string, interface{}) {
		meta := map[string]interface{}{
			"enabled":  remixer.Enabled(),
			"provider": cfg.AI.Provider,
			"model":    cfg.AI.Model,
		}
		if !remixer.Enabled() {
			return healthcheck.StatusHealthy, "Recipe remixing disabled", meta
		}
		return healthcheck.StatusHealthy, "Chat completion provider configured", meta
	}))
	return hc
}

// watchConfig applies log level changes from the configuration file at runtime
func watchConfig(cfg *config.Config, level zap.AtomicLevel, log *zap.Logger) {
	err := config.Watch(os.Getenv(configFileEnv), log, func(updated *config.Config) {
		next := logger.ParseLevel(updated.App.LogLevel)
		if next != level.Level() {
			log.Info("Changing log level",
				zap.String("from", level.Level().String()),
				zap.String("to", next.String()),
			)
			level.SetLevel(next)
		}
	})
	if err != nil && !errors.Is(err, config.ErrNoConfigFile) {
		log.Warn("Configuration hot reload unavailable", zap.Error(err))
	}
}

func registerLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	server *webserver.WebServer,
	sessions *webserver.SessionStore,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting Recipe Remix",
				zap.String("address", cfg.Address()),
				zap.String("environment", cfg.App.Environment),
				zap.Bool("remix_enabled", cfg.AI.Enabled),
			)
			sessions.Start()
			return server.Start()
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			err := server.Shutdown(shutdownCtx)
			return errors.Join(err, sessions.Stop(shutdownCtx))
		},
	})
}
