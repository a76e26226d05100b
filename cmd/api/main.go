// Package main provides the entrypoint for the rice advisor API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/riceadvisor/riceadvisor/internal/advisor"
	"github.com/riceadvisor/riceadvisor/internal/advisor/gemini"
	"github.com/riceadvisor/riceadvisor/internal/advisor/remote"
	"github.com/riceadvisor/riceadvisor/internal/api"
	"github.com/riceadvisor/riceadvisor/internal/api/handler"
	"github.com/riceadvisor/riceadvisor/internal/api/middleware"
	"github.com/riceadvisor/riceadvisor/internal/assessment"
	"github.com/riceadvisor/riceadvisor/internal/auth"
	"github.com/riceadvisor/riceadvisor/internal/config"
	"github.com/riceadvisor/riceadvisor/internal/database"
	"github.com/riceadvisor/riceadvisor/internal/featureflags"
	"github.com/riceadvisor/riceadvisor/internal/history"
	"github.com/riceadvisor/riceadvisor/internal/provider/resilience"
	"github.com/riceadvisor/riceadvisor/internal/telemetry"
	"github.com/riceadvisor/riceadvisor/internal/yield"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "riceadvisor-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting rice advisor API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.JWTSigningKey == config.DefaultJWTSigningKey {
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := middleware.NewMetrics(tp.Meter)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	tables, err := loadTables(cfg.YieldTablesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.YieldTablesPath).Msg("failed to load yield tables")
	}
	engine := yield.NewEngine(tables, yield.DefaultRandomSource())

	var (
		pool        *pgxpool.Pool
		historyRepo history.Repository = history.NewInMemoryRepository()
		flagRepo    featureflags.Repository = featureflags.NewInMemoryRepository()
	)
	if cfg.HistoryStore == config.HistoryStorePostgres {
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")

		pgHistory := history.NewPostgresRepository(pool)
		pgFlags := featureflags.NewPostgresRepository(pool)
		if err := database.EnsureSchemas(ctx, pgHistory, pgFlags); err != nil {
			log.Fatal().Err(err).Msg("failed to create schemas")
		}
		historyRepo, flagRepo = pgHistory, pgFlags
	}

	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: flagRepo,
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})

	historyCfg := history.ServiceConfig{Repository: historyRepo, Logger: log}
	if cfg.PubSub.Enabled() {
		publisher, err := history.NewPubSubPublisher(ctx, history.PubSubPublisherConfig{
			ProjectID: cfg.PubSub.ProjectID,
			Topic:     cfg.PubSub.Topic,
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub publisher")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pubsub publisher")
			}
		}()
		historyCfg.Publisher = publisher
		log.Info().Str("topic", cfg.PubSub.Topic).Msg("history events published to pubsub")
	}
	historyService := history.NewService(historyCfg)

	registry := resilience.NewRegistry()
	predictor, adv, activeSessions, err := newAdvisorBackend(ctx, cfg, registry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create advisor backend")
	}
	advisorService, err := advisor.NewService(advisor.ServiceConfig{
		Predictor: predictor,
		Advisor:   adv,
		Flags:     flags,
		Logger:    log,
		CacheTTL:  cfg.Advisor.CacheTTL,
		Meter:     tp.Meter,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create advisor service")
	}
	log.Info().Str("backend", cfg.Advisor.Backend).Msg("advisor service initialized")

	assessments := assessment.NewService(assessment.ServiceConfig{
		Engine:          engine,
		Advisory:        advisorService,
		History:         historyService,
		Flags:           flags,
		AdvisoryTimeout: cfg.Advisor.Timeout,
		Logger:          log,
	})

	ops := handler.OpsConfig{
		HistoryStore:   cfg.HistoryStore,
		Registry:       registry,
		Flags:          flags,
		CachedModels:   advisorService.CachedModels,
		ActiveSessions: activeSessions,
	}
	if pool != nil {
		ops.Database = pool
	}

	router := api.NewRouter(api.RouterConfig{
		Version:      Version,
		BuildTime:    BuildTime,
		ServiceName:  serviceName,
		Logger:       log,
		Metrics:      metrics,
		RequireTLS:   cfg.IsProduction(),
		Tokens:       auth.NewJWTService(auth.JWTConfig{SigningKey: cfg.JWTSigningKey}),
		Engine:       engine,
		Assessments:  assessments,
		History:      historyService,
		Chat:         advisorService,
		FeatureFlags: flags,
		Ops:          ops,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Advisor.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func loadTables(path string) (*yield.Tables, error) {
	if path == "" {
		return yield.DefaultTables()
	}
	return yield.LoadTables(path)
}

// newAdvisorBackend builds the predictor and advisor for the configured
// backend and registers their circuit breakers with registry. Both are nil
// for the "none" backend.
func newAdvisorBackend(ctx context.Context, cfg config.Config, registry *resilience.Registry, log zerolog.Logger) (advisor.Predictor, advisor.Advisor, func() int, error) {
	if cfg.Advisor.Backend == config.AdvisorBackendNone {
		return nil, nil, nil, nil
	}

	remoteLog := log.With().Str("provider", remote.ProviderName).Logger()
	clientCfg := resilience.DefaultClientConfig(remote.ProviderName)
	clientCfg.Timeout = cfg.Advisor.Timeout
	clientCfg.Registry = registry
	clientCfg.CircuitBreaker.Logger = &remoteLog
	predictor := remote.NewClient(remote.ClientConfig{
		BaseURL:    cfg.Advisor.BaseURL,
		HTTPClient: resilience.NewClient(clientCfg),
		Logger:     remoteLog,
	})

	if cfg.Advisor.Backend == config.AdvisorBackendRemote {
		return predictor, predictor, nil, nil
	}

	gc, err := gemini.NewClient(ctx, gemini.ClientConfig{
		APIKey:    cfg.Gemini.APIKey,
		Model:     cfg.Gemini.Model,
		Predictor: predictor,
		Logger:    log.With().Str("provider", gemini.ProviderName).Logger(),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	registry.Register(gemini.ProviderName, gc)
	return predictor, gc, gc.ActiveSessions, nil
}
