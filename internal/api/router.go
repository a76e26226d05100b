// Package api provides the HTTP API of the rice advisor.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/riceadvisor/riceadvisor/internal/api/handler"
	"github.com/riceadvisor/riceadvisor/internal/api/middleware"
	"github.com/riceadvisor/riceadvisor/internal/api/response"
	"github.com/riceadvisor/riceadvisor/internal/auth"
	"github.com/riceadvisor/riceadvisor/internal/yield"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	ServiceName string
	Logger      zerolog.Logger
	Metrics     *middleware.Metrics

	// RequireTLS rejects plain HTTP requests forwarded by the load balancer.
	RequireTLS bool

	// Tokens validates operator bearer tokens for /v1/ops/status and /v1/admin.
	Tokens middleware.TokenValidator

	Engine       *yield.Engine
	Assessments  handler.Assessor
	History      handler.HistoryReader
	Chat         handler.Chatter
	FeatureFlags handler.FlagStore
	Ops          handler.OpsConfig

	// Now overrides the clock of the prediction and timeline handlers.
	Now func() time.Time
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "riceadvisor-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.Method+" "+r.URL.Path)
	})

	cfg.Ops.Version = cfg.Version
	cfg.Ops.BuildTime = cfg.BuildTime

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Ops)
	assessmentHandler := handler.NewAssessmentHandler(cfg.Assessments, cfg.Logger)
	predictionHandler := handler.NewPredictionHandler(cfg.Engine, cfg.Now)
	timelineHandler := handler.NewTimelineHandler(cfg.Now)
	historyHandler := handler.NewHistoryHandler(cfg.History, cfg.Logger)
	chatHandler := handler.NewChatHandler(cfg.Chat, cfg.Logger)
	metadataHandler := handler.NewMetadataHandler(cfg.Engine.Tables())
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlags, cfg.Logger)

	operatorAuth := middleware.Auth(cfg.Tokens, auth.RoleOperator)
	adminAuth := middleware.Auth(cfg.Tokens, auth.RoleAdmin)

	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	chatRateLimit := middleware.RateLimitByIP(middleware.ChatRateLimit)           // 20 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireJSON)

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(operatorAuth).Get("/status", opsHandler.SystemStatus)
		})

		// Full form submission calls the advisory backend
		r.With(expensiveRateLimit).Post("/assessments", assessmentHandler.CreateAssessment)

		// Local computations
		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Post("/predictions", predictionHandler.CreatePrediction)
			r.Post("/timeline", timelineHandler.ComputeTimeline)
			r.Get("/metadata/options", metadataHandler.GetOptions)
		})

		r.Route("/history", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", historyHandler.ListHistory)
			r.Get("/export", historyHandler.ExportHistory)
		})

		r.Route("/chat/sessions", func(r chi.Router) {
			r.Use(chatRateLimit)
			r.Post("/", chatHandler.CreateSession)
			r.Post("/{sessionId}/messages", chatHandler.SendMessage)
		})

		// Admin endpoints (authenticated) - for internal operations
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminAuth)
			r.Use(middleware.RateLimitByOperator(middleware.StandardRateLimit))

			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
			})
		})
	})

	return r
}
