package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/serenity-health/risk-api/internal/analysis"
	"github.com/serenity-health/risk-api/internal/chatbot"
	"github.com/serenity-health/risk-api/internal/conversation"
	httpmiddleware "github.com/serenity-health/risk-api/internal/http/middleware"
	"github.com/serenity-health/risk-api/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AnalysisHandler     *analysis.Handler
	ChatHandler         *chatbot.Handler
	ConversationHandler *conversation.Handler
	MetricsHandler      http.Handler

	AppName    string
	AppVersion string

	CORSAllowedOrigins []string
	RateLimitEnabled   bool
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	HealthCheckEnabled bool

	// Reported on /health.
	ModelLoaded       bool
	DatabaseConnected bool
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitEnabled {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	r.Get("/", rootHandler(cfg))
	if cfg.HealthCheckEnabled {
		r.Get("/health", healthHandler(cfg))
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.AnalysisHandler != nil {
		r.Post("/analyze", cfg.AnalysisHandler.Analyze)
		r.Route("/ml", func(ml chi.Router) {
			ml.Post("/predict", cfg.AnalysisHandler.Predict)
			ml.Get("/model-info", cfg.AnalysisHandler.ModelInfo)
		})
	}

	if cfg.ChatHandler != nil {
		r.Route("/chat", func(chat chi.Router) {
			chat.Post("/message", cfg.ChatHandler.Message)
			chat.Get("/greeting", cfg.ChatHandler.Greeting)
			chat.Get("/crisis-resources", cfg.ChatHandler.CrisisResources)
		})
	}

	if cfg.ConversationHandler != nil {
		r.Route("/conversations", func(convs chi.Router) {
			convs.Post("/", cfg.ConversationHandler.Create)
			convs.Get("/", cfg.ConversationHandler.List)
			convs.Route("/{conversationID}", func(conv chi.Router) {
				conv.Get("/", cfg.ConversationHandler.Get)
				conv.Patch("/", cfg.ConversationHandler.Update)
				conv.Delete("/", cfg.ConversationHandler.Delete)
			})
		})
	}

	return r
}

func rootHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": cfg.AppName,
			"version": cfg.AppVersion,
			"status":  "running",
		})
	}
}

func healthHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":             "healthy",
			"service":            cfg.AppName,
			"version":            cfg.AppVersion,
			"model_loaded":       cfg.ModelLoaded,
			"database_connected": cfg.DatabaseConnected,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
