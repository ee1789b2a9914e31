package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/dukerupert/hhsynth/internal/distribution"
	"github.com/dukerupert/hhsynth/internal/handler"
	"github.com/dukerupert/hhsynth/internal/middleware"
	ws "github.com/dukerupert/hhsynth/internal/websocket"
)

const serviceName = "hhsynth"

// Options carries the dependencies built by main.
type Options struct {
	DB       *sql.DB
	Pipeline handler.BatchGenerator
	Provider distribution.Provider
	// Catalog may be nil when the provider cannot enumerate its data.
	Catalog distribution.Catalog

	// APIKeys is consulted only when RequireAPIKey is set.
	APIKeys       middleware.Authenticator
	RequireAPIKey bool

	RateLimitRPS   float64
	RateLimitBurst int

	DefaultRegion  string
	DefaultPeriod  string
	OriginPatterns []string
}

type Server struct {
	hub            *ws.Hub
	householdH     *handler.HouseholdHandler
	distributionH  *handler.DistributionHandler
	healthH        *handler.HealthHandler
	apiKeys        middleware.Authenticator
	requireAPIKey  bool
	rateLimiter    *middleware.RateLimiter
	originPatterns []string
	logger         *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	return &Server{
		hub:            hub,
		householdH:     handler.NewHouseholdHandler(opts.Pipeline, hub, opts.DefaultRegion, opts.DefaultPeriod, logger.With("component", "household")),
		distributionH:  handler.NewDistributionHandler(opts.Provider, opts.Catalog, logger.With("component", "distribution")),
		healthH:        handler.NewHealthHandler(opts.DB, serviceName),
		apiKeys:        opts.APIKeys,
		requireAPIKey:  opts.RequireAPIKey,
		rateLimiter:    middleware.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		originPatterns: opts.OriginPatterns,
		logger:         logger,
	}
}

// Hub returns the dashboard hub so main can close it on shutdown.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /health", s.healthH.Health)
	mux.HandleFunc("GET /api/v1/health", s.healthH.Health)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket"), s.originPatterns))

	// Generation is the expensive path and is rate limited per client.
	mux.Handle("POST /api/v1/households/generate", s.rateLimited(s.protected(s.householdH.Generate)))
	mux.Handle("GET /api/v1/households/generate/single", s.rateLimited(s.protected(s.householdH.GenerateSingle)))

	mux.Handle("GET /api/v1/patterns/{region}/{period}", s.protected(s.distributionH.Patterns))
	mux.Handle("GET /api/v1/regions", s.protected(s.distributionH.Regions))

	return middleware.RequestLogger(s.logger.With("component", "http"), "/health", "/api/v1/health")(mux)
}

func (s *Server) rateLimited(h http.Handler) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.RealIP)(h)
}

func (s *Server) protected(h http.HandlerFunc) http.Handler {
	if !s.requireAPIKey {
		return h
	}
	return middleware.RequireAPIKey(s.apiKeys, s.logger.With("component", "auth"))(h)
}
