// Package server wires the HTTP router, middleware and listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"compost-tracker/internal/config"
	"compost-tracker/internal/handler"
	"compost-tracker/internal/pkg/auth"
	"compost-tracker/internal/pkg/metrics"
	"compost-tracker/internal/service"
)

// Dependencies holds everything the HTTP layer needs.
type Dependencies struct {
	Config             *config.Config
	EntryService       *service.EntryService
	StatsService       *service.StatsService
	AchievementService *service.AchievementService
	LeaderboardService *service.LeaderboardService
	ChallengeService   *service.ChallengeService
	AccountService     *service.AccountService
	Verifier           *auth.Verifier
	Metrics            *metrics.Metrics
	// DB is nil for the in-memory store.
	DB handler.Pinger
}

// Server is the HTTP front of the compost tracker.
type Server struct {
	http            *http.Server
	router          *mux.Router
	limiter         *RateLimiter
	shutdownTimeout time.Duration
}

// New builds the router and the underlying http.Server.
func New(deps *Dependencies) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("token verifier is required")
	}

	cfg := deps.Config
	s := &Server{
		router:          mux.NewRouter(),
		shutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	if cfg.RateLimit.Enabled {
		s.limiter = NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.TTL, cfg.RateLimit.TrustProxy, deps.Metrics)
	}

	s.registerRoutes(deps)

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(false),
	)

	s.http = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      recovery(cors(s.router)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

func (s *Server) registerRoutes(deps *Dependencies) {
	cfg := deps.Config
	timeout := cfg.Server.RequestTimeout

	entries := handler.NewEntryHandler(deps.EntryService, timeout)
	stats := handler.NewStatsHandler(deps.StatsService, timeout)
	achievements := handler.NewAchievementHandler(deps.AchievementService, timeout)
	leaderboard := handler.NewLeaderboardHandler(deps.LeaderboardService, timeout)
	challenges := handler.NewChallengeHandler(deps.ChallengeService, timeout)
	health := handler.NewHealthHandler(deps.DB)

	r := s.router
	r.Use(LoggingMiddleware)
	r.Use(MetricsMiddleware(deps.Metrics))
	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}

	requireAuth := AuthMiddleware(deps.Verifier, deps.AccountService)
	protect := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }

	// Public
	r.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard", leaderboard.Top).Methods(http.MethodGet)
	r.HandleFunc("/challenges", challenges.List).Methods(http.MethodGet)
	r.HandleFunc("/achievements/catalog", achievements.Catalog).Methods(http.MethodGet)

	// Authenticated
	r.Handle("/entries", protect(entries.Create)).Methods(http.MethodPost)
	r.Handle("/entries", protect(entries.List)).Methods(http.MethodGet)
	r.Handle("/entries/{id}", protect(entries.Delete)).Methods(http.MethodDelete)
	r.Handle("/stats", protect(stats.Get)).Methods(http.MethodGet)
	r.Handle("/achievements", protect(achievements.List)).Methods(http.MethodGet)
	r.Handle("/challenges/{id}/join", protect(challenges.Join)).Methods(http.MethodPost)

	if cfg.Metrics.Enabled && deps.Metrics != nil {
		if cfg.Metrics.Username == "" || cfg.Metrics.Password == "" {
			log.Warn().Msg("Metrics credentials not set, /metrics is disabled")
		} else {
			r.Handle("/metrics", BasicAuthMiddleware(cfg.Metrics.Username, cfg.Metrics.Password)(deps.Metrics.Handler())).
				Methods(http.MethodGet)
		}
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		timeout := s.shutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		log.Info().Msg("Shutting down HTTP server...")
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if s.limiter != nil {
		g.Go(func() error {
			s.limiter.Cleanup(gctx, time.Minute)
			return nil
		})
	}

	return g.Wait()
}
