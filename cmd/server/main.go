// Package main is the entry point for the compost tracker API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"compost-tracker/internal/bot"
	"compost-tracker/internal/config"
	"compost-tracker/internal/handler"
	"compost-tracker/internal/pkg/auth"
	"compost-tracker/internal/pkg/db"
	"compost-tracker/internal/pkg/lock"
	"compost-tracker/internal/pkg/metrics"
	"compost-tracker/internal/repository"
	"compost-tracker/internal/repository/memory"
	"compost-tracker/internal/server"
	"compost-tracker/internal/service"
)

var (
	_ service.UserStore        = (*repository.UserRepository)(nil)
	_ service.EntryStore       = (*repository.EntryRepository)(nil)
	_ service.StatsStore       = (*repository.StatsRepository)(nil)
	_ service.AchievementStore = (*repository.AchievementRepository)(nil)
	_ service.LeaderboardStore = (*repository.LeaderboardRepository)(nil)
	_ service.ChallengeStore   = (*repository.ChallengeRepository)(nil)
)

// stores bundles the persistence backend chosen by storage.driver.
type stores struct {
	users        service.UserStore
	entries      service.EntryStore
	stats        service.StatsStore
	achievements service.AchievementStore
	leaderboard  service.LeaderboardStore
	challenges   service.ChallengeStore
	pinger       handler.Pinger
	close        func()
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(&cfg.Log)
	log.Info().
		Str("storage", cfg.Storage.Driver).
		Str("policy", cfg.Pipeline.Policy).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer st.close()

	policy, err := service.ParsePolicy(cfg.Pipeline.Policy)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid pipeline policy")
	}

	var announcer service.Announcer
	if cfg.Telegram.Enabled() {
		a, err := bot.New(&cfg.Telegram)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Telegram announcer")
		}
		announcer = a
	}

	loc := cfg.Server.Location()
	m := metrics.New()
	userLock := lock.NewUserLock()

	statsService := service.NewStatsService(st.entries, st.stats, loc)
	achievementService := service.NewAchievementService(
		st.stats,
		st.achievements,
		st.users,
		announcer,
		m,
		cfg.Leaderboard.HeroRank,
	)
	leaderboardService := service.NewLeaderboardService(
		st.stats,
		st.leaderboard,
		userLock,
		cfg.Pipeline.LockTimeout,
		cfg.Leaderboard.DefaultLimit,
		cfg.Leaderboard.MaxLimit,
	)
	pipeline := service.NewPipeline(
		statsService,
		achievementService,
		leaderboardService,
		userLock,
		cfg.Pipeline.LockTimeout,
		policy,
		m,
	)

	srv, err := server.New(&server.Dependencies{
		Config:             cfg,
		EntryService:       service.NewEntryService(st.entries, pipeline, loc),
		StatsService:       statsService,
		AchievementService: achievementService,
		LeaderboardService: leaderboardService,
		ChallengeService:   service.NewChallengeService(st.challenges),
		AccountService:     service.NewAccountService(st.users),
		Verifier:           auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer),
		Metrics:            m,
		DB:                 st.pinger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		return
	}
	log.Info().Msg("Server stopped gracefully")
}

func setupLogger(cfg *config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		mem := memory.New()
		return &stores{
			users:        mem.Users(),
			entries:      mem.Entries(),
			stats:        mem.Stats(),
			achievements: mem.Achievements(),
			leaderboard:  mem.Leaderboard(),
			challenges:   mem.Challenges(),
			close:        func() {},
		}, nil
	}

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := repository.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &stores{
		users:        repository.NewUserRepository(pool.Pool),
		entries:      repository.NewEntryRepository(pool.Pool),
		stats:        repository.NewStatsRepository(pool.Pool),
		achievements: repository.NewAchievementRepository(pool.Pool),
		leaderboard:  repository.NewLeaderboardRepository(pool.Pool),
		challenges:   repository.NewChallengeRepository(pool.Pool),
		pinger:       pool,
		close:        pool.Close,
	}, nil
}
