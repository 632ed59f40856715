// Command server runs the attendant rewards API and its scheduled jobs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/csat-hub/attendant-rewards/internal/api/dashboard"
	"github.com/csat-hub/attendant-rewards/internal/cache"
	"github.com/csat-hub/attendant-rewards/internal/config"
	"github.com/csat-hub/attendant-rewards/internal/mattermost"
	"github.com/csat-hub/attendant-rewards/internal/repository"
	"github.com/csat-hub/attendant-rewards/internal/service/leaderboard"
	"github.com/csat-hub/attendant-rewards/internal/service/levels"
	"github.com/csat-hub/attendant-rewards/internal/service/rewards"
	"github.com/csat-hub/attendant-rewards/internal/service/scheduler"
	"github.com/csat-hub/attendant-rewards/internal/service/seasons"
	"github.com/csat-hub/attendant-rewards/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 30 * time.Second
	digestSize        = 10
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	catalogPath := flag.String("catalog", "", "optional YAML achievement and level reward catalog to seed")
	flag.Parse()

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *catalogPath, log); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(ctx context.Context, cfg *config.Config, catalogPath string, log *logger.Logger) error {
	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	if cfg.Database.Postgres.RunMigrations {
		if err := repository.RunMigrations(cfg.Database.Postgres.URL(), log); err != nil {
			return err
		}
	} else if err := db.AutoMigrate(); err != nil {
		return err
	}

	var (
		lbCache leaderboard.Cache
		locker  scheduler.Locker
	)
	redisCache, err := cache.New(&cfg.Database.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without leaderboard cache or job locks")
	} else {
		defer func() { _ = redisCache.Close() }()
		lbCache, locker = redisCache, redisCache
	}

	gamification, err := rewards.LoadGamificationConfig(repository.NewConfigurationRepository(db), cfg.Gamification)
	if err != nil {
		return err
	}

	notifier := mattermost.NewClient(&cfg.Mattermost, log.Component("mattermost"))
	seasonRepo := repository.NewSeasonRepository(db)

	leaderboardService := leaderboard.NewService(
		repository.NewAttendantRepository(db),
		repository.NewXPEventRepository(db),
		repository.NewEvaluationRepository(db),
		seasonRepo,
		leaderboard.NewEngine(levels.FromConfig(&gamification.Levels)),
		lbCache,
		gamification,
		log.Component("leaderboard"),
	)
	rewardsService := rewards.NewService(
		rewards.NewRepositories(db),
		gamification,
		notifier,
		leaderboardService,
		log.Component("rewards"),
	)
	seasonService := seasons.NewService(seasonRepo, log.Component("seasons"))

	if err := seedCatalog(ctx, rewardsService, cfg, catalogPath, log); err != nil {
		return err
	}

	sched := scheduler.NewService(
		&cfg.Scheduler,
		rewardsService,
		leaderboardService,
		seasonService,
		notifier,
		locker,
		digestSize,
		log.Component("scheduler"),
	)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	handler := dashboard.NewHandler(leaderboardService, rewardsService, seasonService, log.Component("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           dashboard.NewRouter(handler, cfg, log.Component("http")),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("environment", cfg.Server.Environment).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

// seedCatalog upserts the configured catalog, followed by the catalog file
// when one is given.
func seedCatalog(ctx context.Context, svc *rewards.Service, cfg *config.Config, path string, log *logger.Logger) error {
	catalogs := []*rewards.Catalog{{Achievements: cfg.Achievements, LevelRewards: cfg.LevelRewards}}
	if path != "" {
		fromFile, err := rewards.LoadCatalogFile(path)
		if err != nil {
			return err
		}
		catalogs = append(catalogs, fromFile)
	}

	for _, c := range catalogs {
		if len(c.Achievements) == 0 && len(c.LevelRewards) == 0 {
			continue
		}
		res, err := svc.SeedCatalog(ctx, c)
		if err != nil {
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
		log.Info().
			Int("created", res.Created).
			Int("updated", res.Updated).
			Int("level_rewards", res.Rewards).
			Msg("Catalog seeded")
	}
	return nil
}
