package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/hackscore/internal/adapters/cache"
	"github.com/okian/hackscore/internal/adapters/http/api"
	"github.com/okian/hackscore/internal/adapters/http/swagger"
	"github.com/okian/hackscore/internal/adapters/repository"
	"github.com/okian/hackscore/internal/adapters/repository/postgres"
	service "github.com/okian/hackscore/internal/app"
	"github.com/okian/hackscore/internal/config"
	"github.com/okian/hackscore/internal/domain/scoring"
	"github.com/okian/hackscore/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scoring HTTP service",
		Long: `Run the scoring HTTP service until SIGINT or SIGTERM.

Configuration is layered: defaults, then .env (or HACKSCORE_ENV_FILE), then
the YAML file named by HACKSCORE_CONFIG, then HACKSCORE_* variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := logger.InitWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
			}
			return serve(ctx, cfg, ln)
		},
	}
}

// serve runs the service and HTTP server on ln until ctx is cancelled, then
// shuts both down gracefully.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	log := logger.Get()

	combine, err := scoring.ParseCombiner(cfg.JudgeCombiner)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithStore(store),
		service.WithCache(openCache(ctx, cfg, log)),
		service.WithAggregator(scoring.NewAggregator(scoring.WithCombiner(combine))),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to start service: %w", err)
	}

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithLogger(log.Named("api")),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	).Register(ctx, mux)

	srv := &http.Server{
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if stopErr := svc.Stop(shutdownCtx); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
		if err != nil {
			log.Error(shutdownCtx, "shutdown failed", logger.Error(err))
			return err
		}
		log.Info(shutdownCtx, "server stopped")
		return nil
	})
	g.Go(func() error {
		startServiceMetricsUpdater(gctx, svc)
		return nil
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.StoreDriver != config.StorePostgres {
		return repository.NewMemoryStore(ctx), nil
	}
	store, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.WithQueryTimeout(cfg.QueryTimeout()))
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// openCache prefers redis when configured and falls back to the in-process
// cache when redis is unreachable at startup.
func openCache(ctx context.Context, cfg *config.Config, log logger.Logger) cache.LeaderboardCache {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(cache.WithTTL(cfg.CacheTTL()))
	}
	c, err := cache.DialRedis(ctx, cfg.RedisAddr, cfg.RedisDB, cache.WithTTL(cfg.CacheTTL()))
	if err != nil {
		log.Warn(ctx, "redis unavailable; using in-memory leaderboard cache",
			logger.String("addr", cfg.RedisAddr), logger.Error(err))
		return cache.NewMemory(cache.WithTTL(cfg.CacheTTL()))
	}
	return c
}

// startServiceMetricsUpdater refreshes queue and record gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.GetStats()
		}
	}
}
