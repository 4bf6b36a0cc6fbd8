package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"civleAPI/handlers"
	"civleAPI/internal/config"
	"civleAPI/internal/daykey"
	"civleAPI/internal/logger"
	"civleAPI/internal/metrics"
	"civleAPI/internal/wordfilter"
	"civleAPI/middleware"
	"civleAPI/services"

	_ "net/http/pprof"
	_ "time/tzdata"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to $CONFIG_FILE)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	logger.SetDebug(cfg.Debug)

	days, err := daykey.NewFromName(cfg.Timezone)
	if err != nil {
		logger.Error("Failed to load timezone %q: %v", cfg.Timezone, err)
		os.Exit(1)
	}

	blocklist, found, err := wordfilter.LoadFile(cfg.BlocklistPath)
	switch {
	case err != nil:
		logger.Error("Failed to read blocklist %s: %v", cfg.BlocklistPath, err)
		os.Exit(1)
	case !found:
		logger.Warn("No blocklist at %s, names are not filtered", cfg.BlocklistPath)
	default:
		logger.Info("Loaded %d blocked words", blocklist.Len())
	}

	if cfg.AccessKey == "" {
		logger.Warn("No access key configured, admin endpoints will reject every request")
	}

	scoreStore := services.NewScoreStore(services.NewFileScoreRepository(cfg.ScoresDir()), services.ScoreStoreOptions{
		MaxEntries: cfg.MaxEntries,
		Blocklist:  blocklist,
	})
	screenshots := services.NewScreenshotArchive(cfg.ScreenshotsDir())
	challenges := services.NewFileChallengeSource(cfg.ChallengesDir)

	leaderboardService := services.NewLeaderboardService(scoreStore, screenshots, challenges, days, services.LeaderboardOptions{
		TopN: cfg.LeaderboardSize,
	})
	if err := leaderboardService.CheckStorage(); err != nil {
		logger.Error("Storage is not usable: %v", err)
		os.Exit(1)
	}

	metrics.Register(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := services.NewRetentionSweeper(scoreStore, screenshots, days, cfg.SweepInterval, nil)
	sweeper.Start(ctx)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	go limiter.Cleanup(ctx)

	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService, cfg.MaxBodyBytes)
	r := handlers.NewRouter(leaderboardHandler, handlers.RouterOptions{
		AccessKey:   cfg.AccessKey,
		RateLimiter: limiter,
		Metrics:     promhttp.Handler(),
		MetricsUser: cfg.MetricsUser,
		MetricsPass: cfg.MetricsPass,
		Pprof:       http.DefaultServeMux,
		PprofSecret: cfg.PprofSecret,
	})

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(cfg.AllowedOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID", "X-Pprof-Secret"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length", "X-Request-ID"}),
	)
	recovery := gorillaHandlers.RecoveryHandler(gorillaHandlers.PrintRecoveryStack(cfg.Debug))

	server := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      recovery(corsHandler(r)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Success("Starting server on port %s (day %s, timezone %s)", cfg.Port, leaderboardService.Today(), cfg.Timezone)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error: %v", err)
	}
	sweeper.Wait()

	logger.Success("Server shutdown complete")
}
