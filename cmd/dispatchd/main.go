// Command dispatchd runs the SME dispatch HTTP service: assignment
// lifecycle, reputation scores, recommendations, and the daily reminder
// scheduler.
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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aimd54/sme-dispatch/internal/api/assignments"
	"github.com/aimd54/sme-dispatch/internal/cache"
	"github.com/aimd54/sme-dispatch/internal/config"
	"github.com/aimd54/sme-dispatch/internal/notify"
	"github.com/aimd54/sme-dispatch/internal/repository"
	"github.com/aimd54/sme-dispatch/internal/service/lifecycle"
	"github.com/aimd54/sme-dispatch/internal/service/recommend"
	"github.com/aimd54/sme-dispatch/internal/service/reputation"
	"github.com/aimd54/sme-dispatch/internal/service/scheduler"
	"github.com/aimd54/sme-dispatch/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	log.Info().
		Int("port", cfg.Server.Port).
		Str("environment", cfg.Server.Environment).
		Msg("Starting SME dispatch service")

	// Database
	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(&cfg.Database.Postgres, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Redis
	redisCache, err := cache.NewRedisCache(&cfg.Database.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisCache.Close()

	// Repositories
	assignmentRepo := repository.NewAssignmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	serviceRequestRepo := repository.NewServiceRequestRepository(db)
	zipCodeRepo := repository.NewZipCodeRepository(db)

	if cfg.Dispatch.ZipCodeSeedFile != "" {
		seeded, err := zipCodeRepo.SeedFromFile(cfg.Dispatch.ZipCodeSeedFile)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.Dispatch.ZipCodeSeedFile).Msg("Zip code seed failed")
		} else {
			log.Info().Int("count", seeded).Msg("Zip codes seeded")
		}
	}

	// Services
	ledger := reputation.NewLedger(userRepo, redisCache, cfg.Dispatch.ScoreCacheTTLDuration(), log)
	lifecycleService := lifecycle.NewService(assignmentRepo, ledger, log)
	recommendEngine := recommend.NewEngine(serviceRequestRepo, userRepo, assignmentRepo, zipCodeRepo, ledger, log)

	// Notifications and scheduler
	notifyClient := notify.NewClient(&cfg.Notify, log)
	schedulerService := scheduler.NewService(cfg, assignmentRepo, notifyClient, log)
	if err := schedulerService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer schedulerService.Stop()

	// HTTP server
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Prometheus.Enabled {
		router.GET(cfg.Metrics.Prometheus.Path, gin.WrapH(promhttp.Handler()))
	}

	handler := assignments.NewHandler(lifecycleService, recommendEngine, ledger, assignmentRepo, log)
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
