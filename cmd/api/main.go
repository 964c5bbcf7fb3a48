package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/infra/postgres"
	infraredis "github.com/NXConner/blacktop-blueprint-ai-sub001/internal/infra/redis"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/ledger"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/reconcile"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/report"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/transport/httpapi"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/transport/httpapi/handler"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/transport/httpapi/middleware"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/config"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault(cfg.Env)
	log.Info("Starting ledger API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	db, err := postgres.NewPool(ctx, postgres.Config{URL: cfg.DatabaseURL})
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database connection established")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Redis connection established")

	// Ledger core
	ledgerRepo := postgres.NewLedgerRepository(db.Pool)
	registry := ledger.NewRegistry(ledgerRepo, log)
	balances := ledger.NewBalanceStore(ledgerRepo, log)
	poster := ledger.NewPoster(ledgerRepo, balances, log)

	reportCache := infraredis.NewCache(redisClient, log)
	poster.SetInvalidator(reportCache)

	reportEngine := report.NewEngine(ledgerRepo, registry, balances, report.DefaultCashFlowRules(), log)
	reportEngine.SetCache(reportCache)

	reconcileEngine := reconcile.NewEngine(registry, balances, log)

	// Seed the standard chart on startup; existing codes are skipped.
	created, warnings, err := registry.BootstrapChart(ctx)
	if err != nil {
		log.Error("Failed to bootstrap chart of accounts", "error", err)
		os.Exit(1)
	}
	log.Info("Chart of accounts ready", "created", len(created), "skipped", len(warnings))

	// HTTP layer
	accountHandler := handler.NewAccountHandler(registry, poster)
	entryHandler := handler.NewEntryHandler(poster)
	reportHandler := handler.NewReportHandler(reportEngine)
	reconcileHandler := handler.NewReconcileHandler(reconcileEngine)
	healthHandler := handler.NewHealthHandler(db.Pool)

	var jwtMiddleware func(http.Handler) http.Handler
	if cfg.APITokenSecret != "" {
		jwtMiddleware = middleware.JWTMiddleware(middleware.NewJWTService(cfg.APITokenSecret))
	} else {
		log.Warn("API_TOKEN_SECRET not configured, authentication disabled")
		jwtMiddleware = middleware.StaticActor("dev")
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173"}
	}

	r := httpapi.NewRouter(httpapi.Config{
		Logger:           log,
		AllowedOrigins:   allowedOrigins,
		AccountHandler:   accountHandler,
		EntryHandler:     entryHandler,
		ReportHandler:    reportHandler,
		ReconcileHandler: reconcileHandler,
		HealthHandler:    healthHandler,
		JWTMiddleware:    jwtMiddleware,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped gracefully")
}
