package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ociswap/registry/internal/chain"
	"github.com/ociswap/registry/internal/config"
	"github.com/ociswap/registry/internal/handler"
	"github.com/ociswap/registry/internal/middleware"
	"github.com/ociswap/registry/internal/pkg/logger"
	"github.com/ociswap/registry/internal/registry"
	"github.com/ociswap/registry/internal/repository"
	"github.com/ociswap/registry/internal/service"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel, cfg.Server.LogFormat)
	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	owner, err := cfg.OwnerAddress()
	if err != nil {
		log.Fatalf("Invalid registry owner: %v", err)
	}
	seed, err := cfg.RegistryParams()
	if err != nil {
		log.Fatalf("Invalid registry config: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 2. Initialize Persistence (Postgres > Redis > Memory)
	var (
		stateStore service.StateStore
		auditRepo  service.AuditRepo
		idemStore  middleware.IdempotencyStore
		replay     middleware.ReplayGuard
	)
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		logger.Info("✅ Connected to PostgreSQL")
		if stateStore, err = repository.NewPostgresStateStore(db); err != nil {
			log.Fatalf("Failed to migrate registry tables: %v", err)
		}
		if auditRepo, err = repository.NewPostgresAuditRepo(db); err != nil {
			log.Fatalf("Failed to migrate audit table: %v", err)
		}
	}

	var redisClient *repository.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = repository.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		logger.Info("✅ Connected to Redis")
		if stateStore == nil {
			stateStore = repository.NewRedisStateStore(redisClient)
		}
		if auditRepo == nil {
			auditRepo = repository.NewRedisAuditRepo(redisClient, 0)
		}
		idemStore = repository.NewRedisIdempotencyStore(redisClient, time.Duration(cfg.Redis.IdempotencyTTLSeconds)*time.Second)
		replay = repository.NewRedisReplayGuard(redisClient)
	}
	if stateStore == nil {
		logger.Warn("⚠️ No database configured, registry state lives in memory only")
		stateStore = service.NewMemoryStateStore()
	}
	if idemStore == nil {
		idemStore = middleware.NewInMemIdempotencyStore()
	}

	// 3. Initialize Core Services
	var opts []registry.Option
	if cfg.Chain.UseBlockTime {
		clock, err := chain.Dial(cfg.Chain.RPCURL, time.Duration(cfg.Chain.TimeoutMs)*time.Millisecond)
		if err != nil {
			log.Fatalf("Failed to initialize block clock: %v", err)
		}
		logger.Info("✅ Scheduling against block time", "rpc_url", cfg.Chain.RPCURL)
		opts = append(opts, registry.WithClock(clock))
	}

	events := service.NewEventHub(0)
	registrySvc, err := service.NewRegistryService(ctx, registry.NewOwnerBadge(owner), seed, stateStore, events, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize registry: %v", err)
	}

	auditSvc, err := service.NewAuditService(cfg.Audit.Dir, cfg.Audit.BufferSize, auditRepo)
	if err != nil {
		log.Fatalf("Failed to initialize audit service: %v", err)
	}
	auditSvc.StartCleanup(ctx,
		time.Duration(cfg.Database.CleanupIntervalMinutes)*time.Minute,
		time.Duration(cfg.Database.AuditRetentionDays)*24*time.Hour)

	// 4. Setup Router
	deps := handler.RouterDeps{
		Registry:    registrySvc,
		Events:      events,
		Audit:       auditSvc,
		Idempotency: idemStore,
		Replay:      replay,
		Limiter:     service.NewLimiterPool(cfg.RateLimit.QPS, cfg.RateLimit.Burst),
		OwnerWindow: time.Duration(cfg.Auth.SignatureWindowSeconds) * time.Second,
		ReadOnly:    cfg.Server.ReadOnly,
	}
	if cfg.Metrics.Enabled {
		deps.MetricsPath = cfg.Metrics.Path
	}
	r := handler.NewRouter(deps)

	// 5. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 Fee registry started", "port", cfg.Server.Port, "owner", owner.Hex(), "read_only", cfg.Server.ReadOnly)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	stop()
	auditSvc.Close()

	logger.Info("Server exiting")
}
