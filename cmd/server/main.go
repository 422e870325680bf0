package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/portal/backend/internal/application/importer"
	syncapp "github.com/portal/backend/internal/application/sync"
	"github.com/portal/backend/internal/infrastructure/config"
	"github.com/portal/backend/internal/infrastructure/exchange"
	"github.com/portal/backend/internal/infrastructure/lock"
	"github.com/portal/backend/internal/infrastructure/logger"
	"github.com/portal/backend/internal/infrastructure/notify"
	"github.com/portal/backend/internal/infrastructure/persistence"
	"github.com/portal/backend/internal/infrastructure/worker"
	"github.com/portal/backend/internal/interfaces/http/handler"
	"github.com/portal/backend/internal/interfaces/http/middleware"
	"github.com/portal/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting portal sync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	for _, dir := range []string{cfg.Exchange.UploadDir, cfg.Exchange.StagingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal("Failed to create exchange directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	log.Info("Redis connected successfully")

	// Repositories
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	conflictRepo := persistence.NewGormConflictRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	sessionRepo := persistence.NewGormSessionRepository(db.DB)
	txRunner := persistence.NewGormTxRunner(db.DB)

	// Customer sync pipeline
	audit := syncapp.NewAuditLogger(syncLogRepo, log)
	identityResolver := syncapp.NewIdentityResolver(accountRepo, audit, log)
	notifier := notify.NewSMTPNotifier(cfg.Notify, log)
	conflictResolver := syncapp.NewConflictResolver(
		accountRepo, conflictRepo, audit, notifier, cfg.Notify.Recipients, log)
	syncService := syncapp.NewCustomerSyncService(
		accountRepo, identityResolver, conflictResolver, audit, txRunner, log)

	// Exchange file handling and import routines
	reader := exchange.NewFileReader(log)
	stager := exchange.NewFileStager(cfg.Exchange.UploadDir, cfg.Exchange.StagingDir, log)
	runners := importer.NewRunnerRegistry(
		importer.NewCatalogRunner(reader, productRepo, txRunner, log),
		importer.NewStocksRunner(reader, productRepo, txRunner, log),
		importer.NewPricesRunner(reader, productRepo, txRunner, log),
		importer.NewImagesRunner(reader, productRepo, log),
		importer.NewCustomersRunner(reader, syncService, log),
	)

	// Async execution backend
	sessionWorker := importer.NewSessionWorker(
		sessionRepo, stager, runners, exchange.IsTransient, audit, log, cfg.Import.TimeLimit)
	pool := worker.NewPool(worker.PoolConfig{
		Workers:   cfg.Import.Workers,
		QueueSize: cfg.Import.QueueSize,
	}, sessionWorker, log)
	if err := pool.Start(context.Background()); err != nil {
		log.Fatal("Failed to start worker pool", zap.Error(err))
	}

	importLock := lock.NewRedisImportLock(redisClient, log, cfg.Import.LockTTL)
	orchestrator := importer.NewOrchestrator(
		sessionRepo, productRepo, importLock, pool, audit, log)

	// Background maintenance
	reaper := importer.NewStaleSessionReaper(
		sessionRepo, log, cfg.Import.StaleThreshold, cfg.Import.ReapInterval)
	reaper.Start(context.Background())

	retention := syncapp.NewLogRetentionService(syncLogRepo, cfg.Retention.LogMaxAge, log)
	retentionStop := make(chan struct{})
	go runRetentionLoop(retention, cfg.Retention.SweepInterval, retentionStop, log)

	// HTTP surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/health", healthHandler(db))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewSystemHandler())
	r.Register(handler.NewImportHandler(orchestrator, sessionRepo))
	r.Register(handler.NewExchangeHandler(cfg.Exchange.UploadDir))
	r.Register(handler.NewSyncHandler(syncLogRepo, conflictRepo))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	close(retentionStop)
	reaper.Stop()
	if err := pool.Stop(ctx); err != nil {
		log.Error("Worker pool did not stop cleanly", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// runRetentionLoop periodically deletes expired sync log rows. This is the
// only deletion path for the audit trail.
func runRetentionLoop(retention *syncapp.LogRetentionService, interval time.Duration, stop <-chan struct{}, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if _, err := retention.Sweep(ctx); err != nil {
				log.Error("Retention sweep failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// healthHandler reports liveness including database reachability
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
