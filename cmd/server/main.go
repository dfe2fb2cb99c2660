package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"upgrade-service/config"
	"upgrade-service/internal/api"
	"upgrade-service/internal/broker"
	"upgrade-service/internal/redisclient"
	"upgrade-service/internal/service"
	"upgrade-service/internal/store"
	"upgrade-service/internal/util"
	"upgrade-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting upgrade service")

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	tp, err := util.InitTracer(util.TracerOptions{
		ServiceName:    "upgrade-service",
		Environment:    cfg.Server.Env,
		JaegerEndpoint: cfg.Observ.JaegerEndpoint,
		SampleRatio:    cfg.Observ.TraceSampleRatio,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	ctx := context.Background()

	db, err := store.NewStore(ctx, cfg.Database.URL, store.Options{
		MaxOpenConns:   cfg.Database.MaxOpenConns,
		ConnectTimeout: cfg.Database.ConnectTimeout(),
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	if cfg.Database.RunMigrations {
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Migrations applied")
	}

	redisClient, err := redisclient.NewClient(
		cfg.Redis.Addr,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Business.CatalogCacheTTL(),
		cfg.Business.SessionTTL(),
	)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	catalogProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalog)
	defer catalogProducer.Close()
	orderProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer orderProducer.Close()
	logger.Info("Kafka producers initialized")

	eventPublisher := broker.NewEventPublisher(catalogProducer, orderProducer)

	productService := service.NewProductService(db)
	catalogService := service.NewCatalogService(db, redisClient, eventPublisher)
	configuratorService := service.NewConfiguratorService(
		db,
		catalogService,
		redisClient,
		db,
		eventPublisher,
		cfg.Business.StorageMedium,
	)

	if _, err := catalogService.Catalog(ctx); err != nil {
		logger.Warn("Failed to warm catalog cache", zap.Error(err))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	// every replica needs its own group so each one drops its cached catalog
	hostname, _ := os.Hostname()
	catalogConsumer := broker.NewConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.TopicCatalog,
		fmt.Sprintf("%s-catalog-%s", cfg.Kafka.ConsumerGroup, hostname),
	)
	catalogWorker := worker.NewCatalogWorker(catalogConsumer, catalogService)
	go func() {
		if err := catalogWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("Catalog worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	handler := api.NewHandler(configuratorService, catalogService, productService, map[string]api.Pinger{
		"postgres": db,
		"redis":    redisClient,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := catalogWorker.Stop(); err != nil {
		logger.Warn("Error stopping catalog worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
