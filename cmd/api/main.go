package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/training/internal/api"
	"example.com/training/internal/auth"
	"example.com/training/internal/cache"
	"example.com/training/internal/config"
	"example.com/training/internal/domain"
	"example.com/training/internal/outbox"
	"example.com/training/internal/persistence/memory"
	persistence "example.com/training/internal/persistence/postgres"
	httptransport "example.com/training/internal/transport/http"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stderr, "[training-api] ", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo       domain.TrainingRepository
		dispatcher *outbox.Dispatcher
	)
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		repo = persistence.NewRepository(pool)

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()
		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
		go dispatcher.Start(ctx)
	} else {
		logger.Println("POSTGRES_URL not set, using in-memory storage without event publishing")
		repo = memory.NewRepository()
	}

	var statsCache cache.StatsCache
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.StatsCacheTTL)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			logger.Printf("redis unavailable, stats will be served uncached: %v", err)
		}
		statsCache = redisCache
	}

	service := domain.NewService(repo, statsCache)
	router := api.NewRouter(api.NewHandler(service), logger)
	router.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	handler := httptransport.WithCORS(authMiddleware.Wrap(router), cfg.CORSAllowedOrigins)

	serverCfg := httptransport.DefaultServerConfig(cfg.HTTPAddress)
	server := httptransport.NewServer(serverCfg, handler)
	if err := httptransport.Serve(ctx, server, serverCfg.ShutdownTimeout, logger); err != nil {
		logger.Printf("server error: %v", err)
	}
	stop()

	if dispatcher != nil {
		dispatcher.Wait()
	}
}
