package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"trialgate/internal/audit"
	"trialgate/internal/eligibility"
	eligibilitymetrics "trialgate/internal/eligibility/metrics"
	"trialgate/internal/eligibility/tracer"
	"trialgate/internal/platform/config"
	"trialgate/internal/platform/health"
	"trialgate/internal/platform/httpserver"
	"trialgate/internal/platform/kafka/producer"
	"trialgate/internal/platform/logger"
	httptransport "trialgate/internal/transport/http"
	"trialgate/internal/verification/service"
	"trialgate/internal/verification/store"
	"trialgate/pkg/platform/middleware/metadata"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps
// the server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	log.Info("initializing trialgate",
		"addr", cfg.Addr,
		"blocked_country", cfg.BlockedCountryCode,
		"data_dir", cfg.DataDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthHandler := health.New()

	// Record store: Postgres when configured, the file document otherwise.
	var recordStore store.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pg := store.NewPostgres(db)
		if err := pg.Schema(ctx); err != nil {
			log.Error("postgres schema setup failed", "error", err)
			os.Exit(1)
		}
		healthHandler.RegisterCheck("postgres", func() error {
			return db.PingContext(ctx)
		})
		recordStore = pg
		log.Info("using postgres record store")
	} else {
		recordStore = store.NewFileStore(cfg.DataDir, log)
		log.Info("using file record store", "dir", cfg.DataDir)
	}

	// Trial log: durable file document, optionally fanned out to Kafka.
	publisherOpts := []audit.PublisherOption{audit.WithAsyncBuffer(256)}
	if cfg.KafkaBrokers != "" {
		kafkaProducer, err := producer.New(producer.Config{
			Brokers:         cfg.KafkaBrokers,
			DeliveryTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			log.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		healthHandler.RegisterCheck("kafka", func() error {
			if !kafkaProducer.Healthy(ctx) {
				return context.DeadlineExceeded
			}
			return nil
		})
		publisherOpts = append(publisherOpts,
			audit.WithSink(audit.NewKafkaSink(kafkaProducer, audit.DefaultKafkaTopic, log)))
		log.Info("kafka trial log sink enabled", "brokers", cfg.KafkaBrokers)
	}
	trialLog := audit.NewPublisher(audit.NewFileStore(cfg.DataDir, log), log, publisherOpts...)
	defer trialLog.Close()

	// Eligibility gate: provider client plus shared or local lookup cache.
	var lookupCache eligibility.Cache
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("redis url malformed", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		healthHandler.RegisterCheck("redis", func() error {
			return redisClient.Ping(ctx).Err()
		})
		lookupCache = eligibility.NewRedisCache(redisClient, cfg.LookupCacheTTL, log)
		log.Info("using redis lookup cache")
	} else {
		lookupCache = eligibility.NewMemoryCache(cfg.LookupCacheTTL)
	}

	lookupClient := eligibility.NewHTTPClient(cfg.LookupBaseURL, cfg.LookupAPIKey, cfg.LookupTimeout)
	evaluator := eligibility.New(lookupClient, cfg.BlockedCountryCode,
		eligibility.WithCache(lookupCache),
		eligibility.WithMetrics(eligibilitymetrics.New()),
		eligibility.WithTracer(tracer.NewOTel()),
		eligibility.WithLogger(log),
	)

	healthHandler.RegisterCheck("lookup-provider", func() error {
		if !evaluator.ProviderHealthy() {
			return errors.New("lookup provider circuit open")
		}
		return nil
	})

	svc := service.New(recordStore, evaluator, trialLog,
		service.WithLogger(log),
		service.WithMetrics(service.NewMetrics()),
	)

	handlerOpts := []httptransport.HandlerOption{
		httptransport.WithLookup(evaluator),
	}
	if cfg.BotAPIKeyHash != "" {
		handlerOpts = append(handlerOpts, httptransport.WithBotAPIKeyHash(cfg.BotAPIKeyHash))
	}
	if cfg.TelegramBotToken != "" {
		handlerOpts = append(handlerOpts, httptransport.WithBotToken(cfg.TelegramBotToken))
		log.Info("init data signature validation enabled")
	}
	handler := httptransport.NewHandler(svc, trialLog, log, handlerOpts...)

	router := httptransport.NewRouter(handler, healthHandler, httptransport.RouterConfig{
		AdminJWTSecret: cfg.AdminJWTSecret,
		DebugEndpoints: cfg.DebugEndpoints,
		Metadata:       metadata.NewMiddleware(&metadata.Config{TrustedProxies: cfg.TrustedProxies}),
	}, log)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
