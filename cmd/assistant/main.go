// cmd/assistant/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"epd-assistant/internal/common/config"
	"epd-assistant/internal/common/database"
	"epd-assistant/internal/common/logger"
	"epd-assistant/internal/common/observability"
	"epd-assistant/internal/llm"
	"epd-assistant/internal/models"
	"epd-assistant/internal/pipeline"
	"epd-assistant/internal/pipeline/audit"
	"epd-assistant/internal/pipeline/classify"
	"epd-assistant/internal/pipeline/compose"
	"epd-assistant/internal/pipeline/retrieve"
	"epd-assistant/internal/pipeline/significance"
	"epd-assistant/internal/server"
	"epd-assistant/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting assistant...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("epd-assistant")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Wire the pipeline ---
	llmClient := llm.NewClient(cfg.LLM, log)

	referenceStore := store.NewPostgresStore(
		pg.DB,
		redis.Client,
		time.Duration(cfg.Database.Redis.CacheTTL)*time.Second,
		log,
	)

	recorder := audit.NewRecorder(
		audit.NewElasticsearchSink(esClient.Client, cfg.Audit.Index),
		cfg.Audit.BufferSize,
		log,
	)
	defer recorder.Close()

	classifier := classify.New(
		llmClient,
		time.Duration(cfg.Pipeline.ClassifyTimeout)*time.Second,
		log,
	)
	router := retrieve.New(referenceStore, cfg.Pipeline.MinChunkLength, log)
	engine := significance.New(referenceStore, cfg.Pipeline.MaxSignificant, log)
	compositor := compose.New(models.NewModuleGlossary())

	pipe := pipeline.New(pipeline.Deps{
		Classifier: classifier,
		Embedder:   llmClient,
		Retriever:  router,
		Engine:     engine,
		Composer:   compositor,
		Generator:  llmClient,
		Store:      referenceStore,
		Recorder:   recorder,
		Observer:   obs,
	}, time.Duration(cfg.Pipeline.RetrieveTimeout)*time.Second, log)

	srv := server.New(cfg.Server, pipe, log)

	// --- Metrics Server ---
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening", zap.String("address", cfg.Server.MetricsAddress))
		if err := http.ListenAndServe(cfg.Server.MetricsAddress, nil); err != nil {
			zapLog.Error("Metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := srv.Start(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down http server", zap.Error(err))
	}

	zapLog.Info("Assistant stopped gracefully")
}
