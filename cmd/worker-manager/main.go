// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sentiment-workers/internal/clients/llm"
	"sentiment-workers/internal/clients/reviews"
	"sentiment-workers/internal/common/config"
	"sentiment-workers/internal/common/database"
	"sentiment-workers/internal/common/logger"
	"sentiment-workers/internal/common/observability"
	"sentiment-workers/internal/registry"
	"sentiment-workers/pkg/catalog"

	ar "sentiment-workers/internal/workers/aggregate-report"
	fr "sentiment-workers/internal/workers/fetch-reviews"
	rf "sentiment-workers/internal/workers/record-failure"
	rp "sentiment-workers/internal/workers/resolve-product"
	ss "sentiment-workers/internal/workers/score-sentiment"
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
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Activity catalog ---
	cat, err := catalog.Load("configs/catalog.json")
	if err != nil {
		zapLog.Fatal("activity catalog load failed", zap.Error(err))
	}
	for _, taskType := range []string{rp.TaskType, fr.TaskType, ss.TaskType, ar.TaskType, rf.TaskType} {
		if _, ok := cat.Find(taskType); !ok {
			zapLog.Fatal("task type missing from activity catalog", zap.String("taskType", taskType))
		}
	}

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Deploy process model ---
	const processModelPath = "bpmn/review-sentiment.bpmn"
	if _, statErr := os.Stat(processModelPath); statErr == nil {
		resp, err := zeebeClient.NewDeployResourceCommand().
			AddResourceFile(processModelPath).
			Send(ctx)
		if err != nil {
			zapLog.Fatal("BPMN deployment failed", zap.Error(err))
		}
		zapLog.Info("Process model deployed",
			zap.String("path", processModelPath),
			zap.Int("deployments", len(resp.GetDeployments())),
		)
	} else {
		zapLog.Warn("Process model not found on disk, assuming it is already deployed",
			zap.String("path", processModelPath),
		)
	}

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

	runStore := registry.NewRedisStore(redis.GetClient(), cfg.Pipeline.RunRetentionDuration())

	// --- Init External Service Clients ---
	resolverOracle := llm.New(cfg.APIs.Resolver)
	scorerOracle := llm.New(cfg.APIs.Scorer)

	reviewsClient, err := reviews.New(cfg.APIs.Reviews)
	if err != nil {
		zapLog.Fatal("reviews client failed", zap.Error(err))
	}

	zapLog.Info("All external service clients initialized")

	// --- Register Workers ---

	if cfg.Workers[rp.TaskType].Enabled {
		handler, err := rp.NewHandler(
			&rp.Config{
				CanonicalPattern:   rp.DefaultCanonicalPattern,
				ProductURLTemplate: cfg.APIs.Reviews.ProductURLTemplate,
				Timeout:            config.GetDuration(cfg.Workers[rp.TaskType].Timeout),
			},
			resolverOracle, log,
		)
		if err != nil {
			zapLog.Fatal("failed to create resolve-product handler", zap.Error(err))
		}
		startWorker(zeebeClient, rp.TaskType, cfg.Workers[rp.TaskType], guardedHandler(cat, rp.TaskType, handler.Handle, log), zapLog)
	}

	if cfg.Workers[fr.TaskType].Enabled {
		handler := fr.NewHandler(
			&fr.Config{
				PageSize:   cfg.Pipeline.PageSize,
				MaxReviews: cfg.Pipeline.MaxReviewsDefault,
				Timeout:    config.GetDuration(cfg.Workers[fr.TaskType].Timeout),
			},
			reviewsClient, log,
		)
		startWorker(zeebeClient, fr.TaskType, cfg.Workers[fr.TaskType], guardedHandler(cat, fr.TaskType, handler.Handle, log), zapLog)
	}

	if cfg.Workers[ss.TaskType].Enabled {
		handler := ss.NewHandler(
			&ss.Config{
				MinTextLength:   cfg.Scoring.MinTextLength,
				StarWeight:      cfg.Scoring.StarWeight,
				TextWeight:      cfg.Scoring.TextWeight,
				ClampEnvelope:   cfg.Scoring.ClampEnvelope,
				NeutralFallback: cfg.Scoring.NeutralFallback,
				ReparseAttempts: cfg.Scoring.ReparseAttempts,
				Timeout:         config.GetDuration(cfg.Workers[ss.TaskType].Timeout),
			},
			scorerOracle, log,
		)
		startWorker(zeebeClient, ss.TaskType, cfg.Workers[ss.TaskType], guardedHandler(cat, ss.TaskType, handler.Handle, log), zapLog)
	}

	if cfg.Workers[ar.TaskType].Enabled {
		handler := ar.NewHandler(
			&ar.Config{
				Timeout: config.GetDuration(cfg.Workers[ar.TaskType].Timeout),
			},
			runStore, log,
		)
		startWorker(zeebeClient, ar.TaskType, cfg.Workers[ar.TaskType], guardedHandler(cat, ar.TaskType, handler.Handle, log), zapLog)
	}

	if cfg.Workers[rf.TaskType].Enabled {
		handler := rf.NewHandler(
			&rf.Config{
				Timeout: config.GetDuration(cfg.Workers[rf.TaskType].Timeout),
			},
			runStore, log,
		)
		startWorker(zeebeClient, rf.TaskType, cfg.Workers[rf.TaskType], guardedHandler(cat, rf.TaskType, handler.Handle, log), zapLog)
	}

	zapLog.Info("All workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.MetricsAddress))
		if err := http.ListenAndServe(cfg.Server.MetricsAddress, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// guardedHandler routes every delivered job through the activity catalog's
// input schema before the worker's handler runs.
func guardedHandler(cat *catalog.ActivityCatalog, taskType string, h func(worker.JobClient, entities.Job), log logger.Logger) func(worker.JobClient, entities.Job) {
	act, _ := cat.Find(taskType)
	return act.GuardHandler(h, log)
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}
