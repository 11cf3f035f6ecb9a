// cmd/run-pipeline/main.go
//
// Submits one review-sentiment run and prints the final report. The default
// local engine executes the stages in-process, which is useful for
// smoke-testing credentials and the scoring policy without a Camunda cluster;
// -engine camunda starts a process instance on the broker instead and waits
// for the deployed workers to finish it. Either way the run registry goes to
// Redis when configured, so resubmitting a runId behaves like production.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"sentiment-workers/internal/clients/llm"
	"sentiment-workers/internal/clients/reviews"
	"sentiment-workers/internal/common/config"
	"sentiment-workers/internal/common/database"
	"sentiment-workers/internal/common/logger"
	"sentiment-workers/internal/common/observability"
	"sentiment-workers/internal/engine"
	"sentiment-workers/internal/engine/camunda"
	"sentiment-workers/internal/models"
	"sentiment-workers/internal/pipeline"
	"sentiment-workers/internal/registry"

	ar "sentiment-workers/internal/workers/aggregate-report"
	fr "sentiment-workers/internal/workers/fetch-reviews"
	rp "sentiment-workers/internal/workers/resolve-product"
	ss "sentiment-workers/internal/workers/score-sentiment"
)

func main() {
	var (
		inputURL   = flag.String("url", "", "product page URL to analyze")
		productID  = flag.String("product", "", "bare product id (alternative to -url)")
		maxReviews = flag.Int("max", 0, "review budget (default from config)")
		runID      = flag.String("run-id", "", "idempotency key (default: generated)")
		timeout    = flag.Duration("timeout", 20*time.Minute, "overall wait for the run")
		noRedis    = flag.Bool("no-redis", false, "keep run state in memory instead of Redis")
		engineKind = flag.String("engine", "local", "execution engine: local or camunda")
	)
	flag.Parse()

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if *inputURL == "" && *productID == "" {
		fmt.Fprintln(os.Stderr, "one of -url or -product is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("run-pipeline")
	defer obs.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var store registry.Store = registry.NewMemoryStore()
	if !*noRedis {
		redis, err := database.NewRedis(cfg.Database.Redis)
		if err == nil && redis.Ping(ctx) == nil {
			defer redis.Close()
			store = registry.NewRedisStore(redis.GetClient(), cfg.Pipeline.RunRetentionDuration())
		} else {
			zapLog.Warn("redis unavailable, run state is in-memory only")
		}
	}

	reviewsClient, err := reviews.New(cfg.APIs.Reviews)
	if err != nil {
		zapLog.Fatal("reviews client failed", zap.Error(err))
	}

	resolver, err := rp.NewHandler(
		&rp.Config{
			CanonicalPattern:   rp.DefaultCanonicalPattern,
			ProductURLTemplate: cfg.APIs.Reviews.ProductURLTemplate,
			Timeout:            config.GetDuration(cfg.APIs.Resolver.Timeout),
		},
		llm.New(cfg.APIs.Resolver), log,
	)
	if err != nil {
		zapLog.Fatal("resolver handler failed", zap.Error(err))
	}

	fetcher := fr.NewHandler(
		&fr.Config{
			PageSize:   cfg.Pipeline.PageSize,
			MaxReviews: cfg.Pipeline.MaxReviewsDefault,
			Timeout:    cfg.Pipeline.StageTimeoutDuration(),
		},
		reviewsClient, log,
	)

	scorer := ss.NewHandler(
		&ss.Config{
			MinTextLength:   cfg.Scoring.MinTextLength,
			StarWeight:      cfg.Scoring.StarWeight,
			TextWeight:      cfg.Scoring.TextWeight,
			ClampEnvelope:   cfg.Scoring.ClampEnvelope,
			NeutralFallback: cfg.Scoring.NeutralFallback,
			ReparseAttempts: cfg.Scoring.ReparseAttempts,
			Timeout:         cfg.Pipeline.StageTimeoutDuration(),
		},
		llm.New(cfg.APIs.Scorer), log,
	)

	aggregator := ar.NewHandler(&ar.Config{Timeout: 10 * time.Second}, store, log)

	var eng engine.Engine
	switch *engineKind {
	case "local":
		eng = engine.NewLocalEngine(pipeline.Stages{
			Resolver:   resolver,
			Fetcher:    fetcher,
			Scorer:     scorer,
			Aggregator: aggregator,
		}, store, cfg.Pipeline, obs, log)
	case "camunda":
		zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		if err != nil {
			zapLog.Fatal("zeebe client failed", zap.Error(err))
		}
		defer zeebeClient.Close()
		eng = camunda.NewEngine(zeebeClient, store, cfg.Camunda, cfg.Pipeline, log)
	default:
		zapLog.Fatal("unknown engine", zap.String("engine", *engineKind))
	}

	id, err := eng.StartRun(ctx, models.RunRequest{
		RunID:      *runID,
		InputURL:   *inputURL,
		ProductID:  *productID,
		MaxReviews: *maxReviews,
	})
	if err != nil {
		zapLog.Fatal("run submission rejected", zap.Error(err))
	}
	zapLog.Info("run started", zap.String("runId", id))

	report, err := eng.AwaitResult(ctx, id)
	if err != nil {
		zapLog.Fatal("run failed", zap.Error(err))
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		zapLog.Fatal("encode report", zap.Error(err))
	}
	fmt.Println(string(out))
}
