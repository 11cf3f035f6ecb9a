// internal/pipeline/pipeline.go
package pipeline

import (
	"context"

	"sentiment-workers/internal/models"
)

// Stage names, in execution order.
const (
	StageResolve   = "resolve-product"
	StageFetch     = "fetch-reviews"
	StageScore     = "score-sentiment"
	StageAggregate = "aggregate-report"
)

// Resolver turns a product URL or a bare product id into a canonical
// (productID, canonicalURL) pair.
type Resolver interface {
	Resolve(ctx context.Context, inputURL, productID string) (string, string, error)
}

// Fetcher collects up to limit reviews for a product.
type Fetcher interface {
	Fetch(ctx context.Context, productID string, limit int) ([]models.Review, error)
}

// Scorer assigns a 0..100 sentiment score to every review, preserving order.
type Scorer interface {
	Score(ctx context.Context, reviews []models.Review) ([]models.ScoredReview, error)
}

// Aggregator builds and publishes the final report for a run.
type Aggregator interface {
	Publish(ctx context.Context, runID, productID, canonicalURL string, scored []models.ScoredReview) (models.Report, error)
}

// Stages bundles the four stage implementations.
type Stages struct {
	Resolver   Resolver
	Fetcher    Fetcher
	Scorer     Scorer
	Aggregator Aggregator
}

// StageRunner wraps one stage execution. The engine supplies the durability
// policy here: per-stage timeout, retry with backoff, attempt accounting.
type StageRunner func(ctx context.Context, stage string, fn func(ctx context.Context) error) error

// Run executes the four stages in order for one run. Stage outputs flow
// forward only; no stage is entered until the previous one succeeded.
func Run(ctx context.Context, stages Stages, runner StageRunner, req models.RunRequest) (*models.Report, error) {
	var (
		productID    string
		canonicalURL string
		reviews      []models.Review
		scored       []models.ScoredReview
		report       models.Report
	)

	err := runner(ctx, StageResolve, func(ctx context.Context) error {
		var err error
		productID, canonicalURL, err = stages.Resolver.Resolve(ctx, req.InputURL, req.ProductID)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = runner(ctx, StageFetch, func(ctx context.Context) error {
		var err error
		reviews, err = stages.Fetcher.Fetch(ctx, productID, req.MaxReviews)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = runner(ctx, StageScore, func(ctx context.Context) error {
		var err error
		scored, err = stages.Scorer.Score(ctx, reviews)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = runner(ctx, StageAggregate, func(ctx context.Context) error {
		var err error
		report, err = stages.Aggregator.Publish(ctx, req.RunID, productID, canonicalURL, scored)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &report, nil
}
