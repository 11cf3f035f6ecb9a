// internal/workers/aggregate-report/handler.go
package aggregatereport

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"sentiment-workers/internal/common/errors"
	"sentiment-workers/internal/common/logger"
	"sentiment-workers/internal/common/metrics"
	"sentiment-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "aggregate-report"
)

// Publisher records the finished report for a runId. Complete returns false
// when another delivery already published it.
type Publisher interface {
	Complete(ctx context.Context, runID string, report *models.Report) (bool, error)
}

type Handler struct {
	config    *Config
	publisher Publisher
	logger    logger.Logger
}

func NewHandler(config *Config, publisher Publisher, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		publisher: publisher,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	start := time.Now()
	report := BuildReport(input.ProductID, input.CanonicalURL, input.ScoredReviews)

	published := true
	if h.publisher != nil {
		var err error
		published, err = h.publisher.Complete(ctx, input.RunID, &report)
		if err != nil {
			metrics.StageFailed.WithLabelValues(TaskType, "PUBLISH_FAILED").Inc()
			h.failJob(client, job, fmt.Sprintf("publish report: %v", err))
			return
		}
		if !published {
			h.logger.Warn("report already published for run, skipping", map[string]interface{}{
				"runId": input.RunID,
			})
		}
	}

	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	metrics.StageCompleted.WithLabelValues(TaskType).Inc()

	h.completeJob(client, job, &Output{Report: report, Published: published})
}

// Aggregate reduces scored reviews to one-decimal means. Pure: no side
// effects, no failure modes.
func Aggregate(scored []models.ScoredReview) models.Aggregation {
	if len(scored) == 0 {
		return models.Aggregation{}
	}

	var totalSentiment, totalStars int
	for _, review := range scored {
		totalSentiment += review.Sentiment
		totalStars += review.StarRating
	}

	n := float64(len(scored))
	return models.Aggregation{
		AvgSentiment: round1(float64(totalSentiment) / n),
		AvgStars:     round1(float64(totalStars) / n),
		Count:        len(scored),
	}
}

// BuildReport composes the final immutable report from the resolver's output
// and the scored review list.
func BuildReport(productID, canonicalURL string, scored []models.ScoredReview) models.Report {
	agg := Aggregate(scored)
	return models.Report{
		ProductID:    productID,
		CanonicalURL: canonicalURL,
		Count:        agg.Count,
		AvgSentiment: agg.AvgSentiment,
		AvgStars:     agg.AvgStars,
		Reviews:      scored,
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, message string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey": job.Key,
		"error":  message,
	})

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(0).
		ErrorMessage(message).
		Send(context.Background())
}

// Publish runs the stage directly, outside a Zeebe job context: build the
// report and record it for the run. The returned report is the published one
// even when another delivery won the race.
func (h *Handler) Publish(ctx context.Context, runID, productID, canonicalURL string, scored []models.ScoredReview) (models.Report, error) {
	report := BuildReport(productID, canonicalURL, scored)
	if h.publisher != nil {
		if _, err := h.publisher.Complete(ctx, runID, &report); err != nil {
			return models.Report{}, errors.NewAggregationFailedError(
				fmt.Sprintf("publish report for run %s: %v", runID, err))
		}
	}
	return report, nil
}
