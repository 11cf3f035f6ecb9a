// internal/workers/fetch-reviews/handler.go
package fetchreviews

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sentiment-workers/internal/common/errors"
	"sentiment-workers/internal/common/logger"
	"sentiment-workers/internal/common/metrics"
	"sentiment-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "fetch-reviews"
)

// Pager is the paged surface of the reviews provider.
type Pager interface {
	Page(ctx context.Context, productID string, page, pageSize int) ([]models.Review, error)
}

type Handler struct {
	config     *Config
	provider   Pager
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, provider Pager, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		provider:   provider,
		errHandler: errors.NewErrorHandler(l),
		logger:     l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(context.Background(), client, job,
			errors.NewInvalidRunInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	start := time.Now()
	output, err := h.execute(ctx, &input)
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if err != nil {
		code := "INTERNAL_ERROR"
		if stdErr, ok := err.(*errors.StandardError); ok {
			code = string(stdErr.Code)
		}
		metrics.StageFailed.WithLabelValues(TaskType, code).Inc()
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	metrics.StageCompleted.WithLabelValues(TaskType).Inc()
	h.completeJob(client, job, output)
}

// execute pages through the provider newest-first until the limit, a short
// page, or an empty page. Errors after the first page yield the partial
// result instead of failing the whole fetch.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	limit := input.MaxReviews
	if limit <= 0 {
		limit = h.config.MaxReviews
	}
	pageSize := h.config.PageSize

	collected := make([]models.Review, 0, limit)
	pages := 0

	maxPages := (limit + pageSize - 1) / pageSize
	for page := 1; page <= maxPages; page++ {
		batch, err := h.provider.Page(ctx, input.ProductID, page, pageSize)
		pages++
		metrics.ReviewPagesFetched.Inc()
		if err != nil {
			if page == 1 {
				return nil, errors.NewFetchFailedError(input.ProductID, err)
			}
			h.logger.Warn("page fetch failed, returning partial result", map[string]interface{}{
				"productId": input.ProductID,
				"page":      page,
				"error":     err.Error(),
			})
			break
		}

		if len(batch) == 0 {
			break
		}

		collected = append(collected, batch...)

		if len(collected) >= limit {
			break
		}
		if len(batch) < pageSize {
			// Short page: the provider has nothing beyond it.
			break
		}
	}

	if len(collected) > limit {
		collected = collected[:limit]
	}

	h.logger.Info("reviews fetched", map[string]interface{}{
		"productId": input.ProductID,
		"count":     len(collected),
		"pages":     pages,
	})

	return &Output{Reviews: collected, Pages: pages}, nil
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

// Fetch runs the stage directly, outside a Zeebe job context.
func (h *Handler) Fetch(ctx context.Context, productID string, limit int) ([]models.Review, error) {
	out, err := h.execute(ctx, &Input{ProductID: productID, MaxReviews: limit})
	if err != nil {
		return nil, err
	}
	return out.Reviews, nil
}
