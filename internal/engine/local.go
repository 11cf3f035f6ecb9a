// internal/engine/local.go
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"sentiment-workers/internal/common/config"
	"sentiment-workers/internal/common/errors"
	"sentiment-workers/internal/common/logger"
	"sentiment-workers/internal/common/metrics"
	"sentiment-workers/internal/common/observability"
	"sentiment-workers/internal/common/validation"
	"sentiment-workers/internal/models"
	"sentiment-workers/internal/pipeline"
	"sentiment-workers/internal/registry"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const describeInterval = 200 * time.Millisecond

// LocalEngine executes runs in-process. Durability is per-process: the run
// registry survives restarts (when Redis-backed), in-flight stage state does
// not. Suited to single-node deployments and tests; the Camunda adapter
// covers the clustered case.
type LocalEngine struct {
	stages pipeline.Stages
	store  registry.Store
	cfg    config.PipelineConfig
	obs    *observability.Observability
	logger logger.Logger

	group singleflight.Group
	wg    sync.WaitGroup
}

// NewLocalEngine builds the in-process engine. obs may be nil.
func NewLocalEngine(stages pipeline.Stages, store registry.Store, cfg config.PipelineConfig, obs *observability.Observability, log logger.Logger) *LocalEngine {
	return &LocalEngine{
		stages: stages,
		store:  store,
		cfg:    cfg,
		obs:    obs,
		logger: log.WithFields(map[string]interface{}{"component": "local-engine"}),
	}
}

func (e *LocalEngine) StartRun(ctx context.Context, req models.RunRequest) (string, error) {
	if req.RunID == "" {
		req.RunID = uuid.New().String()
	}
	if err := validation.ValidateRunRequest(&req); err != nil {
		return "", err
	}
	if req.MaxReviews <= 0 {
		req.MaxReviews = e.cfg.MaxReviewsDefault
	}

	claimed, err := e.store.MarkRunning(ctx, req.RunID)
	if err != nil {
		return "", err
	}
	if !claimed {
		// Same runId resubmitted: the first submission owns the execution.
		e.logger.Info("run already known, not starting a second execution", map[string]interface{}{
			"runId": req.RunID,
		})
		return req.RunID, nil
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		// Detached from the caller: a run outlives the submission request.
		e.executeRun(context.Background(), req)
	}()

	return req.RunID, nil
}

func (e *LocalEngine) executeRun(ctx context.Context, req models.RunRequest) {
	start := time.Now()
	_, err, _ := e.group.Do(req.RunID, func() (interface{}, error) {
		return pipeline.Run(ctx, e.stages, e.runStage, req)
	})

	if err != nil {
		e.logger.Error("run failed", map[string]interface{}{
			"runId": req.RunID,
			"error": err.Error(),
		})
		if _, failErr := e.store.Fail(ctx, req.RunID, err.Error()); failErr != nil {
			e.logger.Error("could not record run failure", map[string]interface{}{
				"runId": req.RunID,
				"error": failErr.Error(),
			})
		}
		e.recordRun(ctx, start, "error")
		return
	}

	e.logger.Info("run complete", map[string]interface{}{
		"runId":    req.RunID,
		"duration": time.Since(start).String(),
	})
	e.recordRun(ctx, start, "complete")
}

func (e *LocalEngine) recordRun(ctx context.Context, start time.Time, status string) {
	if e.obs == nil {
		return
	}
	e.obs.RecordRunProcessed(ctx, status)
	e.obs.RecordRunDuration(ctx, time.Since(start), status)
}

// runStage executes one stage under the durability policy: a start-to-close
// timeout per attempt, exponential backoff between attempts, a hard attempt
// cap. Non-retryable errors end the run immediately.
func (e *LocalEngine) runStage(ctx context.Context, stage string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.StageTimeoutDuration())
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			metrics.StageCompleted.WithLabelValues(stage).Inc()
			return nil
		}

		if stderrors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = errors.NewStageTimeoutError(stage, e.cfg.StageTimeoutDuration())
			metrics.StageFailed.WithLabelValues(stage, string(errors.ErrCodeStageTimeout)).Inc()
			// A timed-out attempt is a failed attempt; the next one starts a
			// fresh timeout window.
			lastErr = err
		} else {
			metrics.StageFailed.WithLabelValues(stage, errorCode(err)).Inc()
			lastErr = err
			if !errors.IsRetryable(err) {
				return err
			}
		}

		e.logger.Warn("stage attempt failed", map[string]interface{}{
			"stage":   stage,
			"attempt": attempt,
			"error":   lastErr.Error(),
		})

		if attempt < e.cfg.MaxAttempts {
			if err := e.sleep(ctx, e.backoff(attempt)); err != nil {
				return err
			}
		}
	}

	return errors.NewStageRetryExhaustedError(stage, e.cfg.MaxAttempts, lastErr)
}

// backoff doubles the initial delay per completed attempt, capped.
func (e *LocalEngine) backoff(attempt int) time.Duration {
	delay := e.cfg.RetryInitialDuration() << (attempt - 1)
	if max := e.cfg.RetryMaxDuration(); delay > max {
		delay = max
	}
	return delay
}

func (e *LocalEngine) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *LocalEngine) Describe(ctx context.Context, runID string) (*models.RunStatus, error) {
	return e.store.Get(ctx, runID)
}

func (e *LocalEngine) AwaitResult(ctx context.Context, runID string) (*models.Report, error) {
	ticker := time.NewTicker(describeInterval)
	defer ticker.Stop()

	for {
		status, err := e.store.Get(ctx, runID)
		if err != nil {
			return nil, err
		}

		switch status.State {
		case models.RunStateComplete:
			return status.Data, nil
		case models.RunStateError:
			return nil, fmt.Errorf("run %s failed: %s", runID, status.Message)
		case models.RunStateNotFound:
			return nil, errors.NewRunNotFoundError(runID)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Wait blocks until every in-flight run has finished. Used on shutdown.
func (e *LocalEngine) Wait() {
	e.wg.Wait()
}

func errorCode(err error) string {
	if stdErr, ok := err.(*errors.StandardError); ok {
		return string(stdErr.Code)
	}
	return "INTERNAL"
}
