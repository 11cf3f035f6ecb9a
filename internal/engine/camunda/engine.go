// internal/engine/camunda/engine.go
//
// Camunda adapter: runs are executed by a deployed BPMN process whose
// service tasks map one-to-one onto the worker task types. The adapter only
// starts process instances and reads run state from the shared registry; the
// workers themselves carry the stage logic.
package camunda

import (
	"context"
	"fmt"
	"time"

	"sentiment-workers/internal/common/config"
	"sentiment-workers/internal/common/errors"
	"sentiment-workers/internal/common/logger"
	"sentiment-workers/internal/common/validation"
	"sentiment-workers/internal/models"
	"sentiment-workers/internal/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/google/uuid"
)

const describeInterval = 500 * time.Millisecond

type Engine struct {
	client    zbc.Client
	store     registry.Store
	processID string
	cfg       config.PipelineConfig
	logger    logger.Logger
}

func NewEngine(client zbc.Client, store registry.Store, camunda config.CamundaConfig, cfg config.PipelineConfig, log logger.Logger) *Engine {
	return &Engine{
		client:    client,
		store:     store,
		processID: camunda.ProcessID,
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "camunda-engine"}),
	}
}

func (e *Engine) StartRun(ctx context.Context, req models.RunRequest) (string, error) {
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
		e.logger.Info("run already known, not starting a second process instance", map[string]interface{}{
			"runId": req.RunID,
		})
		return req.RunID, nil
	}

	variables := map[string]interface{}{
		"runId":      req.RunID,
		"inputUrl":   req.InputURL,
		"productId":  req.ProductID,
		"maxReviews": req.MaxReviews,
	}

	cmd, err := e.client.NewCreateInstanceCommand().
		BPMNProcessId(e.processID).
		LatestVersion().
		VariablesFromMap(variables)
	if err != nil {
		return "", fmt.Errorf("build create instance command: %w", err)
	}

	resp, err := cmd.Send(ctx)
	if err != nil {
		// The claim stays; a resubmission of the same runId would otherwise
		// start a second logical run.
		if _, failErr := e.store.Fail(ctx, req.RunID, err.Error()); failErr != nil {
			e.logger.Error("could not record start failure", map[string]interface{}{
				"runId": req.RunID,
				"error": failErr.Error(),
			})
		}
		return "", fmt.Errorf("create process instance: %w", err)
	}

	e.logger.Info("process instance started", map[string]interface{}{
		"runId":              req.RunID,
		"processInstanceKey": resp.GetProcessInstanceKey(),
	})
	return req.RunID, nil
}

func (e *Engine) Describe(ctx context.Context, runID string) (*models.RunStatus, error) {
	return e.store.Get(ctx, runID)
}

func (e *Engine) AwaitResult(ctx context.Context, runID string) (*models.Report, error) {
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
