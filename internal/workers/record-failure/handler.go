// internal/workers/record-failure/handler.go
package recordfailure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sentiment-workers/internal/common/logger"
	"sentiment-workers/internal/common/metrics"
	"sentiment-workers/internal/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "record-failure"
)

// Handler sits on the process model's failure path. When a stage throws a
// caught BPMN error, this worker writes the terminal error state to the run
// registry so Describe and AwaitResult observe the failure instead of a run
// that stays running forever.
type Handler struct {
	config *Config
	store  registry.Store
	logger logger.Logger
}

func NewHandler(config *Config, store registry.Store, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		store:  store,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
	if input.RunID == "" {
		h.failJob(client, job, "runId variable is missing, cannot record the failure")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	start := time.Now()
	output, err := h.Execute(ctx, &input)
	if err != nil {
		metrics.StageFailed.WithLabelValues(TaskType, "REGISTRY_WRITE_FAILED").Inc()
		h.failJob(client, job, fmt.Sprintf("record run failure: %v", err))
		return
	}
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	metrics.StageCompleted.WithLabelValues(TaskType).Inc()

	h.completeJob(client, job, output)
}

// Execute marks the run failed in the registry. The first terminal write for
// a runId wins; anything later is a no-op.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	recorded, err := h.store.Fail(ctx, input.RunID, failureMessage(input))
	if err != nil {
		return nil, err
	}

	if !recorded {
		h.logger.Warn("run already in a terminal state, failure not recorded", map[string]interface{}{
			"runId": input.RunID,
		})
	} else {
		h.logger.Info("run failure recorded", map[string]interface{}{
			"runId":     input.RunID,
			"errorCode": input.ErrorCode,
		})
	}

	return &Output{Recorded: recorded}, nil
}

// failureMessage assembles the message surfaced to AwaitResult callers from
// whatever error variables the throwing worker attached.
func failureMessage(input *Input) string {
	message := input.ErrorMessage
	if message == "" {
		message = "process instance failed"
	}
	if input.ErrorCode != "" {
		message = fmt.Sprintf("%s: %s", input.ErrorCode, message)
	}
	if input.ErrorDetails != "" {
		message = fmt.Sprintf("%s: %s", message, input.ErrorDetails)
	}
	return message
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
