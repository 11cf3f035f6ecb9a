// pkg/catalog/guard.go
package catalog

import (
	"context"

	"sentiment-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ValidateJobInput checks a job's raw variables payload against the
// activity's input schema.
func (a *Activity) ValidateJobInput(variables string) error {
	return a.ValidateInput([]byte(variables))
}

// GuardHandler wraps a job handler so every delivered job is checked against
// the activity's input schema before the stage runs. A payload the schema
// rejects fails the job with no retries; retrying cannot make it valid.
func (a *Activity) GuardHandler(next worker.JobHandler, log logger.Logger) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		if err := a.ValidateJobInput(job.Variables); err != nil {
			log.Error("job rejected by activity catalog", map[string]interface{}{
				"jobKey":   job.Key,
				"taskType": a.TaskType,
				"error":    err.Error(),
			})
			_, _ = client.NewFailJobCommand().
				JobKey(job.Key).
				Retries(0).
				ErrorMessage(err.Error()).
				Send(context.Background())
			return
		}
		next(client, job)
	}
}
