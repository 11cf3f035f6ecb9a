// internal/engine/engine.go
//
// The engine is the durable-execution boundary of the pipeline. Callers
// submit a RunRequest and get a runId back; the engine owns stage
// sequencing, per-stage timeouts, retry with backoff, and run-state
// bookkeeping. Two implementations exist: LocalEngine runs the stages
// in-process, the Camunda adapter hands them to a Zeebe process.
package engine

import (
	"context"

	"sentiment-workers/internal/models"
)

// Engine starts pipeline runs and exposes their state.
type Engine interface {
	// StartRun validates the request, claims the runId and begins
	// execution. Submitting an already-known runId is not an error: the
	// existing run's id is returned and no second execution starts.
	StartRun(ctx context.Context, req models.RunRequest) (string, error)

	// Describe returns the current status of a run.
	Describe(ctx context.Context, runID string) (*models.RunStatus, error)

	// AwaitResult blocks until the run reaches a terminal state or ctx
	// expires. On a completed run it returns the published report; on a
	// failed run the recorded error.
	AwaitResult(ctx context.Context, runID string) (*models.Report, error)
}
