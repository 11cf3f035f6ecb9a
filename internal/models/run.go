// internal/models/run.go
package models

// RunState is the lifecycle state of a pipeline run. Transitions are
// running -> complete | error, both terminal; a state never reverts.
type RunState string

const (
	RunStateRunning  RunState = "running"
	RunStateComplete RunState = "complete"
	RunStateError    RunState = "error"
	RunStateNotFound RunState = "not_found"
)

// RunRequest is the submission payload for one pipeline run. RunID is the
// idempotency key for the whole pipeline: at most one logical execution per
// RunID. Exactly one of InputURL or ProductID must be set.
type RunRequest struct {
	RunID      string `json:"runId"`
	InputURL   string `json:"inputUrl,omitempty"`
	ProductID  string `json:"productId,omitempty"`
	MaxReviews int    `json:"maxReviews,omitempty"`
}

// Aggregation is the output of the aggregate-report stage.
type Aggregation struct {
	AvgSentiment float64 `json:"avgSentiment"`
	AvgStars     float64 `json:"avgStars"`
	Count        int     `json:"count"`
}

// Report is the immutable result of a successful run, produced exactly once
// per runId.
type Report struct {
	ProductID    string         `json:"productId"`
	CanonicalURL string         `json:"canonicalUrl"`
	Count        int            `json:"count"`
	AvgSentiment float64        `json:"avgSentiment"`
	AvgStars     float64        `json:"avgStars"`
	Reviews      []ScoredReview `json:"reviews"`
}

// RunStatus is the caller-visible view of a run: running carries no data,
// complete carries the Report, error carries a single message.
type RunStatus struct {
	State   RunState `json:"status"`
	Message string   `json:"message,omitempty"`
	Data    *Report  `json:"data,omitempty"`
}
