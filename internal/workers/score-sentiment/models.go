// internal/workers/score-sentiment/models.go
package scoresentiment

import "sentiment-workers/internal/models"

type Input struct {
	RunID   string          `json:"runId"`
	Reviews []models.Review `json:"reviews"`
}

type Output struct {
	ScoredReviews []models.ScoredReview `json:"scoredReviews"`
	// Degraded counts reviews whose score came from the fallback policy
	// rather than a usable oracle reply.
	Degraded int `json:"degraded"`
}
