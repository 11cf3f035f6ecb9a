// internal/workers/fetch-reviews/models.go
package fetchreviews

import "sentiment-workers/internal/models"

type Input struct {
	RunID      string `json:"runId"`
	ProductID  string `json:"productId"`
	MaxReviews int    `json:"maxReviews,omitempty"`
}

type Output struct {
	Reviews []models.Review `json:"reviews"`
	Pages   int             `json:"pages"`
}
