// internal/workers/aggregate-report/models.go
package aggregatereport

import "sentiment-workers/internal/models"

type Input struct {
	RunID         string                `json:"runId"`
	ProductID     string                `json:"productId"`
	CanonicalURL  string                `json:"canonicalUrl"`
	ScoredReviews []models.ScoredReview `json:"scoredReviews"`
}

type Output struct {
	Report models.Report `json:"report"`
	// Published reports whether this job won the publish-once race for the
	// runId; a re-delivered job observes false and changes nothing.
	Published bool `json:"published"`
}
