// internal/models/review.go
package models

// Review is one normalized customer review as returned by the reviews
// provider. Immutable once fetched; identity is ID.
type Review struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	StarRating  int    `json:"starRating"`
	Title       string `json:"title"`
	Comment     string `json:"comment"`
	SubmittedAt string `json:"submittedAt"`
}

// ScoredReview is a Review plus its 0-100 sentiment score. Created by the
// score-sentiment stage and never mutated afterward.
type ScoredReview struct {
	Review
	Sentiment int `json:"sentiment"`
}
