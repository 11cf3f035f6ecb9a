// internal/workers/aggregate-report/handler_test.go
package aggregatereport

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentiment-workers/internal/common/logger"
	"sentiment-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(sentiment, stars int) models.ScoredReview {
	return models.ScoredReview{
		Review:    models.Review{StarRating: stars},
		Sentiment: sentiment,
	}
}

// recordingPublisher captures published reports and can simulate a lost race
// or a broken store.
type recordingPublisher struct {
	published map[string]*models.Report
	err       error
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{published: make(map[string]*models.Report)}
}

func (p *recordingPublisher) Complete(_ context.Context, runID string, report *models.Report) (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	if _, exists := p.published[runID]; exists {
		return false, nil
	}
	p.published[runID] = report
	return true, nil
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name          string
		scored        []models.ScoredReview
		wantSentiment float64
		wantStars     float64
		wantCount     int
	}{
		{
			name:          "empty input yields zeros",
			scored:        nil,
			wantSentiment: 0,
			wantStars:     0,
			wantCount:     0,
		},
		{
			name:          "two reviews",
			scored:        []models.ScoredReview{scored(80, 5), scored(60, 3)},
			wantSentiment: 70.0,
			wantStars:     4.0,
			wantCount:     2,
		},
		{
			name:          "one decimal rounding",
			scored:        []models.ScoredReview{scored(70, 4), scored(71, 4), scored(73, 5)},
			wantSentiment: 71.3,
			wantStars:     4.3,
			wantCount:     3,
		},
		{
			name:          "single review",
			scored:        []models.ScoredReview{scored(55, 3)},
			wantSentiment: 55.0,
			wantStars:     3.0,
			wantCount:     1,
		},
		{
			name:          "midpoint rounds up",
			scored:        []models.ScoredReview{scored(50, 2), scored(51, 3)},
			wantSentiment: 50.5,
			wantStars:     2.5,
			wantCount:     2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := Aggregate(tt.scored)

			assert.Equal(t, tt.wantSentiment, agg.AvgSentiment)
			assert.Equal(t, tt.wantStars, agg.AvgStars)
			assert.Equal(t, tt.wantCount, agg.Count)
		})
	}
}

func TestBuildReport(t *testing.T) {
	reviews := []models.ScoredReview{scored(80, 5), scored(60, 3)}

	report := BuildReport("6418599", "https://www.example.com/site/gadget/6418599.p", reviews)

	assert.Equal(t, "6418599", report.ProductID)
	assert.Equal(t, "https://www.example.com/site/gadget/6418599.p", report.CanonicalURL)
	assert.Equal(t, 2, report.Count)
	assert.Equal(t, 70.0, report.AvgSentiment)
	assert.Equal(t, 4.0, report.AvgStars)
	assert.Len(t, report.Reviews, 2)
}

func TestPublish_PublishOnce(t *testing.T) {
	publisher := newRecordingPublisher()
	h := NewHandler(&Config{Timeout: 5 * time.Second}, publisher, logger.NewTestLogger(t))

	first, err := h.Publish(context.Background(), "run-1", "6418599", "https://example.com/6418599.p",
		[]models.ScoredReview{scored(90, 5)})
	require.NoError(t, err)

	second, err := h.Publish(context.Background(), "run-1", "6418599", "https://example.com/6418599.p",
		[]models.ScoredReview{scored(10, 1)})
	require.NoError(t, err)

	assert.Equal(t, first.AvgSentiment, 90.0)
	assert.Equal(t, second.AvgSentiment, 10.0, "the local result reflects this delivery")
	assert.Equal(t, 90.0, publisher.published["run-1"].AvgSentiment,
		"the stored report is the first delivery's")
}

func TestPublish_StoreFailure(t *testing.T) {
	publisher := newRecordingPublisher()
	publisher.err = errors.New("redis: connection pool exhausted")
	h := NewHandler(&Config{Timeout: 5 * time.Second}, publisher, logger.NewTestLogger(t))

	_, err := h.Publish(context.Background(), "run-1", "6418599", "", nil)

	assert.Error(t, err)
}
