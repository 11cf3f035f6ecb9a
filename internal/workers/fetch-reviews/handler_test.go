// internal/workers/fetch-reviews/handler_test.go
package fetchreviews

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	stderrs "sentiment-workers/internal/common/errors"
	"sentiment-workers/internal/common/logger"
	"sentiment-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *Config {
	return &Config{
		PageSize:   20,
		MaxReviews: 100,
		Timeout:    30 * time.Second,
	}
}

// fakePager serves pages from a fixed review pool and records every request.
type fakePager struct {
	total    int
	failPage map[int]error
	requests []int
}

func (f *fakePager) Page(_ context.Context, productID string, page, pageSize int) ([]models.Review, error) {
	f.requests = append(f.requests, page)
	if err, ok := f.failPage[page]; ok {
		return nil, err
	}

	start := (page - 1) * pageSize
	if start >= f.total {
		return nil, nil
	}
	end := start + pageSize
	if end > f.total {
		end = f.total
	}

	out := make([]models.Review, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, models.Review{
			ID:         fmt.Sprintf("r-%d", i+1),
			ProductID:  productID,
			StarRating: 5,
			Comment:    "solid product, works as described",
		})
	}
	return out, nil
}

func newTestHandler(t *testing.T, pager Pager) *Handler {
	t.Helper()
	return NewHandler(createTestConfig(), pager, logger.NewTestLogger(t))
}

func TestExecute_PagingAndTruncation(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		limit     int
		wantCount int
		wantPages []int
	}{
		{
			name:      "limit spans two pages and truncates",
			total:     200,
			limit:     25,
			wantCount: 25,
			wantPages: []int{1, 2},
		},
		{
			name:      "limit exactly one page",
			total:     200,
			limit:     20,
			wantCount: 20,
			wantPages: []int{1},
		},
		{
			name:      "provider has fewer than limit",
			total:     7,
			limit:     100,
			wantCount: 7,
			wantPages: []int{1},
		},
		{
			name:      "short second page ends the walk",
			total:     33,
			limit:     100,
			wantCount: 33,
			wantPages: []int{1, 2},
		},
		{
			name:      "no reviews at all",
			total:     0,
			limit:     50,
			wantCount: 0,
			wantPages: []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pager := &fakePager{total: tt.total}
			h := newTestHandler(t, pager)

			out, err := h.execute(context.Background(), &Input{ProductID: "6418599", MaxReviews: tt.limit})

			require.NoError(t, err)
			assert.Len(t, out.Reviews, tt.wantCount)
			assert.Equal(t, tt.wantPages, pager.requests)
		})
	}
}

func TestExecute_NewestFirstOrderPreserved(t *testing.T) {
	pager := &fakePager{total: 30}
	h := newTestHandler(t, pager)

	out, err := h.execute(context.Background(), &Input{ProductID: "6418599", MaxReviews: 25})

	require.NoError(t, err)
	require.Len(t, out.Reviews, 25)
	assert.Equal(t, "r-1", out.Reviews[0].ID)
	assert.Equal(t, "r-25", out.Reviews[24].ID)
}

func TestExecute_FirstPageFailureFailsStage(t *testing.T) {
	pager := &fakePager{
		total:    100,
		failPage: map[int]error{1: errors.New("upstream 500")},
	}
	h := newTestHandler(t, pager)

	_, err := h.execute(context.Background(), &Input{ProductID: "6418599", MaxReviews: 50})

	require.Error(t, err)
	stdErr, ok := err.(*stderrs.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrs.ErrCodeFetchFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestExecute_LaterPageFailureReturnsPartial(t *testing.T) {
	pager := &fakePager{
		total:    100,
		failPage: map[int]error{3: errors.New("upstream 500")},
	}
	h := newTestHandler(t, pager)

	out, err := h.execute(context.Background(), &Input{ProductID: "6418599", MaxReviews: 80})

	require.NoError(t, err)
	assert.Len(t, out.Reviews, 40, "pages before the failure are kept")
	assert.Equal(t, []int{1, 2, 3}, pager.requests)
}

func TestExecute_ZeroLimitUsesConfigDefault(t *testing.T) {
	pager := &fakePager{total: 500}
	h := newTestHandler(t, pager)

	out, err := h.execute(context.Background(), &Input{ProductID: "6418599"})

	require.NoError(t, err)
	assert.Len(t, out.Reviews, 100)
}

func TestFetch_DirectMethod(t *testing.T) {
	pager := &fakePager{total: 12}
	h := newTestHandler(t, pager)

	reviews, err := h.Fetch(context.Background(), "6418599", 10)

	require.NoError(t, err)
	assert.Len(t, reviews, 10)
}
