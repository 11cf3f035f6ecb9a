// internal/workers/score-sentiment/handler_test.go
package scoresentiment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"sentiment-workers/internal/common/logger"
	"sentiment-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *Config {
	return &Config{
		MinTextLength:   10,
		StarWeight:      0.7,
		TextWeight:      0.3,
		ClampEnvelope:   30,
		NeutralFallback: 50,
		ReparseAttempts: 1,
		Timeout:         30 * time.Second,
	}
}

// scriptedOracle replays replies (or errors) in order, then repeats the last.
type scriptedOracle struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scriptedOracle) Complete(_ context.Context, _, _ string) (string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < 0 {
		return "", errors.New("no scripted reply")
	}
	return s.replies[i], nil
}

func newTestHandler(t *testing.T, oracle Completer) *Handler {
	t.Helper()
	return NewHandler(createTestConfig(), oracle, logger.NewTestLogger(t))
}

func review(stars int, title, comment string) models.Review {
	return models.Review{
		ID:         "r-1",
		ProductID:  "6418599",
		StarRating: stars,
		Title:      title,
		Comment:    comment,
	}
}

func TestScoreOne_MinimalTextShortCircuit(t *testing.T) {
	tests := []struct {
		name  string
		stars int
		want  int
	}{
		{"five stars", 5, 100},
		{"four stars", 4, 80},
		{"three stars", 3, 60},
		{"two stars", 2, 40},
		{"one star", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &scriptedOracle{}
			h := newTestHandler(t, oracle)

			score, fellBack := h.scoreOne(context.Background(), review(tt.stars, "Ok", ""))

			assert.Equal(t, tt.want, score)
			assert.False(t, fellBack, "short-circuit is a policy outcome, not a degradation")
			assert.Zero(t, oracle.calls, "minimal text must not reach the oracle")
		})
	}
}

func TestScoreOne_WhitespaceCollapsedBeforeLengthCheck(t *testing.T) {
	oracle := &scriptedOracle{}
	h := newTestHandler(t, oracle)

	// 14 raw characters but only 7 after collapsing runs of whitespace.
	score, _ := h.scoreOne(context.Background(), review(4, "", "bad    \n\n  bad"))

	assert.Equal(t, 80, score)
	assert.Zero(t, oracle.calls)
}

func TestScoreOne_ShortCircuitCountsCharactersNotBytes(t *testing.T) {
	oracle := &scriptedOracle{}
	h := newTestHandler(t, oracle)

	// 6 characters, 18 bytes: still under the 10-character threshold.
	score, fellBack := h.scoreOne(context.Background(), review(4, "", "很好用推荐它"))

	assert.Equal(t, 80, score)
	assert.False(t, fellBack)
	assert.Zero(t, oracle.calls, "a short non-ASCII review must not reach the oracle")
}

func TestScoreOne_OracleScoreWithinEnvelope(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{replies: []string{`{"score": 85}`}})

	score, fellBack := h.scoreOne(context.Background(), review(5, "Great", "Really happy with this purchase"))

	assert.Equal(t, 85, score)
	assert.False(t, fellBack)
}

func TestScoreOne_ClampProperty(t *testing.T) {
	// Whatever the oracle claims, the final score stays inside the
	// plausibility envelope around the star baseline, intersected with
	// [0,100].
	oracleScores := []int{-50, 0, 1, 10, 35, 50, 65, 90, 100, 180}

	for stars := 1; stars <= 5; stars++ {
		baseline := starBaseline(stars)
		low := baseline - 30
		if low < 0 {
			low = 0
		}
		high := baseline + 30
		if high > 100 {
			high = 100
		}

		for _, claimed := range oracleScores {
			t.Run(fmt.Sprintf("stars=%d claimed=%d", stars, claimed), func(t *testing.T) {
				h := newTestHandler(t, &scriptedOracle{
					replies: []string{fmt.Sprintf(`{"score": %d}`, claimed)},
				})

				score, fellBack := h.scoreOne(context.Background(),
					review(stars, "Mixed feelings", "some good parts and some bad parts"))

				assert.False(t, fellBack)
				assert.GreaterOrEqual(t, score, low)
				assert.LessOrEqual(t, score, high)
			})
		}
	}
}

func TestScoreOne_NoStarsNoClamp(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{replies: []string{`{"score": 95}`}})

	score, fellBack := h.scoreOne(context.Background(), review(0, "Surprisingly good", "exceeded every expectation I had"))

	assert.Equal(t, 95, score)
	assert.False(t, fellBack)
}

func TestScoreOne_SalvagesScoreFromProse(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{replies: []string{"The sentiment score is 72 out of 100."}})

	score, fellBack := h.scoreOne(context.Background(), review(4, "Good", "works well but the battery could be better"))

	assert.Equal(t, 72, score)
	assert.False(t, fellBack)
}

func TestScoreOne_StricterRepromptAfterUnparsableReply(t *testing.T) {
	oracle := &scriptedOracle{replies: []string{
		"I would rate this positively.",
		`{"score": 66}`,
	}}
	h := newTestHandler(t, oracle)

	score, fellBack := h.scoreOne(context.Background(), review(3, "Fine", "does the job, nothing remarkable about it"))

	assert.Equal(t, 66, score)
	assert.False(t, fellBack)
	assert.Equal(t, 2, oracle.calls)
}

func TestScoreOne_FallbackAfterRepromptExhausted(t *testing.T) {
	oracle := &scriptedOracle{replies: []string{
		"positive vibes only",
		"still no number here",
	}}
	h := newTestHandler(t, oracle)

	score, fellBack := h.scoreOne(context.Background(), review(4, "Good", "works well but arrived with a scratched case"))

	assert.Equal(t, 80, score, "fallback is the star baseline")
	assert.True(t, fellBack)
	assert.Equal(t, 2, oracle.calls)
}

func TestScoreOne_OracleErrorFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		stars int
		want  int
	}{
		{"with stars falls back to baseline", 2, 40},
		{"without stars falls back to neutral", 0, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &scriptedOracle{
				replies: []string{""},
				errs:    []error{errors.New("connection reset")},
			})

			score, fellBack := h.scoreOne(context.Background(),
				review(tt.stars, "Meh", "it broke after two weeks of light use"))

			assert.Equal(t, tt.want, score)
			assert.True(t, fellBack)
		})
	}
}

func TestExecute_OrderAndLengthPreserved(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{replies: []string{`{"score": 60}`}})

	reviews := []models.Review{
		{ID: "a", StarRating: 3, Comment: "average product overall in my opinion"},
		{ID: "b", StarRating: 1, Comment: ""},
		{ID: "c", StarRating: 5, Comment: "absolutely love it, use it every day"},
	}

	out := h.execute(context.Background(), &Input{Reviews: reviews})

	require.Len(t, out.ScoredReviews, 3)
	assert.Equal(t, "a", out.ScoredReviews[0].ID)
	assert.Equal(t, "b", out.ScoredReviews[1].ID)
	assert.Equal(t, "c", out.ScoredReviews[2].ID)
	// The short review short-circuits to its baseline.
	assert.Equal(t, 20, out.ScoredReviews[1].Sentiment)
}

func TestExecute_TotalOutageDegradesEveryReview(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{
		replies: []string{""},
		errs:    []error{errors.New("dial tcp: connection refused")},
	})

	reviews := []models.Review{
		{ID: "a", StarRating: 4, Comment: "pretty happy with this thing so far"},
		{ID: "b", StarRating: 2, Comment: "stopped charging after the first month"},
	}

	out := h.execute(context.Background(), &Input{Reviews: reviews})

	require.Len(t, out.ScoredReviews, 2)
	assert.Equal(t, 80, out.ScoredReviews[0].Sentiment)
	assert.Equal(t, 40, out.ScoredReviews[1].Sentiment)
	assert.Equal(t, 2, out.Degraded)
}

func TestExecute_EmptyInput(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{})

	out := h.execute(context.Background(), &Input{})

	assert.Empty(t, out.ScoredReviews)
	assert.Zero(t, out.Degraded)
}

func TestStarBaseline(t *testing.T) {
	assert.Equal(t, 20, starBaseline(1))
	assert.Equal(t, 40, starBaseline(2))
	assert.Equal(t, 60, starBaseline(3))
	assert.Equal(t, 80, starBaseline(4))
	assert.Equal(t, 100, starBaseline(5))
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   int
		wantOK bool
	}{
		{"strict json", `{"score": 73}`, 73, true},
		{"json with float", `{"score": 73.6}`, 73, true},
		{"prose with number", "around 45 I think", 45, true},
		{"no number", "quite positive", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseScore(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
