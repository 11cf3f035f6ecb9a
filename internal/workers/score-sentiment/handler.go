// internal/workers/score-sentiment/handler.go
package scoresentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"sentiment-workers/internal/common/errors"
	"sentiment-workers/internal/common/logger"
	"sentiment-workers/internal/common/metrics"
	"sentiment-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "score-sentiment"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	firstIntRe   = regexp.MustCompile(`\d+`)
)

// Completer is the chat-completions surface of the scoring oracle.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Handler struct {
	config *Config
	oracle Completer
	logger logger.Logger
}

func NewHandler(config *Config, oracle Completer, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		oracle: oracle,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	start := time.Now()
	output := h.execute(ctx, &input)
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	metrics.StageCompleted.WithLabelValues(TaskType).Inc()

	h.completeJob(client, job, output)
}

// execute scores reviews one at a time, in order. The stage as a whole never
// fails: every per-review failure degrades to the fallback score. Sequential
// scoring keeps the output order deterministic and the outbound request rate
// bounded.
func (h *Handler) execute(ctx context.Context, input *Input) *Output {
	scored := make([]models.ScoredReview, 0, len(input.Reviews))
	degraded := 0

	for i, review := range input.Reviews {
		score, fellBack := h.scoreOne(ctx, review)
		if fellBack {
			degraded++
		}
		scored = append(scored, models.ScoredReview{Review: review, Sentiment: score})

		h.logger.Debug("review scored", map[string]interface{}{
			"reviewId":  review.ID,
			"index":     i,
			"sentiment": score,
			"fallback":  fellBack,
		})
	}

	h.logger.Info("sentiment scoring finished", map[string]interface{}{
		"count":    len(scored),
		"degraded": degraded,
	})

	return &Output{ScoredReviews: scored, Degraded: degraded}
}

// scoreOne applies the layered policy: minimal-text short-circuit, oracle
// call, parse with salvage, plausibility clamp, fallback. The star rating is
// ground truth; text sentiment is a bounded adjustment, never an override.
func (h *Handler) scoreOne(ctx context.Context, review models.Review) (score int, fellBack bool) {
	text := combinedText(review)

	// Character count, not bytes: a short CJK review must short-circuit too.
	if utf8.RuneCountInString(text) < h.config.MinTextLength && review.StarRating > 0 {
		metrics.ScoringFallbacks.WithLabelValues("minimal_text").Inc()
		return starBaseline(review.StarRating), false
	}

	raw, err := h.oracle.Complete(ctx, scorerSystemPrompt, h.buildPrompt(review, text))
	if err != nil {
		h.logDegraded(review, errors.NewScoringDegradedError(review.ID, err))
		metrics.ScoringFallbacks.WithLabelValues("oracle_error").Inc()
		return h.fallbackScore(review), true
	}

	parsed, ok := parseScore(raw)
	for attempt := 0; !ok && attempt < h.config.ReparseAttempts; attempt++ {
		// Bounded local re-prompt with a stricter instruction. This stays
		// inside the same scoring attempt and the same context deadline, so
		// it never extends stage-timeout accounting.
		raw, err = h.oracle.Complete(ctx, scorerSystemPrompt, h.buildStrictPrompt(review, text))
		if err != nil {
			break
		}
		parsed, ok = parseScore(raw)
	}
	if !ok {
		h.logDegraded(review, errors.NewScoringDegradedError(review.ID,
			fmt.Errorf("could not extract a score from oracle reply: %s", raw)))
		metrics.ScoringFallbacks.WithLabelValues("parse_failure").Inc()
		return h.fallbackScore(review), true
	}

	return h.clamp(parsed, review.StarRating), false
}

// clamp bounds the oracle's score to [0,100] and, when a star rating exists,
// to the plausibility envelope around the star baseline.
func (h *Handler) clamp(score, stars int) int {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	if stars <= 0 {
		return score
	}

	baseline := starBaseline(stars)
	low := baseline - h.config.ClampEnvelope
	high := baseline + h.config.ClampEnvelope
	if low < 0 {
		low = 0
	}
	if high > 100 {
		high = 100
	}

	if score < low {
		metrics.ScoringClamped.Inc()
		return low
	}
	if score > high {
		metrics.ScoringClamped.Inc()
		return high
	}
	return score
}

func (h *Handler) fallbackScore(review models.Review) int {
	if review.StarRating > 0 {
		return starBaseline(review.StarRating)
	}
	return h.config.NeutralFallback
}

func (h *Handler) logDegraded(review models.Review, stdErr *errors.StandardError) {
	h.logger.Warn("scoring degraded, using fallback", map[string]interface{}{
		"reviewId":  review.ID,
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
	})
}

// starBaseline converts a 1..5 star rating to its 0..100 anchor.
func starBaseline(stars int) int {
	return int(math.Round(float64(stars) / 5 * 100))
}

// combinedText collapses the review's title and comment to single spaces.
func combinedText(review models.Review) string {
	joined := strings.TrimSpace(review.Title + "\n\n" + review.Comment)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(joined, " "))
}

// parseScore tries strict JSON first, then falls back to the first integer
// substring in the reply.
func parseScore(raw string) (int, bool) {
	var reply struct {
		Score json.Number `json:"score"`
	}
	if err := json.Unmarshal([]byte(raw), &reply); err == nil && reply.Score != "" {
		if f, err := reply.Score.Float64(); err == nil {
			return int(f), true
		}
	}

	if m := firstIntRe.FindString(raw); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n, true
		}
	}

	return 0, false
}

const scorerSystemPrompt = "You are a sentiment analyzer for product reviews. Your job is to " +
	"analyze the sentiment expressed in review text and provide a score from 0-100 that aligns " +
	"with the star rating context. Return only a JSON object."

func (h *Handler) buildPrompt(review models.Review, text string) string {
	starPct := int(h.config.StarWeight * 100)
	textPct := int(h.config.TextWeight * 100)

	var parts []string

	parts = append(parts, `Analyze this product review and return JSON: {"score": X} where X is a specific number 0-100.`)
	parts = append(parts, fmt.Sprintf("\nSCORING FORMULA: Use %d%% weight on star rating + %d%% weight on text sentiment.", starPct, textPct))
	parts = append(parts, "\nSTAR RATING BASELINES:")
	parts = append(parts, "- 5 stars = 100 baseline -> Final range: 70-100 (adjust down for negative text)")
	parts = append(parts, "- 4 stars = 80 baseline -> Final range: 56-95 (adjust down for negative text)")
	parts = append(parts, "- 3 stars = 60 baseline -> Final range: 42-75 (adjust up/down based on text)")
	parts = append(parts, "- 2 stars = 40 baseline -> Final range: 28-55 (adjust up for positive text)")
	parts = append(parts, "- 1 star = 20 baseline -> Final range: 0-35 (adjust up for positive text)")
	parts = append(parts, "\nReturn a SPECIFIC number (like 73, 45, 91) not a range. Heavily weight the star rating but let negative text sentiment pull high-rated reviews down within their range.")
	parts = append(parts, fmt.Sprintf("\nStar Rating: %d/5 stars", review.StarRating))
	parts = append(parts, fmt.Sprintf("Review Text: %s", text))

	return strings.Join(parts, "\n")
}

func (h *Handler) buildStrictPrompt(review models.Review, text string) string {
	var parts []string

	parts = append(parts, `Your previous reply could not be parsed. Respond with ONLY the JSON object {"score": X}, where X is one integer between 0 and 100. No prose, no markdown, no explanation.`)
	parts = append(parts, fmt.Sprintf("\nStar Rating: %d/5 stars", review.StarRating))
	parts = append(parts, fmt.Sprintf("Review Text: %s", text))

	return strings.Join(parts, "\n")
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, message string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey": job.Key,
		"error":  message,
	})

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(0).
		ErrorMessage(message).
		Send(context.Background())
}

// Score runs the stage directly, outside a Zeebe job context.
func (h *Handler) Score(ctx context.Context, reviews []models.Review) ([]models.ScoredReview, error) {
	out := h.execute(ctx, &Input{Reviews: reviews})
	return out.ScoredReviews, nil
}
