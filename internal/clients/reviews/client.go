// internal/clients/reviews/client.go
package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"sentiment-workers/internal/common/config"
	"sentiment-workers/internal/common/httpclient"
	"sentiment-workers/internal/models"

	"golang.org/x/time/rate"
)

var (
	ErrNotFound     = errors.New("reviews: not found")
	ErrUnauthorized = errors.New("reviews: unauthorized")
)

// Client talks to the paged reviews provider. Requests are rate limited so
// concurrent runs stay inside the provider's quota.
type Client struct {
	base string
	key  string
	hc   *httpclient.Client
	rl   *rate.Limiter
}

func New(cfg config.ReviewsAPIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("reviews API key is required")
	}
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	timeout := config.GetDuration(cfg.Timeout)
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		base: cfg.BaseURL,
		key:  cfg.APIKey,
		hc:   httpclient.New(timeout),
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// Page requests one page of reviews for a product, sorted newest first.
// Records are normalized on the way out: identifiers coerced to string,
// missing title/comment left as empty strings.
func (c *Client) Page(ctx context.Context, productID string, page, pageSize int) ([]models.Review, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf(
		"%s/v1/reviews(sku=%s)?apiKey=%s&format=json&show=id,sku,rating,submissionTime,title,comment&sort=submissionTime.desc&pageSize=%d&page=%d",
		c.base, productID, c.key, pageSize, page,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("reviews: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Reviews []rawReview `json:"reviews"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("reviews: decode page %d: %w", page, err)
	}

	out := make([]models.Review, 0, len(payload.Reviews))
	for _, raw := range payload.Reviews {
		out = append(out, raw.normalize())
	}
	return out, nil
}

// rawReview matches the provider's wire format, where id and sku have been
// observed as both strings and numbers.
type rawReview struct {
	ID             interface{} `json:"id"`
	SKU            interface{} `json:"sku"`
	Rating         int         `json:"rating"`
	Title          string      `json:"title"`
	Comment        string      `json:"comment"`
	SubmissionTime string      `json:"submissionTime"`
}

func (r rawReview) normalize() models.Review {
	return models.Review{
		ID:          coerceString(r.ID),
		ProductID:   coerceString(r.SKU),
		StarRating:  r.Rating,
		Title:       r.Title,
		Comment:     r.Comment,
		SubmittedAt: r.SubmissionTime,
	}
}

func coerceString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
