// internal/clients/reviews/client_test.go
package reviews

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"sentiment-workers/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(config.ReviewsAPIConfig{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		RateLimitRPS: 100,
		Timeout:      5000,
	})
	require.NoError(t, err)
	return client
}

func TestPage_RequestShape(t *testing.T) {
	var gotPath, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"reviews": []}`)
	})

	_, err := client.Page(context.Background(), "6418599", 2, 20)
	require.NoError(t, err)

	assert.Equal(t, "/v1/reviews(sku=6418599)", gotPath)
	assert.Contains(t, gotQuery, "apiKey=test-key")
	assert.Contains(t, gotQuery, "sort=submissionTime.desc")
	assert.Contains(t, gotQuery, "pageSize=20")
	assert.Contains(t, gotQuery, "page=2")
}

func TestPage_NormalizesHeterogeneousIdentifiers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"reviews": [
			{"id": 12345, "sku": 6418599, "rating": 5, "title": "Great", "comment": "love it", "submissionTime": "2026-08-01T10:00:00"},
			{"id": "abc-1", "sku": "6418599", "rating": 3, "comment": "it is fine"},
			{"id": null, "rating": 1}
		]}`)
	})

	reviews, err := client.Page(context.Background(), "6418599", 1, 20)
	require.NoError(t, err)
	require.Len(t, reviews, 3)

	assert.Equal(t, "12345", reviews[0].ID)
	assert.Equal(t, "6418599", reviews[0].ProductID)
	assert.Equal(t, 5, reviews[0].StarRating)

	assert.Equal(t, "abc-1", reviews[1].ID)
	assert.Equal(t, "", reviews[1].Title)

	assert.Equal(t, "", reviews[2].ID)
	assert.Equal(t, "", reviews[2].ProductID)
}

func TestPage_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.Page(context.Background(), "6418599", 1, 20)

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPage_UnexpectedStatusIncludesBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream exploded")
	})

	_, err := client.Page(context.Background(), "6418599", 1, 20)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(config.ReviewsAPIConfig{BaseURL: "https://api.example.com"})
	assert.Error(t, err)
}
