// internal/common/validation/runrequest_test.go
package validation

import (
	"testing"

	"sentiment-workers/internal/common/errors"
	"sentiment-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRunRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     models.RunRequest
		wantErr bool
	}{
		{
			name: "url submission",
			req: models.RunRequest{
				RunID:    "run-1",
				InputURL: "https://www.example.com/site/gadget/6418599.p",
			},
		},
		{
			name: "product id submission",
			req: models.RunRequest{
				RunID:     "run-1",
				ProductID: "6418599",
			},
		},
		{
			name: "with review budget",
			req: models.RunRequest{
				RunID:      "run-1",
				ProductID:  "6418599",
				MaxReviews: 250,
			},
		},
		{
			name:    "no identifier",
			req:     models.RunRequest{RunID: "run-1"},
			wantErr: true,
		},
		{
			name: "both identifiers",
			req: models.RunRequest{
				RunID:     "run-1",
				InputURL:  "https://www.example.com/6418599.p",
				ProductID: "6418599",
			},
			wantErr: true,
		},
		{
			name: "non-numeric product id",
			req: models.RunRequest{
				RunID:     "run-1",
				ProductID: "SKU-99",
			},
			wantErr: true,
		},
		{
			name: "budget above cap",
			req: models.RunRequest{
				RunID:      "run-1",
				ProductID:  "6418599",
				MaxReviews: 100000,
			},
			wantErr: true,
		},
		{
			name: "missing run id",
			req: models.RunRequest{
				ProductID: "6418599",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRunRequest(&tt.req)

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			stdErr, ok := err.(*errors.StandardError)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeInvalidRunInput, stdErr.Code)
			assert.False(t, stdErr.Retryable)
		})
	}
}
