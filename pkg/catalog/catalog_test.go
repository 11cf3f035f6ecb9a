// pkg/catalog/catalog_test.go
package catalog

import (
	"testing"

	"sentiment-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ShippedCatalog(t *testing.T) {
	cat, err := Load("../../configs/catalog.json")
	require.NoError(t, err)

	for _, taskType := range []string{"resolve-product", "fetch-reviews", "score-sentiment", "aggregate-report", "record-failure"} {
		activity, ok := cat.Find(taskType)
		require.True(t, ok, "catalog must register %s", taskType)
		assert.NotEmpty(t, activity.InputSchema)
		assert.NotEmpty(t, activity.OutputSchema)
	}

	_, ok := cat.Find("no-such-task")
	assert.False(t, ok)
}

func TestActivity_ValidateInput(t *testing.T) {
	cat, err := Load("../../configs/catalog.json")
	require.NoError(t, err)

	fetch, ok := cat.Find("fetch-reviews")
	require.True(t, ok)

	assert.NoError(t, fetch.ValidateInput([]byte(`{"runId": "run-1", "productId": "6418599", "maxReviews": 50}`)))
	assert.Error(t, fetch.ValidateInput([]byte(`{"runId": "run-1"}`)), "productId is required")
	assert.Error(t, fetch.ValidateInput([]byte(`{"productId": "SKU-9"}`)), "productId must be numeric")
}

func TestActivity_ValidateJobInput(t *testing.T) {
	cat, err := Load("../../configs/catalog.json")
	require.NoError(t, err)

	fetch, ok := cat.Find("fetch-reviews")
	require.True(t, ok)

	// Jobs carry every process variable; extras beyond the schema are fine.
	assert.NoError(t, fetch.ValidateJobInput(`{"runId": "run-1", "inputUrl": "https://www.example.com/6418599.p", "productId": "6418599", "canonicalUrl": "https://www.example.com/6418599.p", "maxReviews": 50}`))
	assert.Error(t, fetch.ValidateJobInput(`{"runId": "run-1", "maxReviews": 50}`))
}

func TestActivity_GuardHandlerPassesValidJobs(t *testing.T) {
	cat, err := Load("../../configs/catalog.json")
	require.NoError(t, err)

	fetch, ok := cat.Find("fetch-reviews")
	require.True(t, ok)

	delivered := false
	guarded := fetch.GuardHandler(func(client worker.JobClient, job entities.Job) {
		delivered = true
	}, logger.NewNoOpLogger())

	job := entities.Job{ActivatedJob: &pb.ActivatedJob{
		Variables: `{"runId": "run-1", "productId": "6418599", "maxReviews": 50}`,
	}}
	guarded(nil, job)

	assert.True(t, delivered, "a schema-valid job must reach the handler")
}
