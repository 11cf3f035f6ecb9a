// internal/registry/registry.go
//
// The run registry is the single source of truth for run state. Every state
// is written with SetNX so a slot, once claimed, never changes hands: the
// "running" claim dedupes concurrent submissions of the same runId, and the
// "done" slot makes the final report publish-once across redeliveries.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"sentiment-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

// Store records run lifecycle state keyed by runId.
type Store interface {
	// MarkRunning claims the runId. Returns false when the run already
	// exists, in any state.
	MarkRunning(ctx context.Context, runID string) (bool, error)

	// Complete publishes the final report. Returns false when a terminal
	// state was already published for this runId.
	Complete(ctx context.Context, runID string, report *models.Report) (bool, error)

	// Fail records a terminal error. Returns false when a terminal state was
	// already published for this runId.
	Fail(ctx context.Context, runID, message string) (bool, error)

	// Get returns the current status. A runId never submitted reports
	// RunStateNotFound, not an error.
	Get(ctx context.Context, runID string) (*models.RunStatus, error)
}

const (
	runKeyPrefix  = "run:"
	doneKeySuffix = ":done"
)

type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

func (s *RedisStore) MarkRunning(ctx context.Context, runID string) (bool, error) {
	status := models.RunStatus{State: models.RunStateRunning}
	payload, err := json.Marshal(&status)
	if err != nil {
		return false, fmt.Errorf("marshal run status: %w", err)
	}

	claimed, err := s.client.SetNX(ctx, runKey(runID), payload, s.retention).Result()
	if err != nil {
		return false, fmt.Errorf("claim run %s: %w", runID, err)
	}
	return claimed, nil
}

func (s *RedisStore) Complete(ctx context.Context, runID string, report *models.Report) (bool, error) {
	return s.finish(ctx, runID, &models.RunStatus{
		State: models.RunStateComplete,
		Data:  report,
	})
}

func (s *RedisStore) Fail(ctx context.Context, runID, message string) (bool, error) {
	return s.finish(ctx, runID, &models.RunStatus{
		State:   models.RunStateError,
		Message: message,
	})
}

// finish publishes a terminal status. The done slot is claimed first; only
// the winner overwrites the visible status key, so a late duplicate can
// never replace an already-published report.
func (s *RedisStore) finish(ctx context.Context, runID string, status *models.RunStatus) (bool, error) {
	won, err := s.client.SetNX(ctx, doneKey(runID), string(status.State), s.retention).Result()
	if err != nil {
		return false, fmt.Errorf("claim terminal state for run %s: %w", runID, err)
	}
	if !won {
		return false, nil
	}

	payload, err := json.Marshal(status)
	if err != nil {
		return false, fmt.Errorf("marshal run status: %w", err)
	}
	if err := s.client.Set(ctx, runKey(runID), payload, s.retention).Err(); err != nil {
		return false, fmt.Errorf("publish terminal state for run %s: %w", runID, err)
	}
	return true, nil
}

func (s *RedisStore) Get(ctx context.Context, runID string) (*models.RunStatus, error) {
	payload, err := s.client.Get(ctx, runKey(runID)).Result()
	if err == redis.Nil {
		return &models.RunStatus{State: models.RunStateNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	var status models.RunStatus
	if err := json.Unmarshal([]byte(payload), &status); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &status, nil
}

func runKey(runID string) string  { return runKeyPrefix + runID }
func doneKey(runID string) string { return runKey(runID) + doneKeySuffix }

// MemoryStore is an in-process Store for tests and single-node setups.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]*models.RunStatus
	done map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*models.RunStatus),
		done: make(map[string]bool),
	}
}

func (s *MemoryStore) MarkRunning(_ context.Context, runID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[runID]; exists {
		return false, nil
	}
	s.runs[runID] = &models.RunStatus{State: models.RunStateRunning}
	return true, nil
}

func (s *MemoryStore) Complete(_ context.Context, runID string, report *models.Report) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done[runID] {
		return false, nil
	}
	s.done[runID] = true
	s.runs[runID] = &models.RunStatus{State: models.RunStateComplete, Data: report}
	return true, nil
}

func (s *MemoryStore) Fail(_ context.Context, runID, message string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done[runID] {
		return false, nil
	}
	s.done[runID] = true
	s.runs[runID] = &models.RunStatus{State: models.RunStateError, Message: message}
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, runID string) (*models.RunStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, exists := s.runs[runID]
	if !exists {
		return &models.RunStatus{State: models.RunStateNotFound}, nil
	}
	copied := *status
	return &copied, nil
}
