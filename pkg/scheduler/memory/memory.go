// Package memory is an in-process scheduler store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/scheduler"
)

type Store struct {
	mu      sync.Mutex
	pending map[string]models.Continuation
}

func NewStore() *Store {
	return &Store{pending: make(map[string]models.Continuation)}
}

func (s *Store) ScheduleAt(_ context.Context, at time.Time, continuation models.Continuation) error {
	continuation, err := scheduler.Prepare(at, continuation)
	if err != nil {
		return err
	}

	// Stored as a JSON copy, the same shape an out-of-process store keeps.
	continuation, err = detach(continuation)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[continuation.ID] = continuation

	return nil
}

func (s *Store) CancelAllFor(_ context.Context, workflowID string, kinds ...models.ContinuationKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, continuation := range s.pending {
		if continuation.WorkflowID == workflowID && scheduler.MatchesKind(continuation.Kind, kinds) {
			delete(s.pending, id)
		}
	}

	return nil
}

func (s *Store) PendingFor(_ context.Context, workflowID string, kinds ...models.ContinuationKind) ([]models.Continuation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]models.Continuation, 0)

	for _, continuation := range s.pending {
		if continuation.WorkflowID == workflowID && scheduler.MatchesKind(continuation.Kind, kinds) {
			pending = append(pending, continuation)
		}
	}

	return pending, nil
}

func (s *Store) Due(_ context.Context, now time.Time) ([]models.Continuation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]models.Continuation, 0)

	for id, continuation := range s.pending {
		if !continuation.FireAt.After(now) {
			due = append(due, continuation)
			delete(s.pending, id)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].FireAt.Before(due[j].FireAt)
	})

	return due, nil
}

// Pending returns the continuations not yet claimed, in fire order.
func (s *Store) Pending() []models.Continuation {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]models.Continuation, 0, len(s.pending))
	for _, continuation := range s.pending {
		pending = append(pending, continuation)
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].FireAt.Before(pending[j].FireAt)
	})

	return pending
}

func (s *Store) Close() error {
	return nil
}

func detach(continuation models.Continuation) (models.Continuation, error) {
	data, err := json.Marshal(continuation)
	if err != nil {
		return models.Continuation{}, fmt.Errorf("continuation is not serializable: %w", err)
	}

	var copied models.Continuation

	err = json.Unmarshal(data, &copied)
	if err != nil {
		return models.Continuation{}, fmt.Errorf("continuation is not serializable: %w", err)
	}

	return copied, nil
}
