// Package scheduler defers continuations until their fire time.
package scheduler

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/aiflow/pkg/models"
)

// ErrNoWorkflow is returned when a continuation has no workflow id.
var ErrNoWorkflow = errors.New("continuation has no workflow id")

// Scheduler accepts continuations to be fired at or after a point in time.
type Scheduler interface {
	ScheduleAt(ctx context.Context, at time.Time, continuation models.Continuation) error
	// CancelAllFor drops pending continuations of the workflow. Without kinds,
	// every kind is dropped.
	CancelAllFor(ctx context.Context, workflowID string, kinds ...models.ContinuationKind) error
	// PendingFor lists the unclaimed continuations of the workflow, filtered
	// by kind like CancelAllFor.
	PendingFor(ctx context.Context, workflowID string, kinds ...models.ContinuationKind) ([]models.Continuation, error)
}

// Store is a Scheduler that can be polled.
type Store interface {
	Scheduler
	// Due claims every continuation whose fire time is not after now. A claimed
	// continuation is never returned again.
	Due(ctx context.Context, now time.Time) ([]models.Continuation, error)
	Close() error
}

// Prepare validates the continuation and stamps it with an id and fire time.
func Prepare(at time.Time, continuation models.Continuation) (models.Continuation, error) {
	if continuation.WorkflowID == "" {
		return continuation, ErrNoWorkflow
	}

	if continuation.ID == "" {
		continuation.ID = uuid.NewString()
	}

	continuation.FireAt = at.UTC()

	return continuation, nil
}

// MatchesKind reports whether kind is selected by kinds, where no kinds selects all.
func MatchesKind(kind models.ContinuationKind, kinds []models.ContinuationKind) bool {
	return len(kinds) == 0 || slices.Contains(kinds, kind)
}
