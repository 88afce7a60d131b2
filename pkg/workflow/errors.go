package workflow

import (
	"errors"

	"github.com/dukex/aiflow/pkg/graph"
	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
)

// Fatal errors. They are returned before any node runs.
var (
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
	ErrWorkflowInactive = errors.New("workflow is not active")
	ErrInvalidSchedule  = models.ErrInvalidSchedule
	ErrCyclicGraph      = graph.ErrCyclicGraph
)

var ErrInvalidContinuation = errors.New("invalid continuation")

// IsFatal reports whether err stopped a run before it started.
func IsFatal(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrWorkflowInactive) ||
		errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrCyclicGraph)
}
