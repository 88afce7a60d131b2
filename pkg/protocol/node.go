// Package protocol defines the contracts between the orchestrator and node executors.
package protocol

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/aiflow/pkg/ai"
	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
	"github.com/dukex/aiflow/pkg/scheduler"
)

// Execution identifies the run a node executes in.
type Execution struct {
	ID         string
	WorkflowID string
	// Trigger is the payload the run was started with, nil for manual runs.
	Trigger any
}

// NodeExecutor runs one kind of node. Failures are reported as error results,
// never as Go errors, so a failing node does not stop the walk.
type NodeExecutor interface {
	Type() models.NodeType
	Execute(ctx context.Context, node *models.Node, inputs *models.ResultMap, exec Execution) models.NodeResult
}

// NodeFactory creates node executors and provides metadata about the node type.
type NodeFactory interface {
	// Create builds the executor with its collaborators.
	Create(deps Dependencies) NodeExecutor

	// ID returns the node type the executor handles.
	ID() models.NodeType

	Name() string

	Description() string

	// Schema returns the JSON schema for the node data.
	Schema() map[string]any
}

// WebhookPoster delivers JSON documents to external URLs.
type WebhookPoster interface {
	PostJSON(ctx context.Context, url string, body any, timeout time.Duration) (int, error)
}

// Dependencies are the collaborators shared by node executors.
type Dependencies struct {
	Logger    *slog.Logger
	Completer ai.Completer
	Webhooks  WebhookPoster
	Outputs   persistence.OutputRepository
	Content   persistence.ContentRepository
	Scheduler scheduler.Scheduler
	// Now defaults to time.Now.
	Now func() time.Time
}

// Clock returns Now or the wall clock.
func (d Dependencies) Clock() time.Time {
	if d.Now != nil {
		return d.Now()
	}

	return time.Now()
}
