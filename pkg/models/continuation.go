package models

import "time"

// ContinuationKind selects the handler for deferred work.
type ContinuationKind string

const (
	// ContinuationDelayedOutput applies the side effect of a delayed output node.
	ContinuationDelayedOutput ContinuationKind = "delayed_output"
	// ContinuationScheduledWorkflow runs a workflow, either on its recurring
	// schedule or in response to a received webhook.
	ContinuationScheduledWorkflow ContinuationKind = "scheduled_workflow"
)

// Continuation is deferred work handed to a scheduler. It must survive a
// JSON round trip since schedulers may persist it out of process.
type Continuation struct {
	ID          string           `json:"id"`
	Kind        ContinuationKind `json:"kind"`
	WorkflowID  string           `json:"workflow_id"`
	ExecutionID string           `json:"execution_id,omitempty"`
	Node        *Node            `json:"node,omitempty"`
	Content     string           `json:"content,omitempty"`
	Payload     any              `json:"payload,omitempty"`
	Recurring   bool             `json:"recurring,omitempty"`
	FireAt      time.Time        `json:"fire_at"`
}
