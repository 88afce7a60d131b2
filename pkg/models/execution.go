package models

import "time"

// ExecutionStatus is the lifecycle state of an execution record.
type ExecutionStatus string

const (
	ExecutionStatusProcessing ExecutionStatus = "processing"
	ExecutionStatusCompleted  ExecutionStatus = "completed"
	ExecutionStatusScheduled  ExecutionStatus = "scheduled"
	ExecutionStatusTerminated ExecutionStatus = "terminated"
	ExecutionStatusError      ExecutionStatus = "error"
)

// IsActive reports whether the execution may still make progress.
func (s ExecutionStatus) IsActive() bool {
	return s == ExecutionStatusProcessing || s == ExecutionStatusScheduled
}

// StatusEntry is one line of an execution's append-only status log.
type StatusEntry struct {
	Status    ExecutionStatus `json:"status"`
	Message   string          `json:"message"`
	NodeID    string          `json:"node_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Execution is the persisted record of one workflow run.
type Execution struct {
	ID           string          `json:"id"`
	WorkflowID   string          `json:"workflow_id"`
	WorkflowName string          `json:"workflow_name"`
	Status       ExecutionStatus `json:"status"`
	InputData    any             `json:"input_data,omitempty"`
	OutputData   []StatusEntry   `json:"output_data"`
	Result       *ResultMap      `json:"result,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	ScheduledAt  *time.Time      `json:"scheduled_at,omitempty"`
}

// Run is what a caller gets back from executing a workflow.
type Run struct {
	ExecutionID string          `json:"execution_id"`
	WorkflowID  string          `json:"workflow_id"`
	Status      ExecutionStatus `json:"status"`
	Results     *ResultMap      `json:"results"`
}

// SavedOutput is the content produced by an output node, kept for later retrieval.
type SavedOutput struct {
	ID          string    `json:"id"`
	NodeID      string    `json:"node_id"`
	WorkflowID  string    `json:"workflow_id"`
	ExecutionID string    `json:"execution_id"`
	OutputType  string    `json:"output_type"`
	Content     string    `json:"content"`
	Status      string    `json:"status"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ContentEntity is a publishable item created by post nodes.
type ContentEntity struct {
	ID           string         `json:"id"`
	Fields       map[string]any `json:"fields"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
