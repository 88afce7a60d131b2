// Package events defines the lifecycle notifications published while workflows run.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/dukex/aiflow/pkg/models"
)

type EventType string

const Topic = "aiflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent    EventType = "execution.started"
	ExecutionFinishedEvent   EventType = "execution.finished"
	ExecutionFailedEvent     EventType = "execution.failed"
	ExecutionTerminatedEvent EventType = "execution.terminated"

	// Node events.
	NodeExecutedEvent    EventType = "node.executed"
	OutputDeliveredEvent EventType = "output.delivered"

	// Workflow definition events.
	WorkflowSavedEvent   EventType = "workflow.saved"
	WorkflowDeletedEvent EventType = "workflow.deleted"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID  string `json:"execution_id"`
	WorkflowName string `json:"workflow_name"`
	Resumed      bool   `json:"resumed,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionFinished struct {
	BaseEvent

	ExecutionID string                 `json:"execution_id"`
	Status      models.ExecutionStatus `json:"status"`
	NodeCount   int                    `json:"node_count"`
	Skipped     int                    `json:"skipped"`
	Duration    time.Duration          `json:"duration"`
}

func (e ExecutionFinished) GetType() EventType {
	return ExecutionFinishedEvent
}

// ExecutionFailed is published when a run stops on a fatal error after its
// record was created.
type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionTerminated struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func (e ExecutionTerminated) GetType() EventType {
	return ExecutionTerminatedEvent
}

type NodeExecuted struct {
	BaseEvent

	ExecutionID string          `json:"execution_id"`
	NodeID      string          `json:"node_id"`
	NodeType    models.NodeType `json:"node_type"`
	ResultType  string          `json:"result_type"`
	Status      string          `json:"status,omitempty"`
	Duration    time.Duration   `json:"duration"`
}

func (e NodeExecuted) GetType() EventType {
	return NodeExecutedEvent
}

// OutputDelivered is published when a delayed output is applied.
type OutputDelivered struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
}

func (e OutputDelivered) GetType() EventType {
	return OutputDeliveredEvent
}

type WorkflowSaved struct {
	BaseEvent

	Name      string                `json:"name"`
	Status    models.WorkflowStatus `json:"status"`
	Scheduled bool                  `json:"scheduled"`
}

func (e WorkflowSaved) GetType() EventType {
	return WorkflowSavedEvent
}

type WorkflowDeleted struct {
	BaseEvent
}

func (e WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}
