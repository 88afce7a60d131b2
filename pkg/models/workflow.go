// Package models defines the core domain models for AI workflow graphs and their executions.
package models

import "time"

// WorkflowStatus represents whether a workflow may be executed.
type WorkflowStatus string

const (
	WorkflowStatusActive   WorkflowStatus = "active"
	WorkflowStatusInactive WorkflowStatus = "inactive"
)

// Workflow is a directed graph of nodes linked by edges.
type Workflow struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"                    validate:"required,min=3"`
	Description  string         `json:"description"`
	Status       WorkflowStatus `json:"status"                  validate:"required,oneof=active inactive"`
	Nodes        []*Node        `json:"nodes"                   validate:"dive"`
	Edges        []*Edge        `json:"edges"                   validate:"dive"`
	Schedule     *Schedule      `json:"schedule,omitempty"`
	LastExecuted *time.Time     `json:"last_executed,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Edge links the output of Source to the input of Target. SourceHandle names the
// branch of a condition node ("true" or "false"); empty means any branch.
type Edge struct {
	ID           string `json:"id,omitempty"`
	Source       string `json:"source"                 validate:"required"`
	Target       string `json:"target"                 validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// IsActive reports whether the workflow may be executed.
func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *Node {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// EntryTrigger returns the first trigger node in declaration order, or nil.
func (w *Workflow) EntryTrigger() *Node {
	for _, node := range w.Nodes {
		if node.Type == NodeTypeTrigger {
			return node
		}
	}

	return nil
}
