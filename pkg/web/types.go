package web

import (
	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/services"
)

// WorkflowRequest is the body of workflow create and update requests. The
// whole definition is replaced on update.
type WorkflowRequest struct {
	Name        string                `json:"name"               validate:"required,min=3"`
	Description string                `json:"description"`
	Status      models.WorkflowStatus `json:"status,omitempty"   validate:"omitempty,oneof=active inactive"`
	Nodes       []*models.Node        `json:"nodes"`
	Edges       []*models.Edge        `json:"edges"`
	Schedule    *models.Schedule      `json:"schedule,omitempty"`
}

func (r WorkflowRequest) Workflow() *models.Workflow {
	nodes := r.Nodes
	if nodes == nil {
		nodes = []*models.Node{}
	}

	edges := r.Edges
	if edges == nil {
		edges = []*models.Edge{}
	}

	return &models.Workflow{
		Name:        r.Name,
		Description: r.Description,
		Status:      r.Status,
		Nodes:       nodes,
		Edges:       edges,
		Schedule:    r.Schedule,
	}
}

type WebhookURLResponse struct {
	WebhookURL string `json:"webhookUrl"`
}

type WebhookSampleResponse struct {
	Keys []services.SampleKey `json:"keys"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
