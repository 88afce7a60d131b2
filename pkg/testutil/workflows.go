// Package testutil provides test data builders and shared test suites.
package testutil

import "github.com/dukex/aiflow/pkg/models"

// CreateTestWorkflow creates an active trigger to output workflow that can be overridden.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		Name:        "Test Workflow",
		Description: "A workflow used in tests",
		Status:      models.WorkflowStatusActive,
		Nodes: []*models.Node{
			CreateTestNode(WithID("trigger-1")),
			CreateTestNode(WithID("output-1"), WithOutput(models.OutputTypeDisplay)),
		},
		Edges: []*models.Edge{{ID: "e1", Source: "trigger-1", Target: "output-1"}},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// CreateTestNode creates a manual trigger node by default.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:   "node-1",
		Type: models.NodeTypeTrigger,
		Data: &models.TriggerData{Content: "test content"},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

func WithID(id string) func(*models.Node) {
	return func(node *models.Node) {
		node.ID = id
	}
}

// WithOutput turns the node into an output node of the given type.
func WithOutput(outputType models.OutputType) func(*models.Node) {
	return func(node *models.Node) {
		node.Type = models.NodeTypeOutput
		node.Data = &models.OutputData{OutputType: outputType}
	}
}

// WithData sets the node configuration and its matching type.
func WithData(data models.NodeData) func(*models.Node) {
	return func(node *models.Node) {
		node.Type = data.Kind()
		node.Data = data
	}
}

func WithName(name string) func(*models.Workflow) {
	return func(workflow *models.Workflow) {
		workflow.Name = name
	}
}

func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(workflow *models.Workflow) {
		workflow.Status = status
	}
}

func WithSchedule(schedule *models.Schedule) func(*models.Workflow) {
	return func(workflow *models.Workflow) {
		workflow.Schedule = schedule
	}
}
