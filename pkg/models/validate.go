package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidateWorkflow checks the workflow fields, every node's typed configuration
// and the schedule.
func ValidateWorkflow(validate *validator.Validate, workflow *Workflow) error {
	err := validate.Struct(workflow)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		if seen[node.ID] {
			return fmt.Errorf("duplicate node id %s", node.ID)
		}

		seen[node.ID] = true

		err = ValidateNodeData(validate, node)
		if err != nil {
			return err
		}
	}

	if workflow.Schedule != nil && workflow.Schedule.Enabled {
		err = validate.Struct(workflow.Schedule)
		if err != nil {
			return fmt.Errorf("schedule: %w", err)
		}
	}

	return nil
}

// ValidateNodeData validates the typed configuration of a node. Untyped
// configuration is accepted as is.
func ValidateNodeData(validate *validator.Validate, node *Node) error {
	if node.Data == nil {
		return nil
	}

	if _, ok := node.Data.(*RawData); ok {
		return nil
	}

	err := validate.Struct(node.Data)
	if err != nil {
		return fmt.Errorf("node %s: %w", node.ID, err)
	}

	return nil
}
