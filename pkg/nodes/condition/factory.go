package condition

import (
	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/protocol"
)

type ConditionNodeFactory struct{}

func NewConditionNodeFactory() protocol.NodeFactory {
	return &ConditionNodeFactory{}
}

func (f *ConditionNodeFactory) Create(deps protocol.Dependencies) protocol.NodeExecutor {
	return NewConditionNode(deps.Logger)
}

func (f *ConditionNodeFactory) ID() models.NodeType {
	return models.NodeTypeCondition
}

func (f *ConditionNodeFactory) Name() string {
	return "Condition"
}

func (f *ConditionNodeFactory) Description() string {
	return "Routes execution through its true or false handle; nodes reachable only through the other handle are skipped"
}

func (f *ConditionNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"condition": map[string]any{
				"type":        "string",
				"description": "Expression evaluated to a boolean. Supports input tags and Go template actions.",
				"examples": []string{
					`{{ contains (lower .inputs.ai1) "urgent" }}`,
					"[[approved] from form-1]",
					`{{ eq .trigger.status "paid" }}`,
				},
			},
		},
		"required": []string{"condition"},
	}
}
