package output

import (
	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/protocol"
)

type OutputNodeFactory struct{}

func NewOutputNodeFactory() protocol.NodeFactory {
	return &OutputNodeFactory{}
}

func (f *OutputNodeFactory) Create(deps protocol.Dependencies) protocol.NodeExecutor {
	return NewOutputNode(deps)
}

func (f *OutputNodeFactory) ID() models.NodeType {
	return models.NodeTypeOutput
}

func (f *OutputNodeFactory) Name() string {
	return "Output"
}

func (f *OutputNodeFactory) Description() string {
	return "Joins the content of its inputs and displays, saves or posts it to a webhook, optionally after a delay"
}

func (f *OutputNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"outputType": map[string]any{
				"type":    "string",
				"enum":    []string{"display", "html", "save", "webhook"},
				"default": "display",
			},
			"webhookUrl": map[string]any{
				"type":        "string",
				"format":      "uri",
				"description": "Receives a POST with {\"output\": <content>} when outputType is webhook",
			},
			"delayEnabled": map[string]any{"type": "boolean", "default": false},
			"delayValue":   map[string]any{"type": "integer", "minimum": 0},
			"delayUnit": map[string]any{
				"type": "string",
				"enum": []string{"minutes", "hours", "days"},
			},
		},
		"examples": []map[string]any{
			{"outputType": "webhook", "webhookUrl": "https://hooks.example.com/summary"},
			{"outputType": "save", "delayEnabled": true, "delayValue": 10, "delayUnit": "minutes"},
		},
	}
}
