package trigger

import (
	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/protocol"
)

// TriggerNodeFactory creates TriggerNode instances.
type TriggerNodeFactory struct{}

func NewTriggerNodeFactory() protocol.NodeFactory {
	return &TriggerNodeFactory{}
}

func (f *TriggerNodeFactory) Create(deps protocol.Dependencies) protocol.NodeExecutor {
	return NewTriggerNode(deps.Logger)
}

func (f *TriggerNodeFactory) ID() models.NodeType {
	return models.NodeTypeTrigger
}

func (f *TriggerNodeFactory) Name() string {
	return "Trigger"
}

func (f *TriggerNodeFactory) Description() string {
	return "Starts a workflow manually with fixed content, from a webhook payload or from a form submission"
}

func (f *TriggerNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"triggerType": map[string]any{
				"type":    "string",
				"enum":    []string{"manual", "webhook", "gravityForms"},
				"default": "manual",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content produced by a manual trigger",
			},
			"webhookKeys": map[string]any{
				"type":        "array",
				"description": "Payload values to extract, addressed by '/'-separated paths",
				"items": map[string]any{
					"type":       "object",
					"properties": map[string]any{"key": map[string]any{"type": "string"}},
					"required":   []string{"key"},
				},
				"examples": []any{[]map[string]string{{"key": "order/id"}, {"key": "customer/email"}}},
			},
			"payloadSchema": map[string]any{
				"type":        "object",
				"description": "JSON schema webhook payloads must satisfy",
			},
		},
	}
}
