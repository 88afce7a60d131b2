package aimodel

import (
	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/protocol"
)

type AIModelNodeFactory struct{}

func NewAIModelNodeFactory() protocol.NodeFactory {
	return &AIModelNodeFactory{}
}

func (f *AIModelNodeFactory) Create(deps protocol.Dependencies) protocol.NodeExecutor {
	return NewAIModelNode(deps.Logger, deps.Completer)
}

func (f *AIModelNodeFactory) ID() models.NodeType {
	return models.NodeTypeAIModel
}

func (f *AIModelNodeFactory) Name() string {
	return "AI Model"
}

func (f *AIModelNodeFactory) Description() string {
	return "Sends a prompt, with optional images, to a chat completion model and returns the answer as HTML"
}

func (f *AIModelNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{
				"type":        "string",
				"description": "Prompt. Supports [Input from <node>] and [[field] from <node>] tags.",
				"default":     DefaultPrompt,
				"examples": []string{
					"Summarize the following text: [Input from trigger-1]",
					"Write a title for [[body] from form-1]",
				},
			},
			"model": map[string]any{
				"type":    "string",
				"default": DefaultModel,
			},
			"imageUrls": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}
}
