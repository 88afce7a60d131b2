package post

import (
	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/protocol"
)

type PostNodeFactory struct{}

func NewPostNodeFactory() protocol.NodeFactory {
	return &PostNodeFactory{}
}

func (f *PostNodeFactory) Create(deps protocol.Dependencies) protocol.NodeExecutor {
	return NewPostNode(deps)
}

func (f *PostNodeFactory) ID() models.NodeType {
	return models.NodeTypePost
}

func (f *PostNodeFactory) Name() string {
	return "Post"
}

func (f *PostNodeFactory) Description() string {
	return "Creates a content entity from mapped fields, with custom fields and future-dated publishing"
}

func (f *PostNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"selectedPostType": map[string]any{"type": "string", "default": "post"},
			"postStatus": map[string]any{
				"type":    "string",
				"enum":    []string{"publish", "draft", "pending", "private", "future"},
				"default": "publish",
			},
			"fieldMappings": map[string]any{
				"type":                 "object",
				"description":          "Entity field to template. Keys prefixed with acf_ are stored as custom fields.",
				"additionalProperties": map[string]any{"type": "string"},
				"examples": []map[string]string{
					{"post_title": "[[title] from ai-1]", "post_content": "[Input from ai-2]", "acf_source": "newsletter"},
				},
			},
			"scheduledDate": map[string]any{
				"type":        "string",
				"description": "Publish date used when postStatus is future",
			},
		},
	}
}
