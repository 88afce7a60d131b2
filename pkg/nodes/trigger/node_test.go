package trigger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/nodes/trigger"
	"github.com/dukex/aiflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triggerNode(data *models.TriggerData) *models.Node {
	return &models.Node{ID: "t", Type: models.NodeTypeTrigger, Data: data}
}

func TestTriggerNode_Execute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    *models.TriggerData
		payload any
		want    any
	}{
		{
			name: "manual returns content",
			data: &models.TriggerData{Content: "hi"},
			want: "hi",
		},
		{
			name:    "webhook unwraps output key",
			data:    &models.TriggerData{TriggerType: models.TriggerTypeWebhook},
			payload: map[string]any{"output": "from hook", "other": 1},
			want:    "from hook",
		},
		{
			name:    "webhook keeps string payload",
			data:    &models.TriggerData{TriggerType: models.TriggerTypeWebhook},
			payload: "raw body",
			want:    "raw body",
		},
		{
			name:    "webhook serializes structured payload",
			data:    &models.TriggerData{TriggerType: models.TriggerTypeWebhook},
			payload: map[string]any{"a": "<b>"},
			want:    `{"a":"<b>"}`,
		},
		{
			name: "webhook extracts keys",
			data: &models.TriggerData{
				TriggerType: models.TriggerTypeWebhook,
				WebhookKeys: []models.WebhookKey{{Key: "order/id"}, {Key: "items/1/sku"}, {Key: "missing/path"}},
			},
			payload: map[string]any{
				"order": map[string]any{"id": "o-1"},
				"items": []any{map[string]any{"sku": "a"}, map[string]any{"sku": "b"}},
			},
			want: map[string]any{"order/id": "o-1", "items/1/sku": "b", "missing/path": nil},
		},
		{
			name:    "gravity forms passes payload",
			data:    &models.TriggerData{TriggerType: models.TriggerTypeGravityForms},
			payload: map[string]any{"1": "Jane"},
			want:    map[string]any{"1": "Jane"},
		},
	}

	node := trigger.NewTriggerNode(slog.Default())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := node.Execute(context.Background(), triggerNode(tt.data), models.NewResultMap(), protocol.Execution{ID: "e", Trigger: tt.payload})

			assert.Equal(t, trigger.ResultType, result.Type)
			assert.Equal(t, tt.want, result.Content)
		})
	}
}

func TestTriggerNode_PayloadSchema(t *testing.T) {
	t.Parallel()

	data := &models.TriggerData{
		TriggerType: models.TriggerTypeWebhook,
		Schema: map[string]any{
			"type":     "object",
			"required": []any{"output"},
		},
	}

	node := trigger.NewTriggerNode(slog.Default())

	result := node.Execute(context.Background(), triggerNode(data), nil, protocol.Execution{Trigger: map[string]any{"other": 1}})
	require.True(t, result.IsError())
	assert.Contains(t, result.Content, "Invalid webhook payload")

	result = node.Execute(context.Background(), triggerNode(data), nil, protocol.Execution{Trigger: map[string]any{"output": "ok"}})
	assert.Equal(t, "ok", result.Content)
}

func TestTriggerNode_WrongData(t *testing.T) {
	t.Parallel()

	result := trigger.NewTriggerNode(slog.Default()).Execute(context.Background(), &models.Node{ID: "t", Type: models.NodeTypeTrigger}, nil, protocol.Execution{})
	assert.True(t, result.IsError())
}
