// Package trigger provides the entry node of a workflow run.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/protocol"
	"github.com/dukex/aiflow/pkg/template"
)

const ResultType = "trigger"

// TriggerNode turns the run's trigger payload, or the configured manual
// content, into the first result of the walk.
type TriggerNode struct {
	logger *slog.Logger
}

func NewTriggerNode(logger *slog.Logger) *TriggerNode {
	return &TriggerNode{logger: logger.With("module", "trigger_node")}
}

func (n *TriggerNode) Type() models.NodeType {
	return models.NodeTypeTrigger
}

func (n *TriggerNode) Execute(ctx context.Context, node *models.Node, inputs *models.ResultMap, exec protocol.Execution) models.NodeResult {
	data, ok := node.Data.(*models.TriggerData)
	if !ok {
		return models.ErrorResult("invalid trigger node configuration")
	}

	triggerType := data.EffectiveTriggerType()

	n.logger.DebugContext(ctx, "Executing trigger node",
		"node_id", node.ID,
		"execution_id", exec.ID,
		"trigger_type", triggerType)

	switch triggerType {
	case models.TriggerTypeWebhook:
		return n.webhook(data, exec.Trigger)
	case models.TriggerTypeGravityForms:
		return models.NodeResult{Type: ResultType, Content: exec.Trigger}
	default:
		return models.NodeResult{Type: ResultType, Content: template.Resolve(data.Content, inputs)}
	}
}

func (n *TriggerNode) webhook(data *models.TriggerData, payload any) models.NodeResult {
	if len(data.Schema) > 0 {
		err := ValidatePayload(data.Schema, payload)
		if err != nil {
			return models.ErrorResult(fmt.Sprintf("Invalid webhook payload: %v", err))
		}
	}

	if len(data.WebhookKeys) > 0 {
		if fields, ok := payload.(map[string]any); ok {
			return models.NodeResult{Type: ResultType, Content: ExtractKeys(fields, data.WebhookKeys)}
		}
	}

	return models.NodeResult{Type: ResultType, Content: WebhookContent(payload)}
}

// WebhookContent unwraps the "output" key of a payload; any other payload is
// kept as a string or serialized to JSON.
func WebhookContent(payload any) any {
	switch value := payload.(type) {
	case nil:
		return ""
	case string:
		return value
	case map[string]any:
		if output, ok := value["output"]; ok {
			return output
		}
	}

	return template.Stringify(payload)
}

// ExtractKeys builds a map of key path to the value found at that path.
// Missing paths map to nil.
func ExtractKeys(payload map[string]any, keys []models.WebhookKey) map[string]any {
	extracted := make(map[string]any, len(keys))

	for _, key := range keys {
		extracted[key.Key] = lookupPath(payload, strings.Split(key.Key, "/"))
	}

	return extracted
}

func lookupPath(value any, path []string) any {
	for _, segment := range path {
		switch current := value.(type) {
		case map[string]any:
			next, ok := current[segment]
			if !ok {
				return nil
			}

			value = next
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(current) {
				return nil
			}

			value = current[index]
		default:
			return nil
		}
	}

	return value
}

// ValidatePayload checks a webhook payload against a JSON schema.
func ValidatePayload(schema map[string]any, payload any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(payload))
	if err != nil {
		return err
	}

	if !result.Valid() {
		errors := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}
