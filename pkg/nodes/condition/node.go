// Package condition provides the branching node. Its boolean outcome decides
// which outgoing handle, "true" or "false", stays live.
package condition

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/protocol"
	"github.com/dukex/aiflow/pkg/template"
)

const (
	ResultType  = "condition"
	HandleTrue  = "true"
	HandleFalse = "false"
)

type ConditionNode struct {
	logger *slog.Logger
}

func NewConditionNode(logger *slog.Logger) *ConditionNode {
	return &ConditionNode{logger: logger.With("module", "condition_node")}
}

func (n *ConditionNode) Type() models.NodeType {
	return models.NodeTypeCondition
}

// Execute resolves input tags in the condition, evaluates template actions
// when present and reduces the value to a boolean. The inputs are kept on the
// result so downstream tags can read through the condition.
func (n *ConditionNode) Execute(ctx context.Context, node *models.Node, inputs *models.ResultMap, exec protocol.Execution) models.NodeResult {
	data, ok := node.Data.(*models.ConditionData)
	if !ok {
		return models.ErrorResult("invalid condition node configuration")
	}

	expression := template.Resolve(data.Condition, inputs)

	var value any = expression

	if template.NeedsRendering(expression) {
		rendered, err := template.RenderWithInputs(expression, inputs, exec.Trigger)
		if err != nil {
			return models.ErrorResult(fmt.Sprintf("condition evaluation failed: %v", err))
		}

		value = rendered
	}

	outcome := Truthy(value)

	n.logger.DebugContext(ctx, "Condition evaluated",
		"node_id", node.ID,
		"execution_id", exec.ID,
		"value", value,
		"outcome", outcome)

	return models.NodeResult{Type: ResultType, Content: outcome, Inputs: inputs}
}

// Truthy converts an evaluated value to a boolean. Strings that parse as a
// boolean use that value, other non-blank strings are true.
func Truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		v = strings.TrimSpace(v)
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}

		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return false
	}
}

// Outcome reads the branch taken from a condition result. Error results take
// the false branch.
func Outcome(result models.NodeResult) bool {
	if result.IsError() {
		return false
	}

	return Truthy(result.Content)
}
