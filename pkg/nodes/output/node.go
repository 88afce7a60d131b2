// Package output provides the node that delivers the result of a workflow.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
	"github.com/dukex/aiflow/pkg/protocol"
	"github.com/dukex/aiflow/pkg/scheduler"
	"github.com/dukex/aiflow/pkg/template"
)

const (
	ResultType     = "output"
	WebhookTimeout = 15 * time.Second
	timeLayout     = "2006-01-02 15:04:05"
)

type OutputNode struct {
	logger    *slog.Logger
	webhooks  protocol.WebhookPoster
	outputs   persistence.OutputRepository
	scheduler scheduler.Scheduler
	now       func() time.Time
}

func NewOutputNode(deps protocol.Dependencies) *OutputNode {
	return &OutputNode{
		logger:    deps.Logger.With("module", "output_node"),
		webhooks:  deps.Webhooks,
		outputs:   deps.Outputs,
		scheduler: deps.Scheduler,
		now:       deps.Clock,
	}
}

func (n *OutputNode) Type() models.NodeType {
	return models.NodeTypeOutput
}

// Execute joins the content of every input. With a delay configured the
// delivery is handed to the scheduler, otherwise it happens now.
func (n *OutputNode) Execute(ctx context.Context, node *models.Node, inputs *models.ResultMap, exec protocol.Execution) models.NodeResult {
	data, ok := node.Data.(*models.OutputData)
	if !ok {
		return models.ErrorResult("invalid output node configuration")
	}

	content := template.JoinContents(inputs)

	if data.DelayEnabled {
		return n.schedule(ctx, node, data, content, exec)
	}

	return n.Deliver(ctx, node, content, exec)
}

func (n *OutputNode) schedule(ctx context.Context, node *models.Node, data *models.OutputData, content string, exec protocol.Execution) models.NodeResult {
	logger := n.logger.With("node_id", node.ID, "execution_id", exec.ID)

	fireAt, err := models.DelayUntil(n.now(), int(data.DelayValue), data.DelayUnit)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to calculate delay time",
			"delay_value", data.DelayValue,
			"delay_unit", data.DelayUnit)

		return models.NodeResult{
			Type:    models.ResultTypeError,
			Content: "Failed to schedule delayed output due to invalid delay settings",
			Message: "Failed to schedule delayed output",
		}
	}

	if n.scheduler == nil {
		return models.ErrorResult("Failed to schedule delayed output: no scheduler configured")
	}

	err = n.scheduler.ScheduleAt(ctx, fireAt, models.Continuation{
		Kind:        models.ContinuationDelayedOutput,
		WorkflowID:  exec.WorkflowID,
		ExecutionID: exec.ID,
		Node:        node,
		Content:     content,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to schedule delayed output", "error", err)

		return models.ErrorResult(fmt.Sprintf("Failed to schedule delayed output: %v", err))
	}

	message := "Output scheduled for execution at: " + fireAt.UTC().Format(timeLayout)

	logger.InfoContext(ctx, "Delayed output scheduled", "fire_at", fireAt)

	return models.NodeResult{
		Type:        ResultType,
		Content:     message,
		Status:      models.ResultStatusScheduled,
		Message:     message,
		ScheduledAt: &fireAt,
	}
}

// Deliver performs the side effect of the output type and saves the content
// whatever the outcome.
func (n *OutputNode) Deliver(ctx context.Context, node *models.Node, content string, exec protocol.Execution) models.NodeResult {
	data, ok := node.Data.(*models.OutputData)
	if !ok {
		return models.ErrorResult("invalid output node configuration")
	}

	logger := n.logger.With("node_id", node.ID, "execution_id", exec.ID)
	result := models.NodeResult{Type: ResultType, Content: content, Status: models.ResultStatusSuccess}
	outputType := data.EffectiveOutputType()

	switch outputType {
	case models.OutputTypeSave, models.OutputTypeHTML, models.OutputTypeDisplay:
	case models.OutputTypeWebhook:
		n.postWebhook(ctx, logger, data.WebhookURL, content, &result)
	default:
		result.Status = models.ResultStatusError
		result.Message = "Invalid output type"

		logger.ErrorContext(ctx, "Invalid output type", "output_type", outputType)
	}

	if n.outputs != nil {
		err := n.outputs.SaveOutput(ctx, &models.SavedOutput{
			NodeID:      node.ID,
			WorkflowID:  exec.WorkflowID,
			ExecutionID: exec.ID,
			OutputType:  string(outputType),
			Content:     content,
			Status:      result.Status,
			Message:     result.Message,
			CreatedAt:   n.now().UTC(),
		})
		if err != nil {
			logger.WarnContext(ctx, "Failed to save output", "error", err)
		}
	}

	return result
}

func (n *OutputNode) postWebhook(ctx context.Context, logger *slog.Logger, url, content string, result *models.NodeResult) {
	if url == "" {
		result.Status = models.ResultStatusError
		result.Message = "Webhook URL is empty"

		logger.WarnContext(ctx, "Webhook URL is empty")

		return
	}

	if n.webhooks == nil {
		result.Status = models.ResultStatusError
		result.Message = "Webhook request failed: no webhook client configured"

		return
	}

	status, err := n.webhooks.PostJSON(ctx, url, map[string]any{"output": content}, WebhookTimeout)
	if err != nil {
		result.Status = models.ResultStatusError
		result.Message = "Webhook request failed: " + err.Error()

		logger.ErrorContext(ctx, "Webhook error", "url", url, "error", err)

		return
	}

	if status < 200 || status >= 300 {
		result.Status = models.ResultStatusWarning
		result.Message = fmt.Sprintf("Webhook request received non-200 response: %d", status)

		logger.WarnContext(ctx, "Webhook non-200 response", "url", url, "status", status)
	}
}
