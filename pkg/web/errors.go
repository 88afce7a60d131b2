package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/dukex/aiflow/pkg/persistence"
	"github.com/dukex/aiflow/pkg/services"
	"github.com/dukex/aiflow/pkg/workflow"
)

func problem(c fiber.Ctx, status int, problemType, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleServiceError maps service and persistence errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsForbiddenError(err):
		return problem(c, fiber.StatusForbidden, "invalid_webhook_key", "Invalid webhook key")

	case errors.Is(err, workflow.ErrWorkflowInactive):
		return problem(c, fiber.StatusConflict, "workflow_inactive", "workflow is not active")

	case persistence.IsWorkflowNotFound(err):
		return problem(c, fiber.StatusNotFound, "workflow_not_found", "workflow not found")

	case persistence.IsExecutionNotFound(err):
		return problem(c, fiber.StatusNotFound, "execution_not_found", "execution not found")

	case persistence.IsOutputNotFound(err):
		return problem(c, fiber.StatusNotFound, "output_not_found", "no output saved for node")

	case errors.Is(err, services.ErrNodeNotFound):
		return problem(c, fiber.StatusNotFound, "node_not_found", "node not found")

	case errors.Is(err, services.ErrNoWebhookSample):
		return problem(c, fiber.StatusNotFound, "webhook_sample_not_found", services.ErrNoWebhookSample.Error())

	default:
		return internalError(c, err)
	}
}
