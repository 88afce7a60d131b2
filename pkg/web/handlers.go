// Package web provides HTTP handlers and REST API endpoints for workflows, their executions and webhooks.
package web

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dukex/aiflow/pkg/persistence"
	"github.com/dukex/aiflow/pkg/registry"
	"github.com/dukex/aiflow/pkg/services"
)

// MaxSampleWait bounds how long a webhook sample request waits for a delivery.
const MaxSampleWait = 60 * time.Second

type APIHandlers struct {
	workflowService  *services.Workflow
	executionService *services.Execution
	webhookService   *services.Webhook
	validator        *validator.Validate
	registry         *registry.Registry
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	executionService *services.Execution,
	webhookService *services.Webhook,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflowService:  workflowService,
		executionService: executionService,
		webhookService:   webhookService,
		validator:        validator,
		registry:         registry,
	}
}

// RegisterRoutes mounts every endpoint on router.
func (h *APIHandlers) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/nodes", h.GetNodes)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/execute", h.ExecuteWorkflow)
	w.Post("/:id/nodes/:nodeId/webhook-url", h.GenerateWebhookURL)

	e := router.Group("/executions")
	e.Get("/", h.GetExecutions)
	e.Get("/:id", h.GetExecution)
	e.Delete("/:id", h.StopExecution)

	router.Get("/outputs/:nodeId/latest", h.GetLatestOutput)

	router.Post("/webhook/:nodeId", h.ReceiveWebhook)
	router.Get("/webhook/:nodeId/sample", h.SampleWebhook)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "aiflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "aiflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetNodes(c fiber.Ctx) error {
	return c.JSON(h.registry.Describe())
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	req, err := h.bindWorkflow(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), req.Workflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	req, err := h.bindWorkflow(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflowService.Update(c.Context(), c.Params("id"), req.Workflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) bindWorkflow(c fiber.Ctx) (*WorkflowRequest, error) {
	var req WorkflowRequest

	if err := c.Bind().JSON(&req); err != nil {
		return nil, err
	}

	if err := h.validator.Struct(req); err != nil {
		return nil, err
	}

	return &req, nil
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	err := h.workflowService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteWorkflow runs the workflow synchronously with the request body as
// the trigger payload.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	payload, err := requestPayload(c)
	if err != nil {
		return badRequest(c, "Invalid payload: "+err.Error())
	}

	run, err := h.executionService.Run(c.Context(), c.Params("id"), payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) GenerateWebhookURL(c fiber.Ctx) error {
	webhookURL, err := h.webhookService.GenerateKey(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(WebhookURLResponse{WebhookURL: webhookURL})
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	opts := persistence.ListExecutionsOptions{
		Search:     c.Query("search"),
		WorkflowID: c.Query("workflow_id"),
	}

	var err error

	if opts.Page, err = queryInt(c, "page"); err != nil {
		return badRequest(c, "Invalid page: "+err.Error())
	}

	if opts.PageSize, err = queryInt(c, "per_page"); err != nil {
		return badRequest(c, "Invalid per_page: "+err.Error())
	}

	result, err := h.executionService.List(c.Context(), opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.executionService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

// StopExecution terminates the execution and deletes its record.
func (h *APIHandlers) StopExecution(c fiber.Ctx) error {
	err := h.executionService.StopAndDelete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetLatestOutput(c fiber.Ctx) error {
	output, err := h.executionService.LatestOutput(c.Context(), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(output)
}

// ReceiveWebhook accepts a JSON or form encoded delivery for a trigger node.
func (h *APIHandlers) ReceiveWebhook(c fiber.Ctx) error {
	payload, err := requestPayload(c)
	if err != nil {
		return badRequest(c, "Invalid payload: "+err.Error())
	}

	err = h.webhookService.Receive(c.Context(), c.Params("nodeId"), c.Query("key"), payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(MessageResponse{Message: "Webhook received and workflow execution scheduled"})
}

func (h *APIHandlers) SampleWebhook(c fiber.Ctx) error {
	seconds, err := queryInt(c, "timeout")
	if err != nil {
		return badRequest(c, "Invalid timeout: "+err.Error())
	}

	wait := time.Duration(seconds) * time.Second
	if wait <= 0 || wait > MaxSampleWait {
		wait = MaxSampleWait
	}

	keys, err := h.webhookService.Sample(c.Context(), c.Params("nodeId"), wait)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(WebhookSampleResponse{Keys: keys})
}

func queryInt(c fiber.Ctx, key string) (int, error) {
	value := c.Query(key)
	if value == "" {
		return 0, nil
	}

	return strconv.Atoi(value)
}

// requestPayload decodes a form or JSON body. An empty body is a nil payload.
func requestPayload(c fiber.Ctx) (any, error) {
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		return nil, nil
	}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationForm) {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, err
		}

		payload := make(map[string]any, len(values))

		for key, list := range values {
			if len(list) == 1 {
				payload[key] = list[0]

				continue
			}

			items := make([]any, len(list))
			for i, item := range list {
				items[i] = item
			}

			payload[key] = items
		}

		return payload, nil
	}

	var payload any

	err := c.App().Config().JSONDecoder(body, &payload)
	if err != nil {
		return nil, err
	}

	return payload, nil
}
