// Package services implements the operations behind the HTTP API.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/aiflow/pkg/graph"
	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest  = errors.New("invalid request")
	ErrWorkflowNil     = errors.New("workflow cannot be nil")
	ErrInvalidWorkflow = errors.New("invalid workflow")
	ErrNotTriggerNode  = errors.New("node is not a trigger")

	// Webhook Errors.
	ErrInvalidWebhookKey = errors.New("invalid webhook key")
	ErrNoWebhookSample   = errors.New("no webhook data received within the timeout period")

	ErrNodeNotFound = errors.New("node not found")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrInvalidWorkflow) ||
		errors.Is(err, ErrNotTriggerNode) ||
		errors.Is(err, graph.ErrCyclicGraph) ||
		errors.Is(err, models.ErrInvalidSchedule)
}

// IsForbiddenError checks if an error should return HTTP 403.
func IsForbiddenError(err error) bool {
	return errors.Is(err, ErrInvalidWebhookKey)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return persistence.IsWorkflowNotFound(err) ||
		persistence.IsExecutionNotFound(err) ||
		persistence.IsOutputNotFound(err) ||
		errors.Is(err, ErrNodeNotFound) ||
		errors.Is(err, ErrNoWebhookSample)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     errors.Join(ErrInvalidWorkflow, err),
	}
}
