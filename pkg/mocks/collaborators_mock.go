package mocks

import (
	"context"
	"time"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockCompleter is a mock implementation of ai.Completer.
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, prompt, model string, imageURLs []string) (string, error) {
	args := m.Called(ctx, prompt, model, imageURLs)

	return args.String(0), args.Error(1)
}

// MockWebhookPoster is a mock implementation of protocol.WebhookPoster.
type MockWebhookPoster struct {
	mock.Mock
}

func (m *MockWebhookPoster) PostJSON(ctx context.Context, url string, body any, timeout time.Duration) (int, error) {
	args := m.Called(ctx, url, body, timeout)

	return args.Int(0), args.Error(1)
}

// MockScheduler is a mock implementation of scheduler.Scheduler.
type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) ScheduleAt(ctx context.Context, at time.Time, continuation models.Continuation) error {
	args := m.Called(ctx, at, continuation)

	return args.Error(0)
}

func (m *MockScheduler) CancelAllFor(ctx context.Context, workflowID string, kinds ...models.ContinuationKind) error {
	args := m.Called(ctx, workflowID, kinds)

	return args.Error(0)
}

func (m *MockScheduler) PendingFor(ctx context.Context, workflowID string, kinds ...models.ContinuationKind) ([]models.Continuation, error) {
	args := m.Called(ctx, workflowID, kinds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.Continuation), args.Error(1)
}
