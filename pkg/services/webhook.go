package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
	"github.com/dukex/aiflow/pkg/scheduler"
)

// SampleKey describes one leaf of a received webhook payload.
type SampleKey struct {
	Key  string `json:"key"`
	Type string `json:"type"`
}

// Webhook authenticates webhook deliveries against the per-node key stored on
// trigger nodes and schedules the matching workflow.
type Webhook struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	scheduler   scheduler.Scheduler
	baseURL     string
	samples     *samples
	now         func() time.Time
}

func NewWebhook(logger *slog.Logger, persistence persistence.Persistence, sched scheduler.Scheduler, baseURL string) *Webhook {
	return &Webhook{
		logger:      logger.With("module", "webhook_service"),
		persistence: persistence,
		scheduler:   sched,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		samples:     newSamples(),
		now:         time.Now,
	}
}

// GenerateKey stores a fresh key on the trigger node and returns the URL that
// delivers to it.
func (s *Webhook) GenerateKey(ctx context.Context, workflowID, nodeID string) (string, error) {
	workflow, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return "", err
	}

	node := workflow.NodeByID(nodeID)
	if node == nil {
		return "", fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	data, ok := node.Data.(*models.TriggerData)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotTriggerNode, nodeID)
	}

	data.WebhookKey = rand.Text()

	err = s.persistence.SaveWorkflow(ctx, workflow)
	if err != nil {
		return "", fmt.Errorf("failed to save webhook key: %w", err)
	}

	s.logger.InfoContext(ctx, "Webhook key generated", "workflow_id", workflowID, "node_id", nodeID)

	return s.URL(nodeID, data.WebhookKey), nil
}

// URL of the webhook endpoint for the node.
func (s *Webhook) URL(nodeID, key string) string {
	return s.baseURL + "/webhook/" + url.PathEscape(nodeID) + "?key=" + url.QueryEscape(key)
}

// Receive checks key against the node's stored key, keeps the payload as the
// node's sample and, when the node is a webhook trigger of an active workflow,
// schedules an immediate run with the payload.
func (s *Webhook) Receive(ctx context.Context, nodeID, key string, payload any) error {
	workflow, data, err := s.findTrigger(ctx, nodeID)
	if err != nil {
		return err
	}

	if data == nil || !keyMatches(data.WebhookKey, key) {
		s.logger.WarnContext(ctx, "Invalid webhook key", "node_id", nodeID)

		return ErrInvalidWebhookKey
	}

	s.samples.put(nodeID, payload)

	logger := s.logger.With("workflow_id", workflow.ID, "node_id", nodeID)

	if data.EffectiveTriggerType() != models.TriggerTypeWebhook || !workflow.IsActive() {
		logger.InfoContext(ctx, "Webhook received for a trigger that does not run on webhooks")

		return nil
	}

	err = s.scheduler.ScheduleAt(ctx, s.now(), models.Continuation{
		Kind:       models.ContinuationScheduledWorkflow,
		WorkflowID: workflow.ID,
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("failed to schedule workflow %s: %w", workflow.ID, err)
	}

	logger.InfoContext(ctx, "Webhook received and workflow execution scheduled")

	return nil
}

// Sample waits up to timeout for a payload delivered to the node and returns
// its leaf keys. A sample is consumed by the call that returns it.
func (s *Webhook) Sample(ctx context.Context, nodeID string, timeout time.Duration) ([]SampleKey, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, ok := s.samples.take(ctx, nodeID)
	if !ok {
		return nil, ErrNoWebhookSample
	}

	return SampleKeys(payload), nil
}

func (s *Webhook) findTrigger(ctx context.Context, nodeID string) (*models.Workflow, *models.TriggerData, error) {
	workflows, err := s.persistence.Workflows(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	for _, workflow := range workflows {
		node := workflow.NodeByID(nodeID)
		if node == nil {
			continue
		}

		if data, ok := node.Data.(*models.TriggerData); ok && data.WebhookKey != "" {
			return workflow, data, nil
		}
	}

	return nil, nil, nil
}

func keyMatches(stored, given string) bool {
	if stored == "" || given == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

// SampleKeys flattens a decoded JSON document into '/'-separated leaf paths,
// sorted by path. Numeric strings count as numbers.
func SampleKeys(payload any) []SampleKey {
	keys := []SampleKey{}
	collectKeys(payload, "", &keys)

	sort.Slice(keys, func(i, j int) bool { return keys[i].Key < keys[j].Key })

	return keys
}

func collectKeys(value any, prefix string, keys *[]SampleKey) {
	join := func(key string) string {
		if prefix == "" {
			return key
		}

		return prefix + "/" + key
	}

	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			collectKeys(child, join(key), keys)
		}
	case []any:
		for i, child := range v {
			collectKeys(child, join(strconv.Itoa(i)), keys)
		}
	default:
		if prefix != "" {
			*keys = append(*keys, SampleKey{Key: prefix, Type: valueType(v)})
		}
	}
}

func valueType(value any) string {
	switch v := value.(type) {
	case float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	case string:
		number, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil && !math.IsNaN(number) && !math.IsInf(number, 0) {
			return "number"
		}
	}

	return "string"
}

// samples holds the last payload per node until a reader takes it.
type samples struct {
	mu       sync.Mutex
	payloads map[string]any
	waiters  map[string]chan struct{}
}

func newSamples() *samples {
	return &samples{
		payloads: make(map[string]any),
		waiters:  make(map[string]chan struct{}),
	}
}

func (s *samples) put(nodeID string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payloads[nodeID] = payload

	if waiter, ok := s.waiters[nodeID]; ok {
		close(waiter)
		delete(s.waiters, nodeID)
	}
}

func (s *samples) take(ctx context.Context, nodeID string) (any, bool) {
	for {
		s.mu.Lock()

		if payload, ok := s.payloads[nodeID]; ok {
			delete(s.payloads, nodeID)
			s.mu.Unlock()

			return payload, true
		}

		waiter, ok := s.waiters[nodeID]
		if !ok {
			waiter = make(chan struct{})
			s.waiters[nodeID] = waiter
		}

		s.mu.Unlock()

		select {
		case <-waiter:
		case <-ctx.Done():
			return nil, false
		}
	}
}
