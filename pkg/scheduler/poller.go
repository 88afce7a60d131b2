package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dukex/aiflow/pkg/models"
)

// Handler processes a due continuation.
type Handler func(ctx context.Context, continuation models.Continuation) error

// Poller periodically claims due continuations from a Store and hands them to a Handler.
type Poller struct {
	store    Store
	handler  Handler
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
	ctx  context.Context
}

func NewPoller(logger *slog.Logger, store Store, handler Handler, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Second
	}

	return &Poller{
		store:    store,
		handler:  handler,
		interval: interval,
		logger:   logger.With("module", "scheduler_poller"),
		now:      time.Now,
	}
}

// Start runs the poll job on its own goroutine until Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil {
		return nil
	}

	p.ctx = ctx
	p.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := p.cron.AddFunc(fmt.Sprintf("@every %s", p.interval), p.run)
	if err != nil {
		p.cron = nil

		return fmt.Errorf("failed to add poll job: %w", err)
	}

	p.cron.Start()
	p.logger.InfoContext(ctx, "Scheduler poller started", "interval", p.interval)

	return nil
}

func (p *Poller) run() {
	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		return
	}

	_, err := p.Poll(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to poll due continuations", "error", err)
	}
}

// Poll claims due continuations and handles them in fire order. It returns the
// number of continuations handled.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	due, err := p.store.Due(ctx, p.now())
	if err != nil {
		return 0, err
	}

	for _, continuation := range due {
		logger := p.logger.With(
			"continuation_id", continuation.ID,
			"kind", continuation.Kind,
			"workflow_id", continuation.WorkflowID,
		)

		logger.InfoContext(ctx, "Dispatching due continuation", "fire_at", continuation.FireAt)

		err := p.handler(ctx, continuation)
		if err != nil {
			logger.ErrorContext(ctx, "Continuation failed", "error", err)
		}
	}

	return len(due), nil
}

// Stop halts the poll job and waits for a running poll to finish.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	p.logger.InfoContext(ctx, "Scheduler poller stopped")

	return nil
}
