package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/aiflow/pkg/scheduler"
	"github.com/dukex/aiflow/pkg/scheduler/memory"
	"github.com/dukex/aiflow/pkg/scheduler/redis"
)

// NewScheduler returns an in-process store for an empty url or "memory", and
// a Redis store for redis:// and rediss:// urls. Only the Redis store is
// shared between the API and worker processes.
func NewScheduler(ctx context.Context, logger *slog.Logger, url string) (scheduler.Store, error) {
	switch {
	case url == "" || url == "memory":
		return memory.NewStore(), nil
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		return redis.NewStore(ctx, logger, url)
	default:
		return nil, fmt.Errorf("%w: scheduler %q", ErrUnsupportedProvider, url)
	}
}
