// Package redis is a scheduler store backed by a Redis sorted set, shared by
// every process pointed at the same server.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/scheduler"
)

const defaultPrefix = "aiflow:scheduler"

// Store keeps continuation ids in a sorted set scored by fire time, payloads
// in a hash and a per-workflow index set for cancellation.
type Store struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewStore connects to the server at url (redis://host:port/db).
func NewStore(ctx context.Context, logger *slog.Logger, url string) (*Store, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return NewStoreWithClient(logger, client, defaultPrefix), nil
}

func NewStoreWithClient(logger *slog.Logger, client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Store{
		client: client,
		prefix: prefix,
		logger: logger.With("module", "redis_scheduler"),
	}
}

func (s *Store) dueKey() string {
	return s.prefix + ":due"
}

func (s *Store) itemsKey() string {
	return s.prefix + ":items"
}

func (s *Store) workflowKey(workflowID string) string {
	return s.prefix + ":workflow:" + workflowID
}

func (s *Store) ScheduleAt(ctx context.Context, at time.Time, continuation models.Continuation) error {
	continuation, err := scheduler.Prepare(at, continuation)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(continuation)
	if err != nil {
		return fmt.Errorf("failed to encode continuation: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.itemsKey(), continuation.ID, payload)
		pipe.SAdd(ctx, s.workflowKey(continuation.WorkflowID), continuation.ID)
		pipe.ZAdd(ctx, s.dueKey(), redis.Z{
			Score:  float64(continuation.FireAt.UnixMilli()),
			Member: continuation.ID,
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to schedule continuation: %w", err)
	}

	s.logger.DebugContext(ctx, "Scheduled continuation",
		"continuation_id", continuation.ID,
		"kind", continuation.Kind,
		"workflow_id", continuation.WorkflowID,
		"fire_at", continuation.FireAt)

	return nil
}

func (s *Store) CancelAllFor(ctx context.Context, workflowID string, kinds ...models.ContinuationKind) error {
	ids, err := s.client.SMembers(ctx, s.workflowKey(workflowID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list continuations: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}

	payloads, err := s.client.HMGet(ctx, s.itemsKey(), ids...).Result()
	if err != nil {
		return fmt.Errorf("failed to load continuations: %w", err)
	}

	cancel := make([]string, 0, len(ids))

	for i, id := range ids {
		raw, ok := payloads[i].(string)
		if !ok {
			cancel = append(cancel, id)

			continue
		}

		var continuation models.Continuation
		if err := json.Unmarshal([]byte(raw), &continuation); err != nil || scheduler.MatchesKind(continuation.Kind, kinds) {
			cancel = append(cancel, id)
		}
	}

	if len(cancel) == 0 {
		return nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		members := make([]any, len(cancel))
		for i, id := range cancel {
			members[i] = id
		}

		pipe.ZRem(ctx, s.dueKey(), members...)
		pipe.HDel(ctx, s.itemsKey(), cancel...)
		pipe.SRem(ctx, s.workflowKey(workflowID), members...)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cancel continuations: %w", err)
	}

	s.logger.InfoContext(ctx, "Cancelled continuations", "workflow_id", workflowID, "count", len(cancel))

	return nil
}

func (s *Store) PendingFor(ctx context.Context, workflowID string, kinds ...models.ContinuationKind) ([]models.Continuation, error) {
	ids, err := s.client.SMembers(ctx, s.workflowKey(workflowID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list continuations: %w", err)
	}

	pending := make([]models.Continuation, 0, len(ids))

	if len(ids) == 0 {
		return pending, nil
	}

	payloads, err := s.client.HMGet(ctx, s.itemsKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load continuations: %w", err)
	}

	for _, payload := range payloads {
		raw, ok := payload.(string)
		if !ok {
			continue
		}

		var continuation models.Continuation
		if err := json.Unmarshal([]byte(raw), &continuation); err != nil {
			continue
		}

		if scheduler.MatchesKind(continuation.Kind, kinds) {
			pending = append(pending, continuation)
		}
	}

	return pending, nil
}

// Due claims due ids with ZREM so that concurrent pollers never fire the same
// continuation twice.
func (s *Store) Due(ctx context.Context, now time.Time) ([]models.Continuation, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.dueKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query due continuations: %w", err)
	}

	due := make([]models.Continuation, 0, len(ids))

	for _, id := range ids {
		removed, err := s.client.ZRem(ctx, s.dueKey(), id).Result()
		if err != nil {
			return due, fmt.Errorf("failed to claim continuation %s: %w", id, err)
		}

		if removed == 0 {
			continue
		}

		raw, err := s.client.HGet(ctx, s.itemsKey(), id).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}

		if err != nil {
			return due, fmt.Errorf("failed to load continuation %s: %w", id, err)
		}

		var continuation models.Continuation
		if err := json.Unmarshal([]byte(raw), &continuation); err != nil {
			s.logger.ErrorContext(ctx, "Dropping undecodable continuation", "continuation_id", id, "error", err)
			s.client.HDel(ctx, s.itemsKey(), id)

			continue
		}

		_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, s.itemsKey(), id)
			pipe.SRem(ctx, s.workflowKey(continuation.WorkflowID), id)

			return nil
		})
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to clean claimed continuation", "continuation_id", id, "error", err)
		}

		due = append(due, continuation)
	}

	return due, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
