package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/deckforge/deckforge-backend/internal/logger"
	pkgerrors "github.com/deckforge/deckforge-backend/internal/pkg/errors"
	"github.com/deckforge/deckforge-backend/internal/types"
)

const (
	// DefaultTTL bounds job-record retention regardless of terminal state.
	DefaultTTL = 24 * time.Hour
	// CancelFlagTTL bounds the lifetime of a cancellation flag.
	CancelFlagTTL = time.Hour
	// MaxRecentJobs bounds the per-user recent-jobs index.
	MaxRecentJobs = 100
)

// Store is the key-value job store: full-record writes with expiry, a
// write-once cancellation flag per job, and a bounded per-user recent index.
type Store interface {
	Put(ctx context.Context, job *types.Job, ttl time.Duration) error
	Get(ctx context.Context, id string) (*types.Job, error)
	SetCancelFlag(ctx context.Context, id string) error
	IsCancelled(ctx context.Context, id string) (bool, error)
	PushRecent(ctx context.Context, userID, id string) error
	ListRecent(ctx context.Context, userID string, offset, limit int) ([]string, error)
}

func jobKey(id string) string { return "generation:job:" + id }

func cancelKey(id string) string { return "generation:cancel:" + id }

func userJobsKey(uid string) string { return "generation:user_jobs:" + uid }

type redisStore struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisStore(rdb *goredis.Client, log *logger.Logger) (Store, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &redisStore{
		log: log.With("service", "JobStore"),
		rdb: rdb,
	}, nil
}

// Put rewrites the full record. Field-level patching is deliberately not
// offered; the single owning run is the only writer of a job's main fields.
func (s *redisStore) Put(ctx context.Context, job *types.Job, ttl time.Duration) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job with id required: %w", pkgerrors.ErrInvalidArgument)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.rdb.Set(ctx, jobKey(job.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, id string) (*types.Job, error) {
	raw, err := s.rdb.Get(ctx, jobKey(id)).Bytes()
	if err == goredis.Nil {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch job %s: %w", id, err)
	}
	var job types.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

func (s *redisStore) SetCancelFlag(ctx context.Context, id string) error {
	if err := s.rdb.Set(ctx, cancelKey(id), "1", CancelFlagTTL).Err(); err != nil {
		return fmt.Errorf("set cancel flag for %s: %w", id, err)
	}
	return nil
}

func (s *redisStore) IsCancelled(ctx context.Context, id string) (bool, error) {
	val, err := s.rdb.Get(ctx, cancelKey(id)).Result()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cancel flag for %s: %w", id, err)
	}
	return val == "1", nil
}

func (s *redisStore) PushRecent(ctx context.Context, userID, id string) error {
	key := userJobsKey(userID)
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, id)
	pipe.LTrim(ctx, key, 0, MaxRecentJobs-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push recent job for %s: %w", userID, err)
	}
	return nil
}

func (s *redisStore) ListRecent(ctx context.Context, userID string, offset, limit int) ([]string, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return []string{}, nil
	}
	stop := int64(offset + limit - 1)
	ids, err := s.rdb.LRange(ctx, userJobsKey(userID), int64(offset), stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent jobs for %s: %w", userID, err)
	}
	return ids, nil
}
