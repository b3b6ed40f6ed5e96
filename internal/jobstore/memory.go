package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/deckforge/deckforge-backend/internal/pkg/errors"
	"github.com/deckforge/deckforge-backend/internal/types"
)

type memoryEntry struct {
	raw       []byte
	expiresAt time.Time
}

// memoryStore mirrors the redis store semantics for tests and local runs
// without a redis instance.
type memoryStore struct {
	mu        sync.Mutex
	jobs      map[string]memoryEntry
	cancelled map[string]time.Time
	recent    map[string][]string
}

func NewMemoryStore() Store {
	return &memoryStore{
		jobs:      make(map[string]memoryEntry),
		cancelled: make(map[string]time.Time),
		recent:    make(map[string][]string),
	}
}

func (s *memoryStore) Put(_ context.Context, job *types.Job, ttl time.Duration) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job with id required: %w", pkgerrors.ErrInvalidArgument)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = memoryEntry{raw: raw, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*types.Job, error) {
	s.mu.Lock()
	entry, ok := s.jobs[id]
	if ok && time.Now().After(entry.expiresAt) {
		delete(s.jobs, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	var job types.Job
	if err := json.Unmarshal(entry.raw, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *memoryStore) SetCancelFlag(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled[id] = time.Now().Add(CancelFlagTTL)
	return nil
}

func (s *memoryStore) IsCancelled(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline, ok := s.cancelled[id]
	if !ok {
		return false, nil
	}
	if time.Now().After(deadline) {
		delete(s.cancelled, id)
		return false, nil
	}
	return true, nil
}

func (s *memoryStore) PushRecent(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := append([]string{id}, s.recent[userID]...)
	if len(ids) > MaxRecentJobs {
		ids = ids[:MaxRecentJobs]
	}
	s.recent[userID] = ids
	return nil
}

func (s *memoryStore) ListRecent(_ context.Context, userID string, offset, limit int) ([]string, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return []string{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.recent[userID]
	if offset >= len(ids) {
		return []string{}, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	out := make([]string, end-offset)
	copy(out, ids[offset:end])
	return out, nil
}
