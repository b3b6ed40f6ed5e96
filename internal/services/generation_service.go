package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deckforge/deckforge-backend/internal/generation"
	"github.com/deckforge/deckforge-backend/internal/jobstore"
	"github.com/deckforge/deckforge-backend/internal/logger"
	"github.com/deckforge/deckforge-backend/internal/pipeline"
	pkgerrors "github.com/deckforge/deckforge-backend/internal/pkg/errors"
	"github.com/deckforge/deckforge-backend/internal/types"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	currentStepKey = "current_step"
)

// GenerationService is the job lifecycle manager: it bridges the job store
// and the card pipeline, exposing a poll-based job API and a push-based
// event stream.
type GenerationService interface {
	CreateJob(ctx context.Context, userID string, req types.GenerationRequest) (*types.Job, error)
	RunJob(ctx context.Context, jobID string) error
	GetJob(ctx context.Context, userID, jobID string) (*types.Job, error)
	GetJobStatus(ctx context.Context, userID, jobID string) (*types.JobStatusSummary, error)
	CancelJob(ctx context.Context, userID, jobID string) error
	ListJobs(ctx context.Context, userID string, status types.JobStatus, limit, offset int) ([]*types.Job, error)
	StreamJob(ctx context.Context, req types.GenerationRequest) (<-chan types.StreamEvent, error)
}

type generationService struct {
	log      *logger.Logger
	store    jobstore.Store
	cards    *generation.CardPipeline
	notifier JobNotifier

	// In-process guard upholding the at-most-one-writer invariant per job.
	mu      sync.Mutex
	running map[string]struct{}
}

func NewGenerationService(store jobstore.Store, cards *generation.CardPipeline, notifier JobNotifier, log *logger.Logger) (GenerationService, error) {
	if store == nil {
		return nil, fmt.Errorf("job store required")
	}
	if cards == nil {
		return nil, fmt.Errorf("card pipeline required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &generationService{
		log:      log.With("service", "GenerationService"),
		store:    store,
		cards:    cards,
		notifier: notifier,
		running:  make(map[string]struct{}),
	}, nil
}

func (s *generationService) CreateJob(ctx context.Context, userID string, req types.GenerationRequest) (*types.Job, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id required: %w", pkgerrors.ErrInvalidArgument)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err)
	}

	job := &types.Job{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    types.JobStatusPending,
		Request:   req,
		CreatedAt: time.Now().UTC(),
		Metadata:  map[string]string{},
	}
	if err := s.store.Put(ctx, job, jobstore.DefaultTTL); err != nil {
		return nil, err
	}
	if err := s.store.PushRecent(ctx, userID, job.ID); err != nil {
		s.log.Warn("Failed to index recent job", "jobID", job.ID, "error", err)
	}

	s.log.Info("Generation job created", "jobID", job.ID, "topic", req.Topic, "numCards", req.NumCards)
	return job, nil
}

// RunJob executes the pipeline for a pending job. Invoking it on a job that
// is already running (or finished) is a caller error.
func (s *generationService) RunJob(ctx context.Context, jobID string) error {
	if !s.acquire(jobID) {
		return fmt.Errorf("job %s is already running: %w", jobID, pkgerrors.ErrConflict)
	}
	defer s.release(jobID)

	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == types.JobStatusRunning {
		return fmt.Errorf("job %s is already running: %w", jobID, pkgerrors.ErrConflict)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %s already finished: %w", jobID, pkgerrors.ErrConflict)
	}

	started := time.Now().UTC()
	job.Status = types.JobStatusRunning
	job.StartedAt = &started
	if job.Metadata == nil {
		job.Metadata = map[string]string{}
	}
	if err := s.store.Put(ctx, job, jobstore.DefaultTTL); err != nil {
		return err
	}

	hooks := pipeline.Hooks[generation.CardState]{
		Cancelled: func(c context.Context) bool {
			cancelled, err := s.store.IsCancelled(c, jobID)
			if err != nil {
				s.log.Warn("Cancel flag read failed", "jobID", jobID, "error", err)
				return false
			}
			return cancelled
		},
		OnStage: func(stage string, _ *generation.CardState) {
			// A cancel may have landed a terminal record mid-stage; progress
			// writes must never resurrect it.
			if current, err := s.store.Get(ctx, jobID); err == nil && current.Status.Terminal() {
				return
			}
			job.Metadata[currentStepKey] = stage
			if err := s.store.Put(ctx, job, jobstore.DefaultTTL); err != nil {
				s.log.Warn("Progress write failed", "jobID", jobID, "stage", stage, "error", err)
			}
		},
	}

	state := s.cards.Run(ctx, job.Request, hooks)

	finished := time.Now().UTC()
	job.CompletedAt = &finished
	delete(job.Metadata, currentStepKey)

	switch {
	case state.Cancelled:
		job.Status = types.JobStatusCancelled
		s.finalize(ctx, job)
		if s.notifier != nil {
			s.notifier.JobCancelled(job)
		}
		s.log.Info("Generation job cancelled", "jobID", jobID)
	case state.Error != "":
		job.Status = types.JobStatusFailed
		job.ErrorMessage = state.Error
		s.finalize(ctx, job)
		if s.notifier != nil {
			s.notifier.JobFailed(job)
		}
		s.log.Warn("Generation job failed", "jobID", jobID, "error", state.Error)
	default:
		job.Status = types.JobStatusCompleted
		job.Cards = state.Saved
		job.GeneratedCount = len(state.Saved)
		s.finalize(ctx, job)
		if s.notifier != nil {
			s.notifier.JobCompleted(job)
		}
		s.log.Info("Generation job completed", "jobID", jobID,
			"generated", job.GeneratedCount, "rejected", len(state.Rejected),
			"duration", finished.Sub(started).String())
	}
	return nil
}

// finalize persists a terminal job unless another writer already landed a
// terminal state; terminal states never regress.
func (s *generationService) finalize(ctx context.Context, job *types.Job) {
	current, err := s.store.Get(ctx, job.ID)
	if err == nil && current.Status.Terminal() && current.Status != job.Status {
		s.log.Debug("Skipping terminal overwrite", "jobID", job.ID,
			"stored", current.Status, "computed", job.Status)
		job.Status = current.Status
		return
	}
	if err := s.store.Put(ctx, job, jobstore.DefaultTTL); err != nil {
		s.log.Error("Terminal state write failed", "jobID", job.ID, "error", err)
	}
}

func (s *generationService) GetJob(ctx context.Context, userID, jobID string) (*types.Job, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		// Another user's job is indistinguishable from a missing one.
		return nil, pkgerrors.ErrNotFound
	}
	return job, nil
}

func (s *generationService) GetJobStatus(ctx context.Context, userID, jobID string) (*types.JobStatusSummary, error) {
	job, err := s.GetJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}

	summary := &types.JobStatusSummary{
		JobID:     job.ID,
		Status:    job.Status,
		Generated: job.GeneratedCount,
		Requested: job.Request.NumCards,
		Error:     job.ErrorMessage,
	}
	switch job.Status {
	case types.JobStatusCompleted:
		summary.Progress = 100
	case types.JobStatusRunning:
		step := job.Metadata[currentStepKey]
		summary.CurrentStep = step
		summary.Progress = generation.StageProgress(step)
	}
	return summary, nil
}

// CancelJob sets the cancellation flag and returns immediately; the running
// pipeline observes it at its next stage boundary.
func (s *generationService) CancelJob(ctx context.Context, userID, jobID string) error {
	job, err := s.GetJob(ctx, userID, jobID)
	if err != nil {
		return err
	}
	if job.Status == types.JobStatusCompleted || job.Status == types.JobStatusFailed {
		return fmt.Errorf("job %s already finished: %w", jobID, pkgerrors.ErrConflict)
	}

	if err := s.store.SetCancelFlag(ctx, jobID); err != nil {
		return err
	}
	if !job.Status.Terminal() {
		now := time.Now().UTC()
		job.Status = types.JobStatusCancelled
		job.CompletedAt = &now
		if err := s.store.Put(ctx, job, jobstore.DefaultTTL); err != nil {
			return err
		}
	}
	s.log.Info("Generation job cancel requested", "jobID", jobID)
	return nil
}

func (s *generationService) ListJobs(ctx context.Context, userID string, status types.JobStatus, limit, offset int) ([]*types.Job, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	ids, err := s.store.ListRecent(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}

	jobs := make([]*types.Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.store.Get(ctx, id)
		if err != nil {
			// Expired records linger in the index; skip them.
			continue
		}
		if status != "" && job.Status != status {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// StreamJob runs an independent pipeline invocation and streams its events.
// It bypasses the job store entirely; events come straight from the live run.
func (s *generationService) StreamJob(ctx context.Context, req types.GenerationRequest) (<-chan types.StreamEvent, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err)
	}
	return s.cards.Stream(ctx, req), nil
}

func (s *generationService) acquire(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.running[jobID]; busy {
		return false
	}
	s.running[jobID] = struct{}{}
	return true
}

func (s *generationService) release(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, jobID)
}
