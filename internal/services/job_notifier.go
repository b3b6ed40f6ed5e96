package services

import (
	"github.com/deckforge/deckforge-backend/internal/sse"
	"github.com/deckforge/deckforge-backend/internal/types"
)

// JobNotifier pushes job terminal-state notifications to connected clients.
// Notification delivery is best effort; job state in the store is the truth.
type JobNotifier interface {
	JobCompleted(job *types.Job)
	JobFailed(job *types.Job)
	JobCancelled(job *types.Job)
}

type sseJobNotifier struct {
	hub *sse.SSEHub
}

func NewSSEJobNotifier(hub *sse.SSEHub) JobNotifier {
	return &sseJobNotifier{hub: hub}
}

func (n *sseJobNotifier) broadcast(event sse.SSEEvent, job *types.Job) {
	if n.hub == nil || job == nil {
		return
	}
	n.hub.Broadcast(sse.SSEMessage{
		Channel: sse.UserChannel(job.UserID),
		Event:   event,
		Data: map[string]any{
			"job_id":          job.ID,
			"status":          job.Status,
			"generated_count": job.GeneratedCount,
			"error":           job.ErrorMessage,
		},
	})
}

func (n *sseJobNotifier) JobCompleted(job *types.Job) { n.broadcast(sse.SSEEventJobCompleted, job) }
func (n *sseJobNotifier) JobFailed(job *types.Job)    { n.broadcast(sse.SSEEventJobFailed, job) }
func (n *sseJobNotifier) JobCancelled(job *types.Job) { n.broadcast(sse.SSEEventJobCancelled, job) }
