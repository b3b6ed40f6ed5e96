package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/deckforge/deckforge-backend/internal/logger"
	"github.com/deckforge/deckforge-backend/internal/middleware"
	pkgerrors "github.com/deckforge/deckforge-backend/internal/pkg/errors"
	"github.com/deckforge/deckforge-backend/internal/services"
	"github.com/deckforge/deckforge-backend/internal/types"
)

type GenerationHandler struct {
	log *logger.Logger
	svc services.GenerationService
}

func NewGenerationHandler(svc services.GenerationService, log *logger.Logger) *GenerationHandler {
	return &GenerationHandler{
		log: log.With("handler", "Generation"),
		svc: svc,
	}
}

// POST /api/v1/generate
//
// Accepts the job and returns immediately; the pipeline runs in the
// background and is observed through polling or SSE.
func (h *GenerationHandler) Generate(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}

	var req types.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	job, err := h.svc.CreateJob(c.Request.Context(), userID, req)
	if err != nil {
		RespondServiceError(c, "create_job_failed", err)
		return
	}

	// Detached from the request context so a client disconnect does not kill
	// the run; cancellation goes through the job store flag.
	go func() {
		if err := h.svc.RunJob(context.Background(), job.ID); err != nil {
			h.log.Error("Background job run failed", "jobID", job.ID, "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

// GET /api/v1/generate/jobs/:id
func (h *GenerationHandler) GetJob(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}

	job, err := h.svc.GetJob(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		RespondServiceError(c, "job_not_found", err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}

// GET /api/v1/generate/jobs/:id/status
func (h *GenerationHandler) GetJobStatus(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}

	summary, err := h.svc.GetJobStatus(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		RespondServiceError(c, "job_not_found", err)
		return
	}
	RespondOK(c, summary)
}

// POST /api/v1/generate/jobs/:id/cancel
func (h *GenerationHandler) CancelJob(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}

	if err := h.svc.CancelJob(c.Request.Context(), userID, c.Param("id")); err != nil {
		// A finished job cannot be cancelled; that is a bad request, not a
		// conflict on a live resource.
		if errors.Is(err, pkgerrors.ErrConflict) {
			RespondError(c, http.StatusBadRequest, "job_already_finished", err)
			return
		}
		RespondServiceError(c, "cancel_failed", err)
		return
	}
	RespondOK(c, gin.H{"status": "cancellation_requested"})
}

// GET /api/v1/generate/jobs
func (h *GenerationHandler) ListJobs(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := types.JobStatus(c.Query("status"))

	jobs, err := h.svc.ListJobs(c.Request.Context(), userID, status, limit, offset)
	if err != nil {
		RespondServiceError(c, "list_jobs_failed", err)
		return
	}
	RespondOK(c, gin.H{"jobs": jobs, "count": len(jobs)})
}

// POST /api/v1/generate/stream
//
// Runs a generation inline and streams pipeline events over SSE. Closing the
// connection cancels the run.
func (h *GenerationHandler) StreamGeneration(c *gin.Context) {
	if _, err := middleware.UserID(c); err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}

	var req types.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	events, err := h.svc.StreamJob(c.Request.Context(), req)
	if err != nil {
		RespondServiceError(c, "stream_failed", err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		RespondError(c, http.StatusInternalServerError, "streaming_unsupported", fmt.Errorf("response writer does not support flushing"))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			h.log.Warn("Failed to encode stream event", "error", err)
			continue
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, payload)
		flusher.Flush()
	}
}
