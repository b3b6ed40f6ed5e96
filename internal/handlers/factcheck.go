package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/deckforge/deckforge-backend/internal/generation"
	"github.com/deckforge/deckforge-backend/internal/logger"
	"github.com/deckforge/deckforge-backend/internal/middleware"
)

type FactCheckHandler struct {
	log       *logger.Logger
	factCheck *generation.FactCheckPipeline
}

func NewFactCheckHandler(factCheck *generation.FactCheckPipeline, log *logger.Logger) *FactCheckHandler {
	return &FactCheckHandler{
		log:       log.With("handler", "FactCheck"),
		factCheck: factCheck,
	}
}

// POST /api/v1/factcheck
//
// Runs the verification pipeline on arbitrary content, independent of any
// generation job.
func (h *FactCheckHandler) Verify(c *gin.Context) {
	if _, err := middleware.UserID(c); err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}

	var body struct {
		Content string `json:"content"`
		Context string `json:"context"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(body.Content) == "" {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("content required"))
		return
	}

	report, err := h.factCheck.Verify(c.Request.Context(), body.Content, body.Context)
	if err != nil {
		RespondServiceError(c, "factcheck_failed", err)
		return
	}
	RespondOK(c, gin.H{"report": report})
}
