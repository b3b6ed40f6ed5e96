package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/deckforge/deckforge-backend/internal/logger"
	"github.com/deckforge/deckforge-backend/internal/middleware"
	"github.com/deckforge/deckforge-backend/internal/services"
)

// userUUID resolves the request identity as a UUID for persistence-backed
// handlers.
func userUUID(c *gin.Context) (uuid.UUID, error) {
	userID, err := middleware.UserID(c)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(userID)
}

type DeckHandler struct {
	log   *logger.Logger
	decks services.DeckService
}

func NewDeckHandler(decks services.DeckService, log *logger.Logger) *DeckHandler {
	return &DeckHandler{
		log:   log.With("handler", "Deck"),
		decks: decks,
	}
}

// POST /api/v1/decks
func (h *DeckHandler) Create(c *gin.Context) {
	userID, err := userUUID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}

	var input services.DeckInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	deck, err := h.decks.Create(c.Request.Context(), userID, input)
	if err != nil {
		RespondServiceError(c, "create_deck_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"deck": deck})
}

// GET /api/v1/decks
func (h *DeckHandler) List(c *gin.Context) {
	userID, err := userUUID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}

	decks, err := h.decks.List(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, "list_decks_failed", err)
		return
	}
	RespondOK(c, gin.H{"decks": decks})
}

// GET /api/v1/decks/:id
func (h *DeckHandler) Get(c *gin.Context) {
	userID, err := userUUID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	deckID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_deck_id", err)
		return
	}

	deck, err := h.decks.Get(c.Request.Context(), userID, deckID)
	if err != nil {
		RespondServiceError(c, "deck_not_found", err)
		return
	}
	RespondOK(c, gin.H{"deck": deck})
}

// PATCH /api/v1/decks/:id
func (h *DeckHandler) Update(c *gin.Context) {
	userID, err := userUUID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	deckID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_deck_id", err)
		return
	}

	var input services.DeckInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	deck, err := h.decks.Update(c.Request.Context(), userID, deckID, input)
	if err != nil {
		RespondServiceError(c, "update_deck_failed", err)
		return
	}
	RespondOK(c, gin.H{"deck": deck})
}

// DELETE /api/v1/decks/:id
func (h *DeckHandler) Delete(c *gin.Context) {
	userID, err := userUUID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	deckID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_deck_id", err)
		return
	}

	if err := h.decks.Delete(c.Request.Context(), userID, deckID); err != nil {
		RespondServiceError(c, "delete_deck_failed", err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}

// POST /api/v1/decks/:id/restore
func (h *DeckHandler) Restore(c *gin.Context) {
	userID, err := userUUID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	deckID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_deck_id", err)
		return
	}

	deck, err := h.decks.Restore(c.Request.Context(), userID, deckID)
	if err != nil {
		RespondServiceError(c, "restore_deck_failed", err)
		return
	}
	RespondOK(c, gin.H{"deck": deck})
}

// POST /api/v1/decks/:id/move
func (h *DeckHandler) Move(c *gin.Context) {
	userID, err := userUUID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	deckID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_deck_id", err)
		return
	}

	var body struct {
		ParentID *uuid.UUID `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	deck, err := h.decks.MoveToParent(c.Request.Context(), userID, deckID, body.ParentID)
	if err != nil {
		RespondServiceError(c, "move_deck_failed", err)
		return
	}
	RespondOK(c, gin.H{"deck": deck})
}

// GET /api/v1/decks/:id/ancestors
func (h *DeckHandler) Ancestors(c *gin.Context) {
	userID, err := userUUID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	deckID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_deck_id", err)
		return
	}

	ancestors, err := h.decks.Ancestors(c.Request.Context(), userID, deckID)
	if err != nil {
		RespondServiceError(c, "deck_not_found", err)
		return
	}
	RespondOK(c, gin.H{"ancestors": ancestors})
}
