package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/deckforge/deckforge-backend/internal/logger"
	"github.com/deckforge/deckforge-backend/internal/services"
	"github.com/deckforge/deckforge-backend/internal/types"
)

type CardHandler struct {
	log   *logger.Logger
	cards services.CardService
}

func NewCardHandler(cards services.CardService, log *logger.Logger) *CardHandler {
	return &CardHandler{
		log:   log.With("handler", "Card"),
		cards: cards,
	}
}

// POST /api/v1/decks/:id/cards
func (h *CardHandler) Create(c *gin.Context) {
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

	var input services.CardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	card, err := h.cards.Create(c.Request.Context(), userID, deckID, input)
	if err != nil {
		RespondServiceError(c, "create_card_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"card": card})
}

// POST /api/v1/decks/:id/cards/import
//
// Persists approved cards out of a finished generation job into the deck.
func (h *CardHandler) SaveGenerated(c *gin.Context) {
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
		Cards []types.GeneratedCard `json:"cards"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	saved, err := h.cards.SaveGenerated(c.Request.Context(), userID, deckID, body.Cards)
	if err != nil {
		RespondServiceError(c, "save_cards_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"cards": saved, "count": len(saved)})
}

// GET /api/v1/decks/:id/cards
func (h *CardHandler) ListByDeck(c *gin.Context) {
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

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	cards, err := h.cards.ListByDeck(c.Request.Context(), userID, deckID, limit, offset)
	if err != nil {
		RespondServiceError(c, "list_cards_failed", err)
		return
	}
	RespondOK(c, gin.H{"cards": cards, "count": len(cards)})
}

// GET /api/v1/cards/:id
func (h *CardHandler) Get(c *gin.Context) {
	userID, err := userUUID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_card_id", err)
		return
	}

	card, err := h.cards.Get(c.Request.Context(), userID, cardID)
	if err != nil {
		RespondServiceError(c, "card_not_found", err)
		return
	}
	RespondOK(c, gin.H{"card": card})
}

// PATCH /api/v1/cards/:id
func (h *CardHandler) Update(c *gin.Context) {
	userID, err := userUUID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_card_id", err)
		return
	}

	var input services.CardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	card, err := h.cards.Update(c.Request.Context(), userID, cardID, input)
	if err != nil {
		RespondServiceError(c, "update_card_failed", err)
		return
	}
	RespondOK(c, gin.H{"card": card})
}

// DELETE /api/v1/cards/:id
func (h *CardHandler) Delete(c *gin.Context) {
	userID, err := userUUID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_card_id", err)
		return
	}

	if err := h.cards.Delete(c.Request.Context(), userID, cardID); err != nil {
		RespondServiceError(c, "delete_card_failed", err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}

// POST /api/v1/cards/:id/restore
func (h *CardHandler) Restore(c *gin.Context) {
	userID, err := userUUID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_card_id", err)
		return
	}

	if err := h.cards.Restore(c.Request.Context(), userID, cardID); err != nil {
		RespondServiceError(c, "restore_card_failed", err)
		return
	}
	RespondOK(c, gin.H{"status": "restored"})
}
