package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NiranjanBhat123/what-connects/models"
	"github.com/NiranjanBhat123/what-connects/store"
)

// PlayerHandler manages ephemeral player identities. No accounts, no
// passwords; a player is a username minted for one session and garbage
// collected once idle.
type PlayerHandler struct {
	store  store.Store
	logger *zap.Logger
}

func NewPlayerHandler(st store.Store, logger *zap.Logger) *PlayerHandler {
	return &PlayerHandler{store: st, logger: logger}
}

type createPlayerRequest struct {
	Username string `json:"username" binding:"required,min=1,max=50"`
}

func (h *PlayerHandler) CreatePlayer(c *gin.Context) {
	var req createPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required (1-50 characters)"})
		return
	}

	player := &models.Player{Username: req.Username}
	if err := h.store.CreatePlayer(player); err != nil {
		h.logger.Error("failed to create player", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create player"})
		return
	}

	c.JSON(http.StatusCreated, player)
}

func (h *PlayerHandler) GetPlayer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player id"})
		return
	}

	player, err := h.store.GetPlayer(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		return
	}

	c.JSON(http.StatusOK, player)
}
