package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NiranjanBhat123/what-connects/models"
	"github.com/NiranjanBhat123/what-connects/services"
	"github.com/NiranjanBhat123/what-connects/store"
)

const codeRetries = 5

// RoomHandler is the REST surface over rooms. Anything that mutates room or
// game state is delegated to the room coordinator; the handler only binds,
// dispatches and maps errors to status codes.
type RoomHandler struct {
	store    store.Store
	registry *services.Registry
	logger   *zap.Logger
}

func NewRoomHandler(st store.Store, registry *services.Registry, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{store: st, registry: registry, logger: logger}
}

type createRoomRequest struct {
	Name       string    `json:"name" binding:"required,min=1,max=100"`
	HostID     uuid.UUID `json:"host_id" binding:"required"`
	MaxPlayers int       `json:"max_players"`
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and host_id are required"})
		return
	}

	if _, err := h.store.GetPlayer(req.HostID); err != nil {
		respondError(c, h.logger, services.ErrPlayerNotFound)
		return
	}

	room := &models.Room{Name: req.Name, HostID: req.HostID}
	if req.MaxPlayers > 0 {
		room.MaxPlayers = req.MaxPlayers
	}

	var err error
	for attempt := 0; attempt < codeRetries; attempt++ {
		if err = h.store.CreateRoom(room); !errors.Is(err, store.ErrDuplicate) {
			break
		}
		room.Code = models.GenerateRoomCode()
	}
	if err != nil {
		h.logger.Error("failed to create room", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	view, err := h.registry.Get(room.Code).Join(req.HostID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, game, err := h.registry.Get(c.Param("code")).Snapshot()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := gin.H{"room": room}
	if game != nil {
		resp["game"] = game
	}
	c.JSON(http.StatusOK, resp)
}

type playerActionRequest struct {
	PlayerID uuid.UUID `json:"player_id" binding:"required"`
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req playerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player_id is required"})
		return
	}

	view, err := h.registry.Get(c.Param("code")).Join(req.PlayerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	var req playerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player_id is required"})
		return
	}

	view, err := h.registry.Get(c.Param("code")).Leave(req.PlayerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if view == nil {
		// Last member out, room torn down.
		c.JSON(http.StatusOK, gin.H{"deleted": true})
		return
	}
	c.JSON(http.StatusOK, view)
}

type readyRequest struct {
	PlayerID uuid.UUID `json:"player_id" binding:"required"`
	Ready    bool      `json:"ready"`
}

func (h *RoomHandler) SetReady(c *gin.Context) {
	var req readyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player_id is required"})
		return
	}

	view, err := h.registry.Get(c.Param("code")).SetReady(req.PlayerID, req.Ready)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type startGameRequest struct {
	PlayerID     uuid.UUID `json:"player_id" binding:"required"`
	NumQuestions int       `json:"num_questions"`
}

func (h *RoomHandler) StartGame(c *gin.Context) {
	var req startGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player_id is required"})
		return
	}

	view, err := h.registry.Get(c.Param("code")).StartGame(req.PlayerID, req.NumQuestions)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *RoomHandler) AdvanceQuestion(c *gin.Context) {
	var req playerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player_id is required"})
		return
	}

	result, err := h.registry.Get(c.Param("code")).AdvanceQuestion(req.PlayerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RoomHandler) GetResults(c *gin.Context) {
	results, err := h.registry.Get(c.Param("code")).Results()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// respondError maps coordinator errors onto HTTP statuses. Unexpected
// errors are logged and flattened to a 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var gameErr *services.GameError
	if !errors.As(err, &gameErr) {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status := http.StatusConflict
	switch gameErr.Code {
	case services.ErrRoomNotFound.Code, services.ErrPlayerNotFound.Code:
		status = http.StatusNotFound
	case services.ErrNotHost.Code, services.ErrPlayerNotInRoom.Code:
		status = http.StatusForbidden
	case services.ErrEmptyAnswer.Code:
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": gameErr.Message, "code": gameErr.Code})
}
