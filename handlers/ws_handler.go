package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/NiranjanBhat123/what-connects/models"
	"github.com/NiranjanBhat123/what-connects/services"
	"github.com/NiranjanBhat123/what-connects/store"
)

// Close codes for connections rejected after the upgrade handshake.
const (
	closeInvalidPlayer = 4001
	closeRoomNotFound  = 4004
)

// WSHandler upgrades websocket connections and binds them to a room. The
// player must identify itself via the player_id query parameter; membership
// is established (or reactivated) before the client joins the fan-out.
type WSHandler struct {
	hub      *services.Hub
	registry *services.Registry
	store    store.Store
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *services.Hub, registry *services.Registry, st store.Store, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:      hub,
		registry: registry,
		store:    st,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) Serve(c *gin.Context) {
	roomCode := strings.ToUpper(c.Param("code"))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("room", roomCode), zap.Error(err))
		return
	}

	playerID, err := uuid.Parse(c.Query("player_id"))
	if err != nil {
		closeWith(conn, closeInvalidPlayer, "player_id query parameter required")
		return
	}
	player, err := h.store.GetPlayer(playerID)
	if err != nil {
		closeWith(conn, closeInvalidPlayer, "unknown player")
		return
	}

	room, err := h.store.GetRoomByCode(roomCode)
	if err != nil {
		closeWith(conn, closeRoomNotFound, "room not found")
		return
	}
	membership, err := h.store.GetMembership(room.ID, playerID)
	if err != nil {
		closeWith(conn, closeInvalidPlayer, "not a member of this room")
		return
	}

	coord := h.registry.Get(roomCode)
	if membership.State == models.MemberDisconnected {
		// Reconnect mid-game: restore the membership before subscribing.
		if _, err := coord.Join(playerID); err != nil {
			var gameErr *services.GameError
			if errors.As(err, &gameErr) {
				closeWith(conn, closeInvalidPlayer, gameErr.Message)
				return
			}
			h.logger.Error("websocket rejoin failed",
				zap.String("room", roomCode),
				zap.String("player", playerID.String()),
				zap.Error(err))
			closeWith(conn, websocket.CloseInternalServerErr, "rejoin failed")
			return
		}
	}

	if err := h.store.TouchPlayer(playerID); err != nil {
		h.logger.Warn("failed to touch player", zap.String("player", playerID.String()), zap.Error(err))
	}

	client := services.NewClient(h.hub, conn, h.registry, h.logger, roomCode, playerID, player.Username)
	client.Start()

	// Private snapshot so a mid-game reconnect lands on the live question.
	roomView, gameView, err := coord.Snapshot()
	if err != nil {
		return
	}
	fields := map[string]any{"room": roomView}
	if gameView != nil {
		fields["game"] = gameView
	}
	h.hub.SendTo(client, "initial_state", fields)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	conn.Close()
}
