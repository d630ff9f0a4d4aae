package services

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// inboundMessage is the single envelope for everything a client sends.
// Unused fields are simply left zero for a given type.
type inboundMessage struct {
	Type         string `json:"type"`
	QuestionID   string `json:"question_id,omitempty"`
	Answer       string `json:"answer,omitempty"`
	UsedHint     bool   `json:"used_hint,omitempty"`
	TimeTaken    int    `json:"time_taken,omitempty"`
	Message      string `json:"message,omitempty"`
	Ready        bool   `json:"ready,omitempty"`
	NumQuestions int    `json:"num_questions,omitempty"`
}

// Client is one websocket connection bound to a (room, player) pair. All
// room mutations it triggers go through the room coordinator; the client
// itself only parses, dispatches and writes.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	registry *Registry
	logger   *zap.Logger

	roomCode   string
	playerID   uuid.UUID
	playerName string
}

func NewClient(hub *Hub, conn *websocket.Conn, registry *Registry, logger *zap.Logger, roomCode string, playerID uuid.UUID, playerName string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 64),
		registry:   registry,
		logger:     logger,
		roomCode:   roomCode,
		playerID:   playerID,
		playerName: playerName,
	}
}

// Start registers the client and launches its pumps.
func (c *Client) Start() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		c.handleDisconnect()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error",
					zap.String("room", c.roomCode),
					zap.String("player", c.playerID.String()),
					zap.Error(err))
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("invalid_message", "invalid message format")
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)
			// Flush anything already queued behind this frame.
			for i := 0; i < len(c.send); i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg inboundMessage) {
	coord := c.registry.Get(c.roomCode)

	switch msg.Type {
	case "ping":
		c.hub.SendTo(c, "pong", nil)

	case "set_ready":
		if _, err := coord.SetReady(c.playerID, msg.Ready); err != nil {
			c.replyError(err)
		}

	case "start_game":
		if _, err := coord.StartGame(c.playerID, msg.NumQuestions); err != nil {
			c.replyError(err)
		}

	case "next_question":
		result, err := coord.AdvanceQuestion(c.playerID)
		if err != nil {
			c.replyError(err)
			return
		}
		// Completion is broadcast once; only a repeated advance gets the
		// terminal results privately.
		if result.GameComplete && result.AlreadyComplete {
			c.hub.SendTo(c, "game_complete", map[string]any{"results": result.Results})
		}

	case "submit_answer":
		questionID, err := uuid.Parse(msg.QuestionID)
		if err != nil {
			c.sendError("invalid_message", "invalid question id")
			return
		}
		result, err := coord.SubmitAnswer(c.playerID, questionID, msg.Answer, msg.UsedHint, msg.TimeTaken)
		if err != nil {
			c.replyError(err)
			return
		}
		c.hub.SendTo(c, "answer_result", map[string]any{
			"player_id":        result.PlayerID,
			"is_correct":       result.IsCorrect,
			"correct_answer":   result.CorrectAnswer,
			"points_earned":    result.PointsEarned,
			"total_score":      result.TotalScore,
			"already_answered": result.AlreadyAnswered,
		})

	case "request_hint":
		questionID, err := uuid.Parse(msg.QuestionID)
		if err != nil {
			c.sendError("invalid_message", "invalid question id")
			return
		}
		hint, err := coord.Hint(questionID)
		if err != nil {
			c.replyError(err)
			return
		}
		c.hub.SendTo(c, "hint", map[string]any{
			"question_id": questionID,
			"hint":        hint,
		})

	case "chat_message":
		if err := coord.Chat(c.playerID, msg.Message); err != nil {
			c.replyError(err)
		}

	case "get_state":
		room, game, err := coord.Snapshot()
		if err != nil {
			c.replyError(err)
			return
		}
		fields := map[string]any{"room": room}
		if game != nil {
			fields["game"] = game
		}
		c.hub.SendTo(c, "room_state_update", fields)

	default:
		c.sendError("unknown_message_type", "unsupported message type: "+msg.Type)
	}
}

// handleDisconnect announces the drop. Membership is untouched so a mid-game
// reconnect restores the player's standing; removal happens only through an
// explicit leave.
func (c *Client) handleDisconnect() {
	c.registry.Get(c.roomCode).PublishPresence("player_left", c.playerID, c.playerName)
}

func (c *Client) replyError(err error) {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		c.sendError(gameErr.Code, gameErr.Message)
		return
	}
	c.logger.Error("operation failed",
		zap.String("room", c.roomCode),
		zap.String("player", c.playerID.String()),
		zap.Error(err))
	c.sendError("internal_error", "something went wrong")
}

func (c *Client) sendError(code, message string) {
	c.hub.SendTo(c, "error", map[string]any{
		"code":    code,
		"message": message,
	})
}
