package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/NiranjanBhat123/what-connects/config"
	"github.com/NiranjanBhat123/what-connects/models"
	"github.com/NiranjanBhat123/what-connects/store"
)

const maxChatLength = 500

// PlayerView is one roster entry in a room-state payload.
type PlayerView struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Score    int       `json:"score"`
	IsReady  bool      `json:"is_ready"`
	IsHost   bool      `json:"is_host"`
	State    string    `json:"state"`
}

// RoomStateView is the full room snapshot pushed to clients.
type RoomStateView struct {
	ID          uuid.UUID    `json:"id"`
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	Status      string       `json:"status"`
	MaxPlayers  int          `json:"max_players"`
	PlayerCount int          `json:"player_count"`
	CanStart    bool         `json:"can_start"`
	HostID      uuid.UUID    `json:"host_id"`
	Players     []PlayerView `json:"players"`
}

// QuestionView is a question payload with the correct answer withheld.
type QuestionView struct {
	ID        uuid.UUID      `json:"id"`
	Order     int            `json:"order"`
	Items     datatypes.JSON `json:"items"`
	Options   datatypes.JSON `json:"options,omitempty"`
	Hint      string         `json:"hint"`
	TimeLimit int            `json:"time_limit"`
}

// GameStateView is the in-game snapshot pushed on (re)connect.
type GameStateView struct {
	GameStatus           string        `json:"game_status"`
	CurrentQuestionIndex int           `json:"current_question_index"`
	TotalQuestions       int           `json:"total_questions"`
	CurrentQuestion      *QuestionView `json:"current_question,omitempty"`
}

// ResultView is one row of the final ranked results.
type ResultView struct {
	Rank         int       `json:"rank"`
	PlayerID     uuid.UUID `json:"player_id"`
	PlayerName   string    `json:"player_name"`
	TotalScore   int       `json:"total_score"`
	CorrectCount int       `json:"correct_count"`
	WrongCount   int       `json:"wrong_count"`
	Accuracy     float64   `json:"accuracy"`
}

// LeaderboardEntry is one row of a mid-game leaderboard broadcast.
type LeaderboardEntry struct {
	PlayerID   uuid.UUID `json:"player_id"`
	PlayerName string    `json:"player_name"`
	TotalScore int       `json:"total_score"`
}

// AnswerResult is what a submission returns to the submitting player.
type AnswerResult struct {
	PlayerID        uuid.UUID `json:"player_id"`
	PlayerName      string    `json:"player_name"`
	IsCorrect       bool      `json:"is_correct"`
	CorrectAnswer   string    `json:"correct_answer,omitempty"`
	PointsEarned    int       `json:"points_earned"`
	TotalScore      int       `json:"total_score"`
	AlreadyAnswered bool      `json:"already_answered"`
}

// AdvanceResult is the outcome of a question advance. AlreadyComplete marks
// the repeat of a terminal advance, where the completion broadcast has
// already gone out and the results are returned to the caller alone.
type AdvanceResult struct {
	GameComplete    bool          `json:"game_complete"`
	AlreadyComplete bool          `json:"-"`
	Question        *QuestionView `json:"question,omitempty"`
	QuestionNumber  int           `json:"question_number,omitempty"`
	TotalQuestions  int           `json:"total_questions"`
	Results         []ResultView  `json:"results,omitempty"`
}

// RoomCoordinator is the single serialization point for all mutating
// operations on one room. Every operation holds the coordinator's mutex
// across the full read-modify-write against the store. Read-only snapshots
// bypass the lock.
type RoomCoordinator struct {
	code string

	mu    sync.Mutex
	timer *time.Timer

	store    store.Store
	hub      *Hub
	rdb      *redis.Client
	scoring  *ScoringEngine
	source   QuestionSource
	settings config.GameSettings
	logger   *zap.Logger
	evict    func(code string)
}

func NewRoomCoordinator(
	code string,
	st store.Store,
	hub *Hub,
	rdb *redis.Client,
	scoring *ScoringEngine,
	source QuestionSource,
	settings config.GameSettings,
	logger *zap.Logger,
	evict func(code string),
) *RoomCoordinator {
	if evict == nil {
		evict = func(string) {}
	}
	return &RoomCoordinator{
		code:     strings.ToUpper(code),
		store:    st,
		hub:      hub,
		rdb:      rdb,
		scoring:  scoring,
		source:   source,
		settings: settings,
		logger:   logger,
		evict:    evict,
	}
}

func (c *RoomCoordinator) Code() string { return c.code }

// Join adds a player to the room, or reactivates a soft-left membership so
// a reconnect during an active game restores the player's standing.
func (c *RoomCoordinator) Join(playerID uuid.UUID) (*RoomStateView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, err := c.loadRoom()
	if err != nil {
		return nil, err
	}
	player, err := c.store.GetPlayer(playerID)
	if err != nil {
		return nil, ErrPlayerNotFound
	}

	membership, err := c.store.GetMembership(room.ID, playerID)
	switch {
	case err == nil:
		if membership.State == models.MemberDisconnected {
			membership.State = models.MemberJoined
			if err := c.store.UpdateMembership(membership); err != nil {
				return nil, fmt.Errorf("reactivate membership: %w", err)
			}
		}
	case errors.Is(err, store.ErrNotFound):
		if room.Status != models.RoomWaiting {
			return nil, ErrGameAlreadyStarted
		}
		if room.IsFull() {
			return nil, ErrRoomFull
		}
		if err := c.store.CreateMembership(&models.RoomMembership{
			RoomID:   room.ID,
			PlayerID: playerID,
		}); err != nil {
			return nil, fmt.Errorf("create membership: %w", err)
		}
	default:
		return nil, fmt.Errorf("get membership: %w", err)
	}

	room, err = c.loadRoom()
	if err != nil {
		return nil, err
	}
	view := c.buildRoomView(room)
	c.cacheRoomState(view)
	c.hub.Publish(c.code, "player_joined", map[string]any{
		"player_id":   playerID,
		"player_name": player.Username,
		"room_state":  view,
	})
	return view, nil
}

// Leave removes a player. During an active game the membership is only
// marked disconnected so standings survive. The host role passes to another
// active member; when none remain, the room and all its game data are torn
// down and the registry entry evicted.
func (c *RoomCoordinator) Leave(playerID uuid.UUID) (*RoomStateView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, err := c.loadRoom()
	if err != nil {
		return nil, err
	}
	membership, err := c.store.GetMembership(room.ID, playerID)
	if err != nil {
		return nil, ErrPlayerNotInRoom
	}
	playerName := membership.Player.Username

	if room.Status == models.RoomActive {
		membership.State = models.MemberDisconnected
		if err := c.store.UpdateMembership(membership); err != nil {
			return nil, fmt.Errorf("deactivate membership: %w", err)
		}
	} else {
		if err := c.store.DeleteMembership(room.ID, playerID); err != nil {
			return nil, fmt.Errorf("delete membership: %w", err)
		}
	}

	room, err = c.loadRoom()
	if err != nil {
		return nil, err
	}

	var successor *models.RoomMembership
	for i := range room.Players {
		m := &room.Players[i]
		if m.PlayerID != playerID && m.State == models.MemberJoined {
			successor = m
			break
		}
	}

	if successor == nil {
		c.teardownLocked(room)
		return nil, nil
	}

	if room.HostID == playerID {
		room.HostID = successor.PlayerID
		if err := c.store.UpdateRoom(room); err != nil {
			return nil, fmt.Errorf("reassign host: %w", err)
		}
		c.logger.Info("host reassigned",
			zap.String("room", c.code),
			zap.String("new_host", successor.PlayerID.String()))
	}

	view := c.buildRoomView(room)
	c.cacheRoomState(view)
	c.hub.Publish(c.code, "player_left", map[string]any{
		"player_id":   playerID,
		"player_name": playerName,
		"room_state":  view,
	})
	return view, nil
}

// SetReady flips a player's ready flag and pushes the updated roster.
func (c *RoomCoordinator) SetReady(playerID uuid.UUID, ready bool) (*RoomStateView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, err := c.loadRoom()
	if err != nil {
		return nil, err
	}
	membership, err := c.store.GetMembership(room.ID, playerID)
	if err != nil {
		return nil, ErrPlayerNotInRoom
	}

	membership.IsReady = ready
	if err := c.store.UpdateMembership(membership); err != nil {
		return nil, fmt.Errorf("update membership: %w", err)
	}

	room, err = c.loadRoom()
	if err != nil {
		return nil, err
	}
	view := c.buildRoomView(room)
	c.cacheRoomState(view)
	c.hub.Publish(c.code, "room_state_update", map[string]any{"state": view})
	return view, nil
}

// StartGame creates the game, seeds zeroed scores for every active member
// and persists the generated question batch in a single transaction, so a
// failed generation leaves the room in waiting with nothing written.
func (c *RoomCoordinator) StartGame(requesterID uuid.UUID, numQuestions int) (*RoomStateView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, err := c.loadRoom()
	if err != nil {
		return nil, err
	}
	if room.HostID != requesterID {
		return nil, ErrNotHost
	}
	if room.Status != models.RoomWaiting {
		return nil, ErrGameAlreadyStarted
	}
	if !room.CanStart(c.settings.MinPlayers) {
		return nil, ErrInsufficientPlayers
	}

	if numQuestions <= 0 {
		numQuestions = c.settings.QuestionsPerGame
	}

	batch, err := c.generateQuestions(numQuestions)
	if err != nil {
		return nil, err
	}

	game := &models.Game{RoomID: room.ID, Status: models.GameActive}
	questions := make([]models.Question, len(batch))

	err = c.store.Transaction(func(tx store.Store) error {
		if err := tx.CreateGame(game); err != nil {
			return fmt.Errorf("create game: %w", err)
		}
		for i, q := range batch {
			items, _ := json.Marshal(q.Items)
			questions[i] = models.Question{
				GameID:        game.ID,
				Order:         i,
				Items:         items,
				CorrectAnswer: strings.TrimSpace(q.CorrectAnswer),
				Hint:          strings.TrimSpace(q.Hint),
				TimeLimit:     c.settings.TimeLimitSeconds,
			}
			if c.settings.QuestionMode == config.ModeMultipleChoice {
				options, _ := json.Marshal(q.Options)
				questions[i].Options = options
			}
		}
		if err := tx.CreateQuestions(questions); err != nil {
			return fmt.Errorf("create questions: %w", err)
		}
		for _, m := range room.Players {
			if m.State != models.MemberJoined {
				continue
			}
			if err := tx.CreateGameScore(&models.GameScore{
				GameID:   game.ID,
				PlayerID: m.PlayerID,
			}); err != nil {
				return fmt.Errorf("seed game score: %w", err)
			}
		}
		room.Status = models.RoomActive
		if err := tx.UpdateRoom(room); err != nil {
			return fmt.Errorf("activate room: %w", err)
		}
		return nil
	})
	if err != nil {
		room.Status = models.RoomWaiting
		return nil, err
	}

	first := questions[0]
	c.logger.Info("game started",
		zap.String("room", c.code),
		zap.String("game", game.ID.String()),
		zap.Int("questions", len(questions)))

	c.hub.Publish(c.code, "game_started", map[string]any{
		"question":        sanitizeQuestion(&first),
		"question_number": 1,
		"total_questions": len(questions),
	})
	c.startTimerLocked(first.TimeLimit)

	// The game is committed and announced; the view comes from the row
	// already in hand rather than a reload that could fail the call.
	view := c.buildRoomView(room)
	c.cacheRoomState(view)
	return view, nil
}

// AdvanceQuestion moves the active game to its next question, or completes
// it past the last one. Advancing an already-completed game returns the
// terminal results again without broadcasting, so duplicate host requests
// are harmless.
func (c *RoomCoordinator) AdvanceQuestion(requesterID uuid.UUID) (*AdvanceResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, err := c.loadRoom()
	if err != nil {
		return nil, err
	}
	if room.HostID != requesterID {
		return nil, ErrNotHost
	}

	game, err := c.store.GetActiveGame(room.ID)
	if errors.Is(err, store.ErrNotFound) {
		latest, lerr := c.store.GetLatestGame(room.ID)
		if lerr == nil && latest.Status == models.GameCompleted {
			results, rerr := c.finalResults(latest)
			if rerr != nil {
				return nil, rerr
			}
			return &AdvanceResult{
				GameComplete:    true,
				AlreadyComplete: true,
				TotalQuestions:  len(latest.Questions),
				Results:         results,
			}, nil
		}
		return nil, ErrGameNotActive
	}
	if err != nil {
		return nil, fmt.Errorf("get active game: %w", err)
	}

	state := NewGameState(game)
	next, done := state.Advance()
	c.cancelTimerLocked()

	if done {
		now := time.Now().UTC()
		game.CompletedAt = &now
		if err := c.store.UpdateGame(game); err != nil {
			return nil, fmt.Errorf("complete game: %w", err)
		}
		room.Status = models.RoomCompleted
		if err := c.store.UpdateRoom(room); err != nil {
			return nil, fmt.Errorf("complete room: %w", err)
		}

		results, err := c.finalResults(game)
		if err != nil {
			return nil, err
		}
		c.logger.Info("game complete", zap.String("room", c.code), zap.String("game", game.ID.String()))
		c.hub.Publish(c.code, "game_complete", map[string]any{"results": results})
		return &AdvanceResult{
			GameComplete:   true,
			TotalQuestions: state.TotalQuestions(),
			Results:        results,
		}, nil
	}

	if err := c.store.UpdateGame(game); err != nil {
		return nil, fmt.Errorf("advance game: %w", err)
	}
	view := sanitizeQuestion(next)
	number := game.CurrentQuestionIndex + 1
	c.hub.Publish(c.code, "next_question", map[string]any{
		"question":        view,
		"question_number": number,
		"total_questions": state.TotalQuestions(),
	})
	c.startTimerLocked(next.TimeLimit)

	return &AdvanceResult{
		Question:       view,
		QuestionNumber: number,
		TotalQuestions: state.TotalQuestions(),
	}, nil
}

// SubmitAnswer scores a submission against the current question. Resubmits
// return the original result unchanged and are never re-scored; the
// (question, player) unique index backstops the lock against racing
// processes.
func (c *RoomCoordinator) SubmitAnswer(playerID, questionID uuid.UUID, text string, usedHint bool, timeTaken int) (*AnswerResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyAnswer
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	room, err := c.loadRoom()
	if err != nil {
		return nil, err
	}
	membership, err := c.store.GetMembership(room.ID, playerID)
	if err != nil || membership.State != models.MemberJoined {
		return nil, ErrPlayerNotInRoom
	}
	playerName := membership.Player.Username

	game, err := c.store.GetActiveGame(room.ID)
	if err != nil {
		return nil, ErrGameNotActive
	}
	state := NewGameState(game)
	current := state.CurrentQuestion()
	if current == nil {
		return nil, ErrGameNotActive
	}
	if current.ID != questionID {
		return nil, ErrStaleQuestion
	}
	if timeTaken > current.TimeLimit {
		return nil, ErrTimeLimitExceeded
	}

	if existing, err := c.store.GetAnswer(questionID, playerID); err == nil {
		return c.existingResult(game, playerID, playerName, current, existing), nil
	}

	isCorrect, err := state.CheckAnswer(questionID, text)
	if err != nil {
		return nil, err
	}
	points := c.scoring.PointsFor(isCorrect, usedHint)

	answer := &models.Answer{
		QuestionID:   questionID,
		PlayerID:     playerID,
		AnswerText:   strings.TrimSpace(text),
		IsCorrect:    isCorrect,
		UsedHint:     usedHint,
		TimeTaken:    max(0, timeTaken),
		PointsEarned: points,
	}

	var totalScore int
	err = c.store.Transaction(func(tx store.Store) error {
		if err := tx.CreateAnswer(answer); err != nil {
			return err
		}
		score, err := tx.GetGameScore(game.ID, playerID)
		if err != nil {
			return fmt.Errorf("get game score: %w", err)
		}
		score.TotalScore += points
		if isCorrect {
			score.CorrectCount++
		} else {
			score.WrongCount++
		}
		if err := tx.UpdateGameScore(score); err != nil {
			return fmt.Errorf("update game score: %w", err)
		}
		totalScore = score.TotalScore

		membership.Score = score.TotalScore
		return tx.UpdateMembership(membership)
	})
	if errors.Is(err, store.ErrDuplicate) {
		// Lost a cross-process race; hand back whoever won.
		if existing, gerr := c.store.GetAnswer(questionID, playerID); gerr == nil {
			return c.existingResult(game, playerID, playerName, current, existing), nil
		}
		return nil, ErrAlreadyAnswered
	}
	if err != nil {
		return nil, err
	}

	result := &AnswerResult{
		PlayerID:     playerID,
		PlayerName:   playerName,
		IsCorrect:    isCorrect,
		PointsEarned: points,
		TotalScore:   totalScore,
	}
	fields := map[string]any{
		"player_id":     playerID,
		"player_name":   playerName,
		"is_correct":    isCorrect,
		"question_id":   questionID,
		"points_earned": points,
		"total_score":   totalScore,
	}
	if !isCorrect {
		result.CorrectAnswer = current.CorrectAnswer
		fields["correct_answer"] = current.CorrectAnswer
	}
	c.hub.Publish(c.code, "answer_submitted", fields)

	// Advisory only: advancing stays host-initiated.
	if c.allActiveAnswered(room, questionID) {
		c.hub.Publish(c.code, "all_answered", map[string]any{"question_id": questionID})
	}

	return result, nil
}

// Chat relays a message to the room. No state is touched.
func (c *RoomCoordinator) Chat(playerID uuid.UUID, message string) error {
	message = strings.TrimSpace(message)
	if message == "" || len(message) > maxChatLength {
		return nil
	}

	room, err := c.loadRoom()
	if err != nil {
		return err
	}
	membership, err := c.store.GetMembership(room.ID, playerID)
	if err != nil {
		return ErrPlayerNotInRoom
	}

	c.hub.Publish(c.code, "chat_message", map[string]any{
		"player_id":   playerID,
		"player_name": membership.Player.Username,
		"message":     message,
	})
	return nil
}

// Hint returns the hint for a question in the room's latest game. Whether
// the hint was used is self-reported on the subsequent submission.
func (c *RoomCoordinator) Hint(questionID uuid.UUID) (string, error) {
	room, err := c.loadRoom()
	if err != nil {
		return "", err
	}
	game, err := c.store.GetLatestGame(room.ID)
	if err != nil {
		return "", ErrGameNotActive
	}
	for i := range game.Questions {
		if game.Questions[i].ID == questionID {
			return game.Questions[i].Hint, nil
		}
	}
	return "", ErrStaleQuestion
}

// Results returns the ranked final results of the room's latest game.
func (c *RoomCoordinator) Results() ([]ResultView, error) {
	room, err := c.loadRoom()
	if err != nil {
		return nil, err
	}
	game, err := c.store.GetLatestGame(room.ID)
	if err != nil || game.Status != models.GameCompleted {
		return nil, ErrGameNotActive
	}
	return c.finalResults(game)
}

// Snapshot returns the current room and game state for resync. Read-only,
// runs outside the coordinator lock.
func (c *RoomCoordinator) Snapshot() (*RoomStateView, *GameStateView, error) {
	room, err := c.loadRoom()
	if err != nil {
		return nil, nil, err
	}
	view := c.buildRoomView(room)
	c.cacheRoomState(view)

	game, err := c.store.GetActiveGame(room.ID)
	if err != nil {
		return view, nil, nil
	}
	state := NewGameState(game)
	gameView := &GameStateView{
		GameStatus:           game.Status,
		CurrentQuestionIndex: game.CurrentQuestionIndex,
		TotalQuestions:       state.TotalQuestions(),
	}
	if q := state.CurrentQuestion(); q != nil {
		gameView.CurrentQuestion = sanitizeQuestion(q)
	}
	return view, gameView, nil
}

// PublishPresence announces a connection-level join/leave without touching
// membership. Used by the websocket layer.
func (c *RoomCoordinator) PublishPresence(eventType string, playerID uuid.UUID, playerName string) {
	room, err := c.loadRoom()
	if err != nil {
		return
	}
	c.hub.Publish(c.code, eventType, map[string]any{
		"player_id":   playerID,
		"player_name": playerName,
		"room_state":  c.buildRoomView(room),
	})
}

func (c *RoomCoordinator) generateQuestions(count int) ([]QuestionData, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var batch []QuestionData
	var err error
	if c.source != nil {
		batch, err = c.source.Generate(ctx, count)
		if err != nil {
			if !c.settings.QuestionFallback {
				c.logger.Error("question generation failed", zap.String("room", c.code), zap.Error(err))
				return nil, ErrQuestionGeneration
			}
			c.logger.Warn("question generation failed, using sample set",
				zap.String("room", c.code), zap.Error(err))
			batch, err = SampleSource{}.Generate(ctx, count)
		}
	} else {
		batch, err = SampleSource{}.Generate(ctx, count)
	}
	if err != nil || len(batch) == 0 {
		return nil, ErrQuestionGeneration
	}
	if len(batch) > count {
		batch = batch[:count]
	}
	if len(batch) < count && !c.settings.AllowPartialQuestions {
		return nil, ErrQuestionGeneration
	}

	multipleChoice := c.settings.QuestionMode == config.ModeMultipleChoice
	for i, q := range batch {
		if err := ValidateQuestion(q, multipleChoice); err != nil {
			c.logger.Error("generated question invalid",
				zap.String("room", c.code), zap.Int("index", i), zap.Error(err))
			return nil, ErrQuestionGeneration
		}
	}
	return batch, nil
}

func (c *RoomCoordinator) existingResult(game *models.Game, playerID uuid.UUID, playerName string, question *models.Question, existing *models.Answer) *AnswerResult {
	result := &AnswerResult{
		PlayerID:        playerID,
		PlayerName:      playerName,
		IsCorrect:       existing.IsCorrect,
		PointsEarned:    existing.PointsEarned,
		AlreadyAnswered: true,
	}
	if !existing.IsCorrect {
		result.CorrectAnswer = question.CorrectAnswer
	}
	if score, err := c.store.GetGameScore(game.ID, playerID); err == nil {
		result.TotalScore = score.TotalScore
	}
	return result
}

// finalResults runs the full leaderboard pass: rank every score, persist
// the ranks and build the results payload.
func (c *RoomCoordinator) finalResults(game *models.Game) ([]ResultView, error) {
	scores, err := c.store.ListGameScores(game.ID)
	if err != nil {
		return nil, fmt.Errorf("list game scores: %w", err)
	}

	entries := make([]RankEntry, len(scores))
	byPlayer := make(map[uuid.UUID]*models.GameScore, len(scores))
	for i := range scores {
		entries[i] = RankEntry{
			PlayerID:   scores[i].PlayerID,
			TotalScore: scores[i].TotalScore,
			TieBreak:   scores[i].CreatedAt,
		}
		byPlayer[scores[i].PlayerID] = &scores[i]
	}

	ranked := c.scoring.Rank(entries)
	results := make([]ResultView, len(ranked))
	for i, entry := range ranked {
		score := byPlayer[entry.PlayerID]
		score.Rank = entry.Rank
		if err := c.store.UpdateGameScore(score); err != nil {
			return nil, fmt.Errorf("persist rank: %w", err)
		}
		results[i] = ResultView{
			Rank:         entry.Rank,
			PlayerID:     score.PlayerID,
			PlayerName:   score.Player.Username,
			TotalScore:   score.TotalScore,
			CorrectCount: score.CorrectCount,
			WrongCount:   score.WrongCount,
			Accuracy:     c.scoring.Accuracy(score.CorrectCount, score.WrongCount),
		}
	}
	return results, nil
}

// teardownLocked deletes the room and everything under it, cancels any
// pending timer and evicts the registry entry. Called with the lock held.
func (c *RoomCoordinator) teardownLocked(room *models.Room) {
	c.cancelTimerLocked()
	if err := c.store.DeleteRoom(room.ID); err != nil {
		c.logger.Error("room teardown failed", zap.String("room", c.code), zap.Error(err))
	}
	if c.rdb != nil {
		c.rdb.Del(context.Background(), "room:"+c.code+":state")
	}
	c.hub.Publish(c.code, "room_deleted", map[string]any{"code": c.code})
	c.evict(c.code)
	c.logger.Info("room deleted", zap.String("room", c.code))
}

// At most one live timer per room. The timer fires a leaderboard broadcast
// on question expiry; it never advances the question.
func (c *RoomCoordinator) startTimerLocked(seconds int) {
	c.cancelTimerLocked()
	if seconds <= 0 {
		return
	}
	c.timer = time.AfterFunc(time.Duration(seconds)*time.Second, c.broadcastLeaderboard)
}

func (c *RoomCoordinator) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *RoomCoordinator) broadcastLeaderboard() {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, err := c.loadRoom()
	if err != nil {
		return
	}
	game, err := c.store.GetActiveGame(room.ID)
	if err != nil {
		return
	}
	scores, err := c.store.ListGameScores(game.ID)
	if err != nil {
		return
	}

	leaderboard := make([]LeaderboardEntry, len(scores))
	for i, s := range scores {
		leaderboard[i] = LeaderboardEntry{
			PlayerID:   s.PlayerID,
			PlayerName: s.Player.Username,
			TotalScore: s.TotalScore,
		}
	}
	c.hub.Publish(c.code, "leaderboard_update", map[string]any{"leaderboard": leaderboard})
}

// allActiveAnswered reports whether every currently joined member has an
// answer on record for the question. Answers from members who have since
// left never stand in for a missing one.
func (c *RoomCoordinator) allActiveAnswered(room *models.Room, questionID uuid.UUID) bool {
	active := 0
	for _, m := range room.Players {
		if m.State != models.MemberJoined {
			continue
		}
		active++
		if _, err := c.store.GetAnswer(questionID, m.PlayerID); err != nil {
			return false
		}
	}
	return active > 0
}

func (c *RoomCoordinator) loadRoom() (*models.Room, error) {
	room, err := c.store.GetRoomByCode(c.code)
	if errors.Is(err, store.ErrNotFound) {
		// The registry entry is useless without a backing row; drop it so
		// lookups for unknown codes don't pile up coordinators.
		c.evict(c.code)
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}
	return room, nil
}

func (c *RoomCoordinator) buildRoomView(room *models.Room) *RoomStateView {
	players := make([]PlayerView, 0, len(room.Players))
	for _, m := range room.Players {
		players = append(players, PlayerView{
			ID:       m.PlayerID,
			Username: m.Player.Username,
			Score:    m.Score,
			IsReady:  m.IsReady,
			IsHost:   m.PlayerID == room.HostID,
			State:    m.State,
		})
	}
	return &RoomStateView{
		ID:          room.ID,
		Code:        room.Code,
		Name:        room.Name,
		Status:      room.Status,
		MaxPlayers:  room.MaxPlayers,
		PlayerCount: room.ActiveMemberCount(),
		CanStart:    room.CanStart(c.settings.MinPlayers),
		HostID:      room.HostID,
		Players:     players,
	}
}

// cacheRoomState keeps a short-lived snapshot in Redis for cheap resyncs.
func (c *RoomCoordinator) cacheRoomState(view *RoomStateView) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := c.rdb.Set(context.Background(), "room:"+c.code+":state", data, 2*time.Hour).Err(); err != nil {
		c.logger.Warn("failed to cache room state", zap.String("room", c.code), zap.Error(err))
	}
}

func sanitizeQuestion(q *models.Question) *QuestionView {
	return &QuestionView{
		ID:        q.ID,
		Order:     q.Order,
		Items:     q.Items,
		Options:   q.Options,
		Hint:      q.Hint,
		TimeLimit: q.TimeLimit,
	}
}
