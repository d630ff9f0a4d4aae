package services

import "fmt"

// GameError is an expected, recoverable failure reported back to the
// requesting client only — never broadcast. Code values are stable and safe
// to expose on the wire.
type GameError struct {
	Code    string
	Message string
}

func (e *GameError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets errors.Is match any GameError with the same code.
func (e *GameError) Is(target error) bool {
	t, ok := target.(*GameError)
	return ok && t.Code == e.Code
}

var (
	ErrRoomNotFound       = &GameError{Code: "room_not_found", Message: "Room not found."}
	ErrPlayerNotFound     = &GameError{Code: "player_not_found", Message: "Player not found."}
	ErrRoomFull           = &GameError{Code: "room_full", Message: "Room is full. Maximum players reached."}
	ErrGameAlreadyStarted = &GameError{Code: "game_already_started", Message: "Game has already started."}
	ErrGameNotActive      = &GameError{Code: "game_not_active", Message: "No active game in this room."}
	ErrNotHost            = &GameError{Code: "not_host", Message: "Only the host can perform this action."}
	ErrInsufficientPlayers = &GameError{
		Code:    "insufficient_players",
		Message: "Not enough players to start the game.",
	}
	ErrQuestionGeneration = &GameError{
		Code:    "question_generation_failed",
		Message: "Failed to generate questions.",
	}
	ErrPlayerNotInRoom   = &GameError{Code: "player_not_in_room", Message: "Player is not in this room."}
	ErrStaleQuestion     = &GameError{Code: "stale_question", Message: "Question is no longer current."}
	ErrAlreadyAnswered   = &GameError{Code: "already_answered", Message: "Answer already submitted for this question."}
	ErrTimeLimitExceeded = &GameError{Code: "time_limit_exceeded", Message: "Time limit for this question has passed."}
	ErrEmptyAnswer       = &GameError{Code: "empty_answer", Message: "Answer cannot be empty."}
)
