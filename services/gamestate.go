package services

import (
	"strings"

	"github.com/google/uuid"

	"github.com/NiranjanBhat123/what-connects/models"
)

// GameState is the state machine for one game instance: Active(index) moves
// forward one question at a time until Completed. It is built fresh from the
// persisted game inside a room coordinator operation, so the coordinator's
// lock serializes every transition.
type GameState struct {
	game      *models.Game
	questions []models.Question
}

func NewGameState(game *models.Game) *GameState {
	return &GameState{game: game, questions: game.Questions}
}

func (s *GameState) TotalQuestions() int {
	return len(s.questions)
}

func (s *GameState) IsCompleted() bool {
	return s.game.Status == models.GameCompleted
}

// CurrentQuestion returns the question at the current index, or nil past the
// end.
func (s *GameState) CurrentQuestion() *models.Question {
	idx := s.game.CurrentQuestionIndex
	if idx < 0 || idx >= len(s.questions) {
		return nil
	}
	return &s.questions[idx]
}

// Advance moves to the next question. Past the last question the game
// transitions to Completed and (nil, true) is returned. Advancing a game
// that is already completed is a no-op returning the terminal state, so
// duplicate host requests are harmless.
func (s *GameState) Advance() (*models.Question, bool) {
	if s.IsCompleted() {
		return nil, true
	}

	s.game.CurrentQuestionIndex++
	if s.game.CurrentQuestionIndex >= len(s.questions) {
		s.game.Status = models.GameCompleted
		return nil, true
	}
	return &s.questions[s.game.CurrentQuestionIndex], false
}

// CheckAnswer validates that questionID is the current question and compares
// the submitted text against the stored answer: trimmed, case-insensitive,
// exact match. Multiple-choice submissions are compared against
// correct_answer, never against the option list.
func (s *GameState) CheckAnswer(questionID uuid.UUID, text string) (bool, error) {
	current := s.CurrentQuestion()
	if current == nil || s.IsCompleted() {
		return false, ErrGameNotActive
	}
	if current.ID != questionID {
		return false, ErrStaleQuestion
	}
	return normalizeAnswer(text) == normalizeAnswer(current.CorrectAnswer), nil
}

func normalizeAnswer(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
