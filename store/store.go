package store

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/NiranjanBhat123/what-connects/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint,
// e.g. a second answer for the same (question, player) pair.
var ErrDuplicate = errors.New("duplicate record")

// Store is the durable source of truth for rooms, games and scores. All
// mutating game-start work goes through Transaction so a failed question
// generation leaves no partial rows behind.
type Store interface {
	Transaction(fn func(Store) error) error

	CreatePlayer(p *models.Player) error
	GetPlayer(id uuid.UUID) (*models.Player, error)
	TouchPlayer(id uuid.UUID) error
	DeleteInactivePlayers(cutoff time.Time) (int64, error)

	CreateRoom(r *models.Room) error
	GetRoomByCode(code string) (*models.Room, error)
	UpdateRoom(r *models.Room) error
	DeleteRoom(roomID uuid.UUID) error
	DeleteCompletedRoomsBefore(cutoff time.Time) (int64, error)

	CreateMembership(m *models.RoomMembership) error
	GetMembership(roomID, playerID uuid.UUID) (*models.RoomMembership, error)
	UpdateMembership(m *models.RoomMembership) error
	DeleteMembership(roomID, playerID uuid.UUID) error

	CreateGame(g *models.Game) error
	GetActiveGame(roomID uuid.UUID) (*models.Game, error)
	GetLatestGame(roomID uuid.UUID) (*models.Game, error)
	UpdateGame(g *models.Game) error

	CreateQuestions(qs []models.Question) error

	CreateGameScore(s *models.GameScore) error
	GetGameScore(gameID, playerID uuid.UUID) (*models.GameScore, error)
	ListGameScores(gameID uuid.UUID) ([]models.GameScore, error)
	UpdateGameScore(s *models.GameScore) error

	CreateAnswer(a *models.Answer) error
	GetAnswer(questionID, playerID uuid.UUID) (*models.Answer, error)
}
