package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GameScore is one player's cumulative standing within one game. Created
// zeroed for every active member when the game starts, updated as answers
// arrive, ranked in a full leaderboard pass on completion.
type GameScore struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	GameID       uuid.UUID `json:"game_id" gorm:"type:uuid;not null;uniqueIndex:idx_game_player"`
	PlayerID     uuid.UUID `json:"player_id" gorm:"type:uuid;not null;uniqueIndex:idx_game_player"`
	TotalScore   int       `json:"total_score" gorm:"not null;default:0;index"`
	CorrectCount int       `json:"correct_count" gorm:"not null;default:0"`
	WrongCount   int       `json:"wrong_count" gorm:"not null;default:0"`
	Rank         int       `json:"rank"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relationships
	Player Player `json:"player,omitempty" gorm:"foreignKey:PlayerID"`
}

func (s *GameScore) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
