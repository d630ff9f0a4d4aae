package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Game statuses.
const (
	GameActive    = "active"
	GameCompleted = "completed"
)

// Game is one playthrough of an ordered question sequence within a room.
// At most one non-completed game exists per room, enforced by the room
// coordinator.
type Game struct {
	ID                   uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	RoomID               uuid.UUID  `json:"room_id" gorm:"type:uuid;not null;index"`
	Status               string     `json:"status" gorm:"not null;default:'active';index"`
	CurrentQuestionIndex int        `json:"current_question_index" gorm:"not null;default:0"`
	StartedAt            time.Time  `json:"started_at"`
	CompletedAt          *time.Time `json:"completed_at"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	// Relationships
	Questions []Question  `json:"questions,omitempty" gorm:"foreignKey:GameID"`
	Scores    []GameScore `json:"scores,omitempty" gorm:"foreignKey:GameID"`
}

func (g *Game) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.StartedAt.IsZero() {
		g.StartedAt = time.Now().UTC()
	}
	return nil
}
