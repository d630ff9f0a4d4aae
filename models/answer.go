package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Answer records a single submission. The composite unique index on
// (question_id, player_id) is the storage-level line of defense behind the
// room coordinator's lock: at most one answer per player per question.
type Answer struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	QuestionID   uuid.UUID `json:"question_id" gorm:"type:uuid;not null;uniqueIndex:idx_question_player"`
	PlayerID     uuid.UUID `json:"player_id" gorm:"type:uuid;not null;uniqueIndex:idx_question_player"`
	AnswerText   string    `json:"answer_text" gorm:"size:500;not null"`
	IsCorrect    bool      `json:"is_correct" gorm:"not null;index"`
	UsedHint     bool      `json:"used_hint" gorm:"not null"`
	TimeTaken    int       `json:"time_taken" gorm:"not null"` // seconds
	PointsEarned int       `json:"points_earned" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relationships
	Question Question `json:"-" gorm:"foreignKey:QuestionID"`
	Player   Player   `json:"player,omitempty" gorm:"foreignKey:PlayerID"`
}

func (a *Answer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
