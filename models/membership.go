package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Membership states. Disconnected marks a soft-leave during an active game
// so the player's standing survives until reconnect or game end.
const (
	MemberJoined       = "joined"
	MemberDisconnected = "disconnected"
)

// RoomMembership is the join table between rooms and players. Unique per
// (room, player). Score mirrors the player's GameScore for the current game.
type RoomMembership struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID `json:"room_id" gorm:"type:uuid;not null;uniqueIndex:idx_room_player"`
	PlayerID  uuid.UUID `json:"player_id" gorm:"type:uuid;not null;uniqueIndex:idx_room_player"`
	IsReady   bool      `json:"is_ready" gorm:"not null;default:false"`
	State     string    `json:"state" gorm:"not null;default:'joined';index"`
	Score     int       `json:"score" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Room   Room   `json:"-" gorm:"foreignKey:RoomID"`
	Player Player `json:"player,omitempty" gorm:"foreignKey:PlayerID"`
}

func (m *RoomMembership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.State == "" {
		m.State = MemberJoined
	}
	return nil
}
