package models

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Room statuses.
const (
	RoomWaiting   = "waiting"
	RoomActive    = "active"
	RoomCompleted = "completed"
)

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Room is a joinable lobby identified by a short code, hosting at most one
// non-completed game at a time.
type Room struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Code       string    `json:"code" gorm:"uniqueIndex;size:6;not null"`
	Name       string    `json:"name" gorm:"not null"`
	HostID     uuid.UUID `json:"host_id" gorm:"type:uuid;not null"`
	Status     string    `json:"status" gorm:"not null;default:'waiting';index"`
	MaxPlayers int       `json:"max_players" gorm:"not null;default:6"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relationships
	Host    Player           `json:"host,omitempty" gorm:"foreignKey:HostID"`
	Players []RoomMembership `json:"players,omitempty" gorm:"foreignKey:RoomID"`
	Games   []Game           `json:"games,omitempty" gorm:"foreignKey:RoomID"`
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Code == "" {
		r.Code = GenerateRoomCode()
	}
	return nil
}

// GenerateRoomCode returns a random 6-character room code. Uniqueness is
// enforced by the database index; callers retry on collision.
func GenerateRoomCode() string {
	code := make([]byte, 6)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeAlphabet))))
		code[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(code)
}

// ActiveMemberCount counts members currently joined (not soft-left).
func (r *Room) ActiveMemberCount() int {
	count := 0
	for _, m := range r.Players {
		if m.State == MemberJoined {
			count++
		}
	}
	return count
}

// IsFull reports whether the room has reached max_players.
func (r *Room) IsFull() bool {
	return r.ActiveMemberCount() >= r.MaxPlayers
}

// CanStart reports whether a game can be started with the given minimum.
func (r *Room) CanStart(minPlayers int) bool {
	return r.Status == RoomWaiting && r.ActiveMemberCount() >= minPlayers
}
