package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateRoomCode()
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.Contains(t, roomCodeAlphabet, string(r))
		}
		assert.Equal(t, strings.ToUpper(code), code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 90, "codes should be close to unique")
}

func memberships(states ...string) []RoomMembership {
	out := make([]RoomMembership, len(states))
	for i, s := range states {
		out[i] = RoomMembership{State: s}
	}
	return out
}

func TestActiveMemberCount(t *testing.T) {
	room := Room{Players: memberships(MemberJoined, MemberDisconnected, MemberJoined)}
	assert.Equal(t, 2, room.ActiveMemberCount())
}

func TestIsFull(t *testing.T) {
	room := Room{MaxPlayers: 2, Players: memberships(MemberJoined, MemberDisconnected)}
	assert.False(t, room.IsFull(), "disconnected members do not hold seats")

	room.Players = memberships(MemberJoined, MemberJoined)
	assert.True(t, room.IsFull())
}

func TestCanStart(t *testing.T) {
	room := Room{Status: RoomWaiting, Players: memberships(MemberJoined, MemberJoined)}
	assert.True(t, room.CanStart(2))
	assert.False(t, room.CanStart(3))

	room.Status = RoomActive
	assert.False(t, room.CanStart(2))
}
