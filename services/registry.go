package services

import (
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/NiranjanBhat123/what-connects/config"
	"github.com/NiranjanBhat123/what-connects/store"
)

// Registry maps room codes to their coordinators, creating them lazily on
// first use. A coordinator is evicted when its room is torn down, and a
// coordinator that finds no backing row evicts itself, so lookups for
// unknown codes leave nothing behind. A later lookup for a live code just
// builds a fresh one.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*RoomCoordinator

	store    store.Store
	hub      *Hub
	rdb      *redis.Client
	scoring  *ScoringEngine
	source   QuestionSource
	settings config.GameSettings
	logger   *zap.Logger
}

func NewRegistry(
	st store.Store,
	hub *Hub,
	rdb *redis.Client,
	scoring *ScoringEngine,
	source QuestionSource,
	settings config.GameSettings,
	logger *zap.Logger,
) *Registry {
	return &Registry{
		rooms:    make(map[string]*RoomCoordinator),
		store:    st,
		hub:      hub,
		rdb:      rdb,
		scoring:  scoring,
		source:   source,
		settings: settings,
		logger:   logger,
	}
}

// Get returns the coordinator for a room code, creating it if needed.
func (r *Registry) Get(code string) *RoomCoordinator {
	code = strings.ToUpper(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	if coord, ok := r.rooms[code]; ok {
		return coord
	}
	coord := NewRoomCoordinator(code, r.store, r.hub, r.rdb, r.scoring, r.source, r.settings, r.logger, r.Evict)
	r.rooms[code] = coord
	return coord
}

// Evict drops a coordinator from the registry. Safe to call for codes that
// were never registered.
func (r *Registry) Evict(code string) {
	code = strings.ToUpper(code)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, code)
}

// Size returns the number of live coordinators.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
