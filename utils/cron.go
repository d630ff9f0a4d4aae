package utils

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/NiranjanBhat123/what-connects/store"
)

// Sweeper periodically removes completed rooms past their retention window
// and ephemeral players that have gone idle without joining a room.
type Sweeper struct {
	cron         *cron.Cron
	store        store.Store
	logger       *zap.Logger
	completedTTL time.Duration
	idleTTL      time.Duration
}

func NewSweeper(st store.Store, logger *zap.Logger, completedTTL, idleTTL time.Duration) *Sweeper {
	return &Sweeper{
		cron:         cron.New(),
		store:        st,
		logger:       logger,
		completedTTL: completedTTL,
		idleTTL:      idleTTL,
	}
}

func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("@every 10m", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) sweep() {
	now := time.Now().UTC()

	rooms, err := s.store.DeleteCompletedRoomsBefore(now.Add(-s.completedTTL))
	if err != nil {
		s.logger.Error("room sweep failed", zap.Error(err))
	}
	players, err := s.store.DeleteInactivePlayers(now.Add(-s.idleTTL))
	if err != nil {
		s.logger.Error("player sweep failed", zap.Error(err))
	}

	if rooms > 0 || players > 0 {
		s.logger.Info("sweep complete",
			zap.Int64("rooms_deleted", rooms),
			zap.Int64("players_deleted", players))
	}
}
