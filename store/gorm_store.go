package store

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NiranjanBhat123/what-connects/models"
)

// GormStore implements Store on a GORM connection.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "duplicate key"),
		strings.Contains(err.Error(), "UNIQUE constraint"):
		return ErrDuplicate
	default:
		return err
	}
}

// Players

func (s *GormStore) CreatePlayer(p *models.Player) error {
	return translate(s.db.Create(p).Error)
}

func (s *GormStore) GetPlayer(id uuid.UUID) (*models.Player, error) {
	var player models.Player
	if err := s.db.First(&player, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &player, nil
}

func (s *GormStore) TouchPlayer(id uuid.UUID) error {
	return translate(s.db.Model(&models.Player{}).
		Where("id = ?", id).
		Update("last_active", time.Now().UTC()).Error)
}

// DeleteInactivePlayers removes ephemeral players idle past the cutoff that
// are not members of any room.
func (s *GormStore) DeleteInactivePlayers(cutoff time.Time) (int64, error) {
	result := s.db.
		Where("last_active < ?", cutoff).
		Where("id NOT IN (?)", s.db.Model(&models.RoomMembership{}).Select("player_id")).
		Delete(&models.Player{})
	return result.RowsAffected, translate(result.Error)
}

// Rooms

func (s *GormStore) CreateRoom(r *models.Room) error {
	return translate(s.db.Create(r).Error)
}

func (s *GormStore) GetRoomByCode(code string) (*models.Room, error) {
	var room models.Room
	err := s.db.
		Preload("Host").
		Preload("Players", func(db *gorm.DB) *gorm.DB { return db.Order("room_memberships.created_at ASC") }).
		Preload("Players.Player").
		First(&room, "code = ?", strings.ToUpper(code)).Error
	if err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

func (s *GormStore) UpdateRoom(r *models.Room) error {
	return translate(s.db.Model(r).Select("name", "host_id", "status", "max_players").Updates(r).Error)
}

// DeleteRoom tears down a room and every game, question, answer, score and
// membership hanging off it.
func (s *GormStore) DeleteRoom(roomID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var gameIDs []uuid.UUID
		if err := tx.Model(&models.Game{}).Where("room_id = ?", roomID).Pluck("id", &gameIDs).Error; err != nil {
			return translate(err)
		}
		if len(gameIDs) > 0 {
			var questionIDs []uuid.UUID
			if err := tx.Model(&models.Question{}).Where("game_id IN ?", gameIDs).Pluck("id", &questionIDs).Error; err != nil {
				return translate(err)
			}
			if len(questionIDs) > 0 {
				if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.Answer{}).Error; err != nil {
					return translate(err)
				}
			}
			if err := tx.Where("game_id IN ?", gameIDs).Delete(&models.Question{}).Error; err != nil {
				return translate(err)
			}
			if err := tx.Where("game_id IN ?", gameIDs).Delete(&models.GameScore{}).Error; err != nil {
				return translate(err)
			}
			if err := tx.Where("room_id = ?", roomID).Delete(&models.Game{}).Error; err != nil {
				return translate(err)
			}
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.RoomMembership{}).Error; err != nil {
			return translate(err)
		}
		return translate(tx.Delete(&models.Room{}, "id = ?", roomID).Error)
	})
}

func (s *GormStore) DeleteCompletedRoomsBefore(cutoff time.Time) (int64, error) {
	var roomIDs []uuid.UUID
	err := s.db.Model(&models.Room{}).
		Where("status = ? AND updated_at < ?", models.RoomCompleted, cutoff).
		Pluck("id", &roomIDs).Error
	if err != nil {
		return 0, translate(err)
	}
	for _, id := range roomIDs {
		if err := s.DeleteRoom(id); err != nil {
			return 0, err
		}
	}
	return int64(len(roomIDs)), nil
}

// Memberships

func (s *GormStore) CreateMembership(m *models.RoomMembership) error {
	return translate(s.db.Create(m).Error)
}

func (s *GormStore) GetMembership(roomID, playerID uuid.UUID) (*models.RoomMembership, error) {
	var membership models.RoomMembership
	err := s.db.Preload("Player").
		First(&membership, "room_id = ? AND player_id = ?", roomID, playerID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &membership, nil
}

func (s *GormStore) UpdateMembership(m *models.RoomMembership) error {
	return translate(s.db.Model(m).Select("is_ready", "state", "score").Updates(map[string]any{
		"is_ready": m.IsReady,
		"state":    m.State,
		"score":    m.Score,
	}).Error)
}

func (s *GormStore) DeleteMembership(roomID, playerID uuid.UUID) error {
	return translate(s.db.
		Where("room_id = ? AND player_id = ?", roomID, playerID).
		Delete(&models.RoomMembership{}).Error)
}

// Games

func (s *GormStore) CreateGame(g *models.Game) error {
	return translate(s.db.Create(g).Error)
}

func (s *GormStore) GetActiveGame(roomID uuid.UUID) (*models.Game, error) {
	var game models.Game
	err := s.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("questions.\"order\" ASC") }).
		Where("room_id = ? AND status = ?", roomID, models.GameActive).
		Order("created_at DESC").
		First(&game).Error
	if err != nil {
		return nil, translate(err)
	}
	return &game, nil
}

func (s *GormStore) GetLatestGame(roomID uuid.UUID) (*models.Game, error) {
	var game models.Game
	err := s.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("questions.\"order\" ASC") }).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		First(&game).Error
	if err != nil {
		return nil, translate(err)
	}
	return &game, nil
}

func (s *GormStore) UpdateGame(g *models.Game) error {
	return translate(s.db.Model(g).Select("status", "current_question_index", "completed_at").
		Updates(map[string]any{
			"status":                 g.Status,
			"current_question_index": g.CurrentQuestionIndex,
			"completed_at":           g.CompletedAt,
		}).Error)
}

// Questions

func (s *GormStore) CreateQuestions(qs []models.Question) error {
	if len(qs) == 0 {
		return nil
	}
	return translate(s.db.Create(&qs).Error)
}

// Scores

func (s *GormStore) CreateGameScore(score *models.GameScore) error {
	return translate(s.db.Create(score).Error)
}

func (s *GormStore) GetGameScore(gameID, playerID uuid.UUID) (*models.GameScore, error) {
	var score models.GameScore
	err := s.db.First(&score, "game_id = ? AND player_id = ?", gameID, playerID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &score, nil
}

func (s *GormStore) ListGameScores(gameID uuid.UUID) ([]models.GameScore, error) {
	var scores []models.GameScore
	err := s.db.Preload("Player").
		Where("game_id = ?", gameID).
		Order("total_score DESC, created_at ASC").
		Find(&scores).Error
	if err != nil {
		return nil, translate(err)
	}
	return scores, nil
}

func (s *GormStore) UpdateGameScore(score *models.GameScore) error {
	return translate(s.db.Model(score).Select("total_score", "correct_count", "wrong_count", "rank").
		Updates(map[string]any{
			"total_score":   score.TotalScore,
			"correct_count": score.CorrectCount,
			"wrong_count":   score.WrongCount,
			"rank":          score.Rank,
		}).Error)
}

// Answers

func (s *GormStore) CreateAnswer(a *models.Answer) error {
	return translate(s.db.Create(a).Error)
}

func (s *GormStore) GetAnswer(questionID, playerID uuid.UUID) (*models.Answer, error) {
	var answer models.Answer
	err := s.db.First(&answer, "question_id = ? AND player_id = ?", questionID, playerID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &answer, nil
}
