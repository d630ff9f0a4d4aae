package store

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return NewGormStore(gormDB), mock
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), ErrDuplicate)
	assert.ErrorIs(t,
		translate(errors.New(`duplicate key value violates unique constraint "idx_question_player"`)),
		ErrDuplicate)
	assert.ErrorIs(t,
		translate(errors.New("UNIQUE constraint failed: answers.question_id")),
		ErrDuplicate)

	opaque := errors.New("connection refused")
	assert.Equal(t, opaque, translate(opaque))
}

func TestGetPlayer(t *testing.T) {
	st, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "players"`).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "last_active"}).
			AddRow(id, "alice", time.Now()))

	player, err := st.GetPlayer(id)
	require.NoError(t, err)
	assert.Equal(t, "alice", player.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPlayerNotFound(t *testing.T) {
	st, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "players"`).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))

	_, err := st.GetPlayer(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTouchPlayer(t *testing.T) {
	st, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "players" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, st.TouchPlayer(id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAnswerNotFound(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM "answers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := st.GetAnswer(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListGameScoresOrdering(t *testing.T) {
	st, mock := newMockStore(t)
	gameID := uuid.New()
	p1, p2 := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "game_scores" WHERE game_id = .* ORDER BY total_score DESC, created_at ASC`).
		WithArgs(gameID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "game_id", "player_id", "total_score"}).
			AddRow(uuid.New(), gameID, p1, 30).
			AddRow(uuid.New(), gameID, p2, 10))

	mock.ExpectQuery(`SELECT .* FROM "players"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).
			AddRow(p1, "alice").
			AddRow(p2, "bob"))

	scores, err := st.ListGameScores(gameID)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, 30, scores[0].TotalScore)
	assert.Equal(t, "alice", scores[0].Player.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}
