package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/legalintake/backend/internal/domain/questionnaire"
)

func marshaledState(t *testing.T, state *questionnaire.SessionState) string {
	t.Helper()
	data, err := state.Marshal()
	require.NoError(t, err)
	return string(data)
}

func TestGormCheckpointStore_Save(t *testing.T) {
	t.Run("upserts the snapshot", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		store := NewGormCheckpointStore(db)

		state := questionnaire.NewSessionState(uuid.New(), uuid.New(), "traffic_accident", 16)

		mock.ExpectExec(`INSERT INTO "questionnaire_checkpoints" .* ON CONFLICT \("session_id"\) DO UPDATE SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.Save(context.Background(), state)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCheckpointStore_Load(t *testing.T) {
	t.Run("restores the saved state", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		store := NewGormCheckpointStore(db)

		sessionID := uuid.New()
		userID := uuid.New()
		state := questionnaire.NewSessionState(sessionID, userID, "traffic_accident", 16)
		state.Status = questionnaire.StatusInProgress
		state.CurrentQuestionIndex = 3

		rows := sqlmock.NewRows([]string{"session_id", "state", "updated_at"}).
			AddRow(sessionID, marshaledState(t, state), time.Now().UTC())

		mock.ExpectQuery(`SELECT \* FROM "questionnaire_checkpoints" WHERE session_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(sessionID, 1).
			WillReturnRows(rows)

		restored, err := store.Load(context.Background(), sessionID)

		assert.NoError(t, err)
		require.NotNil(t, restored)
		assert.Equal(t, sessionID, restored.SessionID)
		assert.Equal(t, userID, restored.UserID)
		assert.Equal(t, questionnaire.StatusInProgress, restored.Status)
		assert.Equal(t, 3, restored.CurrentQuestionIndex)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns session not found for missing checkpoint", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		store := NewGormCheckpointStore(db)

		sessionID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "questionnaire_checkpoints" WHERE session_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(sessionID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		state, err := store.Load(context.Background(), sessionID)

		assert.Nil(t, state)
		assert.ErrorIs(t, err, questionnaire.ErrSessionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCheckpointStore_SaveWithSession(t *testing.T) {
	t.Run("writes checkpoint and session mirror in one transaction", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		store := NewGormCheckpointStore(db)

		sessionID := uuid.New()
		userID := uuid.New()
		state := questionnaire.NewSessionState(sessionID, userID, "traffic_accident", 16)
		session := questionnaire.NewSession(sessionID, userID, "traffic_accident", 16, 24*time.Hour)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "questionnaire_checkpoints" .* ON CONFLICT \("session_id"\) DO UPDATE SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "questionnaire_sessions" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.SaveWithSession(context.Background(), state, session)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the session mirror is missing", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		store := NewGormCheckpointStore(db)

		sessionID := uuid.New()
		userID := uuid.New()
		state := questionnaire.NewSessionState(sessionID, userID, "traffic_accident", 16)
		session := questionnaire.NewSession(sessionID, userID, "traffic_accident", 16, 24*time.Hour)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "questionnaire_checkpoints" .* ON CONFLICT \("session_id"\) DO UPDATE SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "questionnaire_sessions" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.SaveWithSession(context.Background(), state, session)

		assert.ErrorIs(t, err, questionnaire.ErrSessionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCheckpointStore_Delete(t *testing.T) {
	t.Run("removes the checkpoint row", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		store := NewGormCheckpointStore(db)

		sessionID := uuid.New()

		mock.ExpectExec(`DELETE FROM "questionnaire_checkpoints" WHERE session_id = \$1`).
			WithArgs(sessionID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.Delete(context.Background(), sessionID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
