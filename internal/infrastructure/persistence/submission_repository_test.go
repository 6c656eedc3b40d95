package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/legalintake/backend/internal/domain/questionnaire"
)

func testSubmission(t *testing.T) *questionnaire.Submission {
	t.Helper()
	state := questionnaire.NewSessionState(uuid.New(), uuid.New(), "traffic_accident", 16)
	state.Answers["q1"] = questionnaire.Answer{
		QuestionID: "q1",
		Value:      questionnaire.NewScalarValue("是"),
		AnsweredAt: time.Now().UTC(),
		Source:     questionnaire.AnswerSourceUser,
	}
	return questionnaire.NewSubmission(state, "交通事故咨询")
}

func TestGormSubmissionRepository_CreateOnce(t *testing.T) {
	t.Run("inserts a new submission", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormSubmissionRepository(db)

		mock.ExpectExec(`INSERT INTO "questionnaire_submissions"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.CreateOnce(context.Background(), testSubmission(t))

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps unique violation to already finalized", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormSubmissionRepository(db)

		mock.ExpectExec(`INSERT INTO "questionnaire_submissions"`).
			WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "idx_questionnaire_submissions_session_id" (SQLSTATE 23505)`))

		err := repo.CreateOnce(context.Background(), testSubmission(t))

		assert.ErrorIs(t, err, questionnaire.ErrSessionAlreadyFinalized)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("passes through other insert errors", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormSubmissionRepository(db)

		mock.ExpectExec(`INSERT INTO "questionnaire_submissions"`).
			WillReturnError(errors.New("connection reset"))

		err := repo.CreateOnce(context.Background(), testSubmission(t))

		assert.Error(t, err)
		assert.NotErrorIs(t, err, questionnaire.ErrSessionAlreadyFinalized)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSubmissionRepository_FindBySessionID(t *testing.T) {
	t.Run("finds the session's submission", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormSubmissionRepository(db)

		submissionID := uuid.New()
		sessionID := uuid.New()
		userID := uuid.New()

		rows := sqlmock.NewRows([]string{
			"submission_id", "session_id", "user_id", "case_uuid", "questionnaire_type",
			"title", "responses", "summaries", "should_create_case", "completed_at",
		}).AddRow(
			submissionID, sessionID, userID, nil, "traffic_accident",
			"交通事故咨询", `{"q1":{"question_id":"q1"}}`, `{}`, true, time.Now().UTC(),
		)

		mock.ExpectQuery(`SELECT \* FROM "questionnaire_submissions" WHERE session_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(sessionID, 1).
			WillReturnRows(rows)

		submission, err := repo.FindBySessionID(context.Background(), sessionID)

		assert.NoError(t, err)
		require.NotNil(t, submission)
		assert.Equal(t, submissionID, submission.SubmissionID)
		assert.Equal(t, sessionID, submission.SessionID)
		assert.True(t, submission.ShouldCreateCase)
		assert.Contains(t, submission.Responses, "q1")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns session not found when absent", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormSubmissionRepository(db)

		sessionID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "questionnaire_submissions" WHERE session_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(sessionID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		submission, err := repo.FindBySessionID(context.Background(), sessionID)

		assert.Nil(t, submission)
		assert.ErrorIs(t, err, questionnaire.ErrSessionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
