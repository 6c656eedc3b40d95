package persistence

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/legalintake/backend/internal/domain/questionnaire"
	"github.com/legalintake/backend/internal/infrastructure/migration"
)

// startPostgres spins up a throwaway Postgres container, runs all
// migrations against it and returns a connected gorm handle.
func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("intake_test"),
		tcpostgres.WithUsername("intake"),
		tcpostgres.WithPassword("intake"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(connStr), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	migrator, err := migration.New(sqlDB, findMigrationsPath(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.Up())

	return db
}

func findMigrationsPath(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok, "failed to resolve caller path")

	dir := filepath.Dir(thisFile)
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	t.Fatal("migrations directory not found")
	return ""
}

func TestPostgresRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := startPostgres(t)
	ctx := context.Background()

	sessions := NewGormSessionRepository(db)
	checkpoints := NewGormCheckpointStore(db)
	submissions := NewGormSubmissionRepository(db)

	sessionID := uuid.New()
	userID := uuid.New()

	session := questionnaire.NewSession(sessionID, userID, "traffic_accident", 16, 24*time.Hour)
	require.NoError(t, sessions.Create(ctx, session))

	state := questionnaire.NewSessionState(sessionID, userID, "traffic_accident", 16)
	state.Answers["q1"] = questionnaire.Answer{
		QuestionID: "q1",
		Value:      questionnaire.NewScalarValue("是"),
		AnsweredAt: time.Now().UTC(),
		Source:     questionnaire.AnswerSourceUser,
	}
	state.Answers["q3"] = questionnaire.Answer{
		QuestionID:       "q3",
		Value:            questionnaire.NewFormValue(map[string]string{"name": "张三", "id_number": "110101199001011234"}),
		AnsweredAt:       time.Now().UTC(),
		Source:           questionnaire.AnswerSourceOCR,
		SourceQuestionID: "q4",
	}
	state.Summaries[questionnaire.PartKey(1)] = questionnaire.PartSummary{
		PartNumber:  1,
		Content:     "张三于事故中受伤，基本信息已确认。",
		Approved:    true,
		GeneratedAt: time.Now().UTC(),
	}
	state.CurrentPart = 2
	state.CurrentQuestionIndex = 6
	state.AnsweredCount = 6
	session.SyncFromState(state)

	t.Run("checkpoint and session survive a reload", func(t *testing.T) {
		require.NoError(t, checkpoints.SaveWithSession(ctx, state, session))

		loaded, err := checkpoints.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, sessionID, loaded.SessionID)
		assert.Equal(t, userID, loaded.UserID)
		assert.Equal(t, 2, loaded.CurrentPart)
		assert.Equal(t, 6, loaded.CurrentQuestionIndex)
		assert.Equal(t, questionnaire.StatusInProgress, loaded.Status)
		assert.Len(t, loaded.Answers, 2)
		assert.Equal(t, "q4", loaded.Answers["q3"].SourceQuestionID)

		scalar, ok := loaded.Answers["q1"].Value.AsScalar()
		require.True(t, ok)
		assert.Equal(t, "是", scalar)

		form, ok := loaded.Answers["q3"].Value.AsForm()
		require.True(t, ok)
		assert.Equal(t, "张三", form["name"])

		summary, ok := loaded.Summaries[questionnaire.PartKey(1)]
		require.True(t, ok)
		assert.True(t, summary.Approved)
		assert.Equal(t, "张三于事故中受伤，基本信息已确认。", summary.Content)

		found, err := sessions.FindByIDForUser(ctx, sessionID, userID)
		require.NoError(t, err)
		assert.Equal(t, 6, found.CurrentStep)
		assert.Equal(t, questionnaire.StatusInProgress, found.Status)
	})

	t.Run("foreign user cannot see the session", func(t *testing.T) {
		_, err := sessions.FindByIDForUser(ctx, sessionID, uuid.New())
		assert.ErrorIs(t, err, questionnaire.ErrSessionNotFound)
	})

	t.Run("later checkpoint overwrites the earlier one", func(t *testing.T) {
		state.CurrentQuestionIndex = 9
		state.AnsweredCount = 9
		session.SyncFromState(state)
		require.NoError(t, checkpoints.SaveWithSession(ctx, state, session))

		loaded, err := checkpoints.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, 9, loaded.CurrentQuestionIndex)

		var count int64
		require.NoError(t, db.Table("questionnaire_checkpoints").
			Where("session_id = ?", sessionID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("saving against an unknown session fails", func(t *testing.T) {
		orphanID := uuid.New()
		orphanState := questionnaire.NewSessionState(orphanID, userID, "traffic_accident", 16)
		orphan := questionnaire.NewSession(orphanID, userID, "traffic_accident", 16, time.Hour)
		err := checkpoints.SaveWithSession(ctx, orphanState, orphan)
		assert.ErrorIs(t, err, questionnaire.ErrSessionNotFound)
	})

	t.Run("incomplete sessions are listed for their owner", func(t *testing.T) {
		found, err := sessions.FindIncompleteByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, sessionID, found[0].SessionID)

		found, err = sessions.FindIncompleteByUser(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("a session submits exactly once", func(t *testing.T) {
		submission := questionnaire.NewSubmission(state, "交通事故咨询")
		require.NoError(t, submissions.CreateOnce(ctx, submission))

		err := submissions.CreateOnce(ctx, questionnaire.NewSubmission(state, "交通事故咨询"))
		assert.ErrorIs(t, err, questionnaire.ErrSessionAlreadyFinalized)

		found, err := submissions.FindBySessionID(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, submission.SubmissionID, found.SubmissionID)
		assert.Len(t, found.Responses, 2)
	})

	t.Run("deleting the session removes its checkpoint independently", func(t *testing.T) {
		require.NoError(t, checkpoints.Delete(ctx, sessionID))
		_, err := checkpoints.Load(ctx, sessionID)
		assert.ErrorIs(t, err, questionnaire.ErrSessionNotFound)

		require.NoError(t, sessions.Delete(ctx, sessionID))
		_, err = sessions.FindByID(ctx, sessionID)
		assert.ErrorIs(t, err, questionnaire.ErrSessionNotFound)
	})
}
