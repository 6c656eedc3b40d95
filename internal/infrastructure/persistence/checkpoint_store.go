package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/legalintake/backend/internal/domain/questionnaire"
	"github.com/legalintake/backend/internal/infrastructure/persistence/models"
)

// GormCheckpointStore implements questionnaire.CheckpointStore using GORM.
// Each session has exactly one checkpoint row that every transition
// overwrites.
type GormCheckpointStore struct {
	db *gorm.DB
}

// NewGormCheckpointStore creates a new GormCheckpointStore
func NewGormCheckpointStore(db *gorm.DB) *GormCheckpointStore {
	return &GormCheckpointStore{db: db}
}

// Save upserts the state snapshot for a session
func (s *GormCheckpointStore) Save(ctx context.Context, state *questionnaire.SessionState) error {
	return s.save(s.db.WithContext(ctx), state)
}

// SaveWithSession persists the checkpoint and the mirrored session record in
// one transaction, so a crash mid-write never leaves them disagreeing.
func (s *GormCheckpointStore) SaveWithSession(ctx context.Context, state *questionnaire.SessionState, session *questionnaire.Session) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.save(tx, state); err != nil {
			return err
		}
		model := models.SessionModelFromDomain(session)
		result := tx.Model(&models.SessionModel{}).
			Where("session_id = ?", session.SessionID).
			Updates(map[string]interface{}{
				"case_uuid":        model.CaseUUID,
				"status":           model.Status,
				"current_step":     model.CurrentStep,
				"total_steps":      model.TotalSteps,
				"is_finalized":     model.IsFinalized,
				"last_activity_at": model.LastActivityAt,
				"completed_at":     model.CompletedAt,
				"expires_at":       model.ExpiresAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return questionnaire.ErrSessionNotFound
		}
		return nil
	})
}

func (s *GormCheckpointStore) save(tx *gorm.DB, state *questionnaire.SessionState) error {
	model, err := models.CheckpointModelFromDomain(state)
	if err != nil {
		return err
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(model).Error
}

// Load restores the state snapshot for a session
func (s *GormCheckpointStore) Load(ctx context.Context, sessionID uuid.UUID) (*questionnaire.SessionState, error) {
	var model models.CheckpointModel
	if err := s.db.WithContext(ctx).
		First(&model, "session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, questionnaire.ErrSessionNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// Delete removes a session's checkpoint
func (s *GormCheckpointStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Delete(&models.CheckpointModel{}, "session_id = ?", sessionID).Error
}
