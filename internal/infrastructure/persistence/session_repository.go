package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/legalintake/backend/internal/domain/questionnaire"
	"github.com/legalintake/backend/internal/infrastructure/persistence/models"
)

// GormSessionRepository implements questionnaire.SessionRepository using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// Create inserts a new session record
func (r *GormSessionRepository) Create(ctx context.Context, session *questionnaire.Session) error {
	model := models.SessionModelFromDomain(session)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update saves an existing session record
func (r *GormSessionRepository) Update(ctx context.Context, session *questionnaire.Session) error {
	model := models.SessionModelFromDomain(session)
	result := r.db.WithContext(ctx).
		Model(&models.SessionModel{}).
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
}

// FindByID finds a session by its ID
func (r *GormSessionRepository) FindByID(ctx context.Context, sessionID uuid.UUID) (*questionnaire.Session, error) {
	var model models.SessionModel
	if err := r.db.WithContext(ctx).
		First(&model, "session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, questionnaire.ErrSessionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUser finds a session scoped to its owner. A foreign session
// behaves exactly like a missing one.
func (r *GormSessionRepository) FindByIDForUser(ctx context.Context, sessionID, userID uuid.UUID) (*questionnaire.Session, error) {
	var model models.SessionModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, questionnaire.ErrSessionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindIncompleteByUser lists the user's resumable sessions, newest activity first
func (r *GormSessionRepository) FindIncompleteByUser(ctx context.Context, userID uuid.UUID) ([]questionnaire.Session, error) {
	var rows []models.SessionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ? AND expires_at > ?",
			userID,
			[]string{
				questionnaire.StatusInProgress.String(),
				questionnaire.StatusAwaitingSummaryApproval.String(),
				questionnaire.StatusAwaitingTemplateSelection.String(),
			},
			time.Now().UTC()).
		Order("last_activity_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	sessions := make([]questionnaire.Session, len(rows))
	for i := range rows {
		sessions[i] = *rows[i].ToDomain()
	}
	return sessions, nil
}

// Delete removes a session record
func (r *GormSessionRepository) Delete(ctx context.Context, sessionID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&models.SessionModel{}, "session_id = ?", sessionID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return questionnaire.ErrSessionNotFound
	}
	return nil
}

// MarkExpired flips idle sessions past their expiry cutoff to expired
func (r *GormSessionRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SessionModel{}).
		Where("expires_at <= ? AND status IN ?",
			now,
			[]string{
				questionnaire.StatusInProgress.String(),
				questionnaire.StatusAwaitingSummaryApproval.String(),
				questionnaire.StatusAwaitingTemplateSelection.String(),
			}).
		Updates(map[string]interface{}{
			"status":           questionnaire.StatusExpired.String(),
			"last_activity_at": now,
		})
	return result.RowsAffected, result.Error
}
