package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/legalintake/backend/internal/domain/questionnaire"
	"github.com/legalintake/backend/internal/infrastructure/persistence/models"
)

// GormSubmissionRepository implements questionnaire.SubmissionRepository
// using GORM. The unique index on session_id enforces at most one submission
// per session.
type GormSubmissionRepository struct {
	db *gorm.DB
}

// NewGormSubmissionRepository creates a new GormSubmissionRepository
func NewGormSubmissionRepository(db *gorm.DB) *GormSubmissionRepository {
	return &GormSubmissionRepository{db: db}
}

// CreateOnce inserts the submission, failing with ErrSessionAlreadyFinalized
// when the session already has one.
func (r *GormSubmissionRepository) CreateOnce(ctx context.Context, submission *questionnaire.Submission) error {
	model, err := models.SubmissionModelFromDomain(submission)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return questionnaire.ErrSessionAlreadyFinalized
		}
		return err
	}
	return nil
}

// FindBySessionID finds the submission for a session
func (r *GormSubmissionRepository) FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*questionnaire.Submission, error) {
	var model models.SubmissionModel
	if err := r.db.WithContext(ctx).
		First(&model, "session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, questionnaire.ErrSessionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// isUniqueViolation detects unique-constraint errors from postgres (23505)
// and sqlite without depending on a specific driver error type.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
