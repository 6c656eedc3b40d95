package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/legalintake/backend/internal/domain/legalcase"
	"github.com/legalintake/backend/internal/domain/shared"
	"github.com/legalintake/backend/internal/infrastructure/persistence/models"
)

// GormCaseRepository implements legalcase.Repository using GORM
type GormCaseRepository struct {
	db *gorm.DB
}

// NewGormCaseRepository creates a new GormCaseRepository
func NewGormCaseRepository(db *gorm.DB) *GormCaseRepository {
	return &GormCaseRepository{db: db}
}

// Create inserts a new case
func (r *GormCaseRepository) Create(ctx context.Context, c *legalcase.Case) error {
	model := models.CaseModelFromDomain(c)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByID finds a case by its UUID
func (r *GormCaseRepository) FindByID(ctx context.Context, caseUUID uuid.UUID) (*legalcase.Case, error) {
	var model models.CaseModel
	if err := r.db.WithContext(ctx).
		First(&model, "case_uuid = ?", caseUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUser lists a user's cases, newest first
func (r *GormCaseRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]legalcase.Case, error) {
	var rows []models.CaseModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	cases := make([]legalcase.Case, len(rows))
	for i := range rows {
		cases[i] = *rows[i].ToDomain()
	}
	return cases, nil
}
