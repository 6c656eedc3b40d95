package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/legalintake/backend/internal/domain/questionnaire"
	"github.com/legalintake/backend/internal/infrastructure/persistence/models"
)

var _ questionnaire.FileRepository = (*GormFileRepository)(nil)

// GormFileRepository implements questionnaire.FileRepository using GORM
type GormFileRepository struct {
	db *gorm.DB
}

// NewGormFileRepository creates a new GormFileRepository
func NewGormFileRepository(db *gorm.DB) *GormFileRepository {
	return &GormFileRepository{db: db}
}

// Create inserts an uploaded file record
func (r *GormFileRepository) Create(ctx context.Context, file *questionnaire.StoredFile) error {
	model, err := models.FileModelFromDomain(file)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByIDForUser finds a file scoped to its owner. A foreign file behaves
// as missing.
func (r *GormFileRepository) FindByIDForUser(ctx context.Context, fileID, userID uuid.UUID) (*questionnaire.StoredFile, error) {
	var model models.FileModel
	if err := r.db.WithContext(ctx).
		Where("file_id = ? AND user_id = ?", fileID, userID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, questionnaire.ErrFileNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySession lists the files uploaded for a session, oldest first
func (r *GormFileRepository) FindBySession(ctx context.Context, sessionID uuid.UUID) ([]questionnaire.StoredFile, error) {
	var rows []models.FileModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	files := make([]questionnaire.StoredFile, len(rows))
	for i := range rows {
		files[i] = *rows[i].ToDomain()
	}
	return files, nil
}
