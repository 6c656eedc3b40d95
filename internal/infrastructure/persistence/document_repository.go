package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/legalintake/backend/internal/domain/document"
	"github.com/legalintake/backend/internal/domain/shared"
	"github.com/legalintake/backend/internal/infrastructure/persistence/models"
)

// GormDocumentRepository implements document.Repository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// Create inserts a generated document record
func (r *GormDocumentRepository) Create(ctx context.Context, doc *document.GeneratedDocument) error {
	model := models.DocumentModelFromDomain(doc)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByID finds a generated document by its UUID
func (r *GormDocumentRepository) FindByID(ctx context.Context, documentID uuid.UUID) (*document.GeneratedDocument, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		First(&model, "document_id = ?", documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySession lists the documents generated for a session
func (r *GormDocumentRepository) FindBySession(ctx context.Context, sessionID uuid.UUID) ([]document.GeneratedDocument, error) {
	var rows []models.DocumentModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]document.GeneratedDocument, len(rows))
	for i := range rows {
		docs[i] = *rows[i].ToDomain()
	}
	return docs, nil
}
