package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/legalintake/backend/internal/domain/document"
)

// DocumentModel is the persistence model for generated documents
type DocumentModel struct {
	DocumentID   uuid.UUID `gorm:"type:uuid;primary_key"`
	SessionID    uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index"`
	TemplateCode string    `gorm:"type:varchar(10);not null"`
	TemplateName string    `gorm:"type:varchar(100)"`
	Filename     string    `gorm:"type:varchar(255);not null"`
	Format       string    `gorm:"type:varchar(10);not null"`
	StorageKey   string    `gorm:"type:varchar(512)"`
	SizeBytes    int64     `gorm:"not null;default:0"`
	FilledFields int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "generated_documents"
}

// ToDomain converts the persistence model to a domain GeneratedDocument
func (m *DocumentModel) ToDomain() *document.GeneratedDocument {
	return &document.GeneratedDocument{
		DocumentID:   m.DocumentID,
		SessionID:    m.SessionID,
		UserID:       m.UserID,
		TemplateCode: m.TemplateCode,
		TemplateName: m.TemplateName,
		Filename:     m.Filename,
		Format:       document.Format(m.Format),
		StorageKey:   m.StorageKey,
		SizeBytes:    m.SizeBytes,
		FilledFields: m.FilledFields,
		CreatedAt:    m.CreatedAt,
	}
}

// DocumentModelFromDomain converts a domain GeneratedDocument to its persistence model
func DocumentModelFromDomain(d *document.GeneratedDocument) *DocumentModel {
	return &DocumentModel{
		DocumentID:   d.DocumentID,
		SessionID:    d.SessionID,
		UserID:       d.UserID,
		TemplateCode: d.TemplateCode,
		TemplateName: d.TemplateName,
		Filename:     d.Filename,
		Format:       string(d.Format),
		StorageKey:   d.StorageKey,
		SizeBytes:    d.SizeBytes,
		FilledFields: d.FilledFields,
		CreatedAt:    d.CreatedAt,
	}
}
