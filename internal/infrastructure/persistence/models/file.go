package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/legalintake/backend/internal/domain/questionnaire"
)

// FileModel is the persistence model for uploaded files
type FileModel struct {
	FileID         uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index"`
	SessionID      uuid.UUID `gorm:"type:uuid;not null;index"`
	QuestionID     string    `gorm:"type:varchar(50);not null"`
	Filename       string    `gorm:"type:varchar(255);not null"`
	ContentType    string    `gorm:"type:varchar(100);not null"`
	Size           int64     `gorm:"not null"`
	StorageKey     string    `gorm:"type:varchar(500);not null"`
	EvidenceNumber string    `gorm:"type:varchar(20);not null"`
	OCRFieldsJSON  string    `gorm:"column:ocr_fields;type:jsonb;default:'{}'"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FileModel) TableName() string {
	return "uploaded_files"
}

// ToDomain converts the persistence model to a StoredFile
func (m *FileModel) ToDomain() *questionnaire.StoredFile {
	f := &questionnaire.StoredFile{
		FileID:         m.FileID,
		UserID:         m.UserID,
		SessionID:      m.SessionID,
		QuestionID:     m.QuestionID,
		Filename:       m.Filename,
		ContentType:    m.ContentType,
		Size:           m.Size,
		StorageKey:     m.StorageKey,
		EvidenceNumber: m.EvidenceNumber,
		CreatedAt:      m.CreatedAt,
	}
	if m.OCRFieldsJSON != "" && m.OCRFieldsJSON != "{}" {
		if err := json.Unmarshal([]byte(m.OCRFieldsJSON), &f.OCRFields); err != nil {
			modelLogger.Warn("failed to parse OCR fields JSON",
				zap.String("file_id", m.FileID.String()),
				zap.Error(err))
		}
	}
	return f
}

// FileModelFromDomain converts a StoredFile to its persistence model
func FileModelFromDomain(f *questionnaire.StoredFile) (*FileModel, error) {
	fields := f.OCRFields
	if fields == nil {
		fields = map[string]string{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return &FileModel{
		FileID:         f.FileID,
		UserID:         f.UserID,
		SessionID:      f.SessionID,
		QuestionID:     f.QuestionID,
		Filename:       f.Filename,
		ContentType:    f.ContentType,
		Size:           f.Size,
		StorageKey:     f.StorageKey,
		EvidenceNumber: f.EvidenceNumber,
		OCRFieldsJSON:  string(fieldsJSON),
		CreatedAt:      f.CreatedAt,
	}, nil
}
