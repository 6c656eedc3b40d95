package document

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Format is the output format of a generated document
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// GeneratedDocument is a filled legal document stored for a session
type GeneratedDocument struct {
	DocumentID   uuid.UUID
	SessionID    uuid.UUID
	UserID       uuid.UUID
	TemplateCode string
	TemplateName string
	Filename     string
	Format       Format
	StorageKey   string
	SizeBytes    int64
	FilledFields int
	CreatedAt    time.Time
}

// Repository persists generated documents
type Repository interface {
	Create(ctx context.Context, doc *GeneratedDocument) error
	FindByID(ctx context.Context, documentID uuid.UUID) (*GeneratedDocument, error)
	FindBySession(ctx context.Context, sessionID uuid.UUID) ([]GeneratedDocument, error)
}
