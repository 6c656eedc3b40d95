package questionnaire

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/legalintake/backend/internal/domain/shared"
)

// ErrFileNotFound is returned for unknown file IDs and for files owned by
// another user.
var ErrFileNotFound = shared.NewDomainError("FILE_NOT_FOUND", "Uploaded file not found")

// StoredFile is the persisted metadata for one uploaded evidence file
type StoredFile struct {
	FileID         uuid.UUID
	UserID         uuid.UUID
	SessionID      uuid.UUID
	QuestionID     string
	Filename       string
	ContentType    string
	Size           int64
	StorageKey     string
	EvidenceNumber string
	OCRFields      map[string]string
	CreatedAt      time.Time
}

// FileRepository persists uploaded file metadata
type FileRepository interface {
	Create(ctx context.Context, file *StoredFile) error
	// FindByIDForUser enforces ownership; a foreign file behaves as missing
	FindByIDForUser(ctx context.Context, fileID, userID uuid.UUID) (*StoredFile, error)
	FindBySession(ctx context.Context, sessionID uuid.UUID) ([]StoredFile, error)
}
