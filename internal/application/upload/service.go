package upload

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/legalintake/backend/internal/domain/questionnaire"
	"github.com/legalintake/backend/internal/domain/shared"
	"github.com/legalintake/backend/internal/infrastructure/telemetry"
)

// Upload error kinds. File lookups fail with questionnaire.ErrFileNotFound.
var (
	ErrUnsupportedType    = shared.NewDomainError("UNSUPPORTED_FILE_TYPE", "File type is not allowed")
	ErrFileTooLarge       = shared.NewDomainError("FILE_TOO_LARGE", "File exceeds the maximum upload size")
	ErrEmptyFile          = shared.NewDomainError("EMPTY_FILE", "File is empty")
	ErrStorageUnavailable = shared.NewDomainError("STORAGE_UNAVAILABLE", "File storage is unavailable")
)

// allowedContentTypes is the whitelist for upload-type questions
var allowedContentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

const defaultMaxUploadSize = 10 << 20 // 10 MiB

// ObjectStorage stores uploaded file content. Implementations cover
// S3-compatible object stores and a local-directory backend.
type ObjectStorage interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
	DeleteObject(ctx context.Context, storageKey string) error
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// FieldExtractor pulls structured fields out of an uploaded image.
// Extraction is best-effort: errors are logged and swallowed so an OCR
// outage never blocks an upload.
type FieldExtractor interface {
	Enabled() bool
	Extract(ctx context.Context, image []byte, contentType string) (map[string]string, error)
}

// UploadResult is returned to the handler after a successful upload
type UploadResult struct {
	File      *questionnaire.FileDescriptor
	OCRFields map[string]string
}

// Service handles file uploads for upload-type questions: whitelist and
// size checks, object storage, evidence numbering, and best-effort OCR
// dispatch for images. It also implements the workflow's FileResolver.
type Service struct {
	storage       ObjectStorage
	files         questionnaire.FileRepository
	extractor     FieldExtractor
	maxUploadSize int64
	logger        *zap.Logger
}

// ServiceOption is a functional option for the upload service
type ServiceOption func(*Service)

// WithFieldExtractor enables OCR dispatch for uploaded images
func WithFieldExtractor(extractor FieldExtractor) ServiceOption {
	return func(s *Service) {
		s.extractor = extractor
	}
}

// WithMaxUploadSize overrides the default size limit
func WithMaxUploadSize(limit int64) ServiceOption {
	return func(s *Service) {
		if limit > 0 {
			s.maxUploadSize = limit
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates an upload service
func NewService(storage ObjectStorage, files questionnaire.FileRepository, opts ...ServiceOption) *Service {
	s := &Service{
		storage:       storage,
		files:         files,
		maxUploadSize: defaultMaxUploadSize,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload validates and stores one file for an upload-type question. The
// returned OCR fields, if any, are ready to merge into the session as
// ocr-sourced answers.
func (s *Service) Upload(ctx context.Context, userID, sessionID uuid.UUID, questionID, filename, contentType string, data []byte) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > s.maxUploadSize {
		return nil, ErrFileTooLarge
	}
	ext, ok := allowedContentTypes[normalizeContentType(contentType)]
	if !ok {
		return nil, ErrUnsupportedType
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "upload", "store_file",
		telemetry.WithAttribute(telemetry.SpanAttrSessionID, sessionID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrContentType, normalizeContentType(contentType)))
	defer span.End()

	fileID := uuid.New()
	storageKey := buildStorageKey(userID, sessionID, fileID, ext)

	if err := s.storage.Upload(ctx, storageKey, data, contentType); err != nil {
		s.logger.Error("file upload to storage failed",
			zap.String("storage_key", storageKey),
			zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, ErrStorageUnavailable
	}

	evidenceNumber, err := newEvidenceNumber()
	if err != nil {
		return nil, err
	}

	stored := &questionnaire.StoredFile{
		FileID:         fileID,
		UserID:         userID,
		SessionID:      sessionID,
		QuestionID:     questionID,
		Filename:       sanitizeFilename(filename),
		ContentType:    normalizeContentType(contentType),
		Size:           int64(len(data)),
		StorageKey:     storageKey,
		EvidenceNumber: evidenceNumber,
		OCRFields:      s.extractFields(ctx, data, contentType),
		CreatedAt:      time.Now().UTC(),
	}

	if len(stored.OCRFields) > 0 {
		telemetry.AddEvent(span, "ocr_fields_extracted", "field_count", len(stored.OCRFields))
	}

	if err := s.files.Create(ctx, stored); err != nil {
		// Orphaned objects are cheaper than lost uploads; clean up anyway
		if delErr := s.storage.DeleteObject(ctx, storageKey); delErr != nil {
			s.logger.Warn("failed to delete orphaned object",
				zap.String("storage_key", storageKey),
				zap.Error(delErr))
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	return &UploadResult{
		File:      descriptorFor(stored),
		OCRFields: stored.OCRFields,
	}, nil
}

// Resolve implements the workflow's FileResolver: it maps a client-supplied
// file ID to the stored descriptor and the fields OCR extracted at upload
// time, scoped to the requesting user.
func (s *Service) Resolve(ctx context.Context, userID uuid.UUID, fileID string) (*questionnaire.FileDescriptor, map[string]string, error) {
	id, err := uuid.Parse(fileID)
	if err != nil {
		return nil, nil, questionnaire.ErrFileNotFound
	}
	stored, err := s.files.FindByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, nil, err
	}
	return descriptorFor(stored), stored.OCRFields, nil
}

// DownloadURL returns a time-limited URL for an uploaded file, scoped to
// the requesting user.
func (s *Service) DownloadURL(ctx context.Context, userID uuid.UUID, fileID uuid.UUID, expiresIn time.Duration) (string, time.Time, error) {
	stored, err := s.files.FindByIDForUser(ctx, fileID, userID)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.storage.GenerateDownloadURL(ctx, stored.StorageKey, expiresIn)
}

// SessionFiles lists the files uploaded for a session
func (s *Service) SessionFiles(ctx context.Context, sessionID uuid.UUID) ([]questionnaire.StoredFile, error) {
	return s.files.FindBySession(ctx, sessionID)
}

func (s *Service) extractFields(ctx context.Context, data []byte, contentType string) map[string]string {
	if s.extractor == nil || !s.extractor.Enabled() {
		return nil
	}
	if !strings.HasPrefix(normalizeContentType(contentType), "image/") {
		return nil
	}
	fields, err := s.extractor.Extract(ctx, data, contentType)
	if err != nil {
		s.logger.Warn("field extraction failed", zap.Error(err))
		return nil
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func descriptorFor(stored *questionnaire.StoredFile) *questionnaire.FileDescriptor {
	return &questionnaire.FileDescriptor{
		FileID:         stored.FileID.String(),
		Filename:       stored.Filename,
		ContentType:    stored.ContentType,
		Size:           stored.Size,
		StorageKey:     stored.StorageKey,
		EvidenceNumber: stored.EvidenceNumber,
	}
}

func buildStorageKey(userID, sessionID, fileID uuid.UUID, ext string) string {
	return fmt.Sprintf("uploads/%s/%s/%s%s", userID, sessionID, fileID, ext)
}

// newEvidenceNumber assigns an EV-XXXXXXXX number from 4 random bytes
func newEvidenceNumber() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate evidence number: %w", err)
	}
	return "EV-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}

func normalizeContentType(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
