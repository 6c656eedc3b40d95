package upload

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/legalintake/backend/internal/domain/questionnaire"
)

// MockObjectStorage is a mock implementation of ObjectStorage
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	args := m.Called(ctx, storageKey, data, contentType)
	return args.Error(0)
}

func (m *MockObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	args := m.Called(ctx, storageKey)
	return args.Error(0)
}

func (m *MockObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	args := m.Called(ctx, storageKey)
	return args.Bool(0), args.Error(1)
}

// MockFileRepository is a mock implementation of FileRepository
type MockFileRepository struct {
	mock.Mock
}

func (m *MockFileRepository) Create(ctx context.Context, file *questionnaire.StoredFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockFileRepository) FindByIDForUser(ctx context.Context, fileID, userID uuid.UUID) (*questionnaire.StoredFile, error) {
	args := m.Called(ctx, fileID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*questionnaire.StoredFile), args.Error(1)
}

func (m *MockFileRepository) FindBySession(ctx context.Context, sessionID uuid.UUID) ([]questionnaire.StoredFile, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]questionnaire.StoredFile), args.Error(1)
}

// MockFieldExtractor is a mock implementation of FieldExtractor
type MockFieldExtractor struct {
	mock.Mock
}

func (m *MockFieldExtractor) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockFieldExtractor) Extract(ctx context.Context, image []byte, contentType string) (map[string]string, error) {
	args := m.Called(ctx, image, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func TestService_Upload(t *testing.T) {
	userID := uuid.New()
	sessionID := uuid.New()

	t.Run("stores file and returns descriptor with evidence number", func(t *testing.T) {
		storage := new(MockObjectStorage)
		files := new(MockFileRepository)
		service := NewService(storage, files)

		var createdFile *questionnaire.StoredFile
		storage.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "uploads/"+userID.String()+"/") && strings.HasSuffix(key, ".jpg")
		}), mock.Anything, "image/jpeg").Return(nil)
		files.On("Create", mock.Anything, mock.AnythingOfType("*questionnaire.StoredFile")).
			Run(func(args mock.Arguments) {
				createdFile = args.Get(1).(*questionnaire.StoredFile)
			}).Return(nil)

		result, err := service.Upload(context.Background(), userID, sessionID, "q4", "事故现场.jpg", "image/jpeg", []byte("image-bytes"))

		require.NoError(t, err)
		require.NotNil(t, result.File)
		assert.Equal(t, "事故现场.jpg", result.File.Filename)
		assert.Equal(t, "image/jpeg", result.File.ContentType)
		assert.Equal(t, int64(len("image-bytes")), result.File.Size)
		assert.Regexp(t, `^EV-[0-9A-F]{8}$`, result.File.EvidenceNumber)
		require.NotNil(t, createdFile)
		assert.Equal(t, "q4", createdFile.QuestionID)
		assert.Equal(t, sessionID, createdFile.SessionID)
		storage.AssertExpectations(t)
		files.AssertExpectations(t)
	})

	t.Run("rejects disallowed content type", func(t *testing.T) {
		storage := new(MockObjectStorage)
		files := new(MockFileRepository)
		service := NewService(storage, files)

		_, err := service.Upload(context.Background(), userID, sessionID, "q4", "video.mp4", "video/mp4", []byte("data"))

		assert.ErrorIs(t, err, ErrUnsupportedType)
		storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		storage := new(MockObjectStorage)
		files := new(MockFileRepository)
		service := NewService(storage, files, WithMaxUploadSize(4))

		_, err := service.Upload(context.Background(), userID, sessionID, "q4", "big.png", "image/png", []byte("12345"))

		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("rejects empty file", func(t *testing.T) {
		service := NewService(new(MockObjectStorage), new(MockFileRepository))

		_, err := service.Upload(context.Background(), userID, sessionID, "q4", "empty.png", "image/png", nil)

		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("maps storage failure to storage unavailable", func(t *testing.T) {
		storage := new(MockObjectStorage)
		files := new(MockFileRepository)
		service := NewService(storage, files)

		storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("connection refused"))

		_, err := service.Upload(context.Background(), userID, sessionID, "q4", "a.jpg", "image/jpeg", []byte("data"))

		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})

	t.Run("cleans up the object when metadata save fails", func(t *testing.T) {
		storage := new(MockObjectStorage)
		files := new(MockFileRepository)
		service := NewService(storage, files)

		storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		files.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert failed"))
		storage.On("DeleteObject", mock.Anything, mock.Anything).Return(nil)

		_, err := service.Upload(context.Background(), userID, sessionID, "q4", "a.jpg", "image/jpeg", []byte("data"))

		assert.Error(t, err)
		storage.AssertCalled(t, "DeleteObject", mock.Anything, mock.Anything)
	})

	t.Run("dispatches OCR for images", func(t *testing.T) {
		storage := new(MockObjectStorage)
		files := new(MockFileRepository)
		extractor := new(MockFieldExtractor)
		service := NewService(storage, files, WithFieldExtractor(extractor))

		storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		files.On("Create", mock.Anything, mock.Anything).Return(nil)
		extractor.On("Enabled").Return(true)
		extractor.On("Extract", mock.Anything, []byte("image"), "image/jpeg").
			Return(map[string]string{"name": "张三"}, nil)

		result, err := service.Upload(context.Background(), userID, sessionID, "q4", "id.jpg", "image/jpeg", []byte("image"))

		require.NoError(t, err)
		assert.Equal(t, map[string]string{"name": "张三"}, result.OCRFields)
	})

	t.Run("skips OCR for PDFs", func(t *testing.T) {
		storage := new(MockObjectStorage)
		files := new(MockFileRepository)
		extractor := new(MockFieldExtractor)
		service := NewService(storage, files, WithFieldExtractor(extractor))

		storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		files.On("Create", mock.Anything, mock.Anything).Return(nil)
		extractor.On("Enabled").Return(true)

		result, err := service.Upload(context.Background(), userID, sessionID, "q4", "report.pdf", "application/pdf", []byte("%PDF"))

		require.NoError(t, err)
		assert.Nil(t, result.OCRFields)
		extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("swallows OCR failures", func(t *testing.T) {
		storage := new(MockObjectStorage)
		files := new(MockFileRepository)
		extractor := new(MockFieldExtractor)
		service := NewService(storage, files, WithFieldExtractor(extractor))

		storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		files.On("Create", mock.Anything, mock.Anything).Return(nil)
		extractor.On("Enabled").Return(true)
		extractor.On("Extract", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("ocr timeout"))

		result, err := service.Upload(context.Background(), userID, sessionID, "q4", "id.jpg", "image/jpeg", []byte("image"))

		require.NoError(t, err)
		assert.Nil(t, result.OCRFields)
	})
}

func TestService_Resolve(t *testing.T) {
	userID := uuid.New()

	t.Run("resolves a stored file to its descriptor", func(t *testing.T) {
		files := new(MockFileRepository)
		service := NewService(new(MockObjectStorage), files)

		fileID := uuid.New()
		files.On("FindByIDForUser", mock.Anything, fileID, userID).Return(&questionnaire.StoredFile{
			FileID:         fileID,
			UserID:         userID,
			Filename:       "责任认定书.jpg",
			ContentType:    "image/jpeg",
			Size:           1024,
			StorageKey:     "uploads/x/y/z.jpg",
			EvidenceNumber: "EV-1A2B3C4D",
			OCRFields:      map[string]string{"ocr_name": "张三"},
		}, nil)

		desc, fields, err := service.Resolve(context.Background(), userID, fileID.String())

		require.NoError(t, err)
		assert.Equal(t, fileID.String(), desc.FileID)
		assert.Equal(t, "EV-1A2B3C4D", desc.EvidenceNumber)
		assert.Equal(t, map[string]string{"ocr_name": "张三"}, fields)
	})

	t.Run("rejects a malformed file ID", func(t *testing.T) {
		service := NewService(new(MockObjectStorage), new(MockFileRepository))

		_, _, err := service.Resolve(context.Background(), userID, "not-a-uuid")

		assert.ErrorIs(t, err, questionnaire.ErrFileNotFound)
	})
}

func TestService_DownloadURL(t *testing.T) {
	t.Run("delegates to storage with the stored key", func(t *testing.T) {
		userID := uuid.New()
		fileID := uuid.New()
		storage := new(MockObjectStorage)
		files := new(MockFileRepository)
		service := NewService(storage, files)

		files.On("FindByIDForUser", mock.Anything, fileID, userID).Return(&questionnaire.StoredFile{
			FileID:     fileID,
			StorageKey: "uploads/a/b/c.jpg",
		}, nil)
		expires := time.Now().Add(15 * time.Minute)
		storage.On("GenerateDownloadURL", mock.Anything, "uploads/a/b/c.jpg", 15*time.Minute).
			Return("https://storage.example.com/c.jpg", expires, nil)

		url, expiresAt, err := service.DownloadURL(context.Background(), userID, fileID, 15*time.Minute)

		assert.NoError(t, err)
		assert.Equal(t, "https://storage.example.com/c.jpg", url)
		assert.Equal(t, expires, expiresAt)
	})
}
