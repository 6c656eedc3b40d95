package handler

import (
	"io"
	"time"

	uploadapp "github.com/legalintake/backend/internal/application/upload"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// downloadURLExpiry is how long generated download links stay valid
const downloadURLExpiry = 15 * time.Minute

// UploadHandler handles file upload API endpoints
type UploadHandler struct {
	BaseHandler
	uploadService *uploadapp.Service
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(uploadService *uploadapp.Service) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
	}
}

// UploadFileResponse represents an uploaded file in API responses
// @Description Uploaded file metadata, including OCR-extracted fields when available
type UploadFileResponse struct {
	FileID         string            `json:"file_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Filename       string            `json:"filename" example:"contract.pdf"`
	ContentType    string            `json:"content_type" example:"application/pdf"`
	Size           int64             `json:"size" example:"102400"`
	EvidenceNumber string            `json:"evidence_number,omitempty" example:"EV-A1B2C3D4"`
	OCRFields      map[string]string `json:"ocr_fields,omitempty"`
}

// DownloadURLResponse represents a time-limited download link
// @Description Pre-signed download URL for an uploaded file
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Upload godoc
// @Summary      Upload a file
// @Description  Upload a file for an upload-type question; images are sent to OCR when enabled
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Param        session_id formData string true "Session ID" format(uuid)
// @Param        question_id formData string true "Question ID"
// @Param        file formData file true "File content"
// @Success      201 {object} dto.Response{data=UploadFileResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      415 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /files [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}

	sessionID, err := uuid.Parse(c.PostForm("session_id"))
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	questionID := c.PostForm("question_id")
	if questionID == "" {
		h.BadRequest(c, "question_id is required")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.InternalError(c, "failed to read uploaded file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	result, err := h.uploadService.Upload(c.Request.Context(), userID, sessionID, questionID, header.Filename, contentType, data)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, UploadFileResponse{
		FileID:         result.File.FileID,
		Filename:       result.File.Filename,
		ContentType:    result.File.ContentType,
		Size:           result.File.Size,
		EvidenceNumber: result.File.EvidenceNumber,
		OCRFields:      result.OCRFields,
	})
}

// DownloadURL godoc
// @Summary      Get a file download URL
// @Description  Generate a time-limited download URL for an uploaded file
// @Tags         files
// @Produce      json
// @Param        id path string true "File ID" format(uuid)
// @Success      200 {object} dto.Response{data=DownloadURLResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /files/{id}/url [get]
func (h *UploadHandler) DownloadURL(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}

	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid file ID format")
		return
	}

	url, expiresAt, err := h.uploadService.DownloadURL(c.Request.Context(), userID, fileID, downloadURLExpiry)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, DownloadURLResponse{URL: url, ExpiresAt: expiresAt})
}
