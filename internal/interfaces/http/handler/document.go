package handler

import (
	"time"

	uploadapp "github.com/legalintake/backend/internal/application/upload"
	"github.com/legalintake/backend/internal/domain/document"
	"github.com/legalintake/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentHandler handles generated document API endpoints
type DocumentHandler struct {
	BaseHandler
	documents document.Repository
	storage   uploadapp.ObjectStorage
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documents document.Repository, storage uploadapp.ObjectStorage) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		storage:   storage,
	}
}

// DocumentResponse represents a generated document in API responses
// @Description Generated legal document metadata
type DocumentResponse struct {
	DocumentID   string    `json:"document_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	SessionID    string    `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	TemplateCode string    `json:"template_code" example:"intake_summary"`
	TemplateName string    `json:"template_name" example:"Intake Summary"`
	Filename     string    `json:"filename" example:"intake_summary.pdf"`
	Format       string    `json:"format" example:"pdf"`
	SizeBytes    int64     `json:"size_bytes" example:"204800"`
	FilledFields int       `json:"filled_fields" example:"12"`
	CreatedAt    time.Time `json:"created_at"`
}

func toDocumentResponse(doc *document.GeneratedDocument) DocumentResponse {
	return DocumentResponse{
		DocumentID:   doc.DocumentID.String(),
		SessionID:    doc.SessionID.String(),
		TemplateCode: doc.TemplateCode,
		TemplateName: doc.TemplateName,
		Filename:     doc.Filename,
		Format:       string(doc.Format),
		SizeBytes:    doc.SizeBytes,
		FilledFields: doc.FilledFields,
		CreatedAt:    doc.CreatedAt,
	}
}

// ListBySession godoc
// @Summary      List generated documents
// @Description  List the documents generated for a session
// @Tags         documents
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /workflow/sessions/{id}/documents [get]
func (h *DocumentHandler) ListBySession(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	docs, err := h.documents.FindBySession(c.Request.Context(), sessionID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		if docs[i].UserID != userID {
			continue
		}
		responses = append(responses, toDocumentResponse(&docs[i]))
	}

	h.Success(c, responses)
}

// DownloadURL godoc
// @Summary      Get a document download URL
// @Description  Generate a time-limited download URL for a generated document
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=DownloadURLResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /documents/{id}/url [get]
func (h *DocumentHandler) DownloadURL(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}

	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	doc, err := h.documents.FindByID(c.Request.Context(), documentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if doc == nil || doc.UserID != userID {
		h.NotFound(c, "Document not found")
		return
	}

	url, expiresAt, err := h.storage.GenerateDownloadURL(c.Request.Context(), doc.StorageKey, downloadURLExpiry)
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeGeneratorFailure, "Failed to generate download URL")
		return
	}

	h.Success(c, DownloadURLResponse{URL: url, ExpiresAt: expiresAt})
}
