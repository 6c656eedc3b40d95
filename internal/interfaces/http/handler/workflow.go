package handler

import (
	questionnaireapp "github.com/legalintake/backend/internal/application/questionnaire"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WorkflowHandler handles questionnaire workflow API endpoints
type WorkflowHandler struct {
	BaseHandler
	workflowService *questionnaireapp.WorkflowService
}

// NewWorkflowHandler creates a new WorkflowHandler
func NewWorkflowHandler(workflowService *questionnaireapp.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{
		workflowService: workflowService,
	}
}

// Start godoc
// @Summary      Start a questionnaire session
// @Description  Create a new interview session and return the first question prompt
// @Tags         workflow
// @Accept       json
// @Produce      json
// @Param        request body questionnaireapp.StartSessionRequest true "Session start request"
// @Success      201 {object} dto.Response{data=questionnaireapp.StepResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /workflow/sessions [post]
func (h *WorkflowHandler) Start(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}

	var req questionnaireapp.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	step, err := h.workflowService.StartSession(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, step)
}

// List godoc
// @Summary      List incomplete sessions
// @Description  List the caller's resumable in-progress sessions
// @Tags         workflow
// @Produce      json
// @Success      200 {object} dto.Response{data=[]questionnaireapp.SessionResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /workflow/sessions [get]
func (h *WorkflowHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}

	sessions, err := h.workflowService.ListIncomplete(c.Request.Context(), userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, sessions)
}

// Get godoc
// @Summary      Get session details
// @Description  Retrieve session progress and status by ID
// @Tags         workflow
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} dto.Response{data=questionnaireapp.SessionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /workflow/sessions/{id} [get]
func (h *WorkflowHandler) Get(c *gin.Context) {
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

	session, err := h.workflowService.GetSession(c.Request.Context(), userID, sessionID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, session)
}

// Delete godoc
// @Summary      Delete a session
// @Description  Abandon and delete an in-progress session
// @Tags         workflow
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /workflow/sessions/{id} [delete]
func (h *WorkflowHandler) Delete(c *gin.Context) {
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

	if err := h.workflowService.DeleteSession(c.Request.Context(), userID, sessionID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// SubmitAnswer godoc
// @Summary      Submit an answer
// @Description  Answer the pending question and advance the interview
// @Tags         workflow
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        request body questionnaireapp.SubmitAnswerRequest true "Answer submission"
// @Success      200 {object} dto.Response{data=questionnaireapp.StepResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      410 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /workflow/sessions/{id}/answers [post]
func (h *WorkflowHandler) SubmitAnswer(c *gin.Context) {
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

	var req questionnaireapp.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	step, err := h.workflowService.SubmitAnswer(c.Request.Context(), userID, sessionID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, step)
}

// ValidateSummary godoc
// @Summary      Approve or reject a part summary
// @Description  Resolve a pending part summary with approval or rejection feedback
// @Tags         workflow
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        request body questionnaireapp.ValidateSummaryRequest true "Summary decision"
// @Success      200 {object} dto.Response{data=questionnaireapp.StepResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      410 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /workflow/sessions/{id}/summary [post]
func (h *WorkflowHandler) ValidateSummary(c *gin.Context) {
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

	var req questionnaireapp.ValidateSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	step, err := h.workflowService.ValidateSummary(c.Request.Context(), userID, sessionID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, step)
}

// SelectTemplates godoc
// @Summary      Select document templates
// @Description  Resolve the pending template selection; an empty list completes without documents
// @Tags         workflow
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        request body questionnaireapp.SelectTemplatesRequest true "Template selection"
// @Success      200 {object} dto.Response{data=questionnaireapp.StepResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      410 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /workflow/sessions/{id}/templates [post]
func (h *WorkflowHandler) SelectTemplates(c *gin.Context) {
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

	var req questionnaireapp.SelectTemplatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	step, err := h.workflowService.SelectTemplates(c.Request.Context(), userID, sessionID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, step)
}

// GoBack godoc
// @Summary      Go back to an earlier question
// @Description  Rewind the interview to a previously answered question, discarding later answers
// @Tags         workflow
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        request body questionnaireapp.GoBackRequest true "Rewind target"
// @Success      200 {object} dto.Response{data=questionnaireapp.StepResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      410 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /workflow/sessions/{id}/back [post]
func (h *WorkflowHandler) GoBack(c *gin.Context) {
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

	var req questionnaireapp.GoBackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	step, err := h.workflowService.GoBack(c.Request.Context(), userID, sessionID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, step)
}

// MergeOCR godoc
// @Summary      Merge OCR-extracted fields
// @Description  Record OCR field candidates from an uploaded document into the session
// @Tags         workflow
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        request body questionnaireapp.MergeOCRRequest true "Extracted fields"
// @Success      200 {object} dto.Response{data=questionnaireapp.StepResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      410 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /workflow/sessions/{id}/ocr [post]
func (h *WorkflowHandler) MergeOCR(c *gin.Context) {
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

	var req questionnaireapp.MergeOCRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	step, err := h.workflowService.MergeOCR(c.Request.Context(), userID, sessionID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, step)
}

// Finalize godoc
// @Summary      Finalize a session
// @Description  Create the submission record and optionally fill additional document templates
// @Tags         workflow
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        request body questionnaireapp.FinalizeRequest true "Finalization request"
// @Success      200 {object} dto.Response{data=questionnaireapp.StepResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      410 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /workflow/sessions/{id}/finalize [post]
func (h *WorkflowHandler) Finalize(c *gin.Context) {
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

	var req questionnaireapp.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	step, err := h.workflowService.Finalize(c.Request.Context(), userID, sessionID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, step)
}

// Resume godoc
// @Summary      Resume a session
// @Description  Re-emit the pending prompt of a suspended session, or the final result of a terminal one
// @Tags         workflow
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} dto.Response{data=questionnaireapp.StepResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      410 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /workflow/sessions/{id}/resume [post]
func (h *WorkflowHandler) Resume(c *gin.Context) {
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

	step, err := h.workflowService.Resume(c.Request.Context(), userID, sessionID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, step)
}

// Completion godoc
// @Summary      Get completion data
// @Description  Retrieve the full snapshot of a finalized session
// @Tags         workflow
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} dto.Response{data=questionnaireapp.CompletionDataResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /workflow/sessions/{id}/completion [get]
func (h *WorkflowHandler) Completion(c *gin.Context) {
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

	data, err := h.workflowService.CompletionData(c.Request.Context(), userID, sessionID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, data)
}
