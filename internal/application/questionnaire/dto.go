package questionnaire

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/legalintake/backend/internal/domain/questionnaire"
)

// ==================== Workflow DTOs ====================

// StartSessionRequest begins a new questionnaire session
type StartSessionRequest struct {
	QuestionnaireType string `json:"questionnaire_type" binding:"omitempty,max=50"`
}

// SubmitAnswerRequest answers the pending question. Answer accepts the
// value in its natural JSON shape: a string, an array of strings, or an
// object of form fields.
type SubmitAnswerRequest struct {
	QuestionID string          `json:"question_id" binding:"required,max=50"`
	Answer     json.RawMessage `json:"answer"`
	FileID     string          `json:"file_id" binding:"omitempty,max=64"`
}

// ValidateSummaryRequest resolves a pending part summary approval
type ValidateSummaryRequest struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback" binding:"omitempty,max=2000"`
}

// SelectTemplatesRequest resolves the pending template selection. An empty
// list completes the session without generating documents.
type SelectTemplatesRequest struct {
	TemplateCodes []string `json:"template_codes"`
}

// GoBackRequest rewinds the interview to an earlier question
type GoBackRequest struct {
	TargetQuestionID string `json:"target_question_id" binding:"required,max=50"`
}

// FinalizeRequest finalizes a finished session, optionally filling
// additional document templates.
type FinalizeRequest struct {
	Title         string   `json:"title" binding:"omitempty,max=200"`
	TemplateCodes []string `json:"template_codes"`
}

// MergeOCRRequest records OCR-extracted field candidates for a session
type MergeOCRRequest struct {
	SourceQuestionID string            `json:"source_question_id" binding:"required,max=50"`
	Fields           map[string]string `json:"fields" binding:"required"`
}

// ==================== Responses ====================

// StepResponse is the outcome of one workflow transition: the session is
// either suspended on a prompt or terminated with a final result.
type StepResponse struct {
	SessionID uuid.UUID                  `json:"session_id"`
	Status    string                     `json:"status"`
	Prompt    *questionnaire.Prompt      `json:"prompt,omitempty"`
	Final     *questionnaire.FinalResult `json:"final,omitempty"`
}

// SessionResponse mirrors a session record for listings and detail views
type SessionResponse struct {
	SessionID          uuid.UUID  `json:"session_id"`
	QuestionnaireType  string     `json:"questionnaire_type"`
	Status             string     `json:"status"`
	CurrentStep        int        `json:"current_step"`
	TotalSteps         int        `json:"total_steps"`
	ProgressPercentage int        `json:"progress_percentage"`
	IsFinalized        bool       `json:"is_finalized"`
	CaseUUID           *uuid.UUID `json:"case_uuid,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	LastActivityAt     time.Time  `json:"last_activity_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ExpiresAt          time.Time  `json:"expires_at"`
}

// CompletionDataResponse is the full snapshot of a finalized session
type CompletionDataResponse struct {
	SubmissionID       uuid.UUID                            `json:"submission_id"`
	SessionID          uuid.UUID                            `json:"session_id"`
	Title              string                               `json:"title"`
	QuestionnaireType  string                               `json:"questionnaire_type"`
	Responses          map[string]questionnaire.Answer      `json:"responses"`
	Summaries          map[string]questionnaire.PartSummary `json:"summaries"`
	GeneratedDocuments []questionnaire.GeneratedDocument    `json:"generated_documents"`
	ShouldCreateCase   bool                                 `json:"should_create_case"`
	CaseUUID           *uuid.UUID                           `json:"case_uuid,omitempty"`
	CompletedAt        time.Time                            `json:"completed_at"`
}

// ToSessionResponse converts a session record to its API representation
func ToSessionResponse(s *questionnaire.Session) SessionResponse {
	return SessionResponse{
		SessionID:          s.SessionID,
		QuestionnaireType:  s.QuestionnaireType,
		Status:             s.Status.String(),
		CurrentStep:        s.CurrentStep,
		TotalSteps:         s.TotalSteps,
		ProgressPercentage: s.ProgressPercentage(),
		IsFinalized:        s.IsFinalized,
		CaseUUID:           s.CaseUUID,
		StartedAt:          s.StartedAt,
		LastActivityAt:     s.LastActivityAt,
		CompletedAt:        s.CompletedAt,
		ExpiresAt:          s.ExpiresAt,
	}
}

// ToSessionResponses converts a list of session records
func ToSessionResponses(sessions []questionnaire.Session) []SessionResponse {
	out := make([]SessionResponse, len(sessions))
	for i := range sessions {
		out[i] = ToSessionResponse(&sessions[i])
	}
	return out
}

func stepResponse(sessionID uuid.UUID, status questionnaire.Status, prompt *questionnaire.Prompt, final *questionnaire.FinalResult) *StepResponse {
	return &StepResponse{
		SessionID: sessionID,
		Status:    status.String(),
		Prompt:    prompt,
		Final:     final,
	}
}
