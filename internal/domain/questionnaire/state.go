package questionnaire

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status represents where a session is in the interview lifecycle
type Status string

const (
	StatusInProgress                Status = "in_progress"
	StatusAwaitingSummaryApproval   Status = "awaiting_summary_approval"
	StatusAwaitingTemplateSelection Status = "awaiting_template_selection"
	StatusCompleted                 Status = "completed"
	StatusDocumentsReady            Status = "documents_ready"
	StatusExpired                   Status = "expired"
)

// IsValid checks if the status is a known Status
func (s Status) IsValid() bool {
	switch s {
	case StatusInProgress, StatusAwaitingSummaryApproval, StatusAwaitingTemplateSelection,
		StatusCompleted, StatusDocumentsReady, StatusExpired:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the session has finished the interview
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusDocumentsReady || s == StatusExpired
}

// CanTransitionTo checks if the status can move to the target status.
// Status only moves forward, except that the two awaiting states return to
// in_progress as part of normal advancement (next part, go-back). The two
// pre-selection states can also jump straight to a terminal status when the
// user finalizes early.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusInProgress:
		return target == StatusAwaitingSummaryApproval || target == StatusCompleted || target == StatusDocumentsReady
	case StatusAwaitingSummaryApproval:
		return target == StatusInProgress || target == StatusAwaitingSummaryApproval ||
			target == StatusAwaitingTemplateSelection || target == StatusCompleted || target == StatusDocumentsReady
	case StatusAwaitingTemplateSelection:
		return target == StatusCompleted || target == StatusDocumentsReady
	case StatusCompleted, StatusDocumentsReady, StatusExpired:
		return false
	}
	return false
}

// GeneratedDocument records one document produced for a session, successful
// or not. Failures are isolated per template.
type GeneratedDocument struct {
	TemplateCode string    `json:"template_code"`
	TemplateName string    `json:"template_name,omitempty"`
	DocumentID   string    `json:"document_id,omitempty"`
	Filename     string    `json:"filename,omitempty"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// SessionState is the engine's full working memory for one session. It is
// the unit of checkpointing: it must JSON round-trip without information
// loss so a fresh engine instance can resume from exactly the same point.
// Only the workflow engine mutates it.
type SessionState struct {
	SessionID            uuid.UUID              `json:"session_id"`
	UserID               uuid.UUID              `json:"user_id"`
	QuestionnaireType    string                 `json:"questionnaire_type"`
	CurrentPart          int                    `json:"current_part"`
	CurrentQuestionIndex int                    `json:"current_question_index"`
	TotalQuestions       int                    `json:"total_questions"`
	AnsweredCount        int                    `json:"answered_count"`
	Answers              map[string]Answer      `json:"answers"`
	Summaries            map[string]PartSummary `json:"summaries"`
	UploadedFiles        []FileDescriptor       `json:"uploaded_files"`
	EvidenceList         []string               `json:"evidence_list"`
	Status               Status                 `json:"status"`
	CurrentQuestion      *Question              `json:"current_question,omitempty"`
	SelectedTemplates    []string               `json:"selected_templates,omitempty"`
	ShouldCreateCase     bool                   `json:"should_create_case"`
	CreatedCaseUUID      *uuid.UUID             `json:"created_case_uuid,omitempty"`
	GeneratedDocuments   []GeneratedDocument    `json:"generated_documents"`
	StartedAt            time.Time              `json:"started_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// NewSessionState initialises the working memory for a fresh session at
// index 0 of part 1.
func NewSessionState(sessionID, userID uuid.UUID, questionnaireType string, totalQuestions int) *SessionState {
	now := time.Now().UTC()
	return &SessionState{
		SessionID:            sessionID,
		UserID:               userID,
		QuestionnaireType:    questionnaireType,
		CurrentPart:          1,
		CurrentQuestionIndex: 0,
		TotalQuestions:       totalQuestions,
		AnsweredCount:        0,
		Answers:              make(map[string]Answer),
		Summaries:            make(map[string]PartSummary),
		UploadedFiles:        []FileDescriptor{},
		EvidenceList:         []string{},
		Status:               StatusInProgress,
		GeneratedDocuments:   []GeneratedDocument{},
		StartedAt:            now,
		UpdatedAt:            now,
	}
}

// UserAnswer returns the user-sourced answer for a question ID, if any
func (s *SessionState) UserAnswer(questionID string) (Answer, bool) {
	a, ok := s.Answers[questionID]
	if !ok || a.Source != AnswerSourceUser {
		return Answer{}, false
	}
	return a, true
}

// AnswerFor returns the answer for a question ID regardless of source
func (s *SessionState) AnswerFor(questionID string) (Answer, bool) {
	a, ok := s.Answers[questionID]
	return a, ok
}

// Progress describes how far along the interview is
type Progress struct {
	Current    int `json:"current"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// CurrentProgress computes the progress for the session
func (s *SessionState) CurrentProgress() Progress {
	pct := 0
	if s.TotalQuestions > 0 {
		pct = s.CurrentQuestionIndex * 100 / s.TotalQuestions
	}
	if s.Status.IsTerminal() || s.Status == StatusAwaitingTemplateSelection {
		pct = 100
	}
	return Progress{
		Current:    s.CurrentQuestionIndex,
		Total:      s.TotalQuestions,
		Percentage: pct,
	}
}

// Marshal serialises the state for checkpointing
func (s *SessionState) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSessionState restores a state snapshot written by Marshal
func UnmarshalSessionState(data []byte) (*SessionState, error) {
	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Answers == nil {
		state.Answers = make(map[string]Answer)
	}
	if state.Summaries == nil {
		state.Summaries = make(map[string]PartSummary)
	}
	return &state, nil
}

// touch records a state mutation
func (s *SessionState) touch() {
	s.UpdatedAt = time.Now().UTC()
}
