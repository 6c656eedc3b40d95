package questionnaire

import (
	"time"

	"github.com/google/uuid"
)

// Submission is the immutable record written when a session is finalized.
// At most one submission exists per session.
type Submission struct {
	SubmissionID      uuid.UUID
	SessionID         uuid.UUID
	UserID            uuid.UUID
	CaseUUID          *uuid.UUID
	QuestionnaireType string
	Title             string
	Responses         map[string]Answer
	Summaries         map[string]PartSummary
	ShouldCreateCase  bool
	CompletedAt       time.Time
}

// NewSubmission snapshots a session's answers and summaries into the
// append-only submission record.
func NewSubmission(state *SessionState, title string) *Submission {
	responses := make(map[string]Answer, len(state.Answers))
	for k, v := range state.Answers {
		responses[k] = v
	}
	summaries := make(map[string]PartSummary, len(state.Summaries))
	for k, v := range state.Summaries {
		summaries[k] = v
	}
	return &Submission{
		SubmissionID:      uuid.New(),
		SessionID:         state.SessionID,
		UserID:            state.UserID,
		CaseUUID:          state.CreatedCaseUUID,
		QuestionnaireType: state.QuestionnaireType,
		Title:             title,
		Responses:         responses,
		Summaries:         summaries,
		ShouldCreateCase:  state.ShouldCreateCase,
		CompletedAt:       time.Now().UTC(),
	}
}
