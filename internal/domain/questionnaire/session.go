package questionnaire

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an idle session stays resumable
const DefaultSessionTTL = 24 * time.Hour

// Session is the thin durable wrapper around a checkpointed SessionState,
// kept for querying and expiry. It mirrors the state's progress; the
// checkpoint itself remains the source of truth for resuming.
type Session struct {
	SessionID         uuid.UUID
	UserID            uuid.UUID
	CaseUUID          *uuid.UUID
	QuestionnaireType string
	Status            Status
	CurrentStep       int
	TotalSteps        int
	IsFinalized       bool
	StartedAt         time.Time
	LastActivityAt    time.Time
	CompletedAt       *time.Time
	ExpiresAt         time.Time
}

// NewSession creates the durable record for a freshly started session
func NewSession(sessionID, userID uuid.UUID, questionnaireType string, totalSteps int, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := time.Now().UTC()
	return &Session{
		SessionID:         sessionID,
		UserID:            userID,
		QuestionnaireType: questionnaireType,
		Status:            StatusInProgress,
		CurrentStep:       0,
		TotalSteps:        totalSteps,
		StartedAt:         now,
		LastActivityAt:    now,
		ExpiresAt:         now.Add(ttl),
	}
}

// Expired reports whether the hard expiry cutoff has passed
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SyncFromState mirrors the checkpointed state into the queryable record
func (s *Session) SyncFromState(state *SessionState) {
	s.Status = state.Status
	s.CurrentStep = state.CurrentQuestionIndex
	s.TotalSteps = state.TotalQuestions
	s.CaseUUID = state.CreatedCaseUUID
	s.LastActivityAt = time.Now().UTC()
	if state.Status.IsTerminal() && s.CompletedAt == nil {
		now := time.Now().UTC()
		s.CompletedAt = &now
	}
}

// MarkFinalized flips the one-way finalized flag
func (s *Session) MarkFinalized() error {
	if s.IsFinalized {
		return ErrSessionAlreadyFinalized
	}
	s.IsFinalized = true
	now := time.Now().UTC()
	if s.CompletedAt == nil {
		s.CompletedAt = &now
	}
	s.LastActivityAt = now
	return nil
}

// ProgressPercentage computes the mirrored progress for listings
func (s *Session) ProgressPercentage() int {
	if s.TotalSteps == 0 {
		return 0
	}
	return s.CurrentStep * 100 / s.TotalSteps
}
