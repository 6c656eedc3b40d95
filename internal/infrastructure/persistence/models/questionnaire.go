package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/legalintake/backend/internal/domain/questionnaire"
)

// logger for model conversion errors (silent failures are logged for debugging)
var modelLogger = zap.L().Named("questionnaire.models")

// SessionModel is the persistence model for the durable session record. The
// checkpoint holds the engine's full working memory; this row mirrors the
// queryable columns.
type SessionModel struct {
	SessionID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	UserID            uuid.UUID  `gorm:"type:uuid;not null;index"`
	CaseUUID          *uuid.UUID `gorm:"type:uuid;index"`
	QuestionnaireType string     `gorm:"type:varchar(50);not null"`
	Status            string     `gorm:"type:varchar(40);not null;index"`
	CurrentStep       int        `gorm:"not null;default:0"`
	TotalSteps        int        `gorm:"not null;default:0"`
	IsFinalized       bool       `gorm:"not null;default:false"`
	StartedAt         time.Time  `gorm:"not null"`
	LastActivityAt    time.Time  `gorm:"not null;index"`
	CompletedAt       *time.Time
	ExpiresAt         time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SessionModel) TableName() string {
	return "questionnaire_sessions"
}

// ToDomain converts the persistence model to a domain Session
func (m *SessionModel) ToDomain() *questionnaire.Session {
	return &questionnaire.Session{
		SessionID:         m.SessionID,
		UserID:            m.UserID,
		CaseUUID:          m.CaseUUID,
		QuestionnaireType: m.QuestionnaireType,
		Status:            questionnaire.Status(m.Status),
		CurrentStep:       m.CurrentStep,
		TotalSteps:        m.TotalSteps,
		IsFinalized:       m.IsFinalized,
		StartedAt:         m.StartedAt,
		LastActivityAt:    m.LastActivityAt,
		CompletedAt:       m.CompletedAt,
		ExpiresAt:         m.ExpiresAt,
	}
}

// SessionModelFromDomain converts a domain Session to its persistence model
func SessionModelFromDomain(s *questionnaire.Session) *SessionModel {
	return &SessionModel{
		SessionID:         s.SessionID,
		UserID:            s.UserID,
		CaseUUID:          s.CaseUUID,
		QuestionnaireType: s.QuestionnaireType,
		Status:            s.Status.String(),
		CurrentStep:       s.CurrentStep,
		TotalSteps:        s.TotalSteps,
		IsFinalized:       s.IsFinalized,
		StartedAt:         s.StartedAt,
		LastActivityAt:    s.LastActivityAt,
		CompletedAt:       s.CompletedAt,
		ExpiresAt:         s.ExpiresAt,
	}
}

// CheckpointModel stores the serialized SessionState. One row per session;
// every transition overwrites the previous snapshot.
type CheckpointModel struct {
	SessionID uuid.UUID `gorm:"type:uuid;primary_key"`
	StateJSON string    `gorm:"column:state;type:jsonb;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CheckpointModel) TableName() string {
	return "questionnaire_checkpoints"
}

// ToDomain deserializes the checkpointed state
func (m *CheckpointModel) ToDomain() (*questionnaire.SessionState, error) {
	return questionnaire.UnmarshalSessionState([]byte(m.StateJSON))
}

// CheckpointModelFromDomain serializes a state snapshot
func CheckpointModelFromDomain(state *questionnaire.SessionState) (*CheckpointModel, error) {
	data, err := state.Marshal()
	if err != nil {
		return nil, err
	}
	return &CheckpointModel{
		SessionID: state.SessionID,
		StateJSON: string(data),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// SubmissionModel is the persistence model for finalized submissions
type SubmissionModel struct {
	SubmissionID      uuid.UUID  `gorm:"type:uuid;primary_key"`
	SessionID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	UserID            uuid.UUID  `gorm:"type:uuid;not null;index"`
	CaseUUID          *uuid.UUID `gorm:"type:uuid"`
	QuestionnaireType string     `gorm:"type:varchar(50);not null"`
	Title             string     `gorm:"type:varchar(200);not null"`
	ResponsesJSON     string     `gorm:"column:responses;type:jsonb;not null"`
	SummariesJSON     string     `gorm:"column:summaries;type:jsonb;default:'{}'"`
	ShouldCreateCase  bool       `gorm:"not null;default:false"`
	CompletedAt       time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SubmissionModel) TableName() string {
	return "questionnaire_submissions"
}

// ToDomain converts the persistence model to a domain Submission
func (m *SubmissionModel) ToDomain() *questionnaire.Submission {
	sub := &questionnaire.Submission{
		SubmissionID:      m.SubmissionID,
		SessionID:         m.SessionID,
		UserID:            m.UserID,
		CaseUUID:          m.CaseUUID,
		QuestionnaireType: m.QuestionnaireType,
		Title:             m.Title,
		Responses:         make(map[string]questionnaire.Answer),
		Summaries:         make(map[string]questionnaire.PartSummary),
		ShouldCreateCase:  m.ShouldCreateCase,
		CompletedAt:       m.CompletedAt,
	}

	if m.ResponsesJSON != "" {
		if err := json.Unmarshal([]byte(m.ResponsesJSON), &sub.Responses); err != nil {
			modelLogger.Warn("failed to parse responses JSON",
				zap.String("submission_id", m.SubmissionID.String()),
				zap.Error(err))
		}
	}
	if m.SummariesJSON != "" && m.SummariesJSON != "{}" {
		if err := json.Unmarshal([]byte(m.SummariesJSON), &sub.Summaries); err != nil {
			modelLogger.Warn("failed to parse summaries JSON",
				zap.String("submission_id", m.SubmissionID.String()),
				zap.Error(err))
		}
	}
	return sub
}

// SubmissionModelFromDomain converts a domain Submission to its persistence model
func SubmissionModelFromDomain(s *questionnaire.Submission) (*SubmissionModel, error) {
	responses, err := json.Marshal(s.Responses)
	if err != nil {
		return nil, err
	}
	summaries, err := json.Marshal(s.Summaries)
	if err != nil {
		return nil, err
	}
	return &SubmissionModel{
		SubmissionID:      s.SubmissionID,
		SessionID:         s.SessionID,
		UserID:            s.UserID,
		CaseUUID:          s.CaseUUID,
		QuestionnaireType: s.QuestionnaireType,
		Title:             s.Title,
		ResponsesJSON:     string(responses),
		SummariesJSON:     string(summaries),
		ShouldCreateCase:  s.ShouldCreateCase,
		CompletedAt:       s.CompletedAt,
	}, nil
}
