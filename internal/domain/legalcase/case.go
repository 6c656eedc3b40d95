package legalcase

import (
	"context"
	"fmt"
	"time"

	"github.com/legalintake/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CaseStatus represents the lifecycle status of a legal case
type CaseStatus string

const (
	CaseStatusPending    CaseStatus = "pending"
	CaseStatusAccepted   CaseStatus = "accepted"
	CaseStatusInProgress CaseStatus = "in_progress"
	CaseStatusClosed     CaseStatus = "closed"
)

// IsValid checks if the status is a known CaseStatus
func (s CaseStatus) IsValid() bool {
	switch s {
	case CaseStatusPending, CaseStatusAccepted, CaseStatusInProgress, CaseStatusClosed:
		return true
	}
	return false
}

// Priority represents case handling priority
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid checks if the priority is known
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Case is a legal case record created from a finalized questionnaire.
// At most one case is created per questionnaire session.
type Case struct {
	CaseUUID    uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description string
	Category    string
	Priority    Priority
	Status      CaseStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewCase creates a pending case
func NewCase(userID uuid.UUID, title, description, category string, priority Priority) (*Case, error) {
	if title == "" {
		return nil, shared.NewDomainError("INVALID_CASE_TITLE", "Case title cannot be empty")
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return nil, shared.NewDomainError("INVALID_CASE_PRIORITY", fmt.Sprintf("unknown priority %q", priority))
	}
	now := time.Now().UTC()
	return &Case{
		CaseUUID:    uuid.New(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Category:    category,
		Priority:    priority,
		Status:      CaseStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Repository persists cases
type Repository interface {
	Create(ctx context.Context, c *Case) error
	FindByID(ctx context.Context, caseUUID uuid.UUID) (*Case, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Case, error)
}
