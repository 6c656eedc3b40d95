package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/legalintake/backend/internal/domain/legalcase"
)

// CaseModel is the persistence model for legal cases
type CaseModel struct {
	CaseUUID    uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Title       string    `gorm:"type:varchar(200);not null"`
	Description string    `gorm:"type:text"`
	Category    string    `gorm:"type:varchar(50);not null;index"`
	Priority    string    `gorm:"type:varchar(20);not null"`
	Status      string    `gorm:"type:varchar(20);not null;index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CaseModel) TableName() string {
	return "legal_cases"
}

// ToDomain converts the persistence model to a domain Case
func (m *CaseModel) ToDomain() *legalcase.Case {
	return &legalcase.Case{
		CaseUUID:    m.CaseUUID,
		UserID:      m.UserID,
		Title:       m.Title,
		Description: m.Description,
		Category:    m.Category,
		Priority:    legalcase.Priority(m.Priority),
		Status:      legalcase.CaseStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// CaseModelFromDomain converts a domain Case to its persistence model
func CaseModelFromDomain(c *legalcase.Case) *CaseModel {
	return &CaseModel{
		CaseUUID:    c.CaseUUID,
		UserID:      c.UserID,
		Title:       c.Title,
		Description: c.Description,
		Category:    c.Category,
		Priority:    string(c.Priority),
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
