package questionnaire

import "github.com/google/uuid"

// PromptType describes what input the suspended engine is waiting for
type PromptType string

const (
	PromptTypeQuestion          PromptType = "question"
	PromptTypeSummaryValidation PromptType = "summary_validation"
	PromptTypeTemplateSelection PromptType = "template_selection"
)

// PartInfo describes the part a prompt belongs to
type PartInfo struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Name    string `json:"name"`
}

// Prompt is what the engine returns when it suspends. It carries everything
// a caller needs to render the next step and resume correctly without
// re-deriving state.
type Prompt struct {
	Type           PromptType       `json:"type"`
	Question       *Question        `json:"question,omitempty"`
	PreviousAnswer *Answer          `json:"previous_answer,omitempty"`
	Summary        *PartSummary     `json:"summary,omitempty"`
	Templates      []TemplateOption `json:"templates,omitempty"`
	Progress       Progress         `json:"progress"`
	PartInfo       PartInfo         `json:"part_info"`
	CanGoBack      bool             `json:"can_go_back"`
}

// FinalResult is returned when the engine terminates instead of suspending
type FinalResult struct {
	Status             Status                 `json:"status"`
	SubmissionID       *uuid.UUID             `json:"submission_id,omitempty"`
	Summaries          map[string]PartSummary `json:"summaries"`
	GeneratedDocuments []GeneratedDocument    `json:"generated_documents"`
	CaseUUID           *uuid.UUID             `json:"case_uuid,omitempty"`
}

// StepResult is the outcome of one resume call: exactly one of Prompt
// (engine suspended) or Final (engine terminated) is set.
type StepResult struct {
	Prompt *Prompt      `json:"prompt,omitempty"`
	Final  *FinalResult `json:"final,omitempty"`
}

// Suspended reports whether the engine is waiting for more input
func (r *StepResult) Suspended() bool {
	return r.Prompt != nil
}
