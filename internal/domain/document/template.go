package document

import (
	"context"
	"time"
)

// Template is an HTML legal document template. Placeholders are Go template
// expressions filled from questionnaire answers and OCR data.
type Template struct {
	Code        string
	Name        string
	Description string
	HTML        string
	// RequiredFields lists the data keys the template expects; missing
	// values render as blanks, they do not fail the fill
	RequiredFields []string
	UpdatedAt      time.Time
}

// TemplateStore provides templates by code
type TemplateStore interface {
	Get(ctx context.Context, code string) (*Template, error)
	List(ctx context.Context) ([]Template, error)
}
