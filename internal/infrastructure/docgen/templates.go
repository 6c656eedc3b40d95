package docgen

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/legalintake/backend/internal/domain/questionnaire"
)

//go:embed templates/*.html
var templateFS embed.FS

// DocumentTemplate is one fillable legal document template
type DocumentTemplate struct {
	Code     string
	Name     string
	FilePath string // path within embed.FS
}

// defaultTemplates maps template codes to their built-in HTML files
var defaultTemplates = []DocumentTemplate{
	{
		Code:     questionnaire.TemplateCodePowerOfAttorney,
		Name:     "授权委托书",
		FilePath: "templates/power_of_attorney.html",
	},
	{
		Code:     questionnaire.TemplateCodeCivilComplaint,
		Name:     "民事起诉状",
		FilePath: "templates/civil_complaint.html",
	},
	{
		Code:     questionnaire.TemplateCodeEvidenceList,
		Name:     "证据清单",
		FilePath: "templates/evidence_list.html",
	},
	{
		Code:     questionnaire.TemplateCodeSettlement,
		Name:     "和解协议书",
		FilePath: "templates/settlement_agreement.html",
	},
}

// TemplateStore resolves template content by code. An override directory
// may shadow the built-in templates file by file.
type TemplateStore struct {
	overrideDir string
	byCode      map[string]DocumentTemplate
}

// NewTemplateStore creates a template store. overrideDir may be empty.
func NewTemplateStore(overrideDir string) *TemplateStore {
	byCode := make(map[string]DocumentTemplate, len(defaultTemplates))
	for _, t := range defaultTemplates {
		byCode[t.Code] = t
	}
	return &TemplateStore{
		overrideDir: overrideDir,
		byCode:      byCode,
	}
}

// Lookup returns the template metadata for a code
func (s *TemplateStore) Lookup(code string) (DocumentTemplate, bool) {
	t, ok := s.byCode[code]
	return t, ok
}

// Content loads the HTML content for a template code, preferring the
// override directory when it holds a file with the same base name.
func (s *TemplateStore) Content(code string) (string, error) {
	t, ok := s.byCode[code]
	if !ok {
		return "", fmt.Errorf("unknown template code %s", code)
	}

	if s.overrideDir != "" {
		override := filepath.Join(s.overrideDir, filepath.Base(t.FilePath))
		if data, err := os.ReadFile(override); err == nil {
			return string(data), nil
		}
	}

	data, err := templateFS.ReadFile(t.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to load template %s: %w", code, err)
	}
	return string(data), nil
}

// Codes lists the available template codes
func (s *TemplateStore) Codes() []string {
	codes := make([]string, 0, len(defaultTemplates))
	for _, t := range defaultTemplates {
		codes = append(codes, t.Code)
	}
	return codes
}
