package docgen

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/legalintake/backend/internal/application/upload"
	"github.com/legalintake/backend/internal/domain/document"
	"github.com/legalintake/backend/internal/domain/questionnaire"
)

// evidencePurposes maps evidence kinds to their stated purpose on the
// evidence list
var evidencePurposes = map[string]string{
	"现场照片":    "证明事故现场情况",
	"行车记录仪视频": "证明事故发生经过",
	"监控录像":    "证明事故发生经过",
	"证人证言":    "证明事故相关事实",
	"医疗记录":    "证明人身损害及治疗情况",
}

// EvidenceItem is one row of the evidence list template
type EvidenceItem struct {
	Index          int
	Name           string
	EvidenceNumber string
	Purpose        string
}

// templateData is the field set the legal document templates bind to
type templateData struct {
	Name               string
	IDNumber           string
	Tele               string
	Address            string
	AccidentTime       string
	Description        string
	OppoName           string
	OppoPlate          string
	OppoTele           string
	LiabilityConfirmed bool
	MedicalCost        decimal.Decimal
	LostWages          decimal.Decimal
	VehicleRepair      decimal.Decimal
	OtherCost          decimal.Decimal
	TotalCompensation  decimal.Decimal
	EvidenceItems      []EvidenceItem
}

// Generator implements questionnaire.DocumentGenerator: it binds session
// answers into legal document templates, optionally renders PDF, stores the
// output, and records the generated document. Each fill is independent; a
// failure is reported in the result and never aborts the workflow.
type Generator struct {
	templates *TemplateStore
	engine    *TemplateEngine
	renderer  PDFRenderer
	storage   upload.ObjectStorage
	documents document.Repository
	logger    *zap.Logger
}

// GeneratorOption is a functional option for the generator
type GeneratorOption func(*Generator)

// WithPDFRenderer enables PDF output; without it documents stay HTML
func WithPDFRenderer(renderer PDFRenderer) GeneratorOption {
	return func(g *Generator) {
		g.renderer = renderer
	}
}

// WithDocumentRepository enables persisting generated document records
func WithDocumentRepository(documents document.Repository) GeneratorOption {
	return func(g *Generator) {
		g.documents = documents
	}
}

// WithGeneratorLogger sets the logger
func WithGeneratorLogger(logger *zap.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGenerator creates a document generator
func NewGenerator(templates *TemplateStore, storage upload.ObjectStorage, opts ...GeneratorOption) *Generator {
	g := &Generator{
		templates: templates,
		engine:    NewTemplateEngine(),
		storage:   storage,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fill renders one template from the session's answers
func (g *Generator) Fill(ctx context.Context, req questionnaire.DocumentFillRequest) questionnaire.DocumentFillResult {
	tmpl, ok := g.templates.Lookup(req.TemplateCode)
	if !ok {
		return questionnaire.DocumentFillResult{
			Success: false,
			Error:   fmt.Sprintf("unknown template code %s", req.TemplateCode),
		}
	}

	content, err := g.templates.Content(req.TemplateCode)
	if err != nil {
		return g.failure(req.TemplateCode, err)
	}

	data, filled := buildTemplateData(req)
	html, err := g.engine.RenderString(tmpl.Code, content, data)
	if err != nil {
		return g.failure(req.TemplateCode, err)
	}

	output := []byte(html)
	format := document.FormatHTML
	ext := "html"
	contentType := "text/html; charset=utf-8"
	if g.renderer != nil {
		pdf, err := g.renderer.Render(ctx, html, tmpl.Name)
		if err != nil {
			// HTML output still has value when Chrome is down
			g.logger.Warn("PDF rendering failed, falling back to HTML",
				zap.String("template_code", req.TemplateCode),
				zap.Error(err))
		} else {
			output = pdf
			format = document.FormatPDF
			ext = "pdf"
			contentType = "application/pdf"
		}
	}

	docID := uuid.New()
	filename := fmt.Sprintf("%s_%s.%s", tmpl.Name, time.Now().Format("20060102"), ext)
	storageKey := fmt.Sprintf("documents/%s/%s/%s.%s", req.UserID, req.SessionID, docID, ext)

	if err := g.storage.Upload(ctx, storageKey, output, contentType); err != nil {
		return g.failure(req.TemplateCode, err)
	}

	if g.documents != nil {
		record, err := buildDocumentRecord(req, tmpl, docID, filename, format, storageKey, int64(len(output)), filled)
		if err == nil {
			err = g.documents.Create(ctx, record)
		}
		if err != nil {
			g.logger.Warn("failed to record generated document",
				zap.String("document_id", docID.String()),
				zap.Error(err))
		}
	}

	return questionnaire.DocumentFillResult{
		Success:    true,
		DocumentID: docID.String(),
		Filename:   filename,
	}
}

func (g *Generator) failure(code string, err error) questionnaire.DocumentFillResult {
	g.logger.Warn("document generation failed",
		zap.String("template_code", code),
		zap.Error(err))
	return questionnaire.DocumentFillResult{
		Success: false,
		Error:   err.Error(),
	}
}

func buildDocumentRecord(req questionnaire.DocumentFillRequest, tmpl DocumentTemplate, docID uuid.UUID, filename string, format document.Format, storageKey string, size int64, filled int) (*document.GeneratedDocument, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session ID: %w", err)
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}
	return &document.GeneratedDocument{
		DocumentID:   docID,
		SessionID:    sessionID,
		UserID:       userID,
		TemplateCode: tmpl.Code,
		TemplateName: tmpl.Name,
		Filename:     filename,
		Format:       format,
		StorageKey:   storageKey,
		SizeBytes:    size,
		FilledFields: filled,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// buildTemplateData maps session answers into template fields. Explicit
// answers win; OCR candidates fill the gaps; anything still missing renders
// as a fill-in blank. Returns the data and the count of filled fields.
func buildTemplateData(req questionnaire.DocumentFillRequest) (*templateData, int) {
	data := &templateData{}

	form := func(questionID, key string) string {
		a, ok := req.Answers[questionID]
		if !ok {
			return ""
		}
		fields, ok := a.Value.AsForm()
		if !ok {
			return ""
		}
		return fields[key]
	}
	scalar := func(questionID string) string {
		a, ok := req.Answers[questionID]
		if !ok {
			return ""
		}
		v, _ := a.Value.AsScalar()
		return v
	}
	withFallback := func(explicit, ocrKey string) string {
		if explicit != "" {
			return explicit
		}
		return req.OCRData[ocrKey]
	}

	data.Name = withFallback(form("q3", "Name"), "name")
	data.IDNumber = withFallback(form("q3", "IDNumber"), "id_number")
	data.Tele = withFallback(form("q3", "Tele"), "phone")
	data.Address = withFallback(form("q3", "Address"), "address")
	data.AccidentTime = scalar("q5")
	data.Description = scalar("q6")
	data.OppoName = form("q7", "OppoName")
	data.OppoPlate = withFallback(form("q7", "OppoPlate"), "plate_number")
	data.OppoTele = form("q7", "OppoTele")
	data.LiabilityConfirmed = scalar("q10") == "是"

	data.MedicalCost = parseAmount(form("q14", "MedicalCost"))
	data.LostWages = parseAmount(form("q14", "LostWages"))
	data.VehicleRepair = parseAmount(form("q14", "VehicleRepair"))
	data.OtherCost = parseAmount(form("q14", "OtherCost"))
	data.TotalCompensation = data.MedicalCost.
		Add(data.LostWages).
		Add(data.VehicleRepair).
		Add(data.OtherCost)

	if a, ok := req.Answers["q9"]; ok {
		if items, ok := a.Value.AsList(); ok {
			idx := 0
			for _, item := range items {
				if item == "无" {
					continue
				}
				idx++
				data.EvidenceItems = append(data.EvidenceItems, EvidenceItem{
					Index:   idx,
					Name:    item,
					Purpose: evidencePurposes[item],
				})
			}
		}
	}

	filled := 0
	for _, v := range []string{
		data.Name, data.IDNumber, data.Tele, data.Address,
		data.AccidentTime, data.Description,
		data.OppoName, data.OppoPlate, data.OppoTele,
	} {
		if v != "" {
			filled++
		}
	}
	if data.TotalCompensation.IsPositive() {
		filled++
	}
	return data, filled
}

// parseAmount parses a claim amount; malformed input counts as zero rather
// than failing the whole document.
func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Ensure Generator implements the workflow port
var _ questionnaire.DocumentGenerator = (*Generator)(nil)
