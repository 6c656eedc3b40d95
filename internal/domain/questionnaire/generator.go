package questionnaire

import "context"

// SummaryGenerator produces natural-language summary text for a completed
// part. Implementations must honour the context deadline; the engine
// substitutes a deterministic local fallback when the call fails or times
// out, so a generator failure can never block the workflow.
type SummaryGenerator interface {
	Generate(ctx context.Context, req SummaryRequest) (string, error)
}

// SummaryRequest carries everything the generator needs for one part
type SummaryRequest struct {
	PartNumber int
	PartName   string
	// Answers holds only the answers belonging to the part, keyed by
	// question ID
	Answers map[string]Answer
	// Questions gives prompt text per question ID
	Questions map[string]Question
	// Feedback is present when the user rejected a previous summary and
	// asked for changes
	Feedback string
}

// DocumentFillResult is the per-template outcome of document generation
type DocumentFillResult struct {
	Success    bool
	DocumentID string
	Filename   string
	Error      string
}

// DocumentGenerator fills one document template from final answers. Failures
// are reported in the result, never by panicking the workflow; each template
// is filled independently.
type DocumentGenerator interface {
	Fill(ctx context.Context, req DocumentFillRequest) DocumentFillResult
}

// DocumentFillRequest carries the data for one template fill
type DocumentFillRequest struct {
	SessionID    string
	UserID       string
	TemplateCode string
	// Answers are the session's accepted answers keyed by question ID
	Answers map[string]Answer
	// OCRData carries extracted-field candidates that lose to explicit
	// answers but beat placeholder defaults
	OCRData map[string]string
}
