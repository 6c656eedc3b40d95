package questionnaire

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultGeneratorTimeout = 60 * time.Second

// Engine is the questionnaire workflow state machine. It is explicitly
// resumable: every method runs synchronously in response to a start or
// resume call, mutates the supplied SessionState, and returns either a
// Prompt (suspended, waiting for input) or a FinalResult (terminated).
// The engine never runs in the background and never touches storage; the
// caller owns checkpointing the state after each transition.
type Engine struct {
	catalog          Catalog
	summaries        SummaryGenerator
	documents        DocumentGenerator
	generatorTimeout time.Duration
	caseTrigger      func(q *Question, a Answer) bool
	recommender      func(answers map[string]Answer) []TemplateOption
	logger           *zap.Logger
}

// EngineOption configures the engine
type EngineOption func(*Engine)

// WithGeneratorTimeout bounds external generator calls
func WithGeneratorTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.generatorTimeout = d
		}
	}
}

// WithCaseTrigger overrides the predicate that flags a session for case
// creation based on an accepted answer
func WithCaseTrigger(fn func(q *Question, a Answer) bool) EngineOption {
	return func(e *Engine) { e.caseTrigger = fn }
}

// WithTemplateRecommender overrides how the offered template list is derived
// from the final answers
func WithTemplateRecommender(fn func(answers map[string]Answer) []TemplateOption) EngineOption {
	return func(e *Engine) { e.recommender = fn }
}

// WithEngineLogger sets the logger
func WithEngineLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a workflow engine. Catalog and generators are injected
// so tests can substitute fakes.
func NewEngine(catalog Catalog, summaries SummaryGenerator, documents DocumentGenerator, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:          catalog,
		summaries:        summaries,
		documents:        documents,
		generatorTimeout: defaultGeneratorTimeout,
		caseTrigger:      lawyerRequestedTrigger,
		recommender:      RecommendedTemplates,
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lawyerRequestedTrigger flags the session for case creation when the user
// asks for a lawyer in the closing question.
func lawyerRequestedTrigger(q *Question, a Answer) bool {
	if q.ID != "q16" {
		return false
	}
	v, ok := a.Value.AsScalar()
	return ok && v == "需要律师"
}

// AnswerInput is the resume payload for a pending question
type AnswerInput struct {
	QuestionID string
	Value      AnswerValue
	File       *FileDescriptor
	// OCRFields carries the fields extracted from the uploaded file, keyed
	// by question ID. They are attached as ocr-sourced answers when the
	// upload answer is accepted.
	OCRFields map[string]string
}

// SummaryDecision is the resume payload for a pending summary approval
type SummaryDecision struct {
	Approved bool
	Feedback string
}

// Start begins the interview: the state moves to asking the first question
// and the engine suspends with that question as the prompt.
func (e *Engine) Start(ctx context.Context, state *SessionState) (*Prompt, error) {
	if state.Status != StatusInProgress || state.CurrentQuestionIndex != 0 || state.AnsweredCount != 0 {
		return nil, NewInvalidTransitionError("session has already been started")
	}
	if e.catalog.QuestionCount() == 0 {
		return nil, NewInvalidTransitionError("question catalog is empty")
	}
	q, err := e.catalog.QuestionAt(0)
	if err != nil {
		return nil, err
	}
	state.CurrentPart = q.PartNumber
	state.CurrentQuestion = q
	state.TotalQuestions = e.catalog.QuestionCount()
	state.touch()
	return e.questionPrompt(state, q), nil
}

// SubmitAnswer accepts an answer for the pending question and advances the
// interview: either the next question of the same part, or the summary of
// the part just completed. Fields extracted from an uploaded file are
// attached as ocr-sourced answers before the part is summarised.
func (e *Engine) SubmitAnswer(ctx context.Context, state *SessionState, in AnswerInput) (*StepResult, error) {
	if state.Status != StatusInProgress || state.CurrentQuestion == nil {
		return nil, NewInvalidTransitionError(fmt.Sprintf("no question is pending in status %s", state.Status))
	}
	q := state.CurrentQuestion
	if in.QuestionID != q.ID {
		return nil, NewInvalidTransitionError(fmt.Sprintf("expected answer for question %s, got %s", q.ID, in.QuestionID))
	}
	if err := validateAnswer(q, in); err != nil {
		return nil, err
	}

	answer := Answer{
		QuestionID: q.ID,
		Value:      in.Value,
		AnsweredAt: time.Now().UTC(),
		Source:     AnswerSourceUser,
	}
	if q.Type == QuestionTypeFileUpload && in.File != nil {
		if answer.Value.IsEmpty() {
			answer.Value = NewScalarValue(in.File.FileID)
		}
		state.UploadedFiles = append(state.UploadedFiles, *in.File)
		if in.File.EvidenceNumber != "" {
			state.EvidenceList = append(state.EvidenceList, in.File.EvidenceNumber)
		}
	}
	state.Answers[q.ID] = answer
	if q.Type == QuestionTypeFileUpload {
		e.MergeOCRAnswers(state, q.ID, in.OCRFields)
	}
	if e.caseTrigger(q, answer) {
		state.ShouldCreateCase = true
	}

	completedPart := q.PartNumber
	state.CurrentQuestionIndex++
	state.AnsweredCount = state.CurrentQuestionIndex
	state.touch()

	// Still inside the same part: suspend with the next question.
	if state.CurrentQuestionIndex < e.catalog.QuestionCount() {
		next, err := e.catalog.QuestionAt(state.CurrentQuestionIndex)
		if err != nil {
			return nil, err
		}
		if next.PartNumber == completedPart {
			state.CurrentQuestion = next
			return &StepResult{Prompt: e.questionPrompt(state, next)}, nil
		}
	}

	// Part boundary or end of catalog: summarise the completed part.
	prompt, err := e.enterSummaryApproval(ctx, state, completedPart, "")
	if err != nil {
		return nil, err
	}
	return &StepResult{Prompt: prompt}, nil
}

// ValidateSummary resolves a pending summary approval. Rejection records the
// feedback and regenerates the same part's summary; approval moves on to the
// next part, or to template selection after the last part. Declared parts
// without questions still get exactly one summary each.
func (e *Engine) ValidateSummary(ctx context.Context, state *SessionState, decision SummaryDecision) (*StepResult, error) {
	if state.Status != StatusAwaitingSummaryApproval {
		return nil, NewInvalidTransitionError(fmt.Sprintf("no summary is awaiting approval in status %s", state.Status))
	}

	if !decision.Approved {
		prompt, err := e.enterSummaryApproval(ctx, state, state.CurrentPart, decision.Feedback)
		if err != nil {
			return nil, err
		}
		return &StepResult{Prompt: prompt}, nil
	}

	key := PartKey(state.CurrentPart)
	summary, ok := state.Summaries[key]
	if !ok {
		return nil, NewInvalidTransitionError(fmt.Sprintf("summary for part %d is missing", state.CurrentPart))
	}
	summary.Approved = true
	state.Summaries[key] = summary
	state.touch()

	// An intervening declared part with zero questions still gets its own
	// summary before the interview moves past it.
	nextPart := state.CurrentPart + 1
	if nextPart <= e.catalog.PartCount() && e.catalog.FirstIndexOfPart(nextPart) == -1 {
		state.CurrentPart = nextPart
		prompt, err := e.enterSummaryApproval(ctx, state, nextPart, "")
		if err != nil {
			return nil, err
		}
		return &StepResult{Prompt: prompt}, nil
	}

	if state.CurrentQuestionIndex < e.catalog.QuestionCount() {
		next, err := e.catalog.QuestionAt(state.CurrentQuestionIndex)
		if err != nil {
			return nil, err
		}
		state.CurrentPart = next.PartNumber
		state.CurrentQuestion = next
		state.Status = StatusInProgress
		state.touch()
		return &StepResult{Prompt: e.questionPrompt(state, next)}, nil
	}

	// Last part approved: offer document templates.
	state.Status = StatusAwaitingTemplateSelection
	state.CurrentQuestion = nil
	state.touch()
	return &StepResult{Prompt: e.templatePrompt(state)}, nil
}

// SelectTemplates resolves the pending template selection and terminates the
// interview. Every requested template is filled independently; a failing
// template yields a failure entry in the result instead of failing the call.
// An empty selection completes the session without documents.
func (e *Engine) SelectTemplates(ctx context.Context, state *SessionState, codes []string) (*FinalResult, error) {
	if state.Status != StatusAwaitingTemplateSelection {
		return nil, NewInvalidTransitionError(fmt.Sprintf("template selection is not pending in status %s", state.Status))
	}

	return e.finish(ctx, state, codes), nil
}

// Complete ends the interview early: the answers given so far are kept as
// the final snapshot and any remaining questions stay unanswered. Allowed
// while the session is still collecting answers or waiting on a summary.
func (e *Engine) Complete(ctx context.Context, state *SessionState, codes []string) (*FinalResult, error) {
	if state.Status != StatusInProgress && state.Status != StatusAwaitingSummaryApproval {
		return nil, NewInvalidTransitionError(fmt.Sprintf("session in status %s cannot be completed", state.Status))
	}
	return e.finish(ctx, state, codes), nil
}

// finish terminates the interview, filling the requested templates from
// whatever answers the state holds.
func (e *Engine) finish(ctx context.Context, state *SessionState, codes []string) *FinalResult {
	state.SelectedTemplates = append([]string{}, codes...)
	for _, code := range codes {
		state.GeneratedDocuments = append(state.GeneratedDocuments, e.fillTemplate(ctx, state, code))
	}

	if len(codes) > 0 {
		state.Status = StatusDocumentsReady
	} else {
		state.Status = StatusCompleted
	}
	state.CurrentQuestion = nil
	state.touch()

	return &FinalResult{
		Status:             state.Status,
		Summaries:          state.Summaries,
		GeneratedDocuments: state.GeneratedDocuments,
		CaseUUID:           state.CreatedCaseUUID,
	}
}

// GenerateDocuments fills additional templates for an already-suspended or
// finished session, appending to the generated document list. Used by the
// explicit finalize action when the caller supplies a template list.
func (e *Engine) GenerateDocuments(ctx context.Context, state *SessionState, codes []string) []GeneratedDocument {
	results := make([]GeneratedDocument, 0, len(codes))
	for _, code := range codes {
		doc := e.fillTemplate(ctx, state, code)
		state.GeneratedDocuments = append(state.GeneratedDocuments, doc)
		results = append(results, doc)
	}
	if len(results) > 0 {
		state.touch()
	}
	return results
}

// GoBack rewinds the interview to an earlier question. Every answer whose
// catalog index is at or after the target is deleted, along with OCR answers
// derived from those questions and the summaries of the affected parts. The
// previously recorded answer for the target question, if any, is returned in
// the prompt for UI pre-fill.
func (e *Engine) GoBack(ctx context.Context, state *SessionState, targetIndex int) (*Prompt, error) {
	if state.Status != StatusInProgress && state.Status != StatusAwaitingSummaryApproval {
		return nil, NewInvalidTransitionError(fmt.Sprintf("cannot go back in status %s", state.Status))
	}
	if targetIndex < 0 || targetIndex >= state.CurrentQuestionIndex {
		return nil, NewValidationError("go-back target must be an earlier question")
	}
	target, err := e.catalog.QuestionAt(targetIndex)
	if err != nil {
		return nil, err
	}

	var previous *Answer
	if prior, ok := state.UserAnswer(target.ID); ok {
		p := prior
		previous = &p
	}

	for id, ans := range state.Answers {
		idx := e.catalog.IndexOf(id)
		if idx < 0 && ans.SourceQuestionID != "" {
			idx = e.catalog.IndexOf(ans.SourceQuestionID)
		}
		if idx >= targetIndex {
			delete(state.Answers, id)
		}
	}
	targetPart := target.PartNumber
	for part := targetPart; part <= e.catalog.PartCount(); part++ {
		delete(state.Summaries, PartKey(part))
	}

	state.CurrentQuestionIndex = targetIndex
	state.CurrentPart = targetPart
	state.AnsweredCount = targetIndex
	state.Status = StatusInProgress
	state.CurrentQuestion = target
	state.touch()

	prompt := e.questionPrompt(state, target)
	prompt.PreviousAnswer = previous
	return prompt, nil
}

// MergeOCRAnswers records OCR-extracted field candidates as answers under
// their own IDs. An OCR value never overwrites a user-entered answer for the
// same ID; it does replace an earlier OCR value. Returns how many fields
// were merged.
func (e *Engine) MergeOCRAnswers(state *SessionState, sourceQuestionID string, fields map[string]string) int {
	merged := 0
	now := time.Now().UTC()
	for id, value := range fields {
		if value == "" {
			continue
		}
		if existing, ok := state.Answers[id]; ok && existing.Source == AnswerSourceUser {
			continue
		}
		state.Answers[id] = Answer{
			QuestionID:       id,
			Value:            NewScalarValue(value),
			AnsweredAt:       now,
			Source:           AnswerSourceOCR,
			SourceQuestionID: sourceQuestionID,
		}
		merged++
	}
	if merged > 0 {
		state.touch()
	}
	return merged
}

// CurrentPrompt reconstructs the prompt the engine suspended with, so a
// resumed session re-emits the identical pending step.
func (e *Engine) CurrentPrompt(state *SessionState) (*Prompt, error) {
	switch state.Status {
	case StatusInProgress:
		if state.CurrentQuestion == nil {
			return nil, NewInvalidTransitionError("session has no pending question")
		}
		prompt := e.questionPrompt(state, state.CurrentQuestion)
		if prior, ok := state.UserAnswer(state.CurrentQuestion.ID); ok {
			p := prior
			prompt.PreviousAnswer = &p
		}
		return prompt, nil
	case StatusAwaitingSummaryApproval:
		summary, ok := state.Summaries[PartKey(state.CurrentPart)]
		if !ok {
			return nil, NewInvalidTransitionError(fmt.Sprintf("summary for part %d is missing", state.CurrentPart))
		}
		return e.summaryPrompt(state, &summary), nil
	case StatusAwaitingTemplateSelection:
		return e.templatePrompt(state), nil
	}
	return nil, NewInvalidTransitionError(fmt.Sprintf("session in status %s is not suspended on a prompt", state.Status))
}

// enterSummaryApproval generates (or regenerates) the summary for a part and
// suspends waiting for approval. Generator failures degrade to the
// deterministic local fallback; the workflow never blocks on the generator.
func (e *Engine) enterSummaryApproval(ctx context.Context, state *SessionState, part int, feedback string) (*Prompt, error) {
	answers, questions := e.collectPartAnswers(state, part)

	genCtx, cancel := context.WithTimeout(ctx, e.generatorTimeout)
	defer cancel()

	content, err := e.summaries.Generate(genCtx, SummaryRequest{
		PartNumber: part,
		PartName:   e.catalog.PartName(part),
		Answers:    answers,
		Questions:  questions,
		Feedback:   feedback,
	})
	fallback := false
	if err != nil || content == "" {
		if err != nil {
			e.logger.Warn("summary generator failed, using fallback",
				zap.String("session_id", state.SessionID.String()),
				zap.Int("part", part),
				zap.Error(err))
		}
		content = FallbackSummary(e.catalog, state.Answers, part)
		fallback = true
	}

	summary := PartSummary{
		PartNumber:  part,
		Content:     content,
		Approved:    false,
		Feedback:    feedback,
		Fallback:    fallback,
		GeneratedAt: time.Now().UTC(),
	}
	state.Summaries[PartKey(part)] = summary
	state.Status = StatusAwaitingSummaryApproval
	state.CurrentPart = part
	state.CurrentQuestion = nil
	state.touch()

	return e.summaryPrompt(state, &summary), nil
}

// fillTemplate fills one template, bounding the generator call and isolating
// failures to the template's own result entry.
func (e *Engine) fillTemplate(ctx context.Context, state *SessionState, code string) GeneratedDocument {
	now := time.Now().UTC()
	option, known := TemplateOptionByCode(code)
	if !known {
		return GeneratedDocument{
			TemplateCode: code,
			Success:      false,
			Error:        fmt.Sprintf("unknown template code %s", code),
			GeneratedAt:  now,
		}
	}

	fillCtx, cancel := context.WithTimeout(ctx, e.generatorTimeout)
	defer cancel()

	result := e.documents.Fill(fillCtx, DocumentFillRequest{
		SessionID:    state.SessionID.String(),
		UserID:       state.UserID.String(),
		TemplateCode: code,
		Answers:      state.Answers,
		OCRData:      e.ocrData(state),
	})
	doc := GeneratedDocument{
		TemplateCode: code,
		TemplateName: option.Name,
		Success:      result.Success,
		DocumentID:   result.DocumentID,
		Filename:     result.Filename,
		Error:        result.Error,
		GeneratedAt:  now,
	}
	if !result.Success {
		e.logger.Warn("document generation failed",
			zap.String("session_id", state.SessionID.String()),
			zap.String("template_code", code),
			zap.String("error", result.Error))
	}
	return doc
}

// ocrData extracts OCR-sourced answers as a flat field map
func (e *Engine) ocrData(state *SessionState) map[string]string {
	data := make(map[string]string)
	for id, ans := range state.Answers {
		if ans.Source != AnswerSourceOCR {
			continue
		}
		if v, ok := ans.Value.AsScalar(); ok {
			data[id] = v
		}
	}
	return data
}

// collectPartAnswers gathers the answers belonging to one part, including
// OCR answers derived from that part's upload questions.
func (e *Engine) collectPartAnswers(state *SessionState, part int) (map[string]Answer, map[string]Question) {
	answers := make(map[string]Answer)
	questions := make(map[string]Question)
	for id, ans := range state.Answers {
		idx := e.catalog.IndexOf(id)
		if idx < 0 && ans.SourceQuestionID != "" {
			idx = e.catalog.IndexOf(ans.SourceQuestionID)
		}
		if idx < 0 {
			continue
		}
		q, err := e.catalog.QuestionAt(idx)
		if err != nil || q.PartNumber != part {
			continue
		}
		answers[id] = ans
		questions[id] = *q
	}
	return answers, questions
}

func (e *Engine) questionPrompt(state *SessionState, q *Question) *Prompt {
	return &Prompt{
		Type:      PromptTypeQuestion,
		Question:  q,
		Progress:  state.CurrentProgress(),
		PartInfo:  e.partInfo(state),
		CanGoBack: state.CurrentQuestionIndex > 0,
	}
}

func (e *Engine) summaryPrompt(state *SessionState, summary *PartSummary) *Prompt {
	return &Prompt{
		Type:      PromptTypeSummaryValidation,
		Summary:   summary,
		Progress:  state.CurrentProgress(),
		PartInfo:  e.partInfo(state),
		CanGoBack: state.CurrentQuestionIndex > 0,
	}
}

func (e *Engine) templatePrompt(state *SessionState) *Prompt {
	return &Prompt{
		Type:      PromptTypeTemplateSelection,
		Templates: e.recommender(state.Answers),
		Progress:  state.CurrentProgress(),
		PartInfo:  e.partInfo(state),
		CanGoBack: false,
	}
}

func (e *Engine) partInfo(state *SessionState) PartInfo {
	return PartInfo{
		Current: state.CurrentPart,
		Total:   e.catalog.PartCount(),
		Name:    e.catalog.PartName(state.CurrentPart),
	}
}

// validateAnswer checks an answer against the question type and constraints
func validateAnswer(q *Question, in AnswerInput) error {
	if q.Required && in.Value.IsEmpty() && in.File == nil {
		return NewValidationError(fmt.Sprintf("question %s requires an answer", q.ID))
	}
	if in.Value.IsEmpty() && in.File != nil {
		// Upload-only submissions carry the value via the file descriptor.
		return nil
	}
	if !q.Required && in.Value.IsEmpty() {
		return nil
	}

	switch q.Type {
	case QuestionTypeSingleChoice:
		v, ok := in.Value.AsScalar()
		if !ok {
			return NewValidationError(fmt.Sprintf("question %s expects a single choice", q.ID))
		}
		if !q.HasOption(v) {
			return NewValidationError(fmt.Sprintf("%q is not an option for question %s", v, q.ID))
		}
	case QuestionTypeMultiChoice:
		items, ok := in.Value.AsList()
		if !ok {
			return NewValidationError(fmt.Sprintf("question %s expects a list of choices", q.ID))
		}
		for _, item := range items {
			if !q.HasOption(item) {
				return NewValidationError(fmt.Sprintf("%q is not an option for question %s", item, q.ID))
			}
		}
	case QuestionTypeFreeText:
		if _, ok := in.Value.AsScalar(); !ok {
			return NewValidationError(fmt.Sprintf("question %s expects free text", q.ID))
		}
	case QuestionTypeForm:
		form, ok := in.Value.AsForm()
		if !ok {
			return NewValidationError(fmt.Sprintf("question %s expects form fields", q.ID))
		}
		for _, field := range q.Fields {
			if field.Required && form[field.Key] == "" {
				return NewValidationError(fmt.Sprintf("form field %s of question %s is required", field.Key, q.ID))
			}
		}
	case QuestionTypeFileUpload:
		if _, ok := in.Value.AsScalar(); !ok {
			return NewValidationError(fmt.Sprintf("question %s expects a file reference", q.ID))
		}
	}
	return nil
}
