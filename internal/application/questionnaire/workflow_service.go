package questionnaire

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/legalintake/backend/internal/domain/legalcase"
	"github.com/legalintake/backend/internal/domain/questionnaire"
	"github.com/legalintake/backend/internal/infrastructure/telemetry"
)

// DefaultQuestionnaireType is used when a start request does not name one
const DefaultQuestionnaireType = "traffic_accident"

// FileResolver resolves an uploaded file ID to its stored descriptor and
// any fields OCR extracted from it, enforcing ownership.
type FileResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, fileID string) (*questionnaire.FileDescriptor, map[string]string, error)
}

// WorkflowService drives questionnaire sessions through the workflow engine.
// Every transition runs under the session's lock and ends with an atomic
// checkpoint of the new state plus the mirrored session record, so a crash
// between transitions never loses an accepted input.
type WorkflowService struct {
	engine      *questionnaire.Engine
	catalog     questionnaire.Catalog
	checkpoints questionnaire.CheckpointStore
	sessions    questionnaire.SessionRepository
	submissions questionnaire.SubmissionRepository
	cases       legalcase.Repository
	locker      questionnaire.SessionLocker
	files       FileResolver
	sessionTTL  time.Duration
	logger      *zap.Logger
}

// WorkflowServiceOption configures optional service collaborators
type WorkflowServiceOption func(*WorkflowService)

// WithSessionTTL overrides how long an idle session stays resumable
func WithSessionTTL(ttl time.Duration) WorkflowServiceOption {
	return func(s *WorkflowService) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithCaseRepository enables case creation for sessions that request a lawyer
func WithCaseRepository(repo legalcase.Repository) WorkflowServiceOption {
	return func(s *WorkflowService) { s.cases = repo }
}

// WithFileResolver enables answers that reference uploaded files
func WithFileResolver(files FileResolver) WorkflowServiceOption {
	return func(s *WorkflowService) { s.files = files }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) WorkflowServiceOption {
	return func(s *WorkflowService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewWorkflowService creates a WorkflowService
func NewWorkflowService(
	engine *questionnaire.Engine,
	catalog questionnaire.Catalog,
	checkpoints questionnaire.CheckpointStore,
	sessions questionnaire.SessionRepository,
	submissions questionnaire.SubmissionRepository,
	locker questionnaire.SessionLocker,
	opts ...WorkflowServiceOption,
) *WorkflowService {
	s := &WorkflowService{
		engine:      engine,
		catalog:     catalog,
		checkpoints: checkpoints,
		sessions:    sessions,
		submissions: submissions,
		locker:      locker,
		sessionTTL:  questionnaire.DefaultSessionTTL,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession creates a fresh session and returns the first question
func (s *WorkflowService) StartSession(ctx context.Context, userID uuid.UUID, req StartSessionRequest) (*StepResponse, error) {
	questionnaireType := req.QuestionnaireType
	if questionnaireType == "" {
		questionnaireType = DefaultQuestionnaireType
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "workflow", "start_session",
		telemetry.WithAttribute(telemetry.SpanAttrUserID, userID.String()))
	defer span.End()

	sessionID := uuid.New()
	state := questionnaire.NewSessionState(sessionID, userID, questionnaireType, s.catalog.QuestionCount())
	prompt, err := s.engine.Start(ctx, state)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	session := questionnaire.NewSession(sessionID, userID, questionnaireType, s.catalog.QuestionCount(), s.sessionTTL)
	if err := s.sessions.Create(ctx, session); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.checkpoints.Save(ctx, state); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrSessionID, sessionID.String())

	s.logger.Info("questionnaire session started",
		zap.String("session_id", sessionID.String()),
		zap.String("user_id", userID.String()),
		zap.String("questionnaire_type", questionnaireType))

	return stepResponse(sessionID, state.Status, prompt, nil), nil
}

// SubmitAnswer answers the pending question and advances the session
func (s *WorkflowService) SubmitAnswer(ctx context.Context, userID, sessionID uuid.UUID, req SubmitAnswerRequest) (*StepResponse, error) {
	return s.transition(ctx, "submit_answer", userID, sessionID, func(session *questionnaire.Session, state *questionnaire.SessionState) (*StepResponse, error) {
		in := questionnaire.AnswerInput{QuestionID: req.QuestionID}
		if len(req.Answer) > 0 {
			value, err := questionnaire.ParseAnswerValue(req.Answer)
			if err != nil {
				return nil, questionnaire.NewValidationError(err.Error())
			}
			in.Value = value
		}
		if req.FileID != "" {
			if s.files == nil {
				return nil, questionnaire.NewValidationError("file answers are not supported")
			}
			file, ocrFields, err := s.files.Resolve(ctx, userID, req.FileID)
			if err != nil {
				return nil, err
			}
			in.File = file
			in.OCRFields = ocrFields
		}

		result, err := s.engine.SubmitAnswer(ctx, state, in)
		if err != nil {
			return nil, err
		}
		return stepResponse(sessionID, state.Status, result.Prompt, result.Final), nil
	})
}

// ValidateSummary resolves a pending part summary approval
func (s *WorkflowService) ValidateSummary(ctx context.Context, userID, sessionID uuid.UUID, req ValidateSummaryRequest) (*StepResponse, error) {
	return s.transition(ctx, "validate_summary", userID, sessionID, func(session *questionnaire.Session, state *questionnaire.SessionState) (*StepResponse, error) {
		result, err := s.engine.ValidateSummary(ctx, state, questionnaire.SummaryDecision{
			Approved: req.Approved,
			Feedback: req.Feedback,
		})
		if err != nil {
			return nil, err
		}
		return stepResponse(sessionID, state.Status, result.Prompt, result.Final), nil
	})
}

// SelectTemplates resolves the pending template selection and terminates the
// interview. The submission record and, when requested, the legal case are
// created here exactly once.
func (s *WorkflowService) SelectTemplates(ctx context.Context, userID, sessionID uuid.UUID, req SelectTemplatesRequest) (*StepResponse, error) {
	return s.transition(ctx, "select_templates", userID, sessionID, func(session *questionnaire.Session, state *questionnaire.SessionState) (*StepResponse, error) {
		if err := s.ensureCase(ctx, state); err != nil {
			return nil, err
		}
		final, err := s.engine.SelectTemplates(ctx, state, req.TemplateCodes)
		if err != nil {
			return nil, err
		}
		submission, err := s.ensureSubmission(ctx, state, "")
		if err != nil {
			return nil, err
		}
		final.SubmissionID = &submission.SubmissionID
		final.CaseUUID = state.CreatedCaseUUID
		return stepResponse(sessionID, state.Status, nil, final), nil
	})
}

// GoBack rewinds the session to an earlier question
func (s *WorkflowService) GoBack(ctx context.Context, userID, sessionID uuid.UUID, req GoBackRequest) (*StepResponse, error) {
	return s.transition(ctx, "go_back", userID, sessionID, func(session *questionnaire.Session, state *questionnaire.SessionState) (*StepResponse, error) {
		index := s.catalog.IndexOf(req.TargetQuestionID)
		if index < 0 {
			return nil, questionnaire.NewValidationError(fmt.Sprintf("unknown question %s", req.TargetQuestionID))
		}
		prompt, err := s.engine.GoBack(ctx, state, index)
		if err != nil {
			return nil, err
		}
		return stepResponse(sessionID, state.Status, prompt, nil), nil
	})
}

// MergeOCR records OCR-extracted field candidates for a running session
func (s *WorkflowService) MergeOCR(ctx context.Context, userID, sessionID uuid.UUID, req MergeOCRRequest) (*StepResponse, error) {
	return s.transition(ctx, "merge_ocr", userID, sessionID, func(session *questionnaire.Session, state *questionnaire.SessionState) (*StepResponse, error) {
		merged := s.engine.MergeOCRAnswers(state, req.SourceQuestionID, req.Fields)
		s.logger.Info("ocr answers merged",
			zap.String("session_id", sessionID.String()),
			zap.Int("merged", merged))
		prompt, err := s.engine.CurrentPrompt(state)
		if err != nil {
			return nil, err
		}
		return stepResponse(sessionID, state.Status, prompt, nil), nil
	})
}

// Finalize marks a session as finalized, filling any additionally requested
// templates first. A session that is still collecting answers or waiting on
// a summary is completed as-is, snapshotting the answers given so far.
// Finalizing twice fails with ErrSessionAlreadyFinalized; the submission is
// reused if it already exists.
func (s *WorkflowService) Finalize(ctx context.Context, userID, sessionID uuid.UUID, req FinalizeRequest) (*StepResponse, error) {
	return s.transition(ctx, "finalize", userID, sessionID, func(session *questionnaire.Session, state *questionnaire.SessionState) (*StepResponse, error) {
		var final *questionnaire.FinalResult
		switch {
		case state.Status == questionnaire.StatusAwaitingTemplateSelection:
			if err := s.ensureCase(ctx, state); err != nil {
				return nil, err
			}
			f, err := s.engine.SelectTemplates(ctx, state, req.TemplateCodes)
			if err != nil {
				return nil, err
			}
			final = f
		case state.Status == questionnaire.StatusInProgress || state.Status == questionnaire.StatusAwaitingSummaryApproval:
			if err := s.ensureCase(ctx, state); err != nil {
				return nil, err
			}
			f, err := s.engine.Complete(ctx, state, req.TemplateCodes)
			if err != nil {
				return nil, err
			}
			final = f
		case state.Status.IsTerminal() && state.Status != questionnaire.StatusExpired:
			if len(req.TemplateCodes) > 0 {
				s.engine.GenerateDocuments(ctx, state, req.TemplateCodes)
			}
			final = &questionnaire.FinalResult{
				Status:             state.Status,
				Summaries:          state.Summaries,
				GeneratedDocuments: state.GeneratedDocuments,
				CaseUUID:           state.CreatedCaseUUID,
			}
		default:
			return nil, questionnaire.NewInvalidTransitionError(fmt.Sprintf("session in status %s cannot be finalized", state.Status))
		}

		if err := session.MarkFinalized(); err != nil {
			return nil, err
		}
		submission, err := s.ensureSubmission(ctx, state, req.Title)
		if err != nil {
			return nil, err
		}
		final.SubmissionID = &submission.SubmissionID
		final.CaseUUID = state.CreatedCaseUUID

		s.logger.Info("questionnaire session finalized",
			zap.String("session_id", sessionID.String()),
			zap.String("submission_id", submission.SubmissionID.String()))

		return stepResponse(sessionID, state.Status, nil, final), nil
	})
}

// Resume re-emits the prompt a suspended session is waiting on, without
// mutating state. A terminal session yields its final result instead.
func (s *WorkflowService) Resume(ctx context.Context, userID, sessionID uuid.UUID) (*StepResponse, error) {
	_, state, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Status.IsTerminal() {
		final := &questionnaire.FinalResult{
			Status:             state.Status,
			Summaries:          state.Summaries,
			GeneratedDocuments: state.GeneratedDocuments,
			CaseUUID:           state.CreatedCaseUUID,
		}
		if submission, err := s.submissions.FindBySessionID(ctx, sessionID); err == nil {
			final.SubmissionID = &submission.SubmissionID
		}
		return stepResponse(sessionID, state.Status, nil, final), nil
	}
	prompt, err := s.engine.CurrentPrompt(state)
	if err != nil {
		return nil, err
	}
	return stepResponse(sessionID, state.Status, prompt, nil), nil
}

// GetSession returns the session record for the owner
func (s *WorkflowService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*SessionResponse, error) {
	session, err := s.sessions.FindByIDForUser(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	resp := ToSessionResponse(session)
	return &resp, nil
}

// ListIncomplete returns the user's resumable sessions
func (s *WorkflowService) ListIncomplete(ctx context.Context, userID uuid.UUID) ([]SessionResponse, error) {
	sessions, err := s.sessions.FindIncompleteByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToSessionResponses(sessions), nil
}

// DeleteSession removes a session and its checkpoint
func (s *WorkflowService) DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.sessions.FindByIDForUser(ctx, sessionID, userID); err != nil {
		return err
	}
	if err := s.checkpoints.Delete(ctx, sessionID); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, sessionID)
}

// CompletionData returns the finalized snapshot of a session
func (s *WorkflowService) CompletionData(ctx context.Context, userID, sessionID uuid.UUID) (*CompletionDataResponse, error) {
	if _, err := s.sessions.FindByIDForUser(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	submission, err := s.submissions.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state, err := s.checkpoints.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &CompletionDataResponse{
		SubmissionID:       submission.SubmissionID,
		SessionID:          submission.SessionID,
		Title:              submission.Title,
		QuestionnaireType:  submission.QuestionnaireType,
		Responses:          submission.Responses,
		Summaries:          submission.Summaries,
		GeneratedDocuments: state.GeneratedDocuments,
		ShouldCreateCase:   submission.ShouldCreateCase,
		CaseUUID:           submission.CaseUUID,
		CompletedAt:        submission.CompletedAt,
	}, nil
}

// ExpireStale flips idle sessions past their expiry cutoff to expired
func (s *WorkflowService) ExpireStale(ctx context.Context) (int64, error) {
	count, err := s.sessions.MarkExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("expired stale questionnaire sessions", zap.Int64("count", count))
	}
	return count, nil
}

// transition runs one workflow step under the session lock. Recoverable
// engine errors abort before the checkpoint, leaving the previous state
// intact; on success the new state and mirrored record are saved atomically.
func (s *WorkflowService) transition(ctx context.Context, step string, userID, sessionID uuid.UUID, fn func(*questionnaire.Session, *questionnaire.SessionState) (*StepResponse, error)) (*StepResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "workflow", step,
		telemetry.WithAttribute(telemetry.SpanAttrSessionID, sessionID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrUserID, userID.String()))
	defer span.End()

	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	session, state, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp, err := fn(session, state)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	session.SyncFromState(state)
	if err := s.checkpoints.SaveWithSession(ctx, state, session); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrSessionStatus, string(state.Status))
	return resp, nil
}

// loadOwned fetches the session record and its checkpoint, enforcing
// ownership and expiry. An expired session is flipped to expired on access.
func (s *WorkflowService) loadOwned(ctx context.Context, userID, sessionID uuid.UUID) (*questionnaire.Session, *questionnaire.SessionState, error) {
	session, err := s.sessions.FindByIDForUser(ctx, sessionID, userID)
	if err != nil {
		return nil, nil, err
	}
	if session.Status == questionnaire.StatusExpired {
		return nil, nil, questionnaire.ErrSessionExpired
	}

	state, err := s.checkpoints.Load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	if !session.Status.IsTerminal() && session.Expired(time.Now().UTC()) {
		state.Status = questionnaire.StatusExpired
		session.SyncFromState(state)
		if err := s.checkpoints.SaveWithSession(ctx, state, session); err != nil {
			s.logger.Warn("failed to persist session expiry",
				zap.String("session_id", sessionID.String()), zap.Error(err))
		}
		return nil, nil, questionnaire.ErrSessionExpired
	}
	return session, state, nil
}

// ensureSubmission returns the session's submission, creating it on first use
func (s *WorkflowService) ensureSubmission(ctx context.Context, state *questionnaire.SessionState, title string) (*questionnaire.Submission, error) {
	if existing, err := s.submissions.FindBySessionID(ctx, state.SessionID); err == nil {
		return existing, nil
	}
	if title == "" {
		title = fmt.Sprintf("交通事故咨询 %s", time.Now().Format("2006-01-02"))
	}
	submission := questionnaire.NewSubmission(state, title)
	if err := s.submissions.CreateOnce(ctx, submission); err != nil {
		if existing, findErr := s.submissions.FindBySessionID(ctx, state.SessionID); findErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return submission, nil
}

// ensureCase creates the legal case once for sessions that requested a lawyer
func (s *WorkflowService) ensureCase(ctx context.Context, state *questionnaire.SessionState) error {
	if !state.ShouldCreateCase || state.CreatedCaseUUID != nil || s.cases == nil {
		return nil
	}

	description := ""
	if a, ok := state.AnswerFor("q6"); ok {
		description = a.Value.String()
	}
	c, err := legalcase.NewCase(state.UserID, "交通事故纠纷", description, state.QuestionnaireType, legalcase.PriorityMedium)
	if err != nil {
		return err
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return err
	}
	state.CreatedCaseUUID = &c.CaseUUID

	s.logger.Info("legal case created from questionnaire",
		zap.String("session_id", state.SessionID.String()),
		zap.String("case_uuid", c.CaseUUID.String()))
	return nil
}
