// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// IntakeMetrics tracks questionnaire workflow activity: session lifecycle,
// answer throughput, summary generation, and document output.
type IntakeMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	sessionStartedTotal   *Counter
	sessionFinalizedTotal *Counter
	sessionExpiredTotal   *Counter
	answerSubmittedTotal  *Counter
	summaryGeneratedTotal *Counter
	documentFilledTotal   *Counter

	// Gauge metrics (point-in-time values)
	activeSessionCount *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	sessionProvider SessionMetricsProvider
}

// SessionMetricsProvider supplies point-in-time session counts for periodic
// gauge collection, without coupling the telemetry layer to the session
// repository.
type SessionMetricsProvider interface {
	// CountActiveByStatus returns the number of unexpired sessions per status
	CountActiveByStatus(ctx context.Context) (map[string]int64, error)
}

// IntakeMetricsConfig holds configuration for intake metrics.
type IntakeMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	SessionProvider SessionMetricsProvider
}

// NewIntakeMetrics creates a new IntakeMetrics instance.
func NewIntakeMetrics(cfg IntakeMetricsConfig) (*IntakeMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	im := &IntakeMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		sessionProvider: cfg.SessionProvider,
	}

	var err error

	im.sessionStartedTotal, err = NewCounter(
		cfg.Meter,
		"intake_session_started_total",
		"Total number of questionnaire sessions started",
		"{sessions}",
	)
	if err != nil {
		return nil, err
	}

	im.sessionFinalizedTotal, err = NewCounter(
		cfg.Meter,
		"intake_session_finalized_total",
		"Total number of sessions finalized into submissions",
		"{sessions}",
	)
	if err != nil {
		return nil, err
	}

	im.sessionExpiredTotal, err = NewCounter(
		cfg.Meter,
		"intake_session_expired_total",
		"Total number of sessions expired by the sweeper",
		"{sessions}",
	)
	if err != nil {
		return nil, err
	}

	im.answerSubmittedTotal, err = NewCounter(
		cfg.Meter,
		"intake_answer_submitted_total",
		"Total number of answers accepted",
		"{answers}",
	)
	if err != nil {
		return nil, err
	}

	im.summaryGeneratedTotal, err = NewCounter(
		cfg.Meter,
		"intake_summary_generated_total",
		"Total number of part summaries generated",
		"{summaries}",
	)
	if err != nil {
		return nil, err
	}

	im.documentFilledTotal, err = NewCounter(
		cfg.Meter,
		"intake_document_filled_total",
		"Total number of document template fills attempted",
		"{documents}",
	)
	if err != nil {
		return nil, err
	}

	im.activeSessionCount, err = NewGauge(
		cfg.Meter,
		"intake_active_session_count",
		"Current number of unexpired sessions per status",
		"{sessions}",
	)
	if err != nil {
		return nil, err
	}

	return im, nil
}

// =============================================================================
// Session Metrics
// =============================================================================

// SummarySource labels whether a part summary came from the LLM or the
// deterministic fallback.
type SummarySource string

const (
	SummarySourceLLM      SummarySource = "llm"
	SummarySourceFallback SummarySource = "fallback"
)

// FillResult labels the outcome of a document template fill.
type FillResult string

const (
	FillResultSuccess FillResult = "success"
	FillResultFailed  FillResult = "failed"
)

// RecordSessionStarted records a new questionnaire session.
func (im *IntakeMetrics) RecordSessionStarted(ctx context.Context) {
	im.sessionStartedTotal.Inc(ctx)
}

// RecordSessionFinalized records a session submitted for document generation.
func (im *IntakeMetrics) RecordSessionFinalized(ctx context.Context) {
	im.sessionFinalizedTotal.Inc(ctx)
}

// RecordSessionsExpired records sessions swept as expired.
func (im *IntakeMetrics) RecordSessionsExpired(ctx context.Context, count int64) {
	if count <= 0 {
		return
	}
	im.sessionExpiredTotal.Add(ctx, count)
}

// RecordAnswerSubmitted records an accepted answer for a part.
func (im *IntakeMetrics) RecordAnswerSubmitted(ctx context.Context, partNumber int) {
	im.answerSubmittedTotal.Inc(ctx,
		AttrPartNumber.Int(partNumber),
	)
}

// RecordSummaryGenerated records a part summary and its source.
func (im *IntakeMetrics) RecordSummaryGenerated(ctx context.Context, partNumber int, source SummarySource) {
	im.summaryGeneratedTotal.Inc(ctx,
		AttrPartNumber.Int(partNumber),
		AttrSummarySource.String(string(source)),
	)
}

// RecordDocumentFilled records a template fill attempt and its outcome.
func (im *IntakeMetrics) RecordDocumentFilled(ctx context.Context, templateCode string, result FillResult) {
	im.documentFilledTotal.Inc(ctx,
		AttrTemplateCode.String(templateCode),
		AttrResult.String(string(result)),
	)
}

// RecordActiveSessions records the current session count for one status.
func (im *IntakeMetrics) RecordActiveSessions(ctx context.Context, status string, count int64) {
	im.activeSessionCount.Record(ctx, count,
		AttrSessionStatus.String(status),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// This is non-blocking - use Stop() to stop collection.
func (im *IntakeMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	im.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go im.runPeriodicCollection(ctx, interval)
	})
}

func (im *IntakeMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	im.collectSessionMetrics(ctx)

	for {
		select {
		case <-im.stopChan:
			im.logger.Info("Stopping periodic intake metrics collection")
			return
		case <-ctx.Done():
			im.logger.Info("Context cancelled, stopping periodic intake metrics collection")
			return
		case <-ticker.C:
			im.collectSessionMetrics(ctx)
		}
	}
}

func (im *IntakeMetrics) collectSessionMetrics(ctx context.Context) {
	if im.sessionProvider == nil {
		im.logger.Debug("No session provider configured, skipping session metrics collection")
		return
	}

	byStatus, err := im.sessionProvider.CountActiveByStatus(ctx)
	if err != nil {
		im.logger.Error("Failed to collect session counts", zap.Error(err))
		return
	}

	for status, count := range byStatus {
		im.RecordActiveSessions(ctx, status, count)
	}
}

// Stop stops the periodic collection.
func (im *IntakeMetrics) Stop() {
	im.stopOnce.Do(func() {
		close(im.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewIntakeMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
