package telemetry_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/legalintake/backend/internal/infrastructure/telemetry"
)

type stubSessionProvider struct {
	calls  atomic.Int64
	counts map[string]int64
	err    error
}

func (s *stubSessionProvider) CountActiveByStatus(_ context.Context) (map[string]int64, error) {
	s.calls.Add(1)
	return s.counts, s.err
}

func newTestIntakeMetrics(t *testing.T, provider telemetry.SessionMetricsProvider) *telemetry.IntakeMetrics {
	t.Helper()

	im, err := telemetry.NewIntakeMetrics(telemetry.IntakeMetricsConfig{
		Meter:           noop.NewMeterProvider().Meter("test"),
		Logger:          zap.NewNop(),
		SessionProvider: provider,
	})
	require.NoError(t, err)
	return im
}

func TestNewIntakeMetrics_RequiresMeter(t *testing.T) {
	_, err := telemetry.NewIntakeMetrics(telemetry.IntakeMetricsConfig{})
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestIntakeMetrics_RecordCounters(t *testing.T) {
	im := newTestIntakeMetrics(t, nil)
	ctx := context.Background()

	// Recording must not panic on any instrument
	im.RecordSessionStarted(ctx)
	im.RecordSessionFinalized(ctx)
	im.RecordSessionsExpired(ctx, 3)
	im.RecordSessionsExpired(ctx, 0)
	im.RecordAnswerSubmitted(ctx, 1)
	im.RecordSummaryGenerated(ctx, 2, telemetry.SummarySourceLLM)
	im.RecordSummaryGenerated(ctx, 2, telemetry.SummarySourceFallback)
	im.RecordDocumentFilled(ctx, "035", telemetry.FillResultSuccess)
	im.RecordDocumentFilled(ctx, "008", telemetry.FillResultFailed)
	im.RecordActiveSessions(ctx, "in_progress", 12)
}

func TestIntakeMetrics_PeriodicCollection(t *testing.T) {
	provider := &stubSessionProvider{
		counts: map[string]int64{"in_progress": 4, "suspended": 1},
	}
	im := newTestIntakeMetrics(t, provider)
	defer im.Stop()

	im.StartPeriodicCollection(context.Background(), 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return provider.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestIntakeMetrics_PeriodicCollectionSurvivesProviderErrors(t *testing.T) {
	provider := &stubSessionProvider{err: errors.New("database down")}
	im := newTestIntakeMetrics(t, provider)
	defer im.Stop()

	im.StartPeriodicCollection(context.Background(), 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return provider.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestIntakeMetrics_StopIsIdempotent(t *testing.T) {
	im := newTestIntakeMetrics(t, &stubSessionProvider{})
	im.StartPeriodicCollection(context.Background(), time.Hour)

	im.Stop()
	im.Stop()
}
