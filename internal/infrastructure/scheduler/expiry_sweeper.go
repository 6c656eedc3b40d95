package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/legalintake/backend/internal/infrastructure/config"
)

// ErrSweeperNotRunning is returned when a sweep is requested on a stopped sweeper
var ErrSweeperNotRunning = errors.New("expiry sweeper is not running")

// SessionExpirer marks stale questionnaire sessions expired and reports how
// many were affected
type SessionExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// ExpirySweeper periodically expires sessions whose 24 hour window has
// elapsed, so abandoned sessions do not linger as resumable.
type ExpirySweeper struct {
	interval   time.Duration
	jobTimeout time.Duration
	expirer    SessionExpirer
	logger     *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewExpirySweeper creates an expiry sweeper from configuration
func NewExpirySweeper(cfg config.SchedulerConfig, expirer SessionExpirer, logger *zap.Logger) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.ExpirySweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = time.Minute
	}
	return &ExpirySweeper{
		interval:   interval,
		jobTimeout: jobTimeout,
		expirer:    expirer,
		logger:     logger,
	}
}

// Start begins the periodic sweep loop
func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Session expiry sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("job_timeout", s.jobTimeout),
	)

	return nil
}

// Stop gracefully stops the sweeper
func (s *ExpirySweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Session expiry sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Session expiry sweeper stop timed out")
		return ctx.Err()
	}
}

func (s *ExpirySweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run once on startup so a restart does not delay the first sweep
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	expired, err := s.expirer.ExpireStale(sweepCtx)
	if err != nil {
		s.logger.Error("Session expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("Expired stale sessions", zap.Int64("count", expired))
	}
}

// SweepNow runs a single sweep outside the periodic loop
func (s *ExpirySweeper) SweepNow(ctx context.Context) (int64, error) {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()
	if !running {
		return 0, ErrSweeperNotRunning
	}

	sweepCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()
	return s.expirer.ExpireStale(sweepCtx)
}
