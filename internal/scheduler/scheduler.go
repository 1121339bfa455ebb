package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/respectgame/api/internal/model"
)

type SessionLister interface {
	SessionIDsByStatus(ctx context.Context, statuses ...model.SessionStatus) ([]int64, error)
}

// Progressor is implemented by consensus.Service.
type Progressor interface {
	Progress(ctx context.Context, sessionID int64) (model.SessionStatus, error)
	ReconcileSubmissions(ctx context.Context, sessionID int64, dryRun bool) (from, to model.SessionStatus, err error)
}

// SessionScheduler periodically runs round progression on sessions that are
// still voting and reconciles the submission status of settled ones.
type SessionScheduler struct {
	sessions SessionLister
	svc      Progressor
	interval time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	running    bool
	stopChan   chan struct{}
	sweeps     int64
	advanced   int64
	reconciled int64
	lastSweep  time.Time
	lastError  string
}

type SchedulerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

func NewSessionScheduler(sessions SessionLister, svc Progressor, cfg SchedulerConfig) *SessionScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SessionScheduler{
		sessions: sessions,
		svc:      svc,
		interval: cfg.Interval,
		logger:   cfg.Logger.With("component", "scheduler"),
	}
}

// Start blocks until ctx is cancelled or Stop is called. A stopped scheduler
// can be started again.
func (s *SessionScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	s.logger.Info("starting", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("context cancelled, stopping")
			s.markStopped()
			return
		case <-stop:
			s.logger.Info("stop signal received")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *SessionScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		close(s.stopChan)
		s.running = false
	}
}

func (s *SessionScheduler) markStopped() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Sweep runs one pass over voting and settled sessions.
func (s *SessionScheduler) Sweep(ctx context.Context) {
	var advanced, reconciled int64
	var lastErr error

	voting, err := s.sessions.SessionIDsByStatus(ctx, model.SessionStatusVotingInProgress)
	if err != nil {
		lastErr = err
		s.logger.Error("list voting sessions", "error", err)
	}
	for _, id := range voting {
		if ctx.Err() != nil {
			break
		}
		status, err := s.svc.Progress(ctx, id)
		if err != nil {
			lastErr = err
			s.logger.Warn("progress failed", "session_id", id, "error", err)
			continue
		}
		if status != model.SessionStatusVotingInProgress {
			advanced++
			s.logger.Info("session advanced", "session_id", id, "status", status.String())
		}
	}

	settled, err := s.sessions.SessionIDsByStatus(ctx, model.SessionStatusConsensusReached, model.SessionStatusChainSubmissionInProgress)
	if err != nil {
		lastErr = err
		s.logger.Error("list settled sessions", "error", err)
	}
	for _, id := range settled {
		if ctx.Err() != nil {
			break
		}
		from, to, err := s.svc.ReconcileSubmissions(ctx, id, false)
		if err != nil {
			lastErr = err
			s.logger.Warn("reconcile failed", "session_id", id, "error", err)
			continue
		}
		if from != to {
			reconciled++
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweeps++
	s.advanced += advanced
	s.reconciled += reconciled
	s.lastSweep = time.Now()
	if lastErr != nil {
		s.lastError = lastErr.Error()
	}
}

// GetStatus returns current scheduler status
func (s *SessionScheduler) GetStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]interface{}{
		"running":    s.running,
		"interval":   s.interval.String(),
		"sweeps":     s.sweeps,
		"advanced":   s.advanced,
		"reconciled": s.reconciled,
	}
	if !s.lastSweep.IsZero() {
		status["lastSweep"] = s.lastSweep.Format(time.RFC3339)
	}
	if s.lastError != "" {
		status["lastError"] = s.lastError
	}
	return status
}
