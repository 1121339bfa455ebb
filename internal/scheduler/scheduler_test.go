package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/respectgame/api/internal/model"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSessions struct {
	byStatus map[model.SessionStatus][]int64
	err      error
}

func (f *fakeSessions) SessionIDsByStatus(_ context.Context, statuses ...model.SessionStatus) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	var ids []int64
	for _, s := range statuses {
		ids = append(ids, f.byStatus[s]...)
	}
	return ids, nil
}

type fakeProgressor struct {
	mu         sync.Mutex
	progressed []int64
	reconciled []int64
	advance    map[int64]model.SessionStatus
	failing    map[int64]bool
}

func (f *fakeProgressor) Progress(_ context.Context, id int64) (model.SessionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progressed = append(f.progressed, id)
	if f.failing[id] {
		return 0, errors.New("boom")
	}
	if s, ok := f.advance[id]; ok {
		return s, nil
	}
	return model.SessionStatusVotingInProgress, nil
}

func (f *fakeProgressor) ReconcileSubmissions(_ context.Context, id int64, dryRun bool) (model.SessionStatus, model.SessionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconciled = append(f.reconciled, id)
	return model.SessionStatusChainSubmissionInProgress, model.SessionStatusChainSubmissionComplete, nil
}

func (f *fakeProgressor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.progressed)
}

func TestSweep(t *testing.T) {
	sessions := &fakeSessions{byStatus: map[model.SessionStatus][]int64{
		model.SessionStatusVotingInProgress:          {1, 2, 3},
		model.SessionStatusChainSubmissionInProgress: {4},
	}}
	svc := &fakeProgressor{
		advance: map[int64]model.SessionStatus{2: model.SessionStatusConsensusReached},
		failing: map[int64]bool{3: true},
	}
	s := NewSessionScheduler(sessions, svc, SchedulerConfig{Interval: time.Hour})

	s.Sweep(context.Background())

	assert.Equal(t, []int64{1, 2, 3}, svc.progressed)
	assert.Equal(t, []int64{4}, svc.reconciled)

	status := s.GetStatus()
	assert.Equal(t, int64(1), status["sweeps"])
	assert.Equal(t, int64(1), status["advanced"])
	assert.Equal(t, int64(1), status["reconciled"])
	assert.Equal(t, "boom", status["lastError"])
	assert.Equal(t, false, status["running"])
}

func TestSweepListError(t *testing.T) {
	svc := &fakeProgressor{}
	s := NewSessionScheduler(&fakeSessions{err: errors.New("db down")}, svc, SchedulerConfig{})

	s.Sweep(context.Background())

	assert.Empty(t, svc.progressed)
	assert.Equal(t, "db down", s.GetStatus()["lastError"])
}

func TestStartStop(t *testing.T) {
	sessions := &fakeSessions{byStatus: map[model.SessionStatus][]int64{
		model.SessionStatusVotingInProgress: {7},
	}}
	svc := &fakeProgressor{}
	s := NewSessionScheduler(sessions, svc, SchedulerConfig{Interval: 10 * time.Millisecond})

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return svc.calls() > 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, true, s.GetStatus()["running"])

	s.Stop()
	<-done
	assert.Equal(t, false, s.GetStatus()["running"])
}

func TestRestartAfterStop(t *testing.T) {
	sessions := &fakeSessions{byStatus: map[model.SessionStatus][]int64{
		model.SessionStatusVotingInProgress: {7},
	}}
	svc := &fakeProgressor{}
	s := NewSessionScheduler(sessions, svc, SchedulerConfig{Interval: 10 * time.Millisecond})

	for round := 1; round <= 2; round++ {
		done := make(chan struct{})
		go func() {
			s.Start(context.Background())
			close(done)
		}()

		before := svc.calls()
		assert.Eventually(t, func() bool { return svc.calls() > before }, time.Second, 5*time.Millisecond, "round %d", round)
		assert.Equal(t, true, s.GetStatus()["running"])

		s.Stop()
		<-done
	}
	assert.Equal(t, false, s.GetStatus()["running"])
}

func TestStartStopsOnContextCancel(t *testing.T) {
	s := NewSessionScheduler(&fakeSessions{}, &fakeProgressor{}, SchedulerConfig{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.GetStatus()["running"] == true }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, false, s.GetStatus()["running"])
}
