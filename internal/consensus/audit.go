package consensus

import (
	"context"
	"fmt"

	"github.com/respectgame/api/internal/model"
)

// Violation describes one broken invariant found by Audit.
type Violation struct {
	SessionID int64  `json:"sessionId"`
	Rule      string `json:"rule"`
	Detail    string `json:"detail"`
}

// Audit checks the stored state of a session against the voting rules.
func (s *Service) Audit(ctx context.Context, sessionID int64) ([]Violation, error) {
	rc, err := s.SystemContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ConsensusRecords(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := []Violation{}
	add := func(rule, format string, args ...any) {
		out = append(out, Violation{SessionID: sessionID, Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}

	if rc.GroupSize() < MinGroupSize {
		add("group_size", "group has %d members", rc.GroupSize())
	}

	winners := make(map[int64]int, len(records))
	for _, r := range records {
		if r.RankingValue < 1 || r.RankingValue > rc.Session.RankingLimit {
			add("ranking_range", "ranking %d outside [1, %d]", r.RankingValue, rc.Session.RankingLimit)
		}
		if _, ok := rc.Member(r.VotedFor); !ok {
			add("winner_membership", "ranking %d won by non-member %d", r.RankingValue, r.VotedFor)
		}
		if prev, dup := winners[r.VotedFor]; dup {
			add("winner_unique", "user %d holds rankings %d and %d", r.VotedFor, prev, r.RankingValue)
		}
		winners[r.VotedFor] = r.RankingValue
	}

	status := rc.Session.Status
	if status.HasConsensus() && len(records) == 0 {
		add("consensus_records", "status %s without consensus records", status)
	}
	if status == model.SessionStatusNotStarted && len(records) > 0 {
		add("status_progress", "%d records on a session that has not started", len(records))
	}

	if status >= model.SessionStatusChainSubmissionInProgress {
		count, err := s.repo.CountSuccessfulSubmissions(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if want := submissionStatus(count, rc.GroupSize()); want != status {
			add("submission_status", "status %s but %d of %d submitted", status, count, rc.GroupSize())
		}
	}
	return out, nil
}

// Progress runs round progression for a session without a caller, so the
// single-candidate shortcut fires even when nobody is polling.
func (s *Service) Progress(ctx context.Context, sessionID int64) (model.SessionStatus, error) {
	rc, err := s.SystemContext(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if _, err := s.RemainingRankings(ctx, rc); err != nil {
		return rc.Session.Status, err
	}
	return rc.Session.Status, nil
}

// ReconcileSubmissions recomputes the submission status of a session that
// has reached consensus. With dryRun set nothing is written and the status
// that would be stored is returned.
func (s *Service) ReconcileSubmissions(ctx context.Context, sessionID int64, dryRun bool) (from, to model.SessionStatus, err error) {
	rc, err := s.SystemContext(ctx, sessionID)
	if err != nil {
		return 0, 0, err
	}
	from = rc.Session.Status
	if !from.HasConsensus() {
		return from, from, nil
	}
	count, err := s.repo.CountSuccessfulSubmissions(ctx, sessionID)
	if err != nil {
		return from, from, err
	}
	if count == 0 {
		return from, from, nil
	}
	to = submissionStatus(count, rc.GroupSize())
	if dryRun || to == from {
		return from, to, nil
	}
	if err := s.setStatus(ctx, rc.Session, to); err != nil {
		return from, from, err
	}
	return from, to, nil
}
