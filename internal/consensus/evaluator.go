package consensus

import (
	"context"
	"fmt"

	"github.com/respectgame/api/internal/model"
)

type Outcome int

const (
	NotReached Outcome = iota
	Committed
)

func (o Outcome) String() string {
	if o == Committed {
		return "committed"
	}
	return "not_reached"
}

// Reached reports whether maxVotes is a strict majority of groupSize at the
// given limit: with limit 0.5 and four members, two votes are not enough.
func Reached(maxVotes int64, groupSize int, limit float64) bool {
	if groupSize <= 0 || maxVotes <= 0 {
		return false
	}
	return float64(maxVotes) > float64(groupSize)*limit
}

// leader picks the candidate with the most votes. Ties go to the lowest
// candidate id, independent of the order tallies arrive in.
func leader(tallies []Tally) (Tally, bool) {
	var best Tally
	found := false
	for _, t := range tallies {
		if !found || t.Votes > best.Votes || (t.Votes == best.Votes && t.CandidateID < best.CandidateID) {
			best = t
			found = true
		}
	}
	return best, found
}

// HasConsensus is the read-only threshold check for a ranking.
func (s *Service) HasConsensus(ctx context.Context, rc *Context, ranking int) (bool, error) {
	tallies, err := s.repo.TallyVotes(ctx, rc.Session.ID, rc.Group.ID, ranking)
	if err != nil {
		return false, err
	}
	top, ok := leader(tallies)
	return ok && Reached(top.Votes, rc.GroupSize(), s.limit), nil
}

// CheckAndCommit commits the leading candidate for ranking when the threshold
// is met. A ranking that is already settled, or a leader who already holds
// another ranking, yields ErrAlreadyCommitted.
func (s *Service) CheckAndCommit(ctx context.Context, rc *Context, ranking int, source string) (Outcome, error) {
	tallies, err := s.repo.TallyVotes(ctx, rc.Session.ID, rc.Group.ID, ranking)
	if err != nil {
		return NotReached, err
	}
	top, ok := leader(tallies)
	if !ok || !Reached(top.Votes, rc.GroupSize(), s.limit) {
		return NotReached, nil
	}

	if err := s.commit(ctx, rc, ranking, top.CandidateID, source); err != nil {
		return NotReached, err
	}
	return Committed, nil
}

// Finalize is the explicit admin commit of a ranking. Unlike the voting path,
// a ranking without consensus is an error here.
func (s *Service) Finalize(ctx context.Context, rc *Context, ranking int) (*RoundState, error) {
	if !rc.IsAdmin {
		return nil, fmt.Errorf("%w: finalize requires admin", ErrUnauthorized)
	}
	if err := validRanking(rc.Session, ranking); err != nil {
		return nil, err
	}

	outcome, err := s.CheckAndCommit(ctx, rc, ranking, SourceFinalize)
	if err != nil {
		return nil, err
	}
	if outcome == NotReached {
		return nil, fmt.Errorf("%w: ranking %d", ErrConsensusNotReached, ranking)
	}
	return s.Round(ctx, rc)
}

func (s *Service) commit(ctx context.Context, rc *Context, ranking int, winnerID int64, source string) error {
	session := rc.Session
	if session.Status == model.SessionStatusNotStarted {
		if err := s.setStatus(ctx, session, model.SessionStatusVotingInProgress); err != nil {
			return err
		}
	}
	if !session.Status.VotingOpen() {
		return fmt.Errorf("%w: session %d is past voting", ErrAlreadyCommitted, session.ID)
	}

	inserted, err := s.repo.InsertConsensusRecord(ctx, &model.ConsensusRecord{
		SessionID:    session.ID,
		RankingValue: ranking,
		VotedFor:     winnerID,
		Status:       model.ConsensusStatusCommitted,
		ModifiedByID: rc.Caller.ID,
	})
	if err != nil {
		return err
	}
	if !inserted {
		return fmt.Errorf("%w: session %d ranking %d", ErrAlreadyCommitted, session.ID, ranking)
	}

	s.logger.Info("ranking committed",
		"session_id", session.ID,
		"ranking", ranking,
		"source", source,
	)
	if s.hooks.Committed != nil {
		s.hooks.Committed(session.ID, ranking, source)
	}
	return nil
}

func (s *Service) setStatus(ctx context.Context, session *model.ConsensusSession, status model.SessionStatus) error {
	if session.Status == status {
		return nil
	}
	if err := s.repo.SetSessionStatus(ctx, session.ID, status); err != nil {
		return err
	}
	s.logger.Info("session status changed",
		"session_id", session.ID,
		"from", session.Status.String(),
		"to", status.String(),
	)
	session.Status = status
	if s.hooks.StatusChanged != nil {
		s.hooks.StatusChanged(session.ID, status)
	}
	return nil
}

func validRanking(session *model.ConsensusSession, ranking int) error {
	if ranking < 1 || ranking > session.RankingLimit {
		return fmt.Errorf("%w: ranking must be between 1 and %d", ErrValidation, session.RankingLimit)
	}
	return nil
}
