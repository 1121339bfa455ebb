package consensus

import (
	"context"
	"errors"
	"fmt"

	"github.com/respectgame/api/internal/model"
)

// CastVote records the caller's vote for candidateWallet at ranking. A repeat
// vote by the same voter for the same ranking replaces the previous one.
func (s *Service) CastVote(ctx context.Context, rc *Context, ranking int, candidateWallet string) error {
	if !rc.IsMember {
		return fmt.Errorf("%w: only group members can vote", ErrUnauthorized)
	}
	session := rc.Session
	if !session.Status.VotingOpen() {
		return fmt.Errorf("%w: voting is closed for session %d", ErrValidation, session.ID)
	}
	if err := validRanking(session, ranking); err != nil {
		return err
	}
	candidate, ok := rc.MemberByWallet(candidateWallet)
	if !ok {
		return fmt.Errorf("%w: candidate is not a member of the group", ErrValidation)
	}

	records, err := s.repo.ConsensusRecords(ctx, session.ID)
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.RankingValue == ranking {
			return fmt.Errorf("%w: ranking %d is already settled", ErrValidation, ranking)
		}
		if r.VotedFor == candidate.ID {
			return fmt.Errorf("%w: candidate already holds ranking %d", ErrValidation, r.RankingValue)
		}
	}

	err = s.repo.UpsertVote(ctx, &model.Vote{
		SessionID:    session.ID,
		GroupID:      rc.Group.ID,
		RankingValue: ranking,
		VoterID:      rc.Caller.ID,
		VotedFor:     candidate.ID,
	})
	if err != nil {
		return err
	}

	s.logger.Debug("vote cast", "session_id", session.ID, "ranking", ranking)
	if s.hooks.VoteCast != nil {
		s.hooks.VoteCast(session.ID, ranking)
	}
	return nil
}

// Tallies returns the live vote counts for a ranking of the caller's session.
func (s *Service) Tallies(ctx context.Context, rc *Context, ranking int) ([]Tally, error) {
	if err := validRanking(rc.Session, ranking); err != nil {
		return nil, err
	}
	return s.repo.TallyVotes(ctx, rc.Session.ID, rc.Group.ID, ranking)
}

type VoteResult struct {
	Outcome string      `json:"outcome"`
	Round   *RoundState `json:"round"`
}

// Vote casts a vote, commits the ranking if the vote tipped it over the
// threshold and returns the refreshed round.
func (s *Service) Vote(ctx context.Context, rc *Context, ranking int, candidateWallet string) (*VoteResult, error) {
	if err := s.CastVote(ctx, rc, ranking, candidateWallet); err != nil {
		return nil, err
	}

	outcome, err := s.CheckAndCommit(ctx, rc, ranking, SourceVote)
	switch {
	case errors.Is(err, ErrAlreadyCommitted):
		// A concurrent commit settled the ranking or its winner first.
		outcome = Committed
	case err != nil:
		return nil, err
	}

	round, err := s.Round(ctx, rc)
	if err != nil {
		return nil, err
	}
	return &VoteResult{Outcome: outcome.String(), Round: round}, nil
}
