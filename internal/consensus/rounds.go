package consensus

import (
	"context"
	"errors"

	"github.com/respectgame/api/internal/model"
)

// RoundState is the payload polling clients render for the current round.
type RoundState struct {
	SessionID             int64               `json:"sessionId"`
	SessionStatus         model.SessionStatus `json:"sessionStatus"`
	RemainingRankings     []int               `json:"remainingRankings"`
	CurrentRanking        int                 `json:"currentRanking"`
	CurrentVotes          []Tally             `json:"currentVotesForRanking"`
	RemainingCandidates   []Candidate         `json:"remainingAttendees"`
	GroupMemberCount      int                 `json:"groupMemberCount"`
	HasConsensusOnRanking bool                `json:"hasConsensusOnRanking"`
}

func fullRange(limit int) []int {
	out := make([]int, 0, limit)
	for r := limit; r >= 1; r-- {
		out = append(out, r)
	}
	return out
}

// openRankings lists undecided rankings in descending order. Both branches
// produce the same list; whether the current ranking already has consensus
// does not change which rankings stay open.
func openRankings(limit int, decided map[int]struct{}, currentHasConsensus bool) []int {
	if !currentHasConsensus {
		return undecided(limit, decided)
	}
	return undecided(limit, decided)
}

func undecided(limit int, decided map[int]struct{}) []int {
	out := make([]int, 0, limit)
	for _, r := range fullRange(limit) {
		if _, ok := decided[r]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// RemainingRankings returns the rankings still open to voting, highest first.
// When no rankings or fewer than two candidates are left it closes voting,
// committing the last candidate directly if exactly one remains.
func (s *Service) RemainingRankings(ctx context.Context, rc *Context) ([]int, error) {
	session := rc.Session
	records, err := s.repo.ConsensusRecords(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return fullRange(session.RankingLimit), nil
	}
	if !session.Status.VotingOpen() {
		return []int{}, nil
	}

	decided := make(map[int]struct{}, len(records))
	for _, r := range records {
		decided[r.RankingValue] = struct{}{}
	}
	currentHasConsensus := false
	if pending := undecided(session.RankingLimit, decided); len(pending) > 0 {
		currentHasConsensus, err = s.HasConsensus(ctx, rc, pending[0])
		if err != nil {
			return nil, err
		}
	}
	open := openRankings(session.RankingLimit, decided, currentHasConsensus)

	candidates := remainingCandidates(rc.Members, records)
	if len(open) == 0 || len(candidates) < 2 {
		if len(candidates) == 1 && session.Status == model.SessionStatusVotingInProgress && len(open) > 0 {
			err := s.commit(ctx, rc, open[0], candidates[0].ID, SourceShortcut)
			if err != nil && !errors.Is(err, ErrAlreadyCommitted) {
				return nil, err
			}
		}
		if err := s.setStatus(ctx, session, model.SessionStatusConsensusReached); err != nil {
			return nil, err
		}
	}
	return open, nil
}

// Round computes the full state for the current voting round.
func (s *Service) Round(ctx context.Context, rc *Context) (*RoundState, error) {
	remaining, err := s.RemainingRankings(ctx, rc)
	if err != nil {
		return nil, err
	}
	candidates, err := s.RemainingCandidates(ctx, rc)
	if err != nil {
		return nil, err
	}

	state := &RoundState{
		SessionID:           rc.Session.ID,
		SessionStatus:       rc.Session.Status,
		RemainingRankings:   remaining,
		CurrentVotes:        []Tally{},
		RemainingCandidates: candidatesOf(candidates),
		GroupMemberCount:    rc.GroupSize(),
	}
	if len(remaining) == 0 {
		return state, nil
	}

	state.CurrentRanking = remaining[0]
	state.CurrentVotes, err = s.repo.TallyVotes(ctx, rc.Session.ID, rc.Group.ID, state.CurrentRanking)
	if err != nil {
		return nil, err
	}
	state.HasConsensusOnRanking, err = s.HasConsensus(ctx, rc, state.CurrentRanking)
	if err != nil {
		return nil, err
	}
	return state, nil
}
