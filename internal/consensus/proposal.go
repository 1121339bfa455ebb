package consensus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/respectgame/api/internal/model"
	"gorm.io/datatypes"
)

type Winner struct {
	RankingValue  int    `json:"rankingValue"`
	WalletAddress string `json:"walletAddress"`
	Name          string `json:"name"`
}

// Winners returns the settled rankings, highest first.
func (s *Service) Winners(ctx context.Context, rc *Context) ([]Winner, error) {
	if !rc.Session.Status.HasConsensus() {
		return nil, fmt.Errorf("%w: session %d", ErrConsensusNotReached, rc.Session.ID)
	}
	records, err := s.repo.ConsensusRecords(ctx, rc.Session.ID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no winners for session %d", ErrNotFound, rc.Session.ID)
	}

	winners := make([]Winner, 0, len(records))
	for _, r := range records {
		w := Winner{RankingValue: r.RankingValue}
		if u, ok := rc.Member(r.VotedFor); ok {
			w.WalletAddress = u.WalletAddress
			w.Name = u.Name
		}
		winners = append(winners, w)
	}
	sort.Slice(winners, func(i, j int) bool { return winners[i].RankingValue > winners[j].RankingValue })
	return winners, nil
}

type ProposalMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Proposal is the request sent to the external chain-proposal system.
type Proposal struct {
	GroupNumber   string           `json:"groupNum"`
	MeetingNumber int64            `json:"meetingNum"`
	Rankings      []string         `json:"rankings"`
	Metadata      ProposalMetadata `json:"metadata"`

	// IdempotencyKey travels as a request header, not in the body.
	IdempotencyKey string `json:"-"`
}

// Proposer submits a proposal and returns its external identifier. Refusals
// by the external system wrap ErrProposalRejected.
type Proposer interface {
	SubmitProposal(ctx context.Context, proposal Proposal) (string, error)
}

// BuildProposal orders winner wallets from the highest ranking down.
func BuildProposal(rc *Context, winners []Winner) Proposal {
	ordered := make([]Winner, len(winners))
	copy(ordered, winners)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].RankingValue > ordered[j].RankingValue })

	rankings := make([]string, 0, len(ordered))
	for _, w := range ordered {
		rankings = append(rankings, w.WalletAddress)
	}
	return Proposal{
		GroupNumber:   rc.Group.Label,
		MeetingNumber: rc.Session.ID,
		Rankings:      rankings,
		Metadata: ProposalMetadata{
			Title:       rc.Session.Title,
			Description: rc.Session.Description,
		},
	}
}

type SubmissionResult struct {
	ProposalID    string              `json:"proposalId"`
	SessionStatus model.SessionStatus `json:"sessionStatus"`
}

// pendingSubmissionTTL bounds how long a reservation blocks the user after
// the server lost track of the proposer call.
const pendingSubmissionTTL = 5 * time.Minute

var submissionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("respectgame:onchain-proposal"))

// SubmissionKey is the idempotency key for one user's submission of one
// session. Retries of the same submission always carry the same key.
func SubmissionKey(sessionID, userID int64) string {
	return uuid.NewSHA1(submissionNamespace, []byte(fmt.Sprintf("%d:%d", sessionID, userID))).String()
}

// SubmitProposal sends the session result to the proposer on the caller's
// behalf and records the outcome either way. The submission is reserved
// before the proposer is called so concurrent requests by the same user
// reach the proposer at most once.
func (s *Service) SubmitProposal(ctx context.Context, rc *Context, proposer Proposer) (*SubmissionResult, error) {
	if !rc.Session.Status.HasConsensus() {
		return nil, fmt.Errorf("%w: session %d", ErrConsensusNotReached, rc.Session.ID)
	}
	allowed, err := s.CanUserSubmit(ctx, rc)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: result already submitted by this user", ErrValidation)
	}

	winners, err := s.Winners(ctx, rc)
	if err != nil {
		return nil, err
	}
	proposal := BuildProposal(rc, winners)
	proposal.IdempotencyKey = SubmissionKey(rc.Session.ID, rc.Caller.ID)

	pending, err := encodePayload("", proposal)
	if err != nil {
		return nil, err
	}
	claim := &model.OnchainProposal{
		SessionID:    rc.Session.ID,
		ProposalJSON: pending,
		ModifiedByID: rc.Caller.ID,
	}
	reserved, err := s.repo.ReserveSubmission(ctx, claim, time.Now().Add(-pendingSubmissionTTL))
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, fmt.Errorf("%w: a submission by this user is already recorded or in progress", ErrValidation)
	}

	// The outcome is recorded even if the caller has gone away.
	recordCtx := context.WithoutCancel(ctx)

	proposalID, submitErr := proposer.SubmitProposal(ctx, proposal)
	if submitErr != nil {
		claim.FailureReason = model.FailureReasonProposerUnreachable
		if errors.Is(submitErr, ErrProposalRejected) {
			claim.FailureReason = model.FailureReasonProposalRejected
		}
		if err := s.repo.ReleaseSubmission(recordCtx, claim); err != nil {
			s.logger.Error("failed to record failed submission", "session_id", rc.Session.ID, "error", err)
		} else {
			s.submissionFailed(rc, claim.FailureReason)
		}
		if claim.FailureReason == model.FailureReasonProposerUnreachable {
			return nil, fmt.Errorf("%w: %v", ErrProposerUnavailable, submitErr)
		}
		return nil, fmt.Errorf("submit proposal: %w", submitErr)
	}

	claim.ProposalJSON, err = encodePayload(proposalID, proposal)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CompleteSubmission(recordCtx, claim); err != nil {
		return nil, err
	}
	s.submissionDone(rc)
	if err := s.AdvanceSubmissionStatus(recordCtx, rc.Session, rc.GroupSize()); err != nil {
		return nil, err
	}
	return &SubmissionResult{ProposalID: proposalID, SessionStatus: rc.Session.Status}, nil
}

func encodePayload(proposalID string, proposal Proposal) (datatypes.JSON, error) {
	b, err := json.Marshal(struct {
		ProposalID string   `json:"proposalId,omitempty"`
		Proposal   Proposal `json:"proposal"`
	}{proposalID, proposal})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
