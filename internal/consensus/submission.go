package consensus

import (
	"context"
	"fmt"

	"github.com/respectgame/api/internal/model"
	"gorm.io/datatypes"
)

// Submission statuses reported to Hooks.SubmissionDone.
const (
	SubmissionSubmitted = "submitted"
	SubmissionFailed    = "failed"
)

// MarkSubmitted records that the caller pushed the session result on chain
// and advances the session's submission status.
func (s *Service) MarkSubmitted(ctx context.Context, rc *Context, payload datatypes.JSON) error {
	if !rc.Session.Status.HasConsensus() {
		return fmt.Errorf("%w: session %d has no consensus yet", ErrUnauthorized, rc.Session.ID)
	}

	err := s.repo.RecordSubmission(ctx, &model.OnchainProposal{
		SessionID:    rc.Session.ID,
		ProposalJSON: payload,
		Status:       model.ProposalStatusSubmitted,
		ModifiedByID: rc.Caller.ID,
	})
	if err != nil {
		return err
	}

	s.submissionDone(rc)
	return s.AdvanceSubmissionStatus(ctx, rc.Session, rc.GroupSize())
}

func (s *Service) submissionDone(rc *Context) {
	s.logger.Info("chain submission recorded", "session_id", rc.Session.ID, "user_id", rc.Caller.ID)
	if s.hooks.SubmissionDone != nil {
		s.hooks.SubmissionDone(rc.Session.ID, SubmissionSubmitted)
	}
}

func (s *Service) submissionFailed(rc *Context, reason int16) {
	s.logger.Warn("chain submission failed",
		"session_id", rc.Session.ID,
		"user_id", rc.Caller.ID,
		"reason", reason,
	)
	if s.hooks.SubmissionDone != nil {
		s.hooks.SubmissionDone(rc.Session.ID, SubmissionFailed)
	}
}

// CanUserSubmit reports whether the caller may still submit the result.
func (s *Service) CanUserSubmit(ctx context.Context, rc *Context) (bool, error) {
	if !rc.Session.Status.HasConsensus() {
		return false, nil
	}
	done, err := s.repo.HasSuccessfulSubmission(ctx, rc.Session.ID, rc.Caller.ID)
	if err != nil {
		return false, err
	}
	return !done, nil
}

// AdvanceSubmissionStatus completes the session once more than half of the
// group has submitted successfully.
func (s *Service) AdvanceSubmissionStatus(ctx context.Context, session *model.ConsensusSession, groupSize int) error {
	count, err := s.repo.CountSuccessfulSubmissions(ctx, session.ID)
	if err != nil {
		return err
	}
	return s.setStatus(ctx, session, submissionStatus(count, groupSize))
}

func submissionStatus(submitted int64, groupSize int) model.SessionStatus {
	if submitted*2 > int64(groupSize) {
		return model.SessionStatusChainSubmissionComplete
	}
	return model.SessionStatusChainSubmissionInProgress
}

// MarkSubmissionFailed records a failed attempt. Failed attempts never count
// towards completion.
func (s *Service) MarkSubmissionFailed(ctx context.Context, rc *Context, reason int16, payload datatypes.JSON) error {
	switch reason {
	case model.FailureReasonProposalRejected, model.FailureReasonProposerUnreachable, model.FailureReasonClientNotConnected:
	default:
		return fmt.Errorf("%w: unknown failure reason %d", ErrValidation, reason)
	}
	if !rc.Session.Status.HasConsensus() {
		return fmt.Errorf("%w: session %d has no consensus yet", ErrUnauthorized, rc.Session.ID)
	}

	err := s.repo.InsertFailedSubmission(ctx, &model.OnchainProposal{
		SessionID:     rc.Session.ID,
		ProposalJSON:  payload,
		Status:        model.ProposalStatusFailed,
		FailureReason: reason,
		ModifiedByID:  rc.Caller.ID,
	})
	if err != nil {
		return err
	}
	s.submissionFailed(rc, reason)
	return nil
}
