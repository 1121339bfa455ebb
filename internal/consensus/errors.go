package consensus

import "errors"

var (
	// ErrUnauthorized means the caller is neither an admin nor an active
	// member of the session, or the identity is incomplete.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the session, its active group or requested data does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyCommitted means a consensus record for the ranking already exists.
	ErrAlreadyCommitted = errors.New("consensus already committed")

	ErrConsensusNotReached = errors.New("consensus not reached")
	ErrValidation          = errors.New("validation failed")

	// ErrProposalRejected is returned by proposers when the external system
	// refused the proposal, as opposed to being unreachable.
	ErrProposalRejected = errors.New("proposal rejected")

	ErrProposerUnavailable = errors.New("proposer unavailable")
)
