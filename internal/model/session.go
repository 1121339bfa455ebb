package model

import (
	"time"
)

// SessionStatus tracks a consensus session through voting and chain submission.
type SessionStatus int16

const (
	SessionStatusNotStarted                SessionStatus = 0
	SessionStatusVotingInProgress          SessionStatus = 1
	SessionStatusConsensusReached          SessionStatus = 2
	SessionStatusChainSubmissionInProgress SessionStatus = 3
	SessionStatusChainSubmissionComplete   SessionStatus = 4

	// SessionStatusRetired shares its value with ChainSubmissionInProgress.
	// Only the active-session listing filters on it.
	SessionStatusRetired SessionStatus = 3
)

func (s SessionStatus) String() string {
	switch s {
	case SessionStatusNotStarted:
		return "not_started"
	case SessionStatusVotingInProgress:
		return "voting_in_progress"
	case SessionStatusConsensusReached:
		return "consensus_reached"
	case SessionStatusChainSubmissionInProgress:
		return "chain_submission_in_progress"
	case SessionStatusChainSubmissionComplete:
		return "chain_submission_complete"
	default:
		return "unknown"
	}
}

// VotingOpen reports whether votes are still tallied.
func (s SessionStatus) VotingOpen() bool {
	return s <= SessionStatusVotingInProgress
}

// HasConsensus reports whether every ranking has been settled.
func (s SessionStatus) HasConsensus() bool {
	return s >= SessionStatusConsensusReached && s <= SessionStatusChainSubmissionComplete
}

// RankingSchemeNumericDescending is the only ranking scheme supported.
const RankingSchemeNumericDescending = "numeric-descending"

const DefaultRankingLimit = 6

type ConsensusSession struct {
	ID           int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string        `gorm:"not null;size:255" json:"title"`
	Description  string        `gorm:"type:text" json:"description"`
	RankingLimit int           `gorm:"not null;default:6" json:"rankingLimit"`
	Status       SessionStatus `gorm:"not null;default:0;index" json:"status"`
	ModifiedByID int64         `gorm:"not null" json:"-"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func (ConsensusSession) TableName() string {
	return "consensus_sessions"
}
