package model

import (
	"time"

	"gorm.io/datatypes"
)

// OnchainProposal status constants
const (
	ProposalStatusFailed    int16 = 1
	ProposalStatusSubmitted int16 = 2
	// Reserved while the server is waiting on the external proposer.
	ProposalStatusPending int16 = 3
)

// Failure reason codes reported with a failed submission
const (
	FailureReasonProposalRejected    int16 = 1
	FailureReasonProposerUnreachable int16 = 2
	FailureReasonClientNotConnected  int16 = 3
)

type OnchainProposal struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID     int64          `gorm:"not null;index" json:"sessionId"`
	ProposalJSON  datatypes.JSON `json:"proposal"`
	Status        int16          `gorm:"not null" json:"status"`
	FailureReason int16          `gorm:"not null;default:0" json:"failureReason,omitempty"`
	ModifiedByID  int64          `gorm:"not null;index" json:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (OnchainProposal) TableName() string {
	return "onchain_proposals"
}
