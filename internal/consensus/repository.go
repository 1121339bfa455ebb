package consensus

import (
	"context"
	"time"

	"github.com/respectgame/api/internal/model"
)

// Tally is the number of live votes a candidate holds for one ranking.
type Tally struct {
	CandidateID   int64  `json:"-"`
	WalletAddress string `json:"walletAddress"`
	Name          string `json:"name"`
	Votes         int64  `json:"count"`
}

// Repository is the storage the consensus engine needs. Implementations must
// enforce the uniqueness guarantees atomically: UpsertVote is an insert or
// update on (session, group, ranking, voter), InsertConsensusRecord is an
// insert-if-absent on both (session, ranking) and (session, winner), and
// ReserveSubmission is an insert-if-absent on (session, user) over pending and
// successful proposals.
type Repository interface {
	UserByWallet(ctx context.Context, walletAddress string) (*model.User, error)

	Session(ctx context.Context, sessionID int64) (*model.ConsensusSession, error)
	SetSessionStatus(ctx context.Context, sessionID int64, status model.SessionStatus) error
	// CreateSessionWithGroup stores the session, its active group and one
	// member row per wallet in a single transaction.
	CreateSessionWithGroup(ctx context.Context, session *model.ConsensusSession, group *model.Group, wallets []string) error

	// ActiveGroup returns the active group with members and their users loaded.
	ActiveGroup(ctx context.Context, sessionID int64) (*model.Group, error)

	UpsertVote(ctx context.Context, vote *model.Vote) error
	// TallyVotes counts votes while the session is open for voting, ordered
	// by votes descending then candidate id ascending.
	TallyVotes(ctx context.Context, sessionID, groupID int64, ranking int) ([]Tally, error)

	ConsensusRecords(ctx context.Context, sessionID int64) ([]model.ConsensusRecord, error)
	// InsertConsensusRecord reports false when the ranking was already settled
	// or the winner already holds another ranking.
	InsertConsensusRecord(ctx context.Context, record *model.ConsensusRecord) (bool, error)

	// RecordSubmission marks the user's consensus records as submitted on
	// chain and stores the successful proposal unless one already exists.
	RecordSubmission(ctx context.Context, proposal *model.OnchainProposal) error
	InsertFailedSubmission(ctx context.Context, proposal *model.OnchainProposal) error
	// ReserveSubmission stores a pending proposal for the user and reports
	// false when a pending or successful one already exists. Pending rows
	// created before staleBefore are failed first.
	ReserveSubmission(ctx context.Context, proposal *model.OnchainProposal, staleBefore time.Time) (bool, error)
	// CompleteSubmission turns a pending proposal into a successful one and
	// flags the user's consensus records as submitted.
	CompleteSubmission(ctx context.Context, proposal *model.OnchainProposal) error
	// ReleaseSubmission turns a pending proposal into a failed one.
	ReleaseSubmission(ctx context.Context, proposal *model.OnchainProposal) error
	CountSuccessfulSubmissions(ctx context.Context, sessionID int64) (int64, error)
	HasSuccessfulSubmission(ctx context.Context, sessionID, userID int64) (bool, error)
}
