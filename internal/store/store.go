package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/respectgame/api/internal/consensus"
	"github.com/respectgame/api/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the gorm-backed data access layer. Missing rows are reported as
// consensus.ErrNotFound.
type Store struct {
	db *gorm.DB
}

var _ consensus.Repository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", consensus.ErrNotFound, what)
	}
	return err
}

func (s *Store) UserByWallet(ctx context.Context, walletAddress string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Where("LOWER(wallet_address) = ?", strings.ToLower(walletAddress)).
		First(&user).Error
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (s *Store) Session(ctx context.Context, sessionID int64) (*model.ConsensusSession, error) {
	var session model.ConsensusSession
	if err := s.db.WithContext(ctx).First(&session, sessionID).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("session %d", sessionID))
	}
	return &session, nil
}

func (s *Store) SetSessionStatus(ctx context.Context, sessionID int64, status model.SessionStatus) error {
	result := s.db.WithContext(ctx).
		Model(&model.ConsensusSession{}).
		Where("id = ?", sessionID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: session %d", consensus.ErrNotFound, sessionID)
	}
	return nil
}

func (s *Store) CreateSessionWithGroup(ctx context.Context, session *model.ConsensusSession, group *model.Group, wallets []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}

		group.SessionID = session.ID
		if err := tx.Create(group).Error; err != nil {
			return err
		}

		members := make([]model.GroupMember, 0, len(wallets))
		for _, wallet := range wallets {
			var user model.User
			err := tx.Where("LOWER(wallet_address) = ?", strings.ToLower(wallet)).First(&user).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: no user found for wallet %s", consensus.ErrValidation, wallet)
			}
			if err != nil {
				return err
			}
			members = append(members, model.GroupMember{GroupID: group.ID, UserID: user.ID, User: user})
		}
		if err := tx.Omit("User").Create(&members).Error; err != nil {
			return err
		}
		group.Members = members
		return nil
	})
}

func (s *Store) ActiveGroup(ctx context.Context, sessionID int64) (*model.Group, error) {
	var group model.Group
	err := s.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("user_id ASC")
		}).
		Preload("Members.User").
		Where("session_id = ? AND status = ?", sessionID, model.GroupStatusActive).
		First(&group).Error
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("active group for session %d", sessionID))
	}
	return &group, nil
}

func (s *Store) UpsertVote(ctx context.Context, vote *model.Vote) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "session_id"},
				{Name: "group_id"},
				{Name: "ranking_value"},
				{Name: "voter_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"voted_for", "updated_at"}),
		}).
		Create(vote).Error
}

func (s *Store) TallyVotes(ctx context.Context, sessionID, groupID int64, ranking int) ([]consensus.Tally, error) {
	tallies := []consensus.Tally{}
	err := s.db.WithContext(ctx).
		Table("consensus_votes AS v").
		Select("v.voted_for AS candidate_id, u.wallet_address AS wallet_address, u.name AS name, COUNT(*) AS votes").
		Joins("JOIN consensus_sessions cs ON cs.id = v.session_id").
		Joins("JOIN users u ON u.id = v.voted_for").
		Where("v.session_id = ? AND v.group_id = ? AND v.ranking_value = ?", sessionID, groupID, ranking).
		Where("cs.status <= ?", model.SessionStatusVotingInProgress).
		Group("v.voted_for, u.wallet_address, u.name").
		Order("votes DESC, candidate_id ASC").
		Scan(&tallies).Error
	if err != nil {
		return nil, err
	}
	return tallies, nil
}

func (s *Store) ConsensusRecords(ctx context.Context, sessionID int64) ([]model.ConsensusRecord, error) {
	var records []model.ConsensusRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("ranking_value DESC").
		Find(&records).Error
	return records, err
}

func (s *Store) InsertConsensusRecord(ctx context.Context, record *model.ConsensusRecord) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Store) RecordSubmission(ctx context.Context, proposal *model.OnchainProposal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.ConsensusRecord{}).
			Where("session_id = ? AND modified_by_id = ?", proposal.SessionID, proposal.ModifiedByID).
			Update("status", model.ConsensusStatusSubmittedOnchain).Error
		if err != nil {
			return err
		}

		var existing int64
		err = tx.Model(&model.OnchainProposal{}).
			Where("session_id = ? AND modified_by_id = ? AND status = ?", proposal.SessionID, proposal.ModifiedByID, model.ProposalStatusSubmitted).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(proposal).Error
	})
}

func (s *Store) InsertFailedSubmission(ctx context.Context, proposal *model.OnchainProposal) error {
	return s.db.WithContext(ctx).Create(proposal).Error
}

func (s *Store) ReserveSubmission(ctx context.Context, proposal *model.OnchainProposal, staleBefore time.Time) (bool, error) {
	var reserved bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.OnchainProposal{}).
			Where("session_id = ? AND modified_by_id = ? AND status = ? AND created_at < ?",
				proposal.SessionID, proposal.ModifiedByID, model.ProposalStatusPending, staleBefore).
			Updates(map[string]interface{}{
				"status":         model.ProposalStatusFailed,
				"failure_reason": model.FailureReasonProposerUnreachable,
			}).Error
		if err != nil {
			return err
		}

		proposal.Status = model.ProposalStatusPending
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(proposal)
		if result.Error != nil {
			return result.Error
		}
		reserved = result.RowsAffected > 0
		return nil
	})
	return reserved, err
}

func (s *Store) CompleteSubmission(ctx context.Context, proposal *model.OnchainProposal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.OnchainProposal{}).
			Where("id = ? AND status = ?", proposal.ID, model.ProposalStatusPending).
			Updates(map[string]interface{}{
				"status":        model.ProposalStatusSubmitted,
				"proposal_json": proposal.ProposalJSON,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: pending proposal %d", consensus.ErrNotFound, proposal.ID)
		}
		proposal.Status = model.ProposalStatusSubmitted

		return tx.Model(&model.ConsensusRecord{}).
			Where("session_id = ? AND modified_by_id = ?", proposal.SessionID, proposal.ModifiedByID).
			Update("status", model.ConsensusStatusSubmittedOnchain).Error
	})
}

func (s *Store) ReleaseSubmission(ctx context.Context, proposal *model.OnchainProposal) error {
	result := s.db.WithContext(ctx).Model(&model.OnchainProposal{}).
		Where("id = ? AND status = ?", proposal.ID, model.ProposalStatusPending).
		Updates(map[string]interface{}{
			"status":         model.ProposalStatusFailed,
			"failure_reason": proposal.FailureReason,
			"proposal_json":  proposal.ProposalJSON,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: pending proposal %d", consensus.ErrNotFound, proposal.ID)
	}
	proposal.Status = model.ProposalStatusFailed
	return nil
}

func (s *Store) CountSuccessfulSubmissions(ctx context.Context, sessionID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.OnchainProposal{}).
		Where("session_id = ? AND status = ?", sessionID, model.ProposalStatusSubmitted).
		Count(&count).Error
	return count, err
}

func (s *Store) HasSuccessfulSubmission(ctx context.Context, sessionID, userID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.OnchainProposal{}).
		Where("session_id = ? AND modified_by_id = ? AND status = ?", sessionID, userID, model.ProposalStatusSubmitted).
		Count(&count).Error
	return count > 0, err
}
