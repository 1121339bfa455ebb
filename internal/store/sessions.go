package store

import (
	"context"

	"github.com/respectgame/api/internal/model"
)

// RecentSessions lists sessions the user belongs to or created, newest first.
// With activeOnly, retired sessions are excluded.
func (s *Store) RecentSessions(ctx context.Context, userID int64, activeOnly bool, limit int) ([]model.ConsensusSession, error) {
	memberOf := s.db.
		Table("consensus_groups g").
		Select("g.session_id").
		Joins("JOIN consensus_group_members m ON m.group_id = g.id").
		Where("g.status = ? AND m.user_id = ?", model.GroupStatusActive, userID)

	query := s.db.WithContext(ctx).
		Model(&model.ConsensusSession{}).
		Where("id IN (?) OR modified_by_id = ?", memberOf, userID)
	if activeOnly {
		query = query.Where("status <> ?", model.SessionStatusRetired)
	}

	var sessions []model.ConsensusSession
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&sessions).Error
	return sessions, err
}

// SessionIDsByStatus returns the ids of sessions in any of the given statuses.
func (s *Store) SessionIDsByStatus(ctx context.Context, statuses ...model.SessionStatus) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&model.ConsensusSession{}).
		Where("status IN ?", statuses).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

type Stats struct {
	TotalUsers            int64            `json:"totalUsers"`
	LoggedInUsers         int64            `json:"loggedInUsers"`
	TotalSessions         int64            `json:"totalSessions"`
	SessionsByStatus      map[string]int64 `json:"sessionsByStatus"`
	TotalVotes            int64            `json:"totalVotes"`
	CommittedRankings     int64            `json:"committedRankings"`
	SuccessfulSubmissions int64            `json:"successfulSubmissions"`
	FailedSubmissions     int64            `json:"failedSubmissions"`
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	stats := &Stats{SessionsByStatus: make(map[string]int64)}

	counts := []struct {
		dest  *int64
		model interface{}
		where []interface{}
	}{
		{&stats.TotalUsers, &model.User{}, nil},
		{&stats.LoggedInUsers, &model.User{}, []interface{}{"logged_in = ?", true}},
		{&stats.TotalSessions, &model.ConsensusSession{}, nil},
		{&stats.TotalVotes, &model.Vote{}, nil},
		{&stats.CommittedRankings, &model.ConsensusRecord{}, nil},
		{&stats.SuccessfulSubmissions, &model.OnchainProposal{}, []interface{}{"status = ?", model.ProposalStatusSubmitted}},
		{&stats.FailedSubmissions, &model.OnchainProposal{}, []interface{}{"status = ?", model.ProposalStatusFailed}},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if len(c.where) > 0 {
			q = q.Where(c.where[0], c.where[1:]...)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	type statusCount struct {
		Status model.SessionStatus
		Count  int64
	}
	var byStatus []statusCount
	err := db.Model(&model.ConsensusSession{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, err
	}
	for _, sc := range byStatus {
		stats.SessionsByStatus[sc.Status.String()] = sc.Count
	}
	return stats, nil
}

// ListSessions pages through all sessions, optionally filtered by status.
func (s *Store) ListSessions(ctx context.Context, status *model.SessionStatus, offset, limit int) ([]model.ConsensusSession, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.ConsensusSession{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []model.ConsensusSession
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&sessions).Error
	return sessions, total, err
}
