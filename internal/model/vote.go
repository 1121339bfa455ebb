package model

import "time"

// Vote is the single live vote of a voter for one ranking of a session round.
// Recasting overwrites VotedFor.
type Vote struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID    int64     `gorm:"not null;uniqueIndex:idx_votes_session_group_ranking_voter,priority:1" json:"sessionId"`
	GroupID      int64     `gorm:"not null;uniqueIndex:idx_votes_session_group_ranking_voter,priority:2" json:"groupId"`
	RankingValue int       `gorm:"not null;uniqueIndex:idx_votes_session_group_ranking_voter,priority:3" json:"rankingValue"`
	VoterID      int64     `gorm:"not null;uniqueIndex:idx_votes_session_group_ranking_voter,priority:4" json:"-"`
	VotedFor     int64     `gorm:"not null;index" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Vote) TableName() string {
	return "consensus_votes"
}
