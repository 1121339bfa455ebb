package model

import "time"

// ConsensusRecord status constants
const (
	ConsensusStatusCommitted        int16 = 1
	ConsensusStatusSubmittedOnchain int16 = 3
)

// ConsensusRecord settles one ranking value of a session. At most one record
// exists per (session, ranking value) and per (session, winner).
type ConsensusRecord struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID    int64     `gorm:"not null;uniqueIndex:idx_consensus_records_session_ranking,priority:1;uniqueIndex:idx_consensus_records_session_winner,priority:1" json:"sessionId"`
	RankingValue int       `gorm:"not null;uniqueIndex:idx_consensus_records_session_ranking,priority:2" json:"rankingValue"`
	VotedFor     int64     `gorm:"not null;uniqueIndex:idx_consensus_records_session_winner,priority:2" json:"-"`
	Status       int16     `gorm:"not null;default:1" json:"status"`
	ModifiedByID int64     `gorm:"not null;index" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (ConsensusRecord) TableName() string {
	return "consensus_records"
}
