package model

import "time"

// Group status constants
const (
	GroupStatusInactive int16 = 0
	GroupStatusActive   int16 = 1
)

type Group struct {
	ID           int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID    int64         `gorm:"not null;index" json:"sessionId"`
	Status       int16         `gorm:"not null;default:1" json:"status"`
	Label        string        `gorm:"size:100" json:"label"`
	ModifiedByID int64         `gorm:"not null" json:"-"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	Members      []GroupMember `gorm:"foreignKey:GroupID" json:"-"`
}

func (Group) TableName() string {
	return "consensus_groups"
}

type GroupMember struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	GroupID   int64     `gorm:"not null;uniqueIndex:idx_group_members_group_user,priority:1" json:"groupId"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_group_members_group_user,priority:2;index" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
}

func (GroupMember) TableName() string {
	return "consensus_group_members"
}
