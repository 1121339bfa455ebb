package model

import "time"

// UserSession is the backend session recorded when a wallet logs in.
type UserSession struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	UserID            int64     `gorm:"not null;index" json:"-"`
	WalletAddress     string    `gorm:"not null;size:64;index" json:"walletAddress"`
	ExternalSessionID string    `gorm:"not null;size:255;index" json:"externalSessionId"`
	IPAddress         string    `gorm:"size:64" json:"ipAddress"`
	ExpiresAt         time.Time `json:"expiresAt"`
	CreatedAt         time.Time `json:"createdAt"`
	Revoked           bool      `gorm:"default:false" json:"revoked"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}
