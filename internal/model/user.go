package model

import "time"

type User struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"-"`
	WalletAddress string     `gorm:"not null;size:64;uniqueIndex" json:"walletAddress"`
	Name          string     `gorm:"size:255" json:"name"`
	Username      string     `gorm:"size:100" json:"username"`
	Email         string     `gorm:"size:255" json:"email"`
	LoggedIn      bool       `gorm:"not null;default:false" json:"loggedIn"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
