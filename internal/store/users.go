package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/respectgame/api/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoginProfile is the identity data supplied by the provider at login.
type LoginProfile struct {
	WalletAddress string
	Name          string
	Username      string
	Email         string
}

// Login creates the user if needed, marks it logged in and records a backend
// session.
func (s *Store) Login(ctx context.Context, profile LoginProfile, session *model.UserSession) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		err := tx.Where("LOWER(wallet_address) = ?", strings.ToLower(profile.WalletAddress)).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = model.User{
				WalletAddress: profile.WalletAddress,
				Name:          profile.Name,
				Username:      profile.Username,
				Email:         profile.Email,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		updates := map[string]interface{}{
			"logged_in":  true,
			"last_login": now,
		}
		if profile.Name != "" {
			updates["name"] = profile.Name
		}
		if profile.Username != "" {
			updates["username"] = profile.Username
		}
		if profile.Email != "" {
			updates["email"] = profile.Email
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}

		session.UserID = user.ID
		session.WalletAddress = user.WalletAddress
		return tx.Create(session).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout revokes the backend session and clears the user's logged-in flag.
func (s *Store) Logout(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session model.UserSession
		if err := tx.First(&session, "id = ?", sessionID).Error; err != nil {
			return notFound(err, "user session")
		}
		if err := tx.Model(&session).Update("revoked", true).Error; err != nil {
			return err
		}
		return tx.Model(&model.User{}).
			Where("id = ?", session.UserID).
			Update("logged_in", false).Error
	})
}

// ActiveUserSession returns the backend session if it is neither revoked nor expired.
func (s *Store) ActiveUserSession(ctx context.Context, sessionID string) (*model.UserSession, error) {
	var session model.UserSession
	err := s.db.WithContext(ctx).
		Where("id = ? AND revoked = ? AND expires_at > ?", sessionID, false, time.Now()).
		First(&session).Error
	if err != nil {
		return nil, notFound(err, "user session")
	}
	return &session, nil
}

// SearchUsers lists logged-in users matching q by name, username or wallet.
func (s *Store) SearchUsers(ctx context.Context, q string, offset, limit int) ([]model.User, error) {
	query := s.db.WithContext(ctx).Model(&model.User{}).Where("logged_in = ?", true)
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(username) LIKE ? OR LOWER(wallet_address) LIKE ?", like, like, like)
	}

	var users []model.User
	err := query.Order("name ASC, id ASC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// SeedUsers inserts users, skipping wallets that already exist. It returns
// the number of rows inserted.
func (s *Store) SeedUsers(ctx context.Context, users []model.User) (int64, error) {
	if len(users) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&users)
	if result.Error != nil {
		return 0, fmt.Errorf("seed users: %w", result.Error)
	}
	return result.RowsAffected, nil
}
