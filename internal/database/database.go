package database

import (
	"fmt"
	"log/slog"

	"github.com/glebarez/sqlite"
	"github.com/respectgame/api/internal/config"
	"github.com/respectgame/api/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseType {
	case "postgres", "":
		dialector = postgres.Open(cfg.DatabaseURL)
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database type %q (supported: postgres, sqlite)", cfg.DatabaseType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.SlogLevel())),
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func gormLogLevel(level slog.Level) logger.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return logger.Info
	case level <= slog.LevelWarn:
		return logger.Warn
	default:
		return logger.Error
	}
}

// Indexes that AutoMigrate cannot express through struct tags. Partial unique
// indexes are supported by both PostgreSQL and SQLite.
var indexStatements = []string{
	// One active group per session.
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_consensus_groups_active_session ON consensus_groups(session_id) WHERE status = 1",
	// One successful or in-flight chain submission per user and session.
	"DROP INDEX IF EXISTS idx_onchain_proposals_submitted_user",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_onchain_proposals_claimed_user ON onchain_proposals(session_id, modified_by_id) WHERE status IN (2, 3)",
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.UserSession{},
		&model.ConsensusSession{},
		&model.Group{},
		&model.GroupMember{},
		&model.Vote{},
		&model.ConsensusRecord{},
		&model.OnchainProposal{},
	)
	if err != nil {
		return err
	}

	for _, stmt := range indexStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
