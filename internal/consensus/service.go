package consensus

import (
	"log/slog"

	"github.com/respectgame/api/internal/model"
)

// DefaultLimit is the fraction of the group a candidate must exceed to win a ranking.
const DefaultLimit = 0.5

// Commit sources reported to Hooks.Committed.
const (
	SourceVote     = "vote"
	SourceFinalize = "finalize"
	SourceShortcut = "shortcut"
)

type AdminChecker interface {
	IsAdmin(walletAddress string) bool
}

// Hooks receive domain events after they are persisted. Nil fields are skipped.
type Hooks struct {
	VoteCast       func(sessionID int64, ranking int)
	Committed      func(sessionID int64, ranking int, source string)
	StatusChanged  func(sessionID int64, status model.SessionStatus)
	SubmissionDone func(sessionID int64, status string)
}

type Config struct {
	ConsensusLimit      float64
	DefaultRankingLimit int
	Admins              AdminChecker
	Hooks               Hooks
	Logger              *slog.Logger
}

type Service struct {
	repo         Repository
	limit        float64
	rankingLimit int
	admins       AdminChecker
	hooks        Hooks
	logger       *slog.Logger
}

func NewService(repo Repository, cfg Config) *Service {
	limit := cfg.ConsensusLimit
	if limit <= 0 || limit >= 1 {
		limit = DefaultLimit
	}
	rankingLimit := cfg.DefaultRankingLimit
	if rankingLimit <= 0 {
		rankingLimit = model.DefaultRankingLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:         repo,
		limit:        limit,
		rankingLimit: rankingLimit,
		admins:       cfg.Admins,
		hooks:        cfg.Hooks,
		logger:       logger.With("component", "consensus"),
	}
}

func (s *Service) Limit() float64 {
	return s.limit
}

func (s *Service) isAdmin(walletAddress string) bool {
	return s.admins != nil && s.admins.IsAdmin(walletAddress)
}
