package consensus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/respectgame/api/internal/auth"
	"github.com/respectgame/api/internal/model"
)

const (
	MinGroupSize   = 2
	MaxGroupNumber = 200
)

// Context is the resolved view of a session for one caller.
type Context struct {
	Caller   *model.User
	IsAdmin  bool
	IsMember bool
	Session  *model.ConsensusSession
	Group    *model.Group
	// Members of the active group ordered by user id.
	Members []model.User
}

func (c *Context) GroupSize() int {
	return len(c.Members)
}

func (c *Context) Member(userID int64) (*model.User, bool) {
	for i := range c.Members {
		if c.Members[i].ID == userID {
			return &c.Members[i], true
		}
	}
	return nil, false
}

func (c *Context) MemberByWallet(walletAddress string) (*model.User, bool) {
	for i := range c.Members {
		if strings.EqualFold(c.Members[i].WalletAddress, walletAddress) {
			return &c.Members[i], true
		}
	}
	return nil, false
}

// Candidate is a group member as shown to clients. Internal ids are never exposed.
type Candidate struct {
	WalletAddress string `json:"walletAddress"`
	Name          string `json:"name"`
	Username      string `json:"username"`
}

func candidatesOf(users []model.User) []Candidate {
	out := make([]Candidate, 0, len(users))
	for _, u := range users {
		out = append(out, Candidate{WalletAddress: u.WalletAddress, Name: u.Name, Username: u.Username})
	}
	return out
}

// Resolve establishes who the caller is relative to the session. It fails with
// ErrUnauthorized unless the caller is an admin or an active member, and with
// ErrNotFound when the session or its active group is missing.
func (s *Service) Resolve(ctx context.Context, sessionID int64, id auth.Identity) (*Context, error) {
	if !id.Complete() {
		return nil, fmt.Errorf("%w: incomplete identity", ErrUnauthorized)
	}
	caller, err := s.repo.UserByWallet(ctx, id.WalletAddress)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no account for wallet", ErrUnauthorized)
		}
		return nil, err
	}
	return s.resolve(ctx, sessionID, caller, s.isAdmin(caller.WalletAddress))
}

// SystemContext resolves a session on behalf of background jobs. Writes are
// attributed to the admin who created the session.
func (s *Service) SystemContext(ctx context.Context, sessionID int64) (*Context, error) {
	session, err := s.repo.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	group, err := s.repo.ActiveGroup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Context{
		Caller:  &model.User{ID: session.ModifiedByID},
		IsAdmin: true,
		Session: session,
		Group:   group,
		Members: membersOf(group),
	}, nil
}

func (s *Service) resolve(ctx context.Context, sessionID int64, caller *model.User, isAdmin bool) (*Context, error) {
	session, err := s.repo.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	group, err := s.repo.ActiveGroup(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rc := &Context{
		Caller:  caller,
		IsAdmin: isAdmin,
		Session: session,
		Group:   group,
		Members: membersOf(group),
	}
	_, inGroup := rc.Member(caller.ID)
	rc.IsMember = caller.LoggedIn && inGroup && session.Status != model.SessionStatusChainSubmissionComplete

	if !rc.IsAdmin && !rc.IsMember {
		return nil, fmt.Errorf("%w: not a member of session %d", ErrUnauthorized, sessionID)
	}
	return rc, nil
}

func membersOf(group *model.Group) []model.User {
	users := make([]model.User, 0, len(group.Members))
	for _, m := range group.Members {
		u := m.User
		if u.ID == 0 {
			u.ID = m.UserID
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// RemainingCandidates returns group members who have not won any ranking yet.
func (s *Service) RemainingCandidates(ctx context.Context, rc *Context) ([]model.User, error) {
	records, err := s.repo.ConsensusRecords(ctx, rc.Session.ID)
	if err != nil {
		return nil, err
	}
	return remainingCandidates(rc.Members, records), nil
}

func remainingCandidates(members []model.User, records []model.ConsensusRecord) []model.User {
	won := make(map[int64]struct{}, len(records))
	for _, r := range records {
		won[r.VotedFor] = struct{}{}
	}
	out := make([]model.User, 0, len(members))
	for _, m := range members {
		if _, ok := won[m.ID]; !ok {
			out = append(out, m)
		}
	}
	return out
}

type NewSession struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	RankingLimit    int      `json:"rankingLimit"`
	GroupNumber     int      `json:"groupNum"`
	WalletAddresses []string `json:"walletAddresses"`
}

// CreateSession creates a session with its group. Only admins may call it; the
// whole roster is rejected if any wallet is unknown.
func (s *Service) CreateSession(ctx context.Context, id auth.Identity, in NewSession) (*model.ConsensusSession, *model.Group, error) {
	if !id.Complete() || !s.isAdmin(id.WalletAddress) {
		return nil, nil, fmt.Errorf("%w: not allowed to create session", ErrUnauthorized)
	}
	admin, err := s.repo.UserByWallet(ctx, id.WalletAddress)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: no account for admin wallet", ErrUnauthorized)
		}
		return nil, nil, err
	}

	wallets, err := normalizeWallets(in.WalletAddresses)
	if err != nil {
		return nil, nil, err
	}

	rankingLimit := in.RankingLimit
	if rankingLimit == 0 {
		rankingLimit = s.rankingLimit
	}
	if rankingLimit < 1 {
		return nil, nil, fmt.Errorf("%w: ranking limit must be positive", ErrValidation)
	}

	groupNumber := in.GroupNumber
	if groupNumber == 0 {
		groupNumber = 1
	}
	if groupNumber < 1 || groupNumber > MaxGroupNumber {
		return nil, nil, fmt.Errorf("%w: group number must be between 1 and %d", ErrValidation, MaxGroupNumber)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Consensus Session"
	}

	session := &model.ConsensusSession{
		Title:        title,
		Description:  in.Description,
		RankingLimit: rankingLimit,
		Status:       model.SessionStatusNotStarted,
		ModifiedByID: admin.ID,
	}
	group := &model.Group{
		Status:       model.GroupStatusActive,
		Label:        strconv.Itoa(groupNumber),
		ModifiedByID: admin.ID,
	}
	if err := s.repo.CreateSessionWithGroup(ctx, session, group, wallets); err != nil {
		return nil, nil, err
	}

	s.logger.Info("session created",
		"session_id", session.ID,
		"group_id", group.ID,
		"members", len(wallets),
		"ranking_limit", rankingLimit,
	)
	return session, group, nil
}

func normalizeWallets(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, w := range in {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		key := strings.ToLower(w)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate wallet %s", ErrValidation, w)
		}
		seen[key] = struct{}{}
		out = append(out, w)
	}
	if len(out) < MinGroupSize {
		return nil, fmt.Errorf("%w: a group needs at least %d members", ErrValidation, MinGroupSize)
	}
	return out, nil
}

// SessionSetup is what a member needs to start voting.
type SessionSetup struct {
	SessionID     int64       `json:"sessionId"`
	GroupNumber   string      `json:"groupNum"`
	RankingScheme string      `json:"rankingScheme"`
	RankingLimit  int         `json:"rankingLimit"`
	Attendees     []Candidate `json:"attendees"`
}

func (s *Service) Setup(ctx context.Context, rc *Context) (*SessionSetup, error) {
	remaining, err := s.RemainingCandidates(ctx, rc)
	if err != nil {
		return nil, err
	}
	return &SessionSetup{
		SessionID:     rc.Session.ID,
		GroupNumber:   rc.Group.Label,
		RankingScheme: model.RankingSchemeNumericDescending,
		RankingLimit:  rc.Session.RankingLimit,
		Attendees:     candidatesOf(remaining),
	}, nil
}
