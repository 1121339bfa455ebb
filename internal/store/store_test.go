package store

import (
	"context"
	"testing"
	"time"

	"github.com/respectgame/api/internal/consensus"
	"github.com/respectgame/api/internal/model"
	"github.com/respectgame/api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserByWallet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	created := testutil.CreateUser(t, db, "0xAbC", "Ada")

	user, err := s.UserByWallet(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = s.UserByWallet(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, consensus.ErrNotFound)
}

func TestSessionLookups(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()
	users := testutil.CreateUsers(t, db, "A", "B", "C")
	session, group := testutil.CreateSession(t, db, users[0].ID, 6, users)

	got, err := s.Session(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Session", got.Title)

	_, err = s.Session(ctx, session.ID+1)
	assert.ErrorIs(t, err, consensus.ErrNotFound)

	active, err := s.ActiveGroup(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, group.ID, active.ID)
	require.Len(t, active.Members, 3)
	assert.Equal(t, "0xa", active.Members[0].User.WalletAddress)

	_, err = s.ActiveGroup(ctx, session.ID+1)
	assert.ErrorIs(t, err, consensus.ErrNotFound)

	require.NoError(t, s.SetSessionStatus(ctx, session.ID, model.SessionStatusVotingInProgress))
	got, err = s.Session(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusVotingInProgress, got.Status)

	assert.ErrorIs(t, s.SetSessionStatus(ctx, session.ID+1, model.SessionStatusVotingInProgress), consensus.ErrNotFound)
}

func TestOneActiveGroupPerSession(t *testing.T) {
	db := testutil.SetupTestDB(t)
	users := testutil.CreateUsers(t, db, "A", "B")
	session, _ := testutil.CreateSession(t, db, users[0].ID, 6, users)

	err := db.Create(&model.Group{SessionID: session.ID, Status: model.GroupStatusActive, ModifiedByID: users[0].ID}).Error
	assert.Error(t, err)
}

func TestCreateSessionWithGroupRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	users := testutil.CreateUsers(t, db, "A", "B")

	session := &model.ConsensusSession{Title: "T", RankingLimit: 6, ModifiedByID: users[0].ID}
	group := &model.Group{Status: model.GroupStatusActive, Label: "1", ModifiedByID: users[0].ID}
	err := s.CreateSessionWithGroup(context.Background(), session, group, []string{"0xa", "0xnobody"})
	assert.ErrorIs(t, err, consensus.ErrValidation)

	var sessions, groups, members int64
	db.Model(&model.ConsensusSession{}).Count(&sessions)
	db.Model(&model.Group{}).Count(&groups)
	db.Model(&model.GroupMember{}).Count(&members)
	assert.Zero(t, sessions)
	assert.Zero(t, groups)
	assert.Zero(t, members)

	session = &model.ConsensusSession{Title: "T", RankingLimit: 6, ModifiedByID: users[0].ID}
	group = &model.Group{Status: model.GroupStatusActive, Label: "1", ModifiedByID: users[0].ID}
	require.NoError(t, s.CreateSessionWithGroup(context.Background(), session, group, []string{"0xA", "0xb"}))
	assert.NotZero(t, session.ID)
	assert.Equal(t, session.ID, group.SessionID)
	assert.Len(t, group.Members, 2)
}

func TestUpsertVoteAndTally(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()
	users := testutil.CreateUsers(t, db, "A", "B", "C")
	session, group := testutil.CreateSession(t, db, users[0].ID, 6, users)

	vote := func(voter, candidate model.User) {
		require.NoError(t, s.UpsertVote(ctx, &model.Vote{
			SessionID:    session.ID,
			GroupID:      group.ID,
			RankingValue: 6,
			VoterID:      voter.ID,
			VotedFor:     candidate.ID,
		}))
	}
	vote(users[0], users[1])
	vote(users[0], users[2])
	vote(users[1], users[2])
	vote(users[2], users[0])

	tallies, err := s.TallyVotes(ctx, session.ID, group.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, []consensus.Tally{
		{CandidateID: users[2].ID, WalletAddress: "0xc", Name: "C", Votes: 2},
		{CandidateID: users[0].ID, WalletAddress: "0xa", Name: "A", Votes: 1},
	}, tallies)

	empty, err := s.TallyVotes(ctx, session.ID, group.ID, 5)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, s.SetSessionStatus(ctx, session.ID, model.SessionStatusConsensusReached))
	closed, err := s.TallyVotes(ctx, session.ID, group.ID, 6)
	require.NoError(t, err)
	assert.Empty(t, closed)
}

func TestInsertConsensusRecordIsInsertIfAbsent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()
	users := testutil.CreateUsers(t, db, "A", "B")
	session, _ := testutil.CreateSession(t, db, users[0].ID, 6, users)

	inserted, err := s.InsertConsensusRecord(ctx, &model.ConsensusRecord{SessionID: session.ID, RankingValue: 6, VotedFor: users[0].ID, Status: 1, ModifiedByID: users[1].ID})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertConsensusRecord(ctx, &model.ConsensusRecord{SessionID: session.ID, RankingValue: 6, VotedFor: users[1].ID, Status: 1, ModifiedByID: users[1].ID})
	require.NoError(t, err)
	assert.False(t, inserted)

	records, err := s.ConsensusRecords(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, users[0].ID, records[0].VotedFor)
}

func TestInsertConsensusRecordRejectsSecondRankingForWinner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()
	users := testutil.CreateUsers(t, db, "A", "B")
	session, _ := testutil.CreateSession(t, db, users[0].ID, 6, users)

	inserted, err := s.InsertConsensusRecord(ctx, &model.ConsensusRecord{SessionID: session.ID, RankingValue: 6, VotedFor: users[0].ID, Status: 1, ModifiedByID: users[1].ID})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertConsensusRecord(ctx, &model.ConsensusRecord{SessionID: session.ID, RankingValue: 5, VotedFor: users[0].ID, Status: 1, ModifiedByID: users[1].ID})
	require.NoError(t, err)
	assert.False(t, inserted)

	records, err := s.ConsensusRecords(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 6, records[0].RankingValue)
}

func TestReserveSubmission(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()
	users := testutil.CreateUsers(t, db, "A", "B")
	session, _ := testutil.CreateSession(t, db, users[0].ID, 2, users)
	cutoff := time.Now().Add(-time.Minute)

	claim := &model.OnchainProposal{SessionID: session.ID, ModifiedByID: users[0].ID}
	reserved, err := s.ReserveSubmission(ctx, claim, cutoff)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Equal(t, model.ProposalStatusPending, claim.Status)

	reserved, err = s.ReserveSubmission(ctx, &model.OnchainProposal{SessionID: session.ID, ModifiedByID: users[0].ID}, cutoff)
	require.NoError(t, err)
	assert.False(t, reserved, "one in-flight submission per user")

	reserved, err = s.ReserveSubmission(ctx, &model.OnchainProposal{SessionID: session.ID, ModifiedByID: users[1].ID}, cutoff)
	require.NoError(t, err)
	assert.True(t, reserved)

	claim.ProposalJSON = []byte(`{"proposalId":"p-1"}`)
	require.NoError(t, s.CompleteSubmission(ctx, claim))
	assert.ErrorIs(t, s.CompleteSubmission(ctx, claim), consensus.ErrNotFound)

	count, err := s.CountSuccessfulSubmissions(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	reserved, err = s.ReserveSubmission(ctx, &model.OnchainProposal{SessionID: session.ID, ModifiedByID: users[0].ID}, cutoff)
	require.NoError(t, err)
	assert.False(t, reserved, "a successful submission blocks new reservations")
}

func TestReleaseSubmission(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()
	users := testutil.CreateUsers(t, db, "A")
	session, _ := testutil.CreateSession(t, db, users[0].ID, 1, users)
	cutoff := time.Now().Add(-time.Minute)

	claim := &model.OnchainProposal{SessionID: session.ID, ModifiedByID: users[0].ID}
	reserved, err := s.ReserveSubmission(ctx, claim, cutoff)
	require.NoError(t, err)
	require.True(t, reserved)

	claim.FailureReason = model.FailureReasonProposalRejected
	require.NoError(t, s.ReleaseSubmission(ctx, claim))

	var stored model.OnchainProposal
	require.NoError(t, db.First(&stored, claim.ID).Error)
	assert.Equal(t, model.ProposalStatusFailed, stored.Status)
	assert.Equal(t, model.FailureReasonProposalRejected, stored.FailureReason)

	reserved, err = s.ReserveSubmission(ctx, &model.OnchainProposal{SessionID: session.ID, ModifiedByID: users[0].ID}, cutoff)
	require.NoError(t, err)
	assert.True(t, reserved, "a released reservation frees the user")
}

func TestSubmissions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()
	users := testutil.CreateUsers(t, db, "A", "B")
	session, _ := testutil.CreateSession(t, db, users[0].ID, 2, users)

	for i := 0; i < 2; i++ {
		require.NoError(t, s.RecordSubmission(ctx, &model.OnchainProposal{
			SessionID:    session.ID,
			Status:       model.ProposalStatusSubmitted,
			ModifiedByID: users[0].ID,
		}))
	}
	require.NoError(t, s.InsertFailedSubmission(ctx, &model.OnchainProposal{
		SessionID:     session.ID,
		Status:        model.ProposalStatusFailed,
		FailureReason: model.FailureReasonProposalRejected,
		ModifiedByID:  users[1].ID,
	}))

	count, err := s.CountSuccessfulSubmissions(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	done, err := s.HasSuccessfulSubmission(ctx, session.ID, users[0].ID)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = s.HasSuccessfulSubmission(ctx, session.ID, users[1].ID)
	require.NoError(t, err)
	assert.False(t, done)

	err = db.Create(&model.OnchainProposal{SessionID: session.ID, Status: model.ProposalStatusSubmitted, ModifiedByID: users[0].ID}).Error
	assert.Error(t, err, "second successful submission per user violates the partial unique index")
}

func TestLoginLogout(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()

	session := &model.UserSession{ID: "s1", ExternalSessionID: "ext", ExpiresAt: time.Now().Add(time.Hour)}
	user, err := s.Login(ctx, LoginProfile{WalletAddress: "0xAbc", Name: "Ada"}, session)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)

	var stored model.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.True(t, stored.LoggedIn)
	assert.Equal(t, "Ada", stored.Name)
	assert.NotNil(t, stored.LastLogin)

	again := &model.UserSession{ID: "s2", ExternalSessionID: "ext2", ExpiresAt: time.Now().Add(time.Hour)}
	second, err := s.Login(ctx, LoginProfile{WalletAddress: "0xabc", Username: "ada"}, again)
	require.NoError(t, err)
	assert.Equal(t, user.ID, second.ID)

	active, err := s.ActiveUserSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, active.UserID)

	require.NoError(t, s.Logout(ctx, "s1"))
	_, err = s.ActiveUserSession(ctx, "s1")
	assert.ErrorIs(t, err, consensus.ErrNotFound)

	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.False(t, stored.LoggedIn)

	assert.ErrorIs(t, s.Logout(ctx, "missing"), consensus.ErrNotFound)
}

func TestExpiredUserSession(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	user := testutil.CreateUser(t, db, "0xa", "A")
	require.NoError(t, db.Create(&model.UserSession{
		ID:                "old",
		UserID:            user.ID,
		WalletAddress:     user.WalletAddress,
		ExternalSessionID: "ext",
		ExpiresAt:         time.Now().Add(-time.Minute),
	}).Error)

	_, err := s.ActiveUserSession(context.Background(), "old")
	assert.ErrorIs(t, err, consensus.ErrNotFound)
}

func TestSearchUsers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()
	testutil.CreateUsers(t, db, "Alice", "Bob", "Alfred")
	offline := testutil.CreateUser(t, db, "0xoffline", "Alma")
	require.NoError(t, db.Model(&offline).Update("logged_in", false).Error)

	users, err := s.SearchUsers(ctx, "al", 0, 10)
	require.NoError(t, err)
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"Alfred", "Alice"}, names)

	all, err := s.SearchUsers(ctx, "", 0, 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRecentSessions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()
	users := testutil.CreateUsers(t, db, "A", "B", "C")
	admin := testutil.CreateUser(t, db, "0xadmin", "Admin")

	first, _ := testutil.CreateSession(t, db, admin.ID, 6, users[:2])
	second, _ := testutil.CreateSession(t, db, admin.ID, 6, users)
	require.NoError(t, s.SetSessionStatus(ctx, first.ID, model.SessionStatusRetired))

	sessions, err := s.RecentSessions(ctx, users[0].ID, false, 10)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	sessions, err = s.RecentSessions(ctx, users[0].ID, true, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, second.ID, sessions[0].ID)

	sessions, err = s.RecentSessions(ctx, users[2].ID, false, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	sessions, err = s.RecentSessions(ctx, admin.ID, false, 10)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestStatsAndListSessions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx := context.Background()
	users := testutil.CreateUsers(t, db, "A", "B")
	first, _ := testutil.CreateSession(t, db, users[0].ID, 6, users)
	testutil.CreateSession(t, db, users[0].ID, 6, users)
	require.NoError(t, s.SetSessionStatus(ctx, first.ID, model.SessionStatusConsensusReached))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(2), stats.LoggedInUsers)
	assert.Equal(t, int64(2), stats.TotalSessions)
	assert.Equal(t, map[string]int64{"not_started": 1, "consensus_reached": 1}, stats.SessionsByStatus)

	status := model.SessionStatusConsensusReached
	sessions, total, err := s.ListSessions(ctx, &status, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, sessions, 1)
	assert.Equal(t, first.ID, sessions[0].ID)

	ids, err := s.SessionIDsByStatus(ctx, model.SessionStatusNotStarted, model.SessionStatusVotingInProgress)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestSeedUsers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	testutil.CreateUser(t, db, "0xa", "A")

	n, err := s.SeedUsers(context.Background(), []model.User{
		{WalletAddress: "0xa", Name: "dup"},
		{WalletAddress: "0xb", Name: "B"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
