package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/respectgame/api/internal/auth"
	"github.com/respectgame/api/internal/database"
	"github.com/respectgame/api/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const JWTSecret = "test-secret"

var dbCounter atomic.Int64

// SetupTestDB opens a private in-memory SQLite database with the full schema.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err, "open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db), "migrate test database")
	return db
}

// CreateUser inserts a logged-in user with the given wallet.
func CreateUser(t *testing.T, db *gorm.DB, wallet, name string) model.User {
	t.Helper()

	now := time.Now()
	user := model.User{
		WalletAddress: wallet,
		Name:          name,
		Username:      strings.ToLower(name),
		LoggedIn:      true,
		LastLogin:     &now,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// CreateUsers inserts one logged-in user per name, with wallets 0x<name>.
func CreateUsers(t *testing.T, db *gorm.DB, names ...string) []model.User {
	t.Helper()

	users := make([]model.User, 0, len(names))
	for _, n := range names {
		users = append(users, CreateUser(t, db, "0x"+strings.ToLower(n), n))
	}
	return users
}

// CreateSession inserts a session with an active group holding members.
func CreateSession(t *testing.T, db *gorm.DB, adminID int64, rankingLimit int, members []model.User) (model.ConsensusSession, model.Group) {
	t.Helper()

	session := model.ConsensusSession{
		Title:        "Test Session",
		RankingLimit: rankingLimit,
		Status:       model.SessionStatusNotStarted,
		ModifiedByID: adminID,
	}
	require.NoError(t, db.Create(&session).Error)

	group := model.Group{
		SessionID:    session.ID,
		Status:       model.GroupStatusActive,
		Label:        "1",
		ModifiedByID: adminID,
	}
	require.NoError(t, db.Create(&group).Error)

	for _, m := range members {
		require.NoError(t, db.Create(&model.GroupMember{GroupID: group.ID, UserID: m.ID}).Error)
	}
	return session, group
}

// UserSession stores an active backend session for user and returns its id.
func UserSession(t *testing.T, db *gorm.DB, user model.User) string {
	t.Helper()

	session := model.UserSession{
		ID:                fmt.Sprintf("sess-%d-%d", user.ID, dbCounter.Add(1)),
		UserID:            user.ID,
		WalletAddress:     user.WalletAddress,
		ExternalSessionID: "external",
		ExpiresAt:         time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(&session).Error)
	return session.ID
}

// Token issues an access token for user backed by a fresh user session.
func Token(t *testing.T, db *gorm.DB, user model.User) string {
	t.Helper()

	token, err := auth.GenerateAccessToken(user.WalletAddress, UserSession(t, db, user), JWTSecret, "test")
	require.NoError(t, err)
	return token
}

// Identity returns a complete identity for user.
func Identity(user model.User) auth.Identity {
	return auth.Identity{
		WalletAddress: user.WalletAddress,
		SessionID:     fmt.Sprintf("sess-%d", user.ID),
		Authenticated: true,
	}
}

// MakeRequest sends a JSON request through handler.
func MakeRequest(t *testing.T, handler http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// DecodeJSON decodes a recorder body into v.
func DecodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), "decode body: %s", rr.Body.String())
}
