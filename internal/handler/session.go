package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/respectgame/api/internal/consensus"
	"github.com/respectgame/api/internal/middleware"
	"github.com/respectgame/api/internal/model"
	"github.com/respectgame/api/internal/store"
)

type SessionHandler struct {
	svc   *consensus.Service
	store *store.Store
}

func NewSessionHandler(svc *consensus.Service, st *store.Store) *SessionHandler {
	return &SessionHandler{svc: svc, store: st}
}

type CreateSessionResponse struct {
	Session     *model.ConsensusSession `json:"session"`
	GroupID     int64                   `json:"groupId"`
	GroupNumber string                  `json:"groupNum"`
}

// CreateSession creates a session and its group (admin only)
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req consensus.NewSession
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, group, err := h.svc.CreateSession(c.Request.Context(), middleware.GetIdentity(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateSessionResponse{
		Session:     session,
		GroupID:     group.ID,
		GroupNumber: group.Label,
	})
}

// GetSetup returns group number, remaining attendees and ranking scheme
func (h *SessionHandler) GetSetup(c *gin.Context) {
	rc, ok := sessionContext(c, h.svc)
	if !ok {
		return
	}

	setup, err := h.svc.Setup(c.Request.Context(), rc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, setup)
}

// GetRecent lists the caller's recent sessions
func (h *SessionHandler) GetRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 50 {
		limit = 10
	}
	activeOnly := c.Query("active") == "true"

	user, err := h.store.UserByWallet(c.Request.Context(), middleware.GetIdentity(c).WalletAddress)
	if err != nil {
		respondError(c, err)
		return
	}

	sessions, err := h.store.RecentSessions(c.Request.Context(), user.ID, activeOnly, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if sessions == nil {
		sessions = []model.ConsensusSession{}
	}
	c.JSON(http.StatusOK, gin.H{"data": sessions})
}
