package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/respectgame/api/internal/cache"
	"github.com/respectgame/api/internal/consensus"
)

type VotingHandler struct {
	svc    *consensus.Service
	rounds *cache.RoundCache
}

// NewVotingHandler accepts a nil cache.
func NewVotingHandler(svc *consensus.Service, rounds *cache.RoundCache) *VotingHandler {
	return &VotingHandler{svc: svc, rounds: rounds}
}

type VoteRequest struct {
	Ranking         int    `json:"ranking" binding:"required"`
	CandidateWallet string `json:"walletAddress" binding:"required"`
}

// GetRound returns the current round state
func (h *VotingHandler) GetRound(c *gin.Context) {
	rc, ok := sessionContext(c, h.svc)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if state, hit := h.rounds.Get(ctx, rc.Session.ID); hit {
		c.JSON(http.StatusOK, state)
		return
	}

	state, err := h.svc.Round(ctx, rc)
	if err != nil {
		respondError(c, err)
		return
	}
	h.rounds.Set(ctx, state)
	c.JSON(http.StatusOK, state)
}

// CastVote records the caller's vote and returns the refreshed round
func (h *VotingHandler) CastVote(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ranking and walletAddress are required"})
		return
	}

	rc, ok := sessionContext(c, h.svc)
	if !ok {
		return
	}

	result, err := h.svc.Vote(c.Request.Context(), rc, req.Ranking, req.CandidateWallet)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetTallies returns the live counts for one ranking
func (h *VotingHandler) GetTallies(c *gin.Context) {
	ranking, err := strconv.Atoi(c.Param("ranking"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ranking"})
		return
	}

	rc, ok := sessionContext(c, h.svc)
	if !ok {
		return
	}

	tallies, err := h.svc.Tallies(c.Request.Context(), rc, ranking)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ranking": ranking, "votes": tallies})
}

// Finalize commits a ranking on an admin's request
func (h *VotingHandler) Finalize(c *gin.Context) {
	ranking, err := strconv.Atoi(c.Param("ranking"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ranking"})
		return
	}

	rc, ok := sessionContext(c, h.svc)
	if !ok {
		return
	}

	state, err := h.svc.Finalize(c.Request.Context(), rc, ranking)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
