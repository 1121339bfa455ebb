package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/respectgame/api/internal/consensus"
	"gorm.io/datatypes"
)

type SubmissionHandler struct {
	svc      *consensus.Service
	proposer consensus.Proposer
}

func NewSubmissionHandler(svc *consensus.Service, proposer consensus.Proposer) *SubmissionHandler {
	return &SubmissionHandler{svc: svc, proposer: proposer}
}

type SubmissionRequest struct {
	Proposal datatypes.JSON `json:"proposal"`
}

type FailedSubmissionRequest struct {
	Reason   int16          `json:"reason" binding:"required"`
	Proposal datatypes.JSON `json:"proposal"`
}

// SubmitProposal sends the result to the chain proposer on the caller's behalf
func (h *SubmissionHandler) SubmitProposal(c *gin.Context) {
	rc, ok := sessionContext(c, h.svc)
	if !ok {
		return
	}

	result, err := h.svc.SubmitProposal(c.Request.Context(), rc, h.proposer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MarkSubmitted records a submission the client made itself
func (h *SubmissionHandler) MarkSubmitted(c *gin.Context) {
	var req SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rc, ok := sessionContext(c, h.svc)
	if !ok {
		return
	}

	if err := h.svc.MarkSubmitted(c.Request.Context(), rc, req.Proposal); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionStatus": rc.Session.Status})
}

// MarkFailed records a failed submission attempt
func (h *SubmissionHandler) MarkFailed(c *gin.Context) {
	var req FailedSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	rc, ok := sessionContext(c, h.svc)
	if !ok {
		return
	}

	if err := h.svc.MarkSubmissionFailed(c.Request.Context(), rc, req.Reason, req.Proposal); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "failure recorded"})
}

// GetEligibility reports whether the caller may still submit
func (h *SubmissionHandler) GetEligibility(c *gin.Context) {
	rc, ok := sessionContext(c, h.svc)
	if !ok {
		return
	}

	allowed, err := h.svc.CanUserSubmit(c.Request.Context(), rc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"canSubmit": allowed})
}

// GetWinners lists the settled rankings, highest first
func (h *SubmissionHandler) GetWinners(c *gin.Context) {
	rc, ok := sessionContext(c, h.svc)
	if !ok {
		return
	}

	winners, err := h.svc.Winners(c.Request.Context(), rc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": rc.Session.ID, "groupNum": rc.Group.Label, "winners": winners})
}
