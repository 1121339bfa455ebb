package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/respectgame/api/internal/consensus"
	"github.com/respectgame/api/internal/model"
	"github.com/respectgame/api/internal/store"
)

type AdminHandler struct {
	store *store.Store
	svc   *consensus.Service
}

func NewAdminHandler(st *store.Store, svc *consensus.Service) *AdminHandler {
	return &AdminHandler{store: st, svc: svc}
}

// GetStats returns dashboard statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListSessions returns all sessions with pagination and an optional status filter
func (h *AdminHandler) ListSessions(c *gin.Context) {
	page, limit, offset := pagination(c)

	var status *model.SessionStatus
	if raw := c.Query("status"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < int(model.SessionStatusNotStarted) || v > int(model.SessionStatusChainSubmissionComplete) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		s := model.SessionStatus(v)
		status = &s
	}

	sessions, totalCount, err := h.store.ListSessions(c.Request.Context(), status, offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	totalPages := int((totalCount + int64(limit) - 1) / int64(limit))

	c.JSON(http.StatusOK, gin.H{
		"data":       sessions,
		"page":       page,
		"limit":      limit,
		"totalCount": totalCount,
		"totalPages": totalPages,
	})
}

// AuditSession checks a session's stored state against the consensus rules
func (h *AdminHandler) AuditSession(c *gin.Context) {
	sessionID, ok := paramInt64(c, "id")
	if !ok {
		return
	}

	violations, err := h.svc.Audit(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "violations": violations})
}
