package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/respectgame/api/internal/consensus"
)

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, consensus.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, consensus.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, consensus.ErrAlreadyCommitted), errors.Is(err, consensus.ErrConsensusNotReached):
		status = http.StatusConflict
	case errors.Is(err, consensus.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, consensus.ErrProposalRejected):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, consensus.ErrProposerUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func paramInt64(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

// pagination reads page and limit query parameters with the usual bounds.
func pagination(c *gin.Context) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}
