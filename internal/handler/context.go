package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/respectgame/api/internal/consensus"
	"github.com/respectgame/api/internal/middleware"
)

// sessionContext resolves the :id session for the caller, writing the error
// response when that fails.
func sessionContext(c *gin.Context, svc *consensus.Service) (*consensus.Context, bool) {
	sessionID, ok := paramInt64(c, "id")
	if !ok {
		return nil, false
	}
	rc, err := svc.Resolve(c.Request.Context(), sessionID, middleware.GetIdentity(c))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return rc, true
}
