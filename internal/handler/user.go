package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/respectgame/api/internal/consensus"
	"github.com/respectgame/api/internal/store"
)

type UserHandler struct {
	store *store.Store
}

func NewUserHandler(st *store.Store) *UserHandler {
	return &UserHandler{store: st}
}

// Search lists logged-in users for the group picker
func (h *UserHandler) Search(c *gin.Context) {
	page, limit, offset := pagination(c)

	users, err := h.store.SearchUsers(c.Request.Context(), c.Query("q"), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]consensus.Candidate, 0, len(users))
	for _, u := range users {
		out = append(out, consensus.Candidate{WalletAddress: u.WalletAddress, Name: u.Name, Username: u.Username})
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  out,
		"page":  page,
		"limit": limit,
	})
}
