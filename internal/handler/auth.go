package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/respectgame/api/internal/auth"
	"github.com/respectgame/api/internal/middleware"
	"github.com/respectgame/api/internal/model"
	"github.com/respectgame/api/internal/store"
)

type AuthHandler struct {
	store          *store.Store
	jwtSecret      string
	jwtIssuer      string
	providerSecret string
}

func NewAuthHandler(st *store.Store, jwtSecret, jwtIssuer, providerSecret string) *AuthHandler {
	return &AuthHandler{
		store:          st,
		jwtSecret:      jwtSecret,
		jwtIssuer:      jwtIssuer,
		providerSecret: providerSecret,
	}
}

type LoginRequest struct {
	Token string `json:"token" binding:"required"`
}

type TokenResponse struct {
	AccessToken string      `json:"accessToken"`
	ExpiresIn   int         `json:"expiresIn"`
	SessionID   string      `json:"sessionId"`
	User        *model.User `json:"user"`
}

// Login exchanges an identity provider token for an access token
func (h *AuthHandler) Login(c *gin.Context) {
	if h.providerSecret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "login is not configured"})
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	claims, err := auth.ValidateProviderToken(req.Token, h.providerSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid identity token"})
		return
	}

	session := &model.UserSession{
		ID:                uuid.NewString(),
		ExternalSessionID: claims.SessionID,
		IPAddress:         c.ClientIP(),
		ExpiresAt:         time.Now().Add(auth.SessionExpiry),
	}
	user, err := h.store.Login(c.Request.Context(), store.LoginProfile{
		WalletAddress: claims.WalletAddress,
		Name:          claims.Name,
		Username:      claims.Username,
		Email:         claims.Email,
	}, session)
	if err != nil {
		respondError(c, err)
		return
	}

	accessToken, err := auth.GenerateAccessToken(user.WalletAddress, session.ID, h.jwtSecret, h.jwtIssuer)
	if err != nil {
		slog.Error("failed to generate access token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	slog.Info("user logged in", "wallet", user.WalletAddress, "session_id", session.ID)
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(auth.AccessTokenExpiry.Seconds()),
		SessionID:   session.ID,
		User:        user,
	})
}

// Logout revokes the caller's backend session
func (h *AuthHandler) Logout(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if err := h.store.Logout(c.Request.Context(), id.SessionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the current user
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.store.UserByWallet(c.Request.Context(), middleware.GetIdentity(c).WalletAddress)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
