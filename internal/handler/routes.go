package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/respectgame/api/internal/auth"
	"github.com/respectgame/api/internal/cache"
	"github.com/respectgame/api/internal/consensus"
	"github.com/respectgame/api/internal/middleware"
	"github.com/respectgame/api/internal/ratelimit"
	"github.com/respectgame/api/internal/store"
)

// Deps are the collaborators the API routes are built from. Rounds and
// Limiter may be nil.
type Deps struct {
	Service        *consensus.Service
	Store          *store.Store
	Proposer       consensus.Proposer
	Rounds         *cache.RoundCache
	Limiter        middleware.RateChecker
	Admins         *auth.AdminList
	JWTSecret      string
	JWTIssuer      string
	ProviderSecret string
}

// RegisterRoutes mounts the consensus API on api.
func RegisterRoutes(api *gin.RouterGroup, d Deps) {
	authHandler := NewAuthHandler(d.Store, d.JWTSecret, d.JWTIssuer, d.ProviderSecret)
	userHandler := NewUserHandler(d.Store)
	sessionHandler := NewSessionHandler(d.Service, d.Store)
	votingHandler := NewVotingHandler(d.Service, d.Rounds)
	submissionHandler := NewSubmissionHandler(d.Service, d.Proposer)
	exportHandler := NewExportHandler(d.Service)
	adminHandler := NewAdminHandler(d.Store, d.Service)

	requireAuth := middleware.AuthMiddleware(d.JWTSecret, d.Store)
	requireAdmin := middleware.AdminMiddleware(d.Admins)

	// Auth
	api.POST("/auth/login", middleware.RateLimit(d.Limiter, ratelimit.ActionLogin), authHandler.Login)
	api.POST("/auth/logout", requireAuth, authHandler.Logout)
	api.GET("/auth/me", requireAuth, authHandler.Me)

	// Users
	api.GET("/users", requireAuth, requireAdmin, userHandler.Search)

	// Sessions
	sessions := api.Group("/sessions", requireAuth)
	{
		sessions.POST("", sessionHandler.CreateSession)
		sessions.GET("/recent", sessionHandler.GetRecent)
		sessions.GET("/:id/setup", sessionHandler.GetSetup)

		// Voting
		sessions.GET("/:id/round", votingHandler.GetRound)
		sessions.POST("/:id/votes", middleware.RateLimit(d.Limiter, ratelimit.ActionVote), votingHandler.CastVote)
		sessions.GET("/:id/rankings/:ranking/votes", votingHandler.GetTallies)
		sessions.POST("/:id/rankings/:ranking/finalize", middleware.RateLimit(d.Limiter, ratelimit.ActionFinalize), votingHandler.Finalize)

		// Results
		sessions.GET("/:id/winners", submissionHandler.GetWinners)
		sessions.GET("/:id/winners/export", exportHandler.Export)

		// Chain submission
		submit := middleware.RateLimit(d.Limiter, ratelimit.ActionSubmit)
		sessions.POST("/:id/proposal", submit, submissionHandler.SubmitProposal)
		sessions.POST("/:id/submissions", submit, submissionHandler.MarkSubmitted)
		sessions.POST("/:id/submissions/failed", submit, submissionHandler.MarkFailed)
		sessions.GET("/:id/submissions/eligibility", submissionHandler.GetEligibility)
	}

	// Admin
	admin := api.Group("/admin", requireAuth, requireAdmin)
	{
		admin.GET("/stats", adminHandler.GetStats)
		admin.GET("/sessions", adminHandler.ListSessions)
		admin.GET("/sessions/:id/audit", adminHandler.AuditSession)
	}
}
