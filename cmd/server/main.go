package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/respectgame/api/internal/auth"
	"github.com/respectgame/api/internal/cache"
	"github.com/respectgame/api/internal/client"
	"github.com/respectgame/api/internal/config"
	"github.com/respectgame/api/internal/consensus"
	"github.com/respectgame/api/internal/database"
	"github.com/respectgame/api/internal/handler"
	"github.com/respectgame/api/internal/middleware"
	"github.com/respectgame/api/internal/model"
	"github.com/respectgame/api/internal/ratelimit"
	"github.com/respectgame/api/internal/scheduler"
	"github.com/respectgame/api/internal/store"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	if err := database.Migrate(db); err != nil {
		fatal("failed to migrate database", err)
	}
	st := store.New(db)

	if cfg.IdentityProviderSecret() == "" {
		slog.Error("identity provider secret is unset and JWT_SECRET is the default, login is disabled")
	}

	admins := auth.NewAdminList(cfg.AdminWallets)
	if admins.Len() == 0 {
		slog.Warn("no admin wallets configured, sessions cannot be created")
	}

	// Redis backs the round cache and rate limiter; both are skipped without it
	var rounds *cache.RoundCache
	var limiter middleware.RateChecker
	redisCache, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		slog.Warn("redis unavailable, running without cache and rate limits", "error", err)
	} else {
		defer redisCache.Close()
		rounds = cache.NewRoundCache(redisCache, cfg.RoundCacheTTL, logger)
		limiter = ratelimit.NewLimiter(ratelimit.NewRedisStorage(redisCache.Client()), ratelimit.DefaultLimits)
	}

	svc := consensus.NewService(st, consensus.Config{
		ConsensusLimit:      cfg.ConsensusLimit,
		DefaultRankingLimit: cfg.DefaultRankingLimit,
		Admins:              admins,
		Logger:              logger,
		Hooks: consensus.Hooks{
			VoteCast: func(sessionID int64, _ int) {
				middleware.RecordVoteCast()
				rounds.Invalidate(context.Background(), sessionID)
			},
			Committed: func(sessionID int64, _ int, source string) {
				middleware.RecordCommit(source)
				rounds.Invalidate(context.Background(), sessionID)
			},
			StatusChanged: func(sessionID int64, status model.SessionStatus) {
				middleware.RecordStatusChange(int(status))
				rounds.Invalidate(context.Background(), sessionID)
			},
			SubmissionDone: func(_ int64, status string) {
				middleware.RecordChainSubmission(status)
			},
		},
	})

	proposer := client.NewProposerClient(client.ProposerConfig{
		BaseURL:      cfg.ProposerURL,
		ClientID:     cfg.ProposerClientID,
		ClientSecret: cfg.ProposerClientSecret,
		TokenURL:     cfg.ProposerTokenURL,
		Observe:      middleware.RecordProposerCall,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background sweeper for the single-candidate shortcut and submission status
	var sweeper *scheduler.SessionScheduler
	if cfg.SchedulerEnabled {
		sweeper = scheduler.NewSessionScheduler(st, svc, scheduler.SchedulerConfig{
			Interval: cfg.SchedulerInterval,
			Logger:   logger,
		})
		go sweeper.Start(ctx)
		slog.Info("background session scheduler started")
	}

	// Setup router
	r := gin.Default()
	r.Use(middleware.RequestID())
	r.Use(middleware.MetricsMiddleware())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", cfg.FrontendURL)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/scheduler/status", func(c *gin.Context) {
		if sweeper != nil {
			c.JSON(http.StatusOK, sweeper.GetStatus())
		} else {
			c.JSON(http.StatusOK, gin.H{"enabled": false, "message": "Scheduler is disabled"})
		}
	})

	handler.RegisterRoutes(r.Group("/api"), handler.Deps{
		Service:        svc,
		Store:          st,
		Proposer:       proposer,
		Rounds:         rounds,
		Limiter:        limiter,
		Admins:         admins,
		JWTSecret:      cfg.JWTSecret,
		JWTIssuer:      cfg.JWTIssuer,
		ProviderSecret: cfg.IdentityProviderSecret(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		if sweeper != nil {
			sweeper.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("API server starting", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("failed to start server", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
