package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/respectgame/api/internal/auth"
	"github.com/respectgame/api/internal/config"
	"github.com/respectgame/api/internal/consensus"
	"github.com/respectgame/api/internal/database"
	"github.com/respectgame/api/internal/model"
	"github.com/respectgame/api/internal/store"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Show what would change without writing")
	progress := flag.Bool("progress", true, "Also run round progression on sessions still voting")
	flag.Parse()

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	startTime := time.Now()
	slog.Info("starting reconciliation", "dry_run", *dryRun)

	db, err := database.Connect(cfg)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	if err := database.Migrate(db); err != nil {
		fatal("failed to migrate database", err)
	}

	st := store.New(db)
	svc := consensus.NewService(st, consensus.Config{
		ConsensusLimit:      cfg.ConsensusLimit,
		DefaultRankingLimit: cfg.DefaultRankingLimit,
		Admins:              auth.NewAdminList(cfg.AdminWallets),
	})
	ctx := context.Background()

	var advanced, changed, failed int

	if *progress && !*dryRun {
		voting, err := st.SessionIDsByStatus(ctx, model.SessionStatusVotingInProgress)
		if err != nil {
			fatal("failed to list voting sessions", err)
		}
		for _, id := range voting {
			status, err := svc.Progress(ctx, id)
			if err != nil {
				failed++
				slog.Warn("progress failed", "session_id", id, "error", err)
				continue
			}
			if status != model.SessionStatusVotingInProgress {
				advanced++
				slog.Info("session advanced", "session_id", id, "status", status.String())
			}
		}
	}

	settled, err := st.SessionIDsByStatus(ctx,
		model.SessionStatusConsensusReached,
		model.SessionStatusChainSubmissionInProgress,
		model.SessionStatusChainSubmissionComplete,
	)
	if err != nil {
		fatal("failed to list settled sessions", err)
	}
	slog.Info("found settled sessions", "count", len(settled))

	for _, id := range settled {
		from, to, err := svc.ReconcileSubmissions(ctx, id, *dryRun)
		if err != nil {
			failed++
			slog.Warn("reconcile failed", "session_id", id, "error", err)
			continue
		}
		if from == to {
			continue
		}
		changed++
		if *dryRun {
			slog.Info("[DRY RUN] would update status", "session_id", id, "from", from.String(), "to", to.String())
		} else {
			slog.Info("updated status", "session_id", id, "from", from.String(), "to", to.String())
		}
	}

	slog.Info("reconciliation complete",
		"advanced", advanced,
		"changed", changed,
		"failed", failed,
		"duration", time.Since(startTime).String(),
	)
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
