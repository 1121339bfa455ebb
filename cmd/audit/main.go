package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/respectgame/api/internal/auth"
	"github.com/respectgame/api/internal/config"
	"github.com/respectgame/api/internal/consensus"
	"github.com/respectgame/api/internal/database"
	"github.com/respectgame/api/internal/model"
	"github.com/respectgame/api/internal/store"
)

var allStatuses = []model.SessionStatus{
	model.SessionStatusNotStarted,
	model.SessionStatusVotingInProgress,
	model.SessionStatusConsensusReached,
	model.SessionStatusChainSubmissionInProgress,
	model.SessionStatusChainSubmissionComplete,
}

type auditor interface {
	Audit(ctx context.Context, sessionID int64) ([]consensus.Violation, error)
}

type report struct {
	Total      int                              `json:"total"`
	Failed     []int64                          `json:"failed"`
	ByRule     map[string][]consensus.Violation `json:"violationsByRule"`
	Violations []consensus.Violation            `json:"violations"`
	Elapsed    string                           `json:"elapsed"`
}

func main() {
	workers := flag.Int("workers", 10, "Number of parallel workers")
	outputFile := flag.String("output", "audit_results.json", "Output file for results")
	flag.Parse()

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	db, err := database.Connect(cfg)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	st := store.New(db)
	svc := consensus.NewService(st, consensus.Config{
		ConsensusLimit: cfg.ConsensusLimit,
		Admins:         auth.NewAdminList(cfg.AdminWallets),
	})

	ctx := context.Background()
	ids, err := st.SessionIDsByStatus(ctx, allStatuses...)
	if err != nil {
		fatal("failed to list sessions", err)
	}

	fmt.Printf("Auditing %d sessions with %d workers...\n", len(ids), *workers)
	r := run(ctx, svc, ids, *workers)

	fmt.Printf("\n=== Audit Complete ===\n")
	fmt.Printf("Total sessions: %d\n", r.Total)
	fmt.Printf("Violations: %d\n", len(r.Violations))
	fmt.Printf("Sessions that could not be audited: %d\n", len(r.Failed))
	fmt.Printf("Time elapsed: %s\n", r.Elapsed)
	for rule, vs := range r.ByRule {
		fmt.Printf("%s: %d\n", rule, len(vs))
	}

	jsonData, _ := json.MarshalIndent(r, "", "  ")
	if err := os.WriteFile(*outputFile, jsonData, 0o644); err != nil {
		slog.Error("failed to write output file", "error", err)
	} else {
		fmt.Printf("\nResults saved to %s\n", *outputFile)
	}

	if len(r.Violations) > 0 {
		os.Exit(2)
	}
}

// run audits ids with a fixed pool of workers.
func run(ctx context.Context, a auditor, ids []int64, workers int) *report {
	if workers < 1 {
		workers = 1
	}
	start := time.Now()

	idChan := make(chan int64, workers*10)
	var processed int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	r := &report{
		Total:      len(ids),
		Failed:     []int64{},
		ByRule:     make(map[string][]consensus.Violation),
		Violations: []consensus.Violation{},
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idChan {
				violations, err := a.Audit(ctx, id)

				mu.Lock()
				if err != nil {
					slog.Warn("audit failed", "session_id", id, "error", err)
					r.Failed = append(r.Failed, id)
				}
				for _, v := range violations {
					r.Violations = append(r.Violations, v)
					r.ByRule[v.Rule] = append(r.ByRule[v.Rule], v)
				}
				mu.Unlock()

				if p := atomic.AddInt64(&processed, 1); p%100 == 0 {
					fmt.Printf("Progress: %d/%d\n", p, len(ids))
				}
			}
		}()
	}

	for _, id := range ids {
		idChan <- id
	}
	close(idChan)
	wg.Wait()

	r.Elapsed = time.Since(start).String()
	return r
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
