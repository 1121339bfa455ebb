package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"

	"github.com/respectgame/api/internal/config"
	"github.com/respectgame/api/internal/database"
	"github.com/respectgame/api/internal/model"
	"github.com/respectgame/api/internal/store"
)

func main() {
	filePath := flag.String("file", "data/wallets.txt", "Path to wallet list file (wallet[,name[,username]] per line)")
	batchSize := flag.Int("batch", 500, "Batch size for inserts")
	flag.Parse()

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	db, err := database.Connect(cfg)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	if err := database.Migrate(db); err != nil {
		fatal("failed to migrate database", err)
	}

	users, err := loadWalletList(*filePath)
	if err != nil {
		fatal("failed to load wallet list", err)
	}
	slog.Info("loaded wallets", "file", *filePath, "count", len(users))

	if *batchSize < 1 {
		*batchSize = 500
	}

	st := store.New(db)
	ctx := context.Background()
	var inserted int64
	for i := 0; i < len(users); i += *batchSize {
		end := min(i+*batchSize, len(users))
		n, err := st.SeedUsers(ctx, users[i:end])
		if err != nil {
			fatal("failed to seed users", err)
		}
		inserted += n
	}

	slog.Info("seeding complete", "inserted", inserted, "skipped", int64(len(users))-inserted)
}

func loadWalletList(path string) ([]model.User, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	seen := make(map[string]struct{})
	var users []model.User
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		u, ok := parseWalletLine(line)
		if !ok {
			continue
		}
		key := strings.ToLower(u.WalletAddress)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		users = append(users, u)
	}

	return users, scanner.Err()
}

func parseWalletLine(line string) (model.User, bool) {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if fields[0] == "" {
		return model.User{}, false
	}

	u := model.User{WalletAddress: fields[0]}
	if len(fields) > 1 {
		u.Name = fields[1]
	}
	if len(fields) > 2 {
		u.Username = fields[2]
	}
	return u, true
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
