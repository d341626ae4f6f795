// Package main is the entry point for the microblog server. It reads
// configuration from flags and environment variables, builds the logger, and
// hands everything to internal/server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/server"
)

func main() {
	seed := flag.Bool("seed", false, "populate the database with sample users and posts, then continue serving")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/microblog.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	avatarDir := "data/avatars"
	if envDir := os.Getenv("AVATAR_DIR"); envDir != "" {
		avatarDir = envDir
	}

	sessionTTL := 24 * time.Hour
	if envTTL := os.Getenv("SESSION_TTL"); envTTL != "" {
		ttl, err := time.ParseDuration(envTTL)
		if err != nil {
			logger.Error("invalid SESSION_TTL value", slog.String("value", envTTL))
			os.Exit(1)
		}
		sessionTTL = ttl
	}

	googleCallbackURL := os.Getenv("GOOGLE_CALLBACK_URL")
	if googleCallbackURL == "" {
		googleCallbackURL = fmt.Sprintf("http://localhost:%d/auth/google/callback", port)
	}

	cfg := server.Config{
		Port:               port,
		DBPath:             dbPath,
		AvatarDir:          avatarDir,
		SessionTTL:         sessionTTL,
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  googleCallbackURL,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *seed {
		if err := seedDatabase(srv, logger); err != nil {
			logger.Error("seeding failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// seedDatabase inserts a handful of sample users and posts for local
// development. Running it against an already-seeded database is a no-op.
func seedDatabase(srv *server.Server, logger *slog.Logger) error {
	users := srv.DB().Users()
	posts := srv.DB().Posts()
	ctx := context.Background()

	if _, err := users.GetByUsername(ctx, "user1"); err == nil {
		logger.Info("seed data already present, skipping")
		return nil
	}

	usernames := []string{"user1", "user2", "gamerDude", "proGamer", "linkLover", "zeldaFan"}
	for _, username := range usernames {
		user := &model.User{
			Username:     username,
			IdentityHash: auth.LocalCredential{Username: username}.IdentityHash(),
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("seeding user %s: %w", username, err)
		}
	}

	samplePosts := []model.Post{
		{Title: "Exploring the Mountains", Content: "Just got back from a weekend trip to the mountains. The view was breathtaking and the fresh air was invigorating. Highly recommend!", AuthorUsername: "user1", Category: "General"},
		{Title: "New Coffee Shop in Town", Content: "Discovered a new coffee shop downtown. The ambiance is perfect for working or just relaxing with a good book. The cappuccino was top-notch!", AuthorUsername: "user1", Category: "General"},
		{Title: "Homemade Pizza Night", Content: "Tried making pizza from scratch last night. It turned out amazing! Might have found my new favorite hobby.", AuthorUsername: "user2", Category: "General"},
		{Title: "Sunday Morning Run", Content: "Went for a run in the park this morning. The weather was perfect and the birds were singing. Feeling refreshed and ready to tackle the week!", AuthorUsername: "user2", Category: "General"},
		{Title: "CS2 Rank Up", Content: "Finally ranked up in CS2! My teammates actually used their mics and we coordinated like pros. Almost spilled my drink during a clutch moment!", AuthorUsername: "gamerDude", Category: "CS2"},
		{Title: "Valorant: Ace of the Day", Content: "Pulled off an ace in Valorant today. My team showered me with praise, and also asked if I could do it again.", AuthorUsername: "proGamer", Category: "Valorant"},
		{Title: "Zelda: Breath of the Wild Adventures", Content: "Spent hours exploring the vast world of Zelda. Found a hidden shrine and got a cool new weapon. Also, accidentally set a field on fire. Oops!", AuthorUsername: "linkLover", Category: "Zelda"},
		{Title: "Baldur's Gate 3: Epic Campaign", Content: "Our D&D group started a campaign in Baldur's Gate 3. My character, a bard, managed to talk our way out of a fight. Then promptly fell into a trap. Classic.", AuthorUsername: "zeldaFan", Category: "BaldursGate"},
		{Title: "Evening Yoga Session", Content: "Had a relaxing yoga session in the evening. The perfect way to unwind and stretch after a long day. Namaste!", AuthorUsername: "user1", Category: "General"},
		{Title: "Spring Cleaning", Content: "Spent the day doing some spring cleaning. The house feels so much more organized now. Time to relax and enjoy the clean space!", AuthorUsername: "user2", Category: "General"},
	}
	for i := range samplePosts {
		if err := posts.Create(ctx, &samplePosts[i]); err != nil {
			return fmt.Errorf("seeding post %q: %w", samplePosts[i].Title, err)
		}
	}

	logger.Info("database seeded",
		slog.Int("users", len(usernames)),
		slog.Int("posts", len(samplePosts)),
	)
	return nil
}
