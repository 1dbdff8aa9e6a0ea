// Command seed fills the configured database with demo accounts and posts.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/blogfolio/internal/config"
	"github.com/blogfolio/internal/db"
	"github.com/blogfolio/internal/logger"
	"github.com/blogfolio/internal/seed"
	"github.com/blogfolio/internal/service"
	"github.com/blogfolio/internal/storage"
)

func main() {
	users := flag.Int("users", 5, "number of accounts to create")
	posts := flag.Int("posts", 8, "posts per account")
	images := flag.Int("images", 4, "maximum gallery images per post")
	randSeed := flag.Int64("seed", 0, "fixed random seed (0 picks one)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "pretty")
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.New(cfg.LogLevel, "pretty")

	gdb, err := db.Open(db.Options{Driver: cfg.DatabaseDriver, Path: cfg.DatabasePath, DSN: cfg.DatabaseDSN})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create upload directory")
	}

	files := storage.NewLocal(cfg.UploadDir, cfg.UploadURLPath)
	result, err := seed.Run(context.Background(), gdb,
		service.NewAccountService(gdb, files, log),
		service.NewPostService(gdb, files, log, nil),
		seed.Options{Users: *users, PostsPerUser: *posts, MaxImages: *images, Seed: *randSeed},
		log,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	if result.Users > 0 {
		log.Info().Str("password", seed.DemoPassword).Msg("demo accounts use this password")
	}
}
