package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"civicboard/internal/config"
	"civicboard/internal/database"
	"civicboard/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	users := flag.Int("users", 20, "number of synthetic users to spread activity across")
	items := flag.Int("items", 50, "number of items to create")
	countiesFile := flag.String("counties", "", "optional YAML fixture of county assignments")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	if cfg.Env == "production" || cfg.Env == "prod" {
		slog.Error("refusing to seed a production database")
		os.Exit(1)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}

	if err := seed.Run(context.Background(), db, seed.Options{
		Users:        *users,
		Items:        *items,
		CountiesFile: *countiesFile,
	}); err != nil {
		slog.Error("seeding failed", "err", err)
		os.Exit(1)
	}
}
