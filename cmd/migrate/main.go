package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Rrens/greenbite/internal/config"
	"github.com/Rrens/greenbite/internal/logging"
	"github.com/Rrens/greenbite/internal/repository/postgres"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of migrations to apply (0 = all)")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	closer, err := logging.Setup(cfg.Logging, os.Getenv("ENV"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	dir := postgres.Direction(*direction)
	if dir != postgres.Up && dir != postgres.Down {
		log.Fatal().Str("direction", *direction).Msg("direction must be up or down")
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("source", cfg.Database.MigrationsURL).
		Msg("Migrating listing catalog")

	if err := postgres.Migrate(cfg.Database.DSN(), cfg.Database.MigrationsURL, dir, *steps); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
