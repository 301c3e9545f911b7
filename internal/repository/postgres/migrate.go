package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
)

// Direction selects which way Migrate moves the schema
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migrate applies the catalog migrations found at sourceURL.
// steps > 0 limits how many migrations run; 0 means all.
func Migrate(dsn, sourceURL string, dir Direction, steps int) error {
	m, err := migrate.New(sourceURL, dsn)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	switch {
	case steps > 0 && dir == Down:
		err = m.Steps(-steps)
	case steps > 0:
		err = m.Steps(steps)
	case dir == Down:
		err = m.Down()
	default:
		err = m.Up()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Str("direction", string(dir)).Msg("Catalog migration: no changes")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrate %s: %w", dir, err)
	}

	version, dirty, _ := m.Version()
	log.Info().Str("direction", string(dir)).Uint("version", version).Bool("dirty", dirty).Msg("Catalog migration: success")
	return nil
}

// RunMigrations brings the catalog schema fully up to date
func RunMigrations(dsn, sourceURL string) error {
	return Migrate(dsn, sourceURL, Up, 0)
}
