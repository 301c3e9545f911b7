package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Rrens/greenbite/internal/config"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
)

// DB wraps the connection pool to a MySQL catalog replica
type DB struct {
	*sql.DB
}

// DSN renders cfg as a go-sql-driver DSN
func DSN(cfg config.MySQLConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = cfg.Addr()
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = 5 * time.Second
	mc.Params = map[string]string{"transaction_read_only": "1"}
	if cfg.TLS {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}

// NewDB opens the pool and pings it once
func NewDB(ctx context.Context, cfg config.MySQLConfig) (*DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Str("database", cfg.Database).
		Msg("Connected to MySQL catalog")

	return &DB{DB: db}, nil
}

// Ping satisfies the readiness check
func (d *DB) Ping(ctx context.Context) error {
	return d.PingContext(ctx)
}
