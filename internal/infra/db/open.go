// Package db selects the audit store named by the configuration.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bryanwahyu/homeready/internal/config"
	"github.com/bryanwahyu/homeready/internal/domain/audit"
	"github.com/bryanwahyu/homeready/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/homeready/internal/infra/db/mysql"
	"github.com/bryanwahyu/homeready/internal/infra/db/postgres"
)

// Store is an audit repository that can report its health.
type Store interface {
	audit.Repository
	Ping(ctx context.Context) error
}

// Open connects to the configured database, creates the schema when it is
// missing and returns the store with a function that releases it.
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	switch cfg.Database.Driver {
	case "memory":
		return memory.NewAuditRepository(), func() error { return nil }, nil
	case "mysql":
		conn, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		repo := mysqlp.NewAuditRepository(conn)
		return ensure(ctx, conn, repo, repo.EnsureSchema)
	case "postgres":
		conn, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		repo := postgres.NewAuditRepository(conn)
		return ensure(ctx, conn, repo, repo.EnsureSchema)
	}
	return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

func ensure(ctx context.Context, conn *sql.DB, s Store, schema func(context.Context) error) (Store, func() error, error) {
	if err := schema(ctx); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return s, conn.Close, nil
}
