// Package sqlite provides single-node persistence on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/dukex/aiflow/pkg/persistence/sqlbase"
)

type Persistence struct {
	*sqlbase.Store
}

// NewPersistence opens the database file at path. A sqlite:// prefix is
// accepted. Writes are serialized over a single connection.
func NewPersistence(ctx context.Context, logger *slog.Logger, path string) (*Persistence, error) {
	database, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	database.SetMaxOpenConns(1)

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	err = sqlbase.NewMigrationManager(logger, database, sqlbase.SQLite, migrations()).RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{Store: sqlbase.NewStore(logger, database, sqlbase.SQLite)}, nil
}

// DSN turns a path or sqlite:// URL into a driver DSN with the pragmas the
// store relies on.
func DSN(path string) string {
	path = strings.TrimPrefix(path, "sqlite://")

	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}

	return "file:" + strings.TrimPrefix(path, "file:") + separator +
		"_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}
