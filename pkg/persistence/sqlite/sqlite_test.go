package sqlite_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/aiflow/pkg/persistence"
	"github.com/dukex/aiflow/pkg/persistence/sqlite"
	"github.com/dukex/aiflow/pkg/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func open(t *testing.T) *sqlite.Persistence {
	t.Helper()

	ctx := context.Background()

	p, err := sqlite.NewPersistence(ctx, quietLogger(), filepath.Join(t.TempDir(), "aiflow.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, p.Close(ctx))
	})

	return p
}

func TestPersistence(t *testing.T) {
	t.Parallel()

	testutil.RunPersistenceSuite(t, func(t *testing.T) persistence.Persistence {
		return open(t)
	})
}

func TestNewPersistence_MigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := "sqlite://" + filepath.Join(t.TempDir(), "aiflow.db")

	first, err := sqlite.NewPersistence(ctx, quietLogger(), path)
	require.NoError(t, err)

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, first.SaveWorkflow(ctx, workflow))
	require.NoError(t, first.Close(ctx))

	second, err := sqlite.NewPersistence(ctx, quietLogger(), path)
	require.NoError(t, err)

	defer func() { _ = second.Close(ctx) }()

	loaded, err := second.WorkflowByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)

	var versions int

	require.NoError(t, second.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 2, versions)
}

func TestDSN(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"file:/tmp/a.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		sqlite.DSN("sqlite:///tmp/a.db"))
	assert.Equal(t,
		"file:data.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		sqlite.DSN("file:data.db?mode=rwc"))
}
