package sqlbase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
)

// Store implements persistence.Persistence over a database/sql connection.
// Drivers and schemas live in the dialect packages.
type Store struct {
	db         *sql.DB
	logger     *slog.Logger
	workflows  *WorkflowRepository
	executions *ExecutionRepository
	outputs    *OutputRepository
	content    *ContentRepository
}

var _ persistence.Persistence = (*Store)(nil)

func NewStore(logger *slog.Logger, db *sql.DB, dialect Dialect) *Store {
	logger = logger.With("module", "sql_persistence", "dialect", dialect.Name)

	return &Store{
		db:         db,
		logger:     logger,
		workflows:  &WorkflowRepository{db: db, dialect: dialect, logger: logger},
		executions: &ExecutionRepository{db: db, dialect: dialect, logger: logger},
		outputs:    &OutputRepository{db: db, dialect: dialect},
		content:    &ContentRepository{db: db, dialect: dialect},
	}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	return s.workflows.GetAll(ctx)
}

func (s *Store) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return s.workflows.Save(ctx, workflow)
}

func (s *Store) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return s.workflows.GetByID(ctx, id)
}

func (s *Store) DeleteWorkflow(ctx context.Context, id string) error {
	return s.workflows.Delete(ctx, id)
}

func (s *Store) ExecutionRepository() persistence.ExecutionRepository {
	return s.executions
}

func (s *Store) OutputRepository() persistence.OutputRepository {
	return s.outputs
}

func (s *Store) ContentRepository() persistence.ContentRepository {
	return s.content
}

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (s *Store) Close(_ context.Context) error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

// WithTx runs fn in a transaction, committing when it returns nil.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	err = fn(tx)
	if err != nil {
		return errors.Join(err, ignoreDone(tx.Rollback()))
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func ignoreDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

// jsonText encodes v for a JSON column. nil is stored as NULL.
func jsonText(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return string(b), nil
}

func decodeJSON(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}

	return json.Unmarshal(b, v)
}
