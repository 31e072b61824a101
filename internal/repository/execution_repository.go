package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"postpilot/internal/models"
)

// ExecutionRepository is the append-only metrics sink for scheduler runs.
// Writes are best-effort at the caller; reads feed observability dashboards.
type ExecutionRepository interface {
	Create(ctx context.Context, exec *models.SchedulerExecution) error
	GetByID(ctx context.Context, executionID string) (*models.SchedulerExecution, error)
	ListRecent(ctx context.Context, limit int) ([]*models.SchedulerExecution, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*models.SchedulerExecution, error)
}

const executionColumns = `execution_id, started_at, completed_at, posts_processed, posts_published, error_count, duration_ms, status`

type executionRepository struct {
	db *sql.DB
}

func NewExecutionRepository(db *sql.DB) ExecutionRepository {
	return &executionRepository{db: db}
}

func (r *executionRepository) Create(ctx context.Context, exec *models.SchedulerExecution) error {
	query := `
		INSERT INTO scheduler_executions (` + executionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		exec.ExecutionID, exec.StartedAt.UTC(), exec.CompletedAt.UTC(),
		exec.PostsProcessed, exec.PostsPublished, exec.ErrorCount,
		exec.DurationMs, exec.Status)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *executionRepository) GetByID(ctx context.Context, executionID string) (*models.SchedulerExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM scheduler_executions WHERE execution_id = $1`
	row := r.db.QueryRowContext(ctx, query, executionID)

	var exec models.SchedulerExecution
	err := row.Scan(&exec.ExecutionID, &exec.StartedAt, &exec.CompletedAt,
		&exec.PostsProcessed, &exec.PostsPublished, &exec.ErrorCount,
		&exec.DurationMs, &exec.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &exec, nil
}

func (r *executionRepository) ListRecent(ctx context.Context, limit int) ([]*models.SchedulerExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM scheduler_executions ORDER BY started_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectExecutions(rows)
}

func (r *executionRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*models.SchedulerExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM scheduler_executions
		WHERE started_at >= $1 AND started_at < $2
		ORDER BY started_at ASC`
	rows, err := r.db.QueryContext(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectExecutions(rows)
}

func collectExecutions(rows *sql.Rows) ([]*models.SchedulerExecution, error) {
	var execs []*models.SchedulerExecution
	for rows.Next() {
		var exec models.SchedulerExecution
		err := rows.Scan(&exec.ExecutionID, &exec.StartedAt, &exec.CompletedAt,
			&exec.PostsProcessed, &exec.PostsPublished, &exec.ErrorCount,
			&exec.DurationMs, &exec.Status)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		execs = append(execs, &exec)
	}
	return execs, rows.Err()
}
