package models

import "time"

// SchedulerExecution is the metrics record for one scheduler run.
type SchedulerExecution struct {
	ExecutionID    string    `db:"execution_id" json:"execution_id"`
	StartedAt      time.Time `db:"started_at" json:"started_at"`
	CompletedAt    time.Time `db:"completed_at" json:"completed_at"`
	PostsProcessed int       `db:"posts_processed" json:"posts_processed"`
	PostsPublished int       `db:"posts_published" json:"posts_published"`
	ErrorCount     int       `db:"error_count" json:"error_count"`
	DurationMs     int64     `db:"duration_ms" json:"duration_ms"`
	Status         string    `db:"status" json:"status"` // completed, error
}

const (
	ExecutionStatusCompleted = "completed"
	ExecutionStatusError     = "error"
)
