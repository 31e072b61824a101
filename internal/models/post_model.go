package models

import (
	"database/sql"
	"time"
)

type Post struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Content   string    `db:"content" json:"content"`
	Status    string    `db:"status" json:"status"` // draft, scheduled, published
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// ScheduledAt and PublishedAt are stored in UTC, always.
	ScheduledAt sql.NullTime `db:"scheduled_at" json:"scheduled_at"`
	PublishedAt sql.NullTime `db:"published_at" json:"published_at"`

	// UserTimezone and OriginalScheduledTime record what the user typed
	// and in which zone they meant it. Display/audit only: publish
	// decisions never re-derive ScheduledAt from them.
	UserTimezone          string `db:"user_timezone" json:"user_timezone"`
	OriginalScheduledTime string `db:"original_scheduled_time" json:"original_scheduled_time"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
)
