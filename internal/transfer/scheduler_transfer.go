package transfer

// PublishResult is the outcome of one publisher pass. Errors collects both
// fatal failures (Success=false) and informational notes such as posts
// skipped by a concurrent run (Success stays true).
type PublishResult struct {
	Success        bool     `json:"success"`
	PublishedCount int      `json:"published_count"`
	SkippedCount   int      `json:"skipped_count"`
	PostIDs        []int64  `json:"post_ids"`
	Errors         []string `json:"errors"`
}

// SchedulerResult is the outcome of one scheduler execution. It is always
// returned, never replaced by a panic or error.
type SchedulerResult struct {
	ExecutionID    string   `json:"execution_id"`
	Success        bool     `json:"success"`
	PostsProcessed int      `json:"posts_processed"`
	PostsPublished int      `json:"posts_published"`
	DurationMs     int64    `json:"duration_ms"`
	Errors         []string `json:"errors"`
}
