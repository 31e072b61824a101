package service

import (
	"context"
	"fmt"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"postpilot/internal/logging"
	"postpilot/internal/models"
	"postpilot/internal/repository"
	"postpilot/internal/transfer"
)

// PublisherService turns the raw repository operations into a resilient
// publish pipeline: fetch the due set, split it into bounded batches, and
// conditionally flip each batch with capped-exponential-backoff retries.
// No error escapes PublishScheduledPosts; every failure mode folds into
// the returned result.
type PublisherService interface {
	PublishScheduledPosts(ctx context.Context, now time.Time) *transfer.PublishResult
}

type PublisherConfig struct {
	MaxBatchSize int
	MaxRetries   uint
	BaseDelay    time.Duration
	MaxDelay     time.Duration

	// OpTimeout bounds each individual storage call. Batching keeps the
	// calls small; this keeps a hung one from stalling the whole run.
	OpTimeout time.Duration
}

type publisherService struct {
	pr  repository.PostRepository
	cfg PublisherConfig
	log *logging.Logger
}

func NewPublisherService(pr repository.PostRepository, cfg PublisherConfig, log *logging.Logger) PublisherService {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 50
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 30 * time.Second
	}
	return &publisherService{pr: pr, cfg: cfg, log: log}
}

func (s *publisherService) PublishScheduledPosts(ctx context.Context, now time.Time) *transfer.PublishResult {
	result := &transfer.PublishResult{
		Success: true,
		PostIDs: []int64{},
		Errors:  []string{},
	}
	now = now.UTC()

	var due []*models.Post
	err := s.withRetry(ctx, "fetch due posts", func(opCtx context.Context) error {
		var err error
		due, err = s.pr.GetDuePosts(opCtx, now)
		return err
	})
	if err != nil {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("failed to fetch due posts: %v", err))
		return result
	}

	if len(due) == 0 {
		return result
	}

	ids := make([]int64, 0, len(due))
	for _, post := range due {
		ids = append(ids, post.ID)
	}

	for start := 0; start < len(ids); start += s.cfg.MaxBatchSize {
		end := start + s.cfg.MaxBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		var published []int64
		err := s.withRetry(ctx, "mark batch published", func(opCtx context.Context) error {
			var err error
			published, err = s.pr.MarkPublished(opCtx, batch, now)
			return err
		})
		if err != nil {
			// A failed batch does not abort the run; later batches
			// may still succeed.
			result.Success = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("batch of %d posts failed after retries: %v", len(batch), err))
			continue
		}

		result.PublishedCount += len(published)
		result.PostIDs = append(result.PostIDs, published...)

		if skipped := len(batch) - len(published); skipped > 0 {
			// Expected under overlapping scheduler runs: another
			// invocation won the conditional update for these ids.
			result.SkippedCount += skipped
			result.Errors = append(result.Errors,
				fmt.Sprintf("%d posts skipped due to concurrent modification", skipped))
		}
	}

	return result
}

func (s *publisherService) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	return retry.Do(
		func() error {
			opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
			defer cancel()
			return fn(opCtx)
		},
		retry.Attempts(s.cfg.MaxRetries),
		retry.Delay(s.cfg.BaseDelay),
		retry.MaxDelay(s.cfg.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.log.Warn("retrying storage operation",
				logging.String("operation", op),
				logging.Int("attempt", int(n)+1),
				logging.Err(err))
		}),
	)
}
