package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"postpilot/internal/logging"
	"postpilot/internal/models"
	"postpilot/internal/repository"
)

type mockPostRepo struct {
	repository.PostRepository

	dueFn  func(ctx context.Context, before time.Time) ([]*models.Post, error)
	markFn func(ctx context.Context, ids []int64, publishedAt time.Time) ([]int64, error)
}

func (m *mockPostRepo) GetDuePosts(ctx context.Context, before time.Time) ([]*models.Post, error) {
	if m.dueFn != nil {
		return m.dueFn(ctx, before)
	}
	return nil, nil
}

func (m *mockPostRepo) MarkPublished(ctx context.Context, ids []int64, publishedAt time.Time) ([]int64, error) {
	if m.markFn != nil {
		return m.markFn(ctx, ids, publishedAt)
	}
	return ids, nil
}

func fastConfig(batchSize int) PublisherConfig {
	return PublisherConfig{
		MaxBatchSize: batchSize,
		MaxRetries:   3,
		BaseDelay:    time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func scheduledPosts(n int, base time.Time) []*models.Post {
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, &models.Post{
			ID:          int64(i + 1),
			UserID:      1,
			Content:     fmt.Sprintf("post %d", i+1),
			Status:      models.PostStatusScheduled,
			ScheduledAt: sql.NullTime{Time: base.Add(time.Duration(i) * time.Hour), Valid: true},
		})
	}
	return posts
}

func TestPublish_EmptyDueSet(t *testing.T) {
	repo := &mockPostRepo{
		dueFn: func(_ context.Context, _ time.Time) ([]*models.Post, error) { return nil, nil },
		markFn: func(_ context.Context, _ []int64, _ time.Time) ([]int64, error) {
			t.Fatal("MarkPublished must not be called for an empty due set")
			return nil, nil
		},
	}
	svc := NewPublisherService(repo, fastConfig(50), logging.Nop())

	result := svc.PublishScheduledPosts(context.Background(), time.Now())
	if !result.Success || result.PublishedCount != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected empty success, got %+v", result)
	}
}

func TestPublish_AllDue(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)

	var markedAt time.Time
	repo := &mockPostRepo{
		dueFn: func(_ context.Context, before time.Time) ([]*models.Post, error) {
			if !before.Equal(now) {
				t.Fatalf("fetch cutoff %s, want %s", before, now)
			}
			return scheduledPosts(3, base), nil
		},
		markFn: func(_ context.Context, ids []int64, publishedAt time.Time) ([]int64, error) {
			markedAt = publishedAt
			return ids, nil
		},
	}
	svc := NewPublisherService(repo, fastConfig(50), logging.Nop())

	result := svc.PublishScheduledPosts(context.Background(), now)
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.PublishedCount != 3 || len(result.PostIDs) != 3 {
		t.Fatalf("expected 3 published, got %+v", result)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", result.Errors)
	}
	if !markedAt.Equal(now) {
		t.Fatalf("published_at %s, want %s", markedAt, now)
	}
}

func TestPublish_Batching(t *testing.T) {
	var batches [][]int64
	repo := &mockPostRepo{
		dueFn: func(_ context.Context, _ time.Time) ([]*models.Post, error) {
			return scheduledPosts(5, time.Now().Add(-time.Hour)), nil
		},
		markFn: func(_ context.Context, ids []int64, _ time.Time) ([]int64, error) {
			batches = append(batches, ids)
			return ids, nil
		},
	}
	svc := NewPublisherService(repo, fastConfig(2), logging.Nop())

	result := svc.PublishScheduledPosts(context.Background(), time.Now())
	if len(batches) != 3 {
		t.Fatalf("expected ceil(5/2)=3 update calls, got %d", len(batches))
	}
	for i, batch := range batches {
		if len(batch) > 2 {
			t.Fatalf("batch %d exceeds max size: %d", i, len(batch))
		}
	}
	if result.PublishedCount != 5 {
		t.Fatalf("expected 5 published, got %d", result.PublishedCount)
	}
}

func TestPublish_FetchRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	repo := &mockPostRepo{
		dueFn: func(_ context.Context, _ time.Time) ([]*models.Post, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("connection reset")
			}
			return scheduledPosts(1, time.Now().Add(-time.Hour)), nil
		},
	}
	svc := NewPublisherService(repo, fastConfig(50), logging.Nop())

	result := svc.PublishScheduledPosts(context.Background(), time.Now())
	if !result.Success || result.PublishedCount != 1 {
		t.Fatalf("expected recovery after retries, got %+v", result)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 fetch attempts, got %d", attempts)
	}
}

func TestPublish_FetchExhaustsRetries(t *testing.T) {
	attempts := 0
	repo := &mockPostRepo{
		dueFn: func(_ context.Context, _ time.Time) ([]*models.Post, error) {
			attempts++
			return nil, errors.New("database unreachable")
		},
	}
	svc := NewPublisherService(repo, fastConfig(50), logging.Nop())

	result := svc.PublishScheduledPosts(context.Background(), time.Now())
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.PublishedCount != 0 || len(result.PostIDs) != 0 {
		t.Fatalf("expected zero counts, got %+v", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "database unreachable") {
		t.Fatalf("expected the failure message, got %v", result.Errors)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestPublish_FailedBatchDoesNotAbortRun(t *testing.T) {
	calls := 0
	repo := &mockPostRepo{
		dueFn: func(_ context.Context, _ time.Time) ([]*models.Post, error) {
			return scheduledPosts(4, time.Now().Add(-time.Hour)), nil
		},
		markFn: func(_ context.Context, ids []int64, _ time.Time) ([]int64, error) {
			calls++
			// First batch (ids 1,2) fails persistently.
			if ids[0] == 1 {
				return nil, errors.New("deadlock detected")
			}
			return ids, nil
		},
	}
	svc := NewPublisherService(repo, fastConfig(2), logging.Nop())

	result := svc.PublishScheduledPosts(context.Background(), time.Now())
	if result.Success {
		t.Fatal("a failed batch must mark the run unsuccessful")
	}
	if result.PublishedCount != 2 {
		t.Fatalf("second batch should still publish, got %d", result.PublishedCount)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "deadlock") {
		t.Fatalf("expected one batch error, got %v", result.Errors)
	}
}

func TestPublish_ConcurrentModificationIsInformational(t *testing.T) {
	repo := &mockPostRepo{
		dueFn: func(_ context.Context, _ time.Time) ([]*models.Post, error) {
			return scheduledPosts(3, time.Now().Add(-time.Hour)), nil
		},
		markFn: func(_ context.Context, ids []int64, _ time.Time) ([]int64, error) {
			// Another scheduler instance already claimed id 2.
			var won []int64
			for _, id := range ids {
				if id != 2 {
					won = append(won, id)
				}
			}
			return won, nil
		},
	}
	svc := NewPublisherService(repo, fastConfig(50), logging.Nop())

	result := svc.PublishScheduledPosts(context.Background(), time.Now())
	if !result.Success {
		t.Fatalf("contention is not a failure, got %+v", result)
	}
	if result.PublishedCount != 2 || result.SkippedCount != 1 {
		t.Fatalf("expected 2 published / 1 skipped, got %+v", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "concurrent modification") {
		t.Fatalf("expected an informational note, got %v", result.Errors)
	}
}

func TestPublish_ExactlyOnceUnderConcurrency(t *testing.T) {
	repo := repository.NewMemoryPostRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	const dueSetSize = 20
	for i := 0; i < dueSetSize; i++ {
		_, err := repo.Create(ctx, &models.Post{
			UserID:      1,
			Content:     fmt.Sprintf("post %d", i),
			Status:      models.PostStatusScheduled,
			ScheduledAt: sql.NullTime{Time: now.Add(-time.Hour), Valid: true},
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	const schedulers = 4
	svc := NewPublisherService(repo, fastConfig(7), logging.Nop())

	var wg sync.WaitGroup
	results := make([]*struct {
		ids   []int64
		count int
	}, schedulers)
	for k := 0; k < schedulers; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			r := svc.PublishScheduledPosts(ctx, now)
			results[k] = &struct {
				ids   []int64
				count int
			}{ids: r.PostIDs, count: r.PublishedCount}
		}(k)
	}
	wg.Wait()

	total := 0
	seen := make(map[int64]int)
	for _, r := range results {
		total += r.count
		for _, id := range r.ids {
			seen[id]++
		}
	}
	if total != dueSetSize {
		t.Fatalf("published_count sum %d, want exactly %d", total, dueSetSize)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("post %d confirmed by %d invocations", id, n)
		}
	}

	// Every post ended up published exactly once in storage.
	for id := int64(1); id <= dueSetSize; id++ {
		post, err := repo.GetByID(ctx, id)
		if err != nil || post == nil {
			t.Fatalf("post %d: %v", id, err)
		}
		if post.Status != models.PostStatusPublished {
			t.Fatalf("post %d final status %q", id, post.Status)
		}
		if !post.PublishedAt.Valid || !post.PublishedAt.Time.Equal(now) {
			t.Fatalf("post %d published_at %+v, want %s", id, post.PublishedAt, now)
		}
	}
}
