package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"postpilot/internal/models"
)

// MemoryPostRepository is an in-memory PostRepository for development and
// tests. It mirrors the conditional-update semantics of the postgres
// adapter, including under concurrent MarkPublished calls.
type MemoryPostRepository struct {
	mu        sync.Mutex
	posts     map[int64]*models.Post
	idCounter int64
}

var _ PostRepository = (*MemoryPostRepository)(nil)

func NewMemoryPostRepository() *MemoryPostRepository {
	return &MemoryPostRepository{posts: make(map[int64]*models.Post)}
}

func (r *MemoryPostRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.idCounter++
	cp := *post
	cp.ID = r.idCounter
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	cp.UpdatedAt = cp.CreatedAt
	r.posts[cp.ID] = &cp
	return cp.ID, nil
}

func (r *MemoryPostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *post
	return &cp, nil
}

func (r *MemoryPostRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var posts []*models.Post
	for _, post := range r.posts {
		if post.UserID == userID {
			cp := *post
			posts = append(posts, &cp)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return posts, nil
}

func (r *MemoryPostRepository) Update(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.posts[post.ID]
	if !ok {
		return nil
	}
	cp := *post
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	r.posts[post.ID] = &cp
	return nil
}

func (r *MemoryPostRepository) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.posts, id)
	return nil
}

func (r *MemoryPostRepository) GetDuePosts(ctx context.Context, before time.Time) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*models.Post
	for _, post := range r.posts {
		if post.Status == models.PostStatusScheduled &&
			post.ScheduledAt.Valid && !post.ScheduledAt.Time.After(before) {
			cp := *post
			due = append(due, &cp)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduledAt.Time.Before(due[j].ScheduledAt.Time)
	})
	return due, nil
}

func (r *MemoryPostRepository) MarkPublished(ctx context.Context, ids []int64, publishedAt time.Time) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var published []int64
	for _, id := range ids {
		post, ok := r.posts[id]
		// Compare-and-set: only a post still in scheduled status moves.
		if !ok || post.Status != models.PostStatusScheduled {
			continue
		}
		post.Status = models.PostStatusPublished
		post.PublishedAt.Valid = true
		post.PublishedAt.Time = publishedAt.UTC()
		post.UpdatedAt = publishedAt.UTC()
		published = append(published, id)
	}
	return published, nil
}
