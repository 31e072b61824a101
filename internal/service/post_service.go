package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"postpilot/internal/models"
	"postpilot/internal/repository"
	"postpilot/internal/transfer"
)

var (
	ErrEmptyContent    = errors.New("content cannot be empty")
	ErrMissingSchedule = errors.New("scheduled posts require a scheduled time")
	ErrPostNotFound    = errors.New("post does not exist")
	ErrPostPublished   = errors.New("published posts cannot be modified")
	ErrInvalidStatus   = errors.New("status must be draft or scheduled")
	ErrNotPostOwner    = errors.New("post does not belong to this user")
)

// PostService owns the post lifecycle outside the publish path: creation
// and edits in the user's local time, converted to UTC exactly once here.
// The publisher never re-interprets timezones; it sees UTC only.
type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, error)
	UpdatePost(ctx context.Context, userID, postID int64, pu *transfer.PostUpdate) error
	PostInfo(ctx context.Context, userID, postID int64) (*models.Post, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	pr repository.PostRepository
	tz TimezoneService
}

func NewPostService(pr repository.PostRepository, tz TimezoneService) PostService {
	return &postService{pr: pr, tz: tz}
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, error) {
	if pc == nil || pc.Content == "" {
		slog.Info(ErrEmptyContent.Error())
		return 0, ErrEmptyContent
	}

	status := pc.Status
	if status == "" {
		status = models.PostStatusDraft
	}
	if status != models.PostStatusDraft && status != models.PostStatusScheduled {
		slog.Info(ErrInvalidStatus.Error())
		return 0, ErrInvalidStatus
	}

	post := models.Post{
		UserID:  userID,
		Content: pc.Content,
		Status:  status,
	}

	if status == models.PostStatusScheduled {
		if pc.ScheduledTime == "" {
			slog.Info(ErrMissingSchedule.Error())
			return 0, ErrMissingSchedule
		}
		scheduledAt, err := s.toUTC(pc.ScheduledTime, pc.Timezone)
		if err != nil {
			slog.Info(err.Error())
			return 0, err
		}
		post.ScheduledAt = sql.NullTime{Time: scheduledAt, Valid: true}
		post.UserTimezone = pc.Timezone
		post.OriginalScheduledTime = pc.ScheduledTime
	}

	id, err := s.pr.Create(ctx, &post)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}
	return id, nil
}

func (s *postService) UpdatePost(ctx context.Context, userID, postID int64, pu *transfer.PostUpdate) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}
	if post.Status == models.PostStatusPublished {
		slog.Info(ErrPostPublished.Error())
		return ErrPostPublished
	}

	if pu.Content != nil {
		if *pu.Content == "" {
			return ErrEmptyContent
		}
		post.Content = *pu.Content
	}
	if pu.Status != nil {
		if *pu.Status != models.PostStatusDraft && *pu.Status != models.PostStatusScheduled {
			return ErrInvalidStatus
		}
		post.Status = *pu.Status
	}
	if pu.ScheduledTime != nil {
		tz := post.UserTimezone
		if pu.Timezone != nil {
			tz = *pu.Timezone
		}
		scheduledAt, err := s.toUTC(*pu.ScheduledTime, tz)
		if err != nil {
			slog.Info(err.Error())
			return err
		}
		post.ScheduledAt = sql.NullTime{Time: scheduledAt, Valid: true}
		post.UserTimezone = tz
		post.OriginalScheduledTime = *pu.ScheduledTime
	}

	if post.Status == models.PostStatusScheduled && !post.ScheduledAt.Valid {
		return ErrMissingSchedule
	}

	if err := s.pr.Update(ctx, post); err != nil {
		return fmt.Errorf("error updating post: %w", err)
	}
	return nil
}

func (s *postService) PostInfo(ctx context.Context, userID, postID int64) (*models.Post, error) {
	return s.ownedPost(ctx, userID, postID)
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}
	if post.Status == models.PostStatusPublished {
		slog.Info(ErrPostPublished.Error())
		return ErrPostPublished
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}
	return nil
}

func (s *postService) ownedPost(ctx context.Context, userID, postID int64) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		slog.Info(ErrPostNotFound.Error())
		return nil, ErrPostNotFound
	}
	if post.UserID != userID {
		slog.Info(ErrNotPostOwner.Error())
		return nil, ErrNotPostOwner
	}
	return post, nil
}

// toUTC converts the user's wall-clock input to a UTC instant. The stored
// ScheduledAt is authoritative from this point on.
func (s *postService) toUTC(localTime, timezone string) (time.Time, error) {
	utcStr, err := s.tz.ConvertToUTC(localTime, timezone)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, utcStr)
}
