package service

import (
	"context"
	"strings"
	"time"

	accountmodel "tiered_social/internal/domain/account/model"
	accountrepo "tiered_social/internal/domain/account/repository"
	activitymodel "tiered_social/internal/domain/activity/model"
	activity "tiered_social/internal/domain/activity/service"
	"tiered_social/internal/domain/post/model"
	"tiered_social/internal/domain/post/repository"
	"tiered_social/pkg/apperr"
	"tiered_social/pkg/database"
	"tiered_social/pkg/tier"

	"gorm.io/datatypes"
)

const (
	MaxContentLength     = 2000
	MaxDescriptionLength = 500
)

// AuthorCounter 作者计数器
type AuthorCounter interface {
	AdjustCounter(ctx context.Context, id, column string, delta int) error
}

type CreatePostInput struct {
	Content   string   `json:"content" binding:"required"`
	Tags      []string `json:"tags"`
	Region    string   `json:"region" binding:"max=100"`
	MediaURLs []string `json:"mediaUrls"`
}

// UpdatePostInput nil 字段不修改
type UpdatePostInput struct {
	Content   *string  `json:"content"`
	Tags      []string `json:"tags"`
	Region    *string  `json:"region" binding:"omitempty,max=100"`
	MediaURLs []string `json:"mediaUrls"`
}

type TimelineFilter struct {
	Region string
	Tags   []string
}

// SaveOutcome 收藏结果
type SaveOutcome string

const (
	SaveCreated SaveOutcome = "saved"
	SaveAlready SaveOutcome = "already_saved"
)

type PostService interface {
	Create(ctx context.Context, actor *accountmodel.User, input CreatePostInput) (*model.Post, error)
	Update(ctx context.Context, actor *accountmodel.User, id string, input UpdatePostInput) (*model.Post, error)
	Delete(ctx context.Context, actor *accountmodel.User, id string) error
	Get(ctx context.Context, viewer *accountmodel.User, id string) (*model.Post, error)
	Timeline(ctx context.Context, viewer *accountmodel.User, filter TimelineFilter, offset, limit int) ([]model.Post, int64, error)
	ListByUser(ctx context.Context, viewer *accountmodel.User, userID string, offset, limit int) ([]model.Post, int64, error)
	Save(ctx context.Context, actor *accountmodel.User, id string) (SaveOutcome, error)
	Unsave(ctx context.Context, actor *accountmodel.User, id string) error
	ListSaved(ctx context.Context, actor *accountmodel.User, offset, limit int) ([]model.SavedPost, int64, error)
	Report(ctx context.Context, actor *accountmodel.User, id string, reason model.ReportReason, description string) (*model.Report, error)
	View(ctx context.Context, viewer *accountmodel.User, id string) (int, error)
}

type postService struct {
	tx       database.TxManager
	repo     repository.PostRepository
	authors  AuthorCounter
	recorder activity.Recorder
	now      func() time.Time
}

func NewPostService(tx database.TxManager, repo repository.PostRepository, authors AuthorCounter, recorder activity.Recorder) PostService {
	return &postService{tx: tx, repo: repo, authors: authors, recorder: recorder, now: time.Now}
}

func validContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.InvalidInput("content is required")
	}
	if len([]rune(content)) > MaxContentLength {
		return "", apperr.InvalidInput("content exceeds 2000 characters")
	}
	return content, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Create 发帖：帖子和作者 posts_count 同一事务，提交后记录活动
func (s *postService) Create(ctx context.Context, actor *accountmodel.User, input CreatePostInput) (*model.Post, error) {
	if err := tier.Check(actor.Tier, tier.CanPost); err != nil {
		return nil, err
	}
	content, err := validContent(input.Content)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		AuthorID:  actor.ID,
		Content:   content,
		Tags:      cleanTags(input.Tags),
		Region:    strings.TrimSpace(input.Region),
		MediaURLs: input.MediaURLs,
		IsActive:  true,
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, post); err != nil {
			return err
		}
		return s.authors.AdjustCounter(ctx, actor.ID, accountrepo.ColPosts, 1)
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, actor.ID, activitymodel.TypePost, post.ID, nil)
	post.Author = actor
	return post, nil
}

func (s *postService) ownedPost(ctx context.Context, actor *accountmodel.User, id string, action string) (*model.Post, error) {
	post, err := s.repo.GetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actor.ID {
		return nil, apperr.Forbidden("you cannot " + action + " this post")
	}
	return post, nil
}

// Update 仅作者可编辑，首次修改后 is_edited 为 true
func (s *postService) Update(ctx context.Context, actor *accountmodel.User, id string, input UpdatePostInput) (*model.Post, error) {
	if _, err := s.ownedPost(ctx, actor, id, "edit"); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"is_edited": true}
	if input.Content != nil {
		content, err := validContent(*input.Content)
		if err != nil {
			return nil, err
		}
		fields["content"] = content
	}
	if input.Tags != nil {
		fields["tags"] = datatypes.JSONSlice[string](cleanTags(input.Tags))
	}
	if input.Region != nil {
		fields["region"] = strings.TrimSpace(*input.Region)
	}
	if input.MediaURLs != nil {
		fields["media_urls"] = datatypes.JSONSlice[string](input.MediaURLs)
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.repo.GetActive(ctx, id)
}

// Delete 软删除，posts_count 对称递减
func (s *postService) Delete(ctx context.Context, actor *accountmodel.User, id string) error {
	post, err := s.ownedPost(ctx, actor, id, "delete")
	if err != nil {
		return err
	}

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.repo.Deactivate(ctx, post.ID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("post not found")
		}
		return s.authors.AdjustCounter(ctx, post.AuthorID, accountrepo.ColPosts, -1)
	})
}

func (s *postService) Get(ctx context.Context, viewer *accountmodel.User, id string) (*model.Post, error) {
	if err := tier.Check(viewer.Tier, tier.CanView); err != nil {
		return nil, err
	}
	return s.repo.GetActive(ctx, id)
}

// Timeline 当天 (UTC) 的帖子，按用户偏好标签和地区过滤
func (s *postService) Timeline(ctx context.Context, viewer *accountmodel.User, filter TimelineFilter, offset, limit int) ([]model.Post, int64, error) {
	if err := tier.Check(viewer.Tier, tier.CanView); err != nil {
		return nil, 0, err
	}

	now := s.now().UTC()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.repo.Timeline(ctx, model.TimelineQuery{
		ViewerID:      viewer.ID,
		Since:         since,
		Until:         since.Add(24 * time.Hour),
		PreferredTags: cleanTags(viewer.PreferredTags),
		ViewerRegion:  viewer.Region,
		Region:        strings.TrimSpace(filter.Region),
		Tags:          cleanTags(filter.Tags),
		Offset:        offset,
		Limit:         limit,
	})
}

func (s *postService) ListByUser(ctx context.Context, viewer *accountmodel.User, userID string, offset, limit int) ([]model.Post, int64, error) {
	if err := tier.Check(viewer.Tier, tier.CanView); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByAuthor(ctx, userID, viewer.ID, offset, limit)
}

func (s *postService) Save(ctx context.Context, actor *accountmodel.User, id string) (SaveOutcome, error) {
	if err := tier.Check(actor.Tier, tier.CanView); err != nil {
		return "", err
	}
	if _, err := s.repo.GetActive(ctx, id); err != nil {
		return "", err
	}
	created, err := s.repo.Save(ctx, actor.ID, id)
	if err != nil {
		return "", err
	}
	if created {
		return SaveCreated, nil
	}
	return SaveAlready, nil
}

func (s *postService) Unsave(ctx context.Context, actor *accountmodel.User, id string) error {
	removed, err := s.repo.Unsave(ctx, actor.ID, id)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.InvalidInput("post is not saved")
	}
	return nil
}

func (s *postService) ListSaved(ctx context.Context, actor *accountmodel.User, offset, limit int) ([]model.SavedPost, int64, error) {
	return s.repo.ListSaved(ctx, actor.ID, offset, limit)
}

func (s *postService) Report(ctx context.Context, actor *accountmodel.User, id string, reason model.ReportReason, description string) (*model.Report, error) {
	if !reason.Valid() {
		return nil, apperr.InvalidInput("invalid report reason")
	}
	if len([]rune(description)) > MaxDescriptionLength {
		return nil, apperr.InvalidInput("description exceeds 500 characters")
	}
	if _, err := s.repo.GetActive(ctx, id); err != nil {
		return nil, err
	}

	report := &model.Report{
		ReporterID:  actor.ID,
		PostID:      id,
		Reason:      reason,
		Description: strings.TrimSpace(description),
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// View 浏览数 +1，返回新的浏览数
func (s *postService) View(ctx context.Context, viewer *accountmodel.User, id string) (int, error) {
	if err := tier.Check(viewer.Tier, tier.CanView); err != nil {
		return 0, err
	}
	var views int
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetActive(ctx, id); err != nil {
			return err
		}
		if err := s.repo.AdjustCounter(ctx, id, model.ColViews, 1); err != nil {
			return err
		}
		post, err := s.repo.GetActive(ctx, id)
		if err != nil {
			return err
		}
		views = post.ViewsCount
		return nil
	})
	return views, err
}
