package service

import (
	"context"
	"strings"

	accountmodel "tiered_social/internal/domain/account/model"
	activitymodel "tiered_social/internal/domain/activity/model"
	activity "tiered_social/internal/domain/activity/service"
	"tiered_social/internal/domain/interaction/model"
	"tiered_social/internal/domain/interaction/repository"
	postmodel "tiered_social/internal/domain/post/model"
	"tiered_social/pkg/apperr"
	"tiered_social/pkg/database"
	"tiered_social/pkg/metrics"
	"tiered_social/pkg/tier"
)

const MaxCommentLength = 1000

// PostStore 交互模块需要的帖子操作
type PostStore interface {
	GetActive(ctx context.Context, id string) (*postmodel.Post, error)
	AdjustCounter(ctx context.Context, id, column string, delta int) error
}

// ToggleResult 切换后的状态，removed 时 ReactionType 为空
type ToggleResult struct {
	Outcome      model.ToggleOutcome `json:"outcome"`
	ReactionType model.ReactionType  `json:"reactionType,omitempty"`
}

type CreateCommentInput struct {
	Content  string  `json:"content" binding:"required"`
	ParentID *string `json:"parentId"`
}

type InteractionService interface {
	TogglePostReaction(ctx context.Context, actor *accountmodel.User, postID string, t model.ReactionType) (*ToggleResult, error)
	ToggleCommentReaction(ctx context.Context, actor *accountmodel.User, commentID string, t model.ReactionType) (*ToggleResult, error)
	ListPostReactions(ctx context.Context, viewer *accountmodel.User, postID string, offset, limit int) ([]model.Reaction, int64, error)
	ReactionSummary(ctx context.Context, viewer *accountmodel.User, postID string) ([]model.ReactionCount, error)

	CreateComment(ctx context.Context, actor *accountmodel.User, postID string, input CreateCommentInput) (*model.Comment, error)
	EditComment(ctx context.Context, actor *accountmodel.User, id, content string) (*model.Comment, error)
	DeleteComment(ctx context.Context, actor *accountmodel.User, id string) error
	ListComments(ctx context.Context, viewer *accountmodel.User, postID string, offset, limit int) ([]model.Comment, int64, error)
}

type interactionService struct {
	tx        database.TxManager
	reactions repository.ReactionRepository
	comments  repository.CommentRepository
	posts     PostStore
	recorder  activity.Recorder
	metrics   *metrics.MetricsCollector
}

func NewInteractionService(tx database.TxManager, reactions repository.ReactionRepository, comments repository.CommentRepository,
	posts PostStore, recorder activity.Recorder, m *metrics.MetricsCollector) InteractionService {
	return &interactionService{
		tx:        tx,
		reactions: reactions,
		comments:  comments,
		posts:     posts,
		recorder:  recorder,
		metrics:   m,
	}
}

// TogglePostReaction 帖子点赞切换，新建时提交后记录 reaction 活动
func (s *interactionService) TogglePostReaction(ctx context.Context, actor *accountmodel.User, postID string, t model.ReactionType) (*ToggleResult, error) {
	if err := checkReaction(actor, t); err != nil {
		return nil, err
	}
	if _, err := s.posts.GetActive(ctx, postID); err != nil {
		return nil, err
	}

	counter := func(ctx context.Context, delta int) error {
		return s.posts.AdjustCounter(ctx, postID, postmodel.ColReactions, delta)
	}
	result, err := s.toggle(ctx, model.SubjectPost, actor.ID, postID, t, counter)
	if err != nil {
		return nil, err
	}

	if result.Outcome == model.ToggleCreated {
		s.recorder.Record(ctx, actor.ID, activitymodel.TypeReaction, postID, map[string]interface{}{"reaction": string(t)})
	}
	return result, nil
}

func (s *interactionService) ToggleCommentReaction(ctx context.Context, actor *accountmodel.User, commentID string, t model.ReactionType) (*ToggleResult, error) {
	if err := checkReaction(actor, t); err != nil {
		return nil, err
	}
	if _, err := s.comments.GetActive(ctx, commentID); err != nil {
		return nil, err
	}

	counter := func(ctx context.Context, delta int) error {
		return s.comments.AdjustCounter(ctx, commentID, model.ColReactions, delta)
	}
	return s.toggle(ctx, model.SubjectComment, actor.ID, commentID, t, counter)
}

func checkReaction(actor *accountmodel.User, t model.ReactionType) error {
	if err := tier.Check(actor.Tier, tier.CanReact); err != nil {
		return err
	}
	if !t.Valid() {
		return apperr.InvalidInput("invalid_type")
	}
	return nil
}

// toggle 插入成功为 created；已存在时加锁，同类型删除，不同类型改类型
func (s *interactionService) toggle(ctx context.Context, subject model.Subject, userID, subjectID string, t model.ReactionType,
	adjust func(ctx context.Context, delta int) error) (*ToggleResult, error) {
	var result ToggleResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		inserted, err := s.reactions.Insert(ctx, subject, userID, subjectID, t)
		if err != nil {
			return err
		}
		if inserted {
			result = ToggleResult{Outcome: model.ToggleCreated, ReactionType: t}
			return adjust(ctx, 1)
		}

		existing, err := s.reactions.LockExisting(ctx, subject, userID, subjectID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				// 插入冲突之后被并发删除
				return apperr.Conflict("reaction changed concurrently, retry")
			}
			return err
		}

		if existing.ReactionType == t {
			if err := s.reactions.Delete(ctx, subject, existing.ID); err != nil {
				return err
			}
			result = ToggleResult{Outcome: model.ToggleRemoved}
			return adjust(ctx, -1)
		}

		if err := s.reactions.UpdateType(ctx, subject, existing.ID, t); err != nil {
			return err
		}
		result = ToggleResult{Outcome: model.ToggleUpdated, ReactionType: t}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordToggle(string(subject), string(result.Outcome))
	}
	return &result, nil
}

func (s *interactionService) ListPostReactions(ctx context.Context, viewer *accountmodel.User, postID string, offset, limit int) ([]model.Reaction, int64, error) {
	if err := tier.Check(viewer.Tier, tier.CanView); err != nil {
		return nil, 0, err
	}
	if _, err := s.posts.GetActive(ctx, postID); err != nil {
		return nil, 0, err
	}
	return s.reactions.ListByPost(ctx, postID, offset, limit)
}

func (s *interactionService) ReactionSummary(ctx context.Context, viewer *accountmodel.User, postID string) ([]model.ReactionCount, error) {
	if err := tier.Check(viewer.Tier, tier.CanView); err != nil {
		return nil, err
	}
	if _, err := s.posts.GetActive(ctx, postID); err != nil {
		return nil, err
	}
	return s.reactions.SummaryByPost(ctx, postID)
}

func validComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.InvalidInput("content is required")
	}
	if len([]rune(content)) > MaxCommentLength {
		return "", apperr.InvalidInput("content exceeds 1000 characters")
	}
	return content, nil
}

// CreateComment 评论或回复；帖子 comments_count 总是 +1，回复时父评论 replies_count +1
func (s *interactionService) CreateComment(ctx context.Context, actor *accountmodel.User, postID string, input CreateCommentInput) (*model.Comment, error) {
	if err := tier.Check(actor.Tier, tier.CanComment); err != nil {
		return nil, err
	}
	content, err := validComment(input.Content)
	if err != nil {
		return nil, err
	}
	if _, err := s.posts.GetActive(ctx, postID); err != nil {
		return nil, err
	}

	var parentID *string
	if input.ParentID != nil && *input.ParentID != "" {
		parent, err := s.comments.GetActive(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		// 只允许一层回复
		if parent.PostID != postID || parent.ParentID != nil {
			return nil, apperr.InvalidInput("invalid parent")
		}
		parentID = &parent.ID
	}

	comment := &model.Comment{
		UserID:   actor.ID,
		PostID:   postID,
		ParentID: parentID,
		Content:  content,
		IsActive: true,
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// 父评论在事务内再校验一次，并发删除时这里拿不到行
		if parentID != nil {
			if err := s.comments.AddReply(ctx, *parentID); err != nil {
				return err
			}
		}
		if err := s.comments.Create(ctx, comment); err != nil {
			return err
		}
		return s.posts.AdjustCounter(ctx, postID, postmodel.ColComments, 1)
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, actor.ID, activitymodel.TypeComment, postID, map[string]interface{}{"comment_id": comment.ID})
	comment.User = actor
	return comment, nil
}

func (s *interactionService) ownedComment(ctx context.Context, actor *accountmodel.User, id, action string) (*model.Comment, error) {
	comment, err := s.comments.GetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != actor.ID {
		return nil, apperr.Forbidden("you cannot " + action + " this comment")
	}
	return comment, nil
}

func (s *interactionService) EditComment(ctx context.Context, actor *accountmodel.User, id, content string) (*model.Comment, error) {
	if _, err := s.ownedComment(ctx, actor, id, "edit"); err != nil {
		return nil, err
	}
	content, err := validComment(content)
	if err != nil {
		return nil, err
	}

	if err := s.comments.Update(ctx, id, map[string]interface{}{"content": content, "is_edited": true}); err != nil {
		return nil, err
	}
	return s.comments.GetActive(ctx, id)
}

// DeleteComment 只有真正停用时才对称递减
func (s *interactionService) DeleteComment(ctx context.Context, actor *accountmodel.User, id string) error {
	comment, err := s.ownedComment(ctx, actor, id, "delete")
	if err != nil {
		return err
	}

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.comments.Deactivate(ctx, comment.ID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("comment not found")
		}
		if err := s.posts.AdjustCounter(ctx, comment.PostID, postmodel.ColComments, -1); err != nil {
			return err
		}
		if comment.ParentID != nil {
			return s.comments.AdjustCounter(ctx, *comment.ParentID, model.ColReplies, -1)
		}
		return nil
	})
}

func (s *interactionService) ListComments(ctx context.Context, viewer *accountmodel.User, postID string, offset, limit int) ([]model.Comment, int64, error) {
	if err := tier.Check(viewer.Tier, tier.CanView); err != nil {
		return nil, 0, err
	}
	if _, err := s.posts.GetActive(ctx, postID); err != nil {
		return nil, 0, err
	}
	return s.comments.ListTopLevel(ctx, postID, offset, limit)
}
