package repository

import (
	"context"

	"tiered_social/internal/domain/interaction/model"
	"tiered_social/pkg/database"
	"tiered_social/pkg/ledger"

	"gorm.io/gorm"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetActive(ctx context.Context, id string) (*model.Comment, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	// Deactivate is_active true -> false，只有第一次调用返回 true
	Deactivate(ctx context.Context, id string) (bool, error)
	AdjustCounter(ctx context.Context, id, column string, delta int) error
	// AddReply 父评论 replies_count +1，父评论必须仍有效且为顶层评论
	AddReply(ctx context.Context, parentID string) error
	// ListTopLevel 帖子的顶层评论，附带一层有效回复
	ListTopLevel(ctx context.Context, postID string, offset, limit int) ([]model.Comment, int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return database.Conn(ctx, r.db).Create(comment).Error
}

func (r *commentRepository) GetActive(ctx context.Context, id string) (*model.Comment, error) {
	var comment model.Comment
	err := database.Conn(ctx, r.db).Preload("User").
		Where("id = ? AND is_active = ?", id, true).
		First(&comment).Error
	if err != nil {
		return nil, database.TranslateError(err, "comment not found")
	}
	return &comment, nil
}

func (r *commentRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := database.Conn(ctx, r.db).Model(&model.Comment{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.TranslateError(gorm.ErrRecordNotFound, "comment not found")
	}
	return nil
}

func (r *commentRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	res := database.Conn(ctx, r.db).Model(&model.Comment{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	return res.RowsAffected == 1, res.Error
}

func (r *commentRepository) AdjustCounter(ctx context.Context, id, column string, delta int) error {
	return ledger.Adjust(database.Conn(ctx, r.db), &model.Comment{}, id, column, delta)
}

func (r *commentRepository) AddReply(ctx context.Context, parentID string) error {
	res := database.Conn(ctx, r.db).Model(&model.Comment{}).
		Where("id = ? AND is_active = ? AND parent_id IS NULL", parentID, true).
		UpdateColumn(model.ColReplies, gorm.Expr(model.ColReplies+" + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.TranslateError(gorm.ErrRecordNotFound, "comment not found")
	}
	return nil
}

func (r *commentRepository) ListTopLevel(ctx context.Context, postID string, offset, limit int) ([]model.Comment, int64, error) {
	var comments []model.Comment
	var total int64

	q := database.Conn(ctx, r.db).Model(&model.Comment{}).
		Where("post_id = ? AND parent_id IS NULL AND is_active = ?", postID, true).
		Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("created_at ASC")
		}).
		Preload("Replies.User").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}
