package repository

import (
	"context"

	"tiered_social/internal/domain/post/model"
	"tiered_social/pkg/database"
	"tiered_social/pkg/ledger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	// GetActive 只返回未删除的帖子
	GetActive(ctx context.Context, id string) (*model.Post, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	// Deactivate is_active true -> false，只成功一次
	Deactivate(ctx context.Context, id string) (bool, error)
	AdjustCounter(ctx context.Context, id, column string, delta int) error

	Timeline(ctx context.Context, q model.TimelineQuery) ([]model.Post, int64, error)
	ListByAuthor(ctx context.Context, authorID, viewerID string, offset, limit int) ([]model.Post, int64, error)

	Save(ctx context.Context, userID, postID string) (bool, error)
	Unsave(ctx context.Context, userID, postID string) (bool, error)
	ListSaved(ctx context.Context, userID string, offset, limit int) ([]model.SavedPost, int64, error)

	CreateReport(ctx context.Context, report *model.Report) error
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// --- Post ---

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return database.Conn(ctx, r.db).Create(post).Error
}

func (r *postRepository) GetActive(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	err := database.Conn(ctx, r.db).Preload("Author").
		Where("id = ? AND is_active = ?", id, true).
		First(&post).Error
	if err != nil {
		return nil, database.TranslateError(err, "post not found")
	}
	return &post, nil
}

func (r *postRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := database.Conn(ctx, r.db).Model(&model.Post{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.TranslateError(gorm.ErrRecordNotFound, "post not found")
	}
	return nil
}

func (r *postRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	res := database.Conn(ctx, r.db).Model(&model.Post{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	return res.RowsAffected == 1, res.Error
}

func (r *postRepository) AdjustCounter(ctx context.Context, id, column string, delta int) error {
	return ledger.Adjust(database.Conn(ctx, r.db), &model.Post{}, id, column, delta)
}

// withMyReaction 附带当前用户对每条帖子的点赞类型
func withMyReaction(q *gorm.DB, viewerID string) *gorm.DB {
	return q.Select("posts.*, r.reaction_type AS my_reaction").
		Joins("LEFT JOIN reactions r ON r.post_id = posts.id AND r.user_id = ?", viewerID)
}

// anyTag jsonb 标签数组与给定标签有交集
func anyTag(tags []string) clause.Expr {
	return gorm.Expr("EXISTS (SELECT 1 FROM jsonb_array_elements_text(posts.tags) AS t(tag) WHERE t.tag IN ?)", tags)
}

func (r *postRepository) Timeline(ctx context.Context, q model.TimelineQuery) ([]model.Post, int64, error) {
	var posts []model.Post
	var total int64

	base := database.Conn(ctx, r.db).Model(&model.Post{}).
		Where("posts.is_active = ? AND posts.created_at >= ? AND posts.created_at < ?", true, q.Since, q.Until)
	if len(q.PreferredTags) > 0 {
		base = base.Where(anyTag(q.PreferredTags))
	}
	if q.ViewerRegion != "" {
		base = base.Where("posts.region = ? OR posts.region = ''", q.ViewerRegion)
	}
	if q.Region != "" {
		base = base.Where("posts.region = ?", q.Region)
	}
	if len(q.Tags) > 0 {
		base = base.Where(anyTag(q.Tags))
	}
	base = base.Session(&gorm.Session{})

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := withMyReaction(base, q.ViewerID).Preload("Author").
		Order("posts.created_at DESC").Offset(q.Offset).Limit(q.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID, viewerID string, offset, limit int) ([]model.Post, int64, error) {
	var posts []model.Post
	var total int64

	base := database.Conn(ctx, r.db).Model(&model.Post{}).
		Where("posts.author_id = ? AND posts.is_active = ?", authorID, true).
		Session(&gorm.Session{})

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := withMyReaction(base, viewerID).Preload("Author").
		Order("posts.created_at DESC").Offset(offset).Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// --- SavedPost ---

func (r *postRepository) Save(ctx context.Context, userID, postID string) (bool, error) {
	res := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.SavedPost{UserID: userID, PostID: postID})
	return res.RowsAffected == 1, res.Error
}

func (r *postRepository) Unsave(ctx context.Context, userID, postID string) (bool, error) {
	res := database.Conn(ctx, r.db).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&model.SavedPost{})
	return res.RowsAffected > 0, res.Error
}

func (r *postRepository) ListSaved(ctx context.Context, userID string, offset, limit int) ([]model.SavedPost, int64, error) {
	var items []model.SavedPost
	var total int64

	base := database.Conn(ctx, r.db).Model(&model.SavedPost{}).
		Joins("JOIN posts ON posts.id = saved_posts.post_id AND posts.is_active = ?", true).
		Where("saved_posts.user_id = ?", userID).
		Session(&gorm.Session{})

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := base.Preload("Post").Preload("Post.Author").
		Order("saved_posts.created_at DESC").Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// --- Report ---

func (r *postRepository) CreateReport(ctx context.Context, report *model.Report) error {
	return database.Conn(ctx, r.db).Create(report).Error
}
