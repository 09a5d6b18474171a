package repository

import (
	"context"
	"fmt"

	"tiered_social/internal/domain/interaction/model"
	"tiered_social/pkg/database"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository 帖子与评论点赞共用的存储操作
type ReactionRepository interface {
	// Insert ON CONFLICT DO NOTHING，真正插入时返回 true
	Insert(ctx context.Context, subject model.Subject, userID, subjectID string, t model.ReactionType) (bool, error)
	// LockExisting 事务内 FOR UPDATE 读取已有点赞
	LockExisting(ctx context.Context, subject model.Subject, userID, subjectID string) (*model.ExistingReaction, error)
	Delete(ctx context.Context, subject model.Subject, id string) error
	UpdateType(ctx context.Context, subject model.Subject, id string, t model.ReactionType) error

	ListByPost(ctx context.Context, postID string, offset, limit int) ([]model.Reaction, int64, error)
	SummaryByPost(ctx context.Context, postID string) ([]model.ReactionCount, error)
}

type reactionRepository struct {
	db     *gorm.DB
	reader *sqlx.DB
}

func NewReactionRepository(db *gorm.DB, reader *sqlx.DB) ReactionRepository {
	return &reactionRepository{db: db, reader: reader}
}

// subjectModel 返回点赞表模型和外键列
func subjectModel(subject model.Subject) (interface{}, string, error) {
	switch subject {
	case model.SubjectPost:
		return &model.Reaction{}, "post_id", nil
	case model.SubjectComment:
		return &model.CommentReaction{}, "comment_id", nil
	}
	return nil, "", fmt.Errorf("unknown reaction subject %q", subject)
}

func (r *reactionRepository) Insert(ctx context.Context, subject model.Subject, userID, subjectID string, t model.ReactionType) (bool, error) {
	var row interface{}
	switch subject {
	case model.SubjectPost:
		row = &model.Reaction{UserID: userID, PostID: subjectID, ReactionType: t}
	case model.SubjectComment:
		row = &model.CommentReaction{UserID: userID, CommentID: subjectID, ReactionType: t}
	default:
		return false, fmt.Errorf("unknown reaction subject %q", subject)
	}

	res := database.Conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *reactionRepository) LockExisting(ctx context.Context, subject model.Subject, userID, subjectID string) (*model.ExistingReaction, error) {
	m, fk, err := subjectModel(subject)
	if err != nil {
		return nil, err
	}

	var existing model.ExistingReaction
	err = database.ForUpdate(ctx, r.db).Model(m).
		Select("id", "reaction_type").
		Where("user_id = ? AND "+fk+" = ?", userID, subjectID).
		Take(&existing).Error
	if err != nil {
		return nil, database.TranslateError(err, "reaction not found")
	}
	return &existing, nil
}

func (r *reactionRepository) Delete(ctx context.Context, subject model.Subject, id string) error {
	m, _, err := subjectModel(subject)
	if err != nil {
		return err
	}
	return database.Conn(ctx, r.db).Where("id = ?", id).Delete(m).Error
}

func (r *reactionRepository) UpdateType(ctx context.Context, subject model.Subject, id string, t model.ReactionType) error {
	m, _, err := subjectModel(subject)
	if err != nil {
		return err
	}
	return database.Conn(ctx, r.db).Model(m).Where("id = ?", id).Update("reaction_type", t).Error
}

func (r *reactionRepository) ListByPost(ctx context.Context, postID string, offset, limit int) ([]model.Reaction, int64, error) {
	var items []model.Reaction
	var total int64

	q := database.Conn(ctx, r.db).Model(&model.Reaction{}).Where("post_id = ?", postID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Preload("User").Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

const reactionSummaryQuery = `
SELECT reaction_type, COUNT(*) AS count
FROM reactions
WHERE post_id = $1
GROUP BY reaction_type
ORDER BY count DESC, reaction_type`

func (r *reactionRepository) SummaryByPost(ctx context.Context, postID string) ([]model.ReactionCount, error) {
	items := []model.ReactionCount{}
	if err := r.reader.SelectContext(ctx, &items, reactionSummaryQuery, postID); err != nil {
		return nil, err
	}
	return items, nil
}
