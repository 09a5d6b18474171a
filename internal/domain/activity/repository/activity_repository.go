package repository

import (
	"context"

	"tiered_social/internal/domain/activity/model"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityRepository 活动日志仓库，只有追加和查询
type ActivityRepository interface {
	Create(ctx context.Context, a *model.UserActivity) error
	ListByUser(ctx context.Context, userID string, activityType model.Type, offset, limit int) ([]model.UserActivity, int64, error)
	SummaryByType(ctx context.Context, userID string) ([]model.TypeCount, error)
}

type activityRepository struct {
	db     *gorm.DB
	reader *sqlx.DB
}

// NewActivityRepository 写入走 gorm，聚合查询走 sqlx
func NewActivityRepository(db *gorm.DB, reader *sqlx.DB) ActivityRepository {
	return &activityRepository{db: db, reader: reader}
}

// Create 活动在主事务提交后由后台写入，不参与调用方事务
// 重试时主键不变，重复写入被忽略
func (r *activityRepository) Create(ctx context.Context, a *model.UserActivity) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(a).Error
}

func (r *activityRepository) ListByUser(ctx context.Context, userID string, activityType model.Type, offset, limit int) ([]model.UserActivity, int64, error) {
	var items []model.UserActivity
	var total int64

	q := r.db.WithContext(ctx).Model(&model.UserActivity{}).Where("user_id = ?", userID)
	if activityType != "" {
		q = q.Where("activity_type = ?", activityType)
	}
	q = q.Session(&gorm.Session{})

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

const summaryQuery = `
SELECT activity_type, COUNT(*) AS count, MAX(created_at) AS last_at
FROM user_activities
WHERE user_id = $1
GROUP BY activity_type
ORDER BY count DESC, activity_type`

func (r *activityRepository) SummaryByType(ctx context.Context, userID string) ([]model.TypeCount, error) {
	items := []model.TypeCount{}
	if err := r.reader.SelectContext(ctx, &items, summaryQuery, userID); err != nil {
		return nil, err
	}
	return items, nil
}
