package repository

import (
	"context"

	"tiered_social/internal/domain/account/model"
	"tiered_social/pkg/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository 关注关系仓库
type FollowRepository interface {
	// Insert 插入关注边，已存在时返回 false
	Insert(ctx context.Context, followerID, followingID string) (bool, error)
	// Delete 删除关注边，不存在时返回 false
	Delete(ctx context.Context, followerID, followingID string) (bool, error)
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	IsMutual(ctx context.Context, a, b string) (bool, error)
	ListFollowers(ctx context.Context, userID string, offset, limit int) ([]model.User, int64, error)
	ListFollowing(ctx context.Context, userID string, offset, limit int) ([]model.User, int64, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Insert(ctx context.Context, followerID, followingID string) (bool, error) {
	edge := &model.Follow{FollowerID: followerID, FollowingID: followingID}
	res := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(edge)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followingID string) (bool, error) {
	res := database.Conn(ctx, r.db).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&model.Follow{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&model.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

// IsMutual 两个方向的边都存在
func (r *followRepository) IsMutual(ctx context.Context, a, b string) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&model.Follow{}).
		Where("(follower_id = ? AND following_id = ?) OR (follower_id = ? AND following_id = ?)", a, b, b, a).
		Count(&count).Error
	return count == 2, err
}

func (r *followRepository) ListFollowers(ctx context.Context, userID string, offset, limit int) ([]model.User, int64, error) {
	return r.listJoined(ctx, "follows.follower_id", "follows.following_id", userID, offset, limit)
}

func (r *followRepository) ListFollowing(ctx context.Context, userID string, offset, limit int) ([]model.User, int64, error) {
	return r.listJoined(ctx, "follows.following_id", "follows.follower_id", userID, offset, limit)
}

// listJoined 通过关注表关联出用户列表，按关注时间倒序
func (r *followRepository) listJoined(ctx context.Context, joinCol, filterCol, userID string, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	q := database.Conn(ctx, r.db).Model(&model.User{}).
		Joins("JOIN follows ON users.id = "+joinCol).
		Where(filterCol+" = ?", userID).
		Session(&gorm.Session{})

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("follows.created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
