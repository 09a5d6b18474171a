package repository

import (
	"context"
	"time"

	"tiered_social/internal/domain/account/model"
	"tiered_social/pkg/database"
	"tiered_social/pkg/ledger"
	"tiered_social/pkg/tier"

	"gorm.io/gorm"
)

// 计数器列
const (
	ColFollowers = "followers_count"
	ColFollowing = "following_count"
	ColPosts     = "posts_count"
)

// UserRepository 接口定义
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// LockByID 在事务内对用户行加 FOR UPDATE 锁
	LockByID(ctx context.Context, id string) (*model.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) error
	SetTier(ctx context.Context, id string, t tier.Tier) error
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	AdjustCounter(ctx context.Context, id, column string, delta int) error
}

// userRepository 实现
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建新的仓库实例
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 创建用户
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return database.TranslateError(database.Conn(ctx, r.db).Create(user).Error, "")
}

// GetByID 根据ID获取用户
func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, database.TranslateError(err, "user not found")
	}
	return &user, nil
}

// GetByUsername 根据用户名获取用户
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := database.Conn(ctx, r.db).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, database.TranslateError(err, "user not found")
	}
	return &user, nil
}

func (r *userRepository) LockByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := database.ForUpdate(ctx, r.db).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, database.TranslateError(err, "user not found")
	}
	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&model.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// UpdateProfile 只更新资料字段，计数器和等级不经过这里
func (r *userRepository) UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) error {
	res := database.Conn(ctx, r.db).Model(&model.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return database.TranslateError(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return database.TranslateError(gorm.ErrRecordNotFound, "user not found")
	}
	return nil
}

func (r *userRepository) SetTier(ctx context.Context, id string, t tier.Tier) error {
	res := database.Conn(ctx, r.db).Model(&model.User{}).Where("id = ?", id).Update("tier", t)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.TranslateError(gorm.ErrRecordNotFound, "user not found")
	}
	return nil
}

func (r *userRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	return database.Conn(ctx, r.db).Model(&model.User{}).Where("id = ?", id).
		UpdateColumn("last_active", at).Error
}

// AdjustCounter 相对增减计数器
func (r *userRepository) AdjustCounter(ctx context.Context, id, column string, delta int) error {
	return ledger.Adjust(database.Conn(ctx, r.db), &model.User{}, id, column, delta)
}
