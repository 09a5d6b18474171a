package service

import (
	"context"
	"strings"
	"time"

	"tiered_social/internal/domain/account/model"
	"tiered_social/internal/domain/account/repository"
	"tiered_social/pkg/apperr"
	"tiered_social/pkg/tier"
	"tiered_social/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

// ProfileInput 可修改的资料字段，nil 表示不修改
type ProfileInput struct {
	Bio            *string    `json:"bio" binding:"omitempty,max=500"`
	Region         *string    `json:"region" binding:"omitempty,max=100"`
	PreferredTags  []string   `json:"preferredTags"`
	ProfilePicture *string    `json:"profilePicture"`
	CoverPicture   *string    `json:"coverPicture"`
	BirthDate      *time.Time `json:"birthDate"`
}

// UserService 用户服务接口
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*utils.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*utils.TokenPair, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, input ProfileInput) (*model.User, error)
	// SetTier 管理员直接设置等级，不受单调性限制
	SetTier(ctx context.Context, id string, t tier.Tier) (*model.User, error)
}

// userService 实现
type userService struct {
	repo   repository.UserRepository
	tokens *utils.TokenIssuer
	log    *zap.Logger
	now    func() time.Time
}

// NewUserService 创建用户服务
func NewUserService(repo repository.UserRepository, tokens *utils.TokenIssuer, log *zap.Logger) UserService {
	return &userService{repo: repo, tokens: tokens, log: log, now: time.Now}
}

// Register 注册，新用户等级为 user
func (s *userService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: string(hash),
		Tier:     tier.User,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			return nil, apperr.Conflict("username or email already registered")
		}
		return nil, err
	}
	return user, nil
}

// Login 用户名密码登录
func (s *userService) Login(ctx context.Context, username, password string) (*utils.TokenPair, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("invalid username or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("invalid username or password")
	}

	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.TouchLastActive(ctx, user.ID, s.now()); err != nil {
		s.log.Warn("update last_active failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	return pair, nil
}

// Refresh 用 refresh token 换一对新令牌
func (s *userService) Refresh(ctx context.Context, refreshToken string) (*utils.TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken, utils.TokenRefresh)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired refresh token")
	}
	if _, err := s.repo.GetByID(ctx, claims.UserID); err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("user no longer exists")
		}
		return nil, err
	}
	return s.tokens.Issue(claims.UserID)
}

// GetUser 获取单个用户
func (s *userService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile 更新资料
func (s *userService) UpdateProfile(ctx context.Context, id string, input ProfileInput) (*model.User, error) {
	fields := map[string]interface{}{}
	if input.Bio != nil {
		fields["bio"] = *input.Bio
	}
	if input.Region != nil {
		fields["region"] = *input.Region
	}
	if input.PreferredTags != nil {
		fields["preferred_tags"] = datatypes.JSONSlice[string](input.PreferredTags)
	}
	if input.ProfilePicture != nil {
		fields["profile_picture"] = *input.ProfilePicture
	}
	if input.CoverPicture != nil {
		fields["cover_picture"] = *input.CoverPicture
	}
	if input.BirthDate != nil {
		fields["birth_date"] = *input.BirthDate
	}

	if len(fields) > 0 {
		if err := s.repo.UpdateProfile(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	return s.repo.GetByID(ctx, id)
}

func (s *userService) SetTier(ctx context.Context, id string, t tier.Tier) (*model.User, error) {
	if !t.Valid() {
		return nil, apperr.InvalidInput("invalid tier")
	}
	if err := s.repo.SetTier(ctx, id, t); err != nil {
		return nil, err
	}
	s.log.Info("tier overridden", zap.String("user_id", id), zap.String("tier", string(t)))
	return s.repo.GetByID(ctx, id)
}
