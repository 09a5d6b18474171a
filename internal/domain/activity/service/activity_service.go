package service

import (
	"context"

	"tiered_social/internal/domain/activity/model"
	"tiered_social/internal/domain/activity/repository"
	"tiered_social/pkg/apperr"
)

// ActivityService 活动日志查询
type ActivityService interface {
	List(ctx context.Context, userID string, activityType string, offset, limit int) ([]model.UserActivity, int64, error)
	Summary(ctx context.Context, userID string) ([]model.TypeCount, error)
}

type activityService struct {
	repo repository.ActivityRepository
}

func NewActivityService(repo repository.ActivityRepository) ActivityService {
	return &activityService{repo: repo}
}

func (s *activityService) List(ctx context.Context, userID string, activityType string, offset, limit int) ([]model.UserActivity, int64, error) {
	t := model.Type(activityType)
	switch t {
	case "", model.TypePost, model.TypeComment, model.TypeReaction, model.TypeFollow, model.TypeUpgrade:
	default:
		return nil, 0, apperr.InvalidInput("invalid activity type")
	}
	return s.repo.ListByUser(ctx, userID, t, offset, limit)
}

func (s *activityService) Summary(ctx context.Context, userID string) ([]model.TypeCount, error) {
	return s.repo.SummaryByType(ctx, userID)
}
