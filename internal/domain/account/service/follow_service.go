package service

import (
	"context"

	activitymodel "tiered_social/internal/domain/activity/model"
	activity "tiered_social/internal/domain/activity/service"
	"tiered_social/internal/domain/account/model"
	"tiered_social/internal/domain/account/repository"
	"tiered_social/pkg/apperr"
	"tiered_social/pkg/database"
	"tiered_social/pkg/metrics"
	"tiered_social/pkg/tier"
)

// FollowService 关注关系
// 计数器只在边真正插入/删除时调整，和边的变更在同一个事务内
type FollowService interface {
	Follow(ctx context.Context, actor *model.User, targetID string) (model.FollowOutcome, error)
	Unfollow(ctx context.Context, actor *model.User, targetID string) (model.FollowOutcome, error)
	ToggleFollow(ctx context.Context, actor *model.User, targetID string) (model.FollowOutcome, error)
	IsMutual(ctx context.Context, a, b string) (bool, error)
	ListFollowers(ctx context.Context, userID string, offset, limit int) ([]model.User, int64, error)
	ListFollowing(ctx context.Context, userID string, offset, limit int) ([]model.User, int64, error)
}

type followService struct {
	tx       database.TxManager
	users    repository.UserRepository
	follows  repository.FollowRepository
	recorder activity.Recorder
	metrics  *metrics.MetricsCollector
}

func NewFollowService(tx database.TxManager, users repository.UserRepository, follows repository.FollowRepository, recorder activity.Recorder, m *metrics.MetricsCollector) FollowService {
	return &followService{tx: tx, users: users, follows: follows, recorder: recorder, metrics: m}
}

func (s *followService) precheck(actor *model.User, targetID string) error {
	if err := tier.Check(actor.Tier, tier.CanFollow); err != nil {
		return err
	}
	if actor.ID == targetID {
		return apperr.InvalidInput("cannot follow yourself")
	}
	return nil
}

func (s *followService) Follow(ctx context.Context, actor *model.User, targetID string) (model.FollowOutcome, error) {
	if err := s.precheck(actor, targetID); err != nil {
		return "", err
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return "", err
	}

	outcome := model.FollowAlready
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		inserted, err := s.follows.Insert(ctx, actor.ID, target.ID)
		if err != nil || !inserted {
			return err
		}
		outcome = model.FollowCreated
		return s.adjustPair(ctx, actor.ID, target.ID, 1)
	})
	if err != nil {
		return "", err
	}

	s.afterCommit(ctx, actor, target, outcome)
	return outcome, nil
}

func (s *followService) Unfollow(ctx context.Context, actor *model.User, targetID string) (model.FollowOutcome, error) {
	if err := s.precheck(actor, targetID); err != nil {
		return "", err
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		removed, err := s.follows.Delete(ctx, actor.ID, targetID)
		if err != nil {
			return err
		}
		if !removed {
			return apperr.NotFound("not following")
		}
		return s.adjustPair(ctx, actor.ID, targetID, -1)
	})
	if err != nil {
		return "", err
	}

	s.afterCommit(ctx, actor, nil, model.FollowRemoved)
	return model.FollowRemoved, nil
}

// ToggleFollow 先尝试插入，已存在则删除；并发下删除落空时返回 not_following
func (s *followService) ToggleFollow(ctx context.Context, actor *model.User, targetID string) (model.FollowOutcome, error) {
	if err := s.precheck(actor, targetID); err != nil {
		return "", err
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return "", err
	}

	var outcome model.FollowOutcome
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		inserted, err := s.follows.Insert(ctx, actor.ID, target.ID)
		if err != nil {
			return err
		}
		if inserted {
			outcome = model.FollowCreated
			return s.adjustPair(ctx, actor.ID, target.ID, 1)
		}

		removed, err := s.follows.Delete(ctx, actor.ID, target.ID)
		if err != nil {
			return err
		}
		if !removed {
			outcome = model.FollowNotFollowing
			return nil
		}
		outcome = model.FollowRemoved
		return s.adjustPair(ctx, actor.ID, target.ID, -1)
	})
	if err != nil {
		return "", err
	}

	s.afterCommit(ctx, actor, target, outcome)
	return outcome, nil
}

// adjustPair follower.following_count 与 following.followers_count 同步增减
func (s *followService) adjustPair(ctx context.Context, followerID, followingID string, delta int) error {
	if err := s.users.AdjustCounter(ctx, followerID, repository.ColFollowing, delta); err != nil {
		return err
	}
	return s.users.AdjustCounter(ctx, followingID, repository.ColFollowers, delta)
}

func (s *followService) afterCommit(ctx context.Context, actor, target *model.User, outcome model.FollowOutcome) {
	if s.metrics != nil {
		s.metrics.RecordFollow(string(outcome))
	}
	if outcome == model.FollowCreated && target != nil {
		s.recorder.Record(ctx, actor.ID, activitymodel.TypeFollow, target.ID, map[string]interface{}{
			"username": target.Username,
		})
	}
}

func (s *followService) IsMutual(ctx context.Context, a, b string) (bool, error) {
	if a == b {
		return false, nil
	}
	return s.follows.IsMutual(ctx, a, b)
}

func (s *followService) ListFollowers(ctx context.Context, userID string, offset, limit int) ([]model.User, int64, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.follows.ListFollowers(ctx, userID, offset, limit)
}

func (s *followService) ListFollowing(ctx context.Context, userID string, offset, limit int) ([]model.User, int64, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.follows.ListFollowing(ctx, userID, offset, limit)
}
