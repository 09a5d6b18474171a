package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	accountmodel "tiered_social/internal/domain/account/model"
	activitymodel "tiered_social/internal/domain/activity/model"
	activity "tiered_social/internal/domain/activity/service"
	"tiered_social/internal/domain/payment/model"
	"tiered_social/internal/domain/payment/repository"
	"tiered_social/internal/domain/payment/strategy"
	"tiered_social/pkg/apperr"
	"tiered_social/pkg/cache"
	"tiered_social/pkg/database"
	"tiered_social/pkg/metrics"
	"tiered_social/pkg/tier"

	"go.uber.org/zap"
)

const (
	plansCacheKey = "plans:active"
	plansCacheTTL = 5 * time.Minute
)

// TierStore 升级时锁定并修改用户等级
type TierStore interface {
	LockByID(ctx context.Context, id string) (*accountmodel.User, error)
	SetTier(ctx context.Context, id string, t tier.Tier) error
}

type ProcessUpgradeInput struct {
	PlanID        string `json:"planId" binding:"required"`
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

// UpgradeResult 升级成功后的返回
type UpgradeResult struct {
	Message      string              `json:"message"`
	Payment      *model.Payment      `json:"payment"`
	Subscription *model.Subscription `json:"subscription"`
	NewTier      tier.Tier           `json:"newTier"`
}

type PaymentService interface {
	ListPlans(ctx context.Context) ([]model.Plan, error)
	ProcessUpgrade(ctx context.Context, actor *accountmodel.User, input ProcessUpgradeInput) (*UpgradeResult, error)
	GetSubscription(ctx context.Context, actor *accountmodel.User) (*model.Subscription, error)
	CancelSubscription(ctx context.Context, actor *accountmodel.User) error
	ListPayments(ctx context.Context, actor *accountmodel.User, offset, limit int) ([]model.Payment, int64, error)
	RegisterStrategy(method model.Method, s strategy.PaymentStrategy)
}

type paymentService struct {
	tx         database.TxManager
	repo       repository.PaymentRepository
	users      TierStore
	cache      cache.CacheService
	recorder   activity.Recorder
	metrics    *metrics.MetricsCollector
	log        *zap.Logger
	fallback   strategy.PaymentStrategy
	strategies map[model.Method]strategy.PaymentStrategy
	now        func() time.Time
}

// NewPaymentService cache 可以为 nil，此时每次直接查库
func NewPaymentService(tx database.TxManager, repo repository.PaymentRepository, users TierStore, c cache.CacheService,
	recorder activity.Recorder, m *metrics.MetricsCollector, log *zap.Logger) PaymentService {
	return &paymentService{
		tx:         tx,
		repo:       repo,
		users:      users,
		cache:      c,
		recorder:   recorder,
		metrics:    m,
		log:        log.Named("payment"),
		fallback:   strategy.NewSimulatedStrategy(),
		strategies: make(map[model.Method]strategy.PaymentStrategy),
		now:        time.Now,
	}
}

// RegisterStrategy 注册支付策略，未注册的支付方式走模拟网关
func (s *paymentService) RegisterStrategy(method model.Method, st strategy.PaymentStrategy) {
	s.strategies[method] = st
}

func (s *paymentService) strategyFor(method model.Method) strategy.PaymentStrategy {
	if st, ok := s.strategies[method]; ok {
		return st
	}
	return s.fallback
}

func (s *paymentService) ListPlans(ctx context.Context) ([]model.Plan, error) {
	if s.cache != nil {
		var plans []model.Plan
		err := s.cache.Get(ctx, plansCacheKey, &plans)
		if err == nil {
			s.recordCache(true)
			return plans, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("plan cache read failed", zap.Error(err))
		}
		s.recordCache(false)
	}

	plans, err := s.repo.ListActivePlans(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, plansCacheKey, plans, plansCacheTTL); err != nil {
			s.log.Warn("plan cache write failed", zap.Error(err))
		}
	}
	return plans, nil
}

func (s *paymentService) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCache("plans", hit)
	}
}

// ProcessUpgrade 一个事务内完成扣款、订阅和等级变更，等级只能升不能降
func (s *paymentService) ProcessUpgrade(ctx context.Context, actor *accountmodel.User, input ProcessUpgradeInput) (*UpgradeResult, error) {
	method := model.Method(input.PaymentMethod)
	if !method.Valid() {
		return nil, apperr.InvalidInput("invalid payment method")
	}
	plan, err := s.repo.GetActivePlan(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	gateway := s.strategyFor(method)

	var (
		payment  *model.Payment
		sub      *model.Subscription
		fromTier tier.Tier
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.LockByID(ctx, actor.ID)
		if err != nil {
			return err
		}
		fromTier = user.Tier
		if user.Tier.Ordinal() >= plan.Tier.Ordinal() {
			return apperr.AlreadyAtTarget(fmt.Sprintf("already at %s or above", plan.Tier.Label()))
		}

		planID := plan.ID
		payment = &model.Payment{
			UserID:        actor.ID,
			PlanID:        &planID,
			Amount:        plan.Price,
			PaymentMethod: method,
			Status:        model.StatusProcessing,
			Gateway:       gateway.Gateway(),
			Metadata: map[string]interface{}{
				"user_level_before": string(fromTier),
				"target_level":      string(plan.Tier),
			},
		}
		if err := s.repo.CreatePayment(ctx, payment); err != nil {
			return err
		}

		charge, err := gateway.Charge(ctx, payment)
		if err != nil {
			return apperr.Wrap(apperr.KindInvalidInput, "payment failed", err)
		}

		now := s.now()
		sub, err = s.repo.UpsertSubscription(ctx, &model.Subscription{
			UserID:    actor.ID,
			PlanID:    &planID,
			Status:    model.SubscriptionActive,
			StartDate: now,
			EndDate:   now.AddDate(0, 0, plan.DurationDays),
			AutoRenew: false,
		})
		if err != nil {
			return err
		}

		txn := charge.TransactionID
		payment.Status = model.StatusCompleted
		payment.TransactionID = &txn
		payment.GatewayResponse = charge.Response
		payment.ProcessedAt = &now
		payment.SubscriptionID = &sub.ID
		err = s.repo.UpdatePayment(ctx, payment.ID, map[string]interface{}{
			"status":           payment.Status,
			"transaction_id":   txn,
			"gateway_response": payment.GatewayResponse,
			"processed_at":     now,
			"subscription_id":  sub.ID,
		})
		if err != nil {
			return err
		}

		return s.users.SetTier(ctx, actor.ID, plan.Tier)
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, actor.ID, activitymodel.TypeUpgrade, payment.ID, map[string]interface{}{
		"from_level": string(fromTier),
		"to_level":   string(plan.Tier),
		"payment_id": payment.ID,
		"plan_name":  plan.Name,
		"amount":     plan.Price,
	})
	if s.metrics != nil {
		s.metrics.RecordUpgrade(string(plan.Tier))
	}
	s.log.Info("tier upgraded",
		zap.String("user", actor.ID),
		zap.String("from", string(fromTier)),
		zap.String("to", string(plan.Tier)),
		zap.String("payment", payment.ID))

	return &UpgradeResult{
		Message:      fmt.Sprintf("upgraded to %s", plan.Name),
		Payment:      payment,
		Subscription: sub,
		NewTier:      plan.Tier,
	}, nil
}

func (s *paymentService) GetSubscription(ctx context.Context, actor *accountmodel.User) (*model.Subscription, error) {
	return s.repo.GetSubscription(ctx, actor.ID)
}

func (s *paymentService) CancelSubscription(ctx context.Context, actor *accountmodel.User) error {
	return s.repo.CancelSubscription(ctx, actor.ID)
}

func (s *paymentService) ListPayments(ctx context.Context, actor *accountmodel.User, offset, limit int) ([]model.Payment, int64, error) {
	return s.repo.ListPayments(ctx, actor.ID, offset, limit)
}
