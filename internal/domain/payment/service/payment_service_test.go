package service

import (
	"context"
	"errors"
	"testing"
	"time"

	accountmodel "tiered_social/internal/domain/account/model"
	activitymodel "tiered_social/internal/domain/activity/model"
	"tiered_social/internal/domain/payment/model"
	"tiered_social/internal/domain/payment/strategy"
	"tiered_social/pkg/apperr"
	"tiered_social/pkg/cache"
	basemodel "tiered_social/pkg/model"
	"tiered_social/pkg/tier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockPaymentRepository is a mock of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) ListActivePlans(ctx context.Context) ([]model.Plan, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Plan), args.Error(1)
}

func (m *MockPaymentRepository) GetActivePlan(ctx context.Context, id string) (*model.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Plan), args.Error(1)
}

func (m *MockPaymentRepository) CreatePayment(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	if payment.ID == "" {
		payment.ID = "pay-1"
	}
	return args.Error(0)
}

func (m *MockPaymentRepository) UpdatePayment(ctx context.Context, id string, fields map[string]interface{}) error {
	return m.Called(ctx, id, fields).Error(0)
}

func (m *MockPaymentRepository) ListPayments(ctx context.Context, userID string, offset, limit int) ([]model.Payment, int64, error) {
	args := m.Called(ctx, userID, offset, limit)
	return args.Get(0).([]model.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentRepository) UpsertSubscription(ctx context.Context, sub *model.Subscription) (*model.Subscription, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockPaymentRepository) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockPaymentRepository) CancelSubscription(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type MockTierStore struct {
	mock.Mock
}

func (m *MockTierStore) LockByID(ctx context.Context, id string) (*accountmodel.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountmodel.User), args.Error(1)
}

func (m *MockTierStore) SetTier(ctx context.Context, id string, t tier.Tier) error {
	return m.Called(ctx, id, t).Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	if fn, ok := args.Get(1).(func(interface{})); ok && fn != nil {
		fn(dest)
	}
	return args.Error(0)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, userID string, activityType activitymodel.Type, targetID string, metadata map[string]interface{}) {
	m.Called(ctx, userID, activityType, targetID, metadata)
}

type declining struct{}

func (declining) Gateway() string { return "declining" }
func (declining) Charge(context.Context, *model.Payment) (*strategy.Charge, error) {
	return nil, strategy.ErrDeclined
}

type fakeTx struct{}

func (fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func member(id string, t tier.Tier) *accountmodel.User {
	return &accountmodel.User{BaseModel: basemodel.BaseModel{ID: id}, Username: id, Tier: t}
}

func plusPlan() *model.Plan {
	p := &model.Plan{Name: "Plus Monthly", Tier: tier.Plus, Price: 19.9, DurationDays: 30, IsActive: true}
	p.ID = "plan-plus"
	return p
}

type paymentFixture struct {
	svc   *paymentService
	repo  *MockPaymentRepository
	users *MockTierStore
	cache *MockCache
	rec   *MockRecorder
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		repo:  new(MockPaymentRepository),
		users: new(MockTierStore),
		cache: new(MockCache),
		rec:   new(MockRecorder),
	}
	f.svc = NewPaymentService(fakeTx{}, f.repo, f.users, f.cache, f.rec, nil, zap.NewNop()).(*paymentService)
	fixed := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }
	return f
}

func TestProcessUpgrade(t *testing.T) {
	ctx := context.Background()
	input := ProcessUpgradeInput{PlanID: "plan-plus", PaymentMethod: "pix"}

	t.Run("user to plus creates one payment and one subscription", func(t *testing.T) {
		f := newPaymentFixture()
		sub := &model.Subscription{UserID: "u1", Status: model.SubscriptionActive}
		sub.ID = "sub-1"

		f.repo.On("GetActivePlan", ctx, "plan-plus").Return(plusPlan(), nil)
		f.users.On("LockByID", ctx, "u1").Return(member("u1", tier.User), nil)
		f.repo.On("CreatePayment", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.Status == model.StatusProcessing && p.Amount == 19.9 && p.Metadata["user_level_before"] == "user"
		})).Return(nil).Once()
		f.repo.On("UpsertSubscription", ctx, mock.MatchedBy(func(s *model.Subscription) bool {
			return s.Status == model.SubscriptionActive && !s.AutoRenew &&
				s.EndDate.Sub(s.StartDate) == 30*24*time.Hour
		})).Return(sub, nil).Once()
		f.repo.On("UpdatePayment", ctx, "pay-1", mock.MatchedBy(func(fields map[string]interface{}) bool {
			return fields["status"] == model.StatusCompleted && fields["subscription_id"] == "sub-1"
		})).Return(nil).Once()
		f.users.On("SetTier", ctx, "u1", tier.Plus).Return(nil).Once()
		f.rec.On("Record", ctx, "u1", activitymodel.TypeUpgrade, "pay-1", mock.MatchedBy(func(md map[string]interface{}) bool {
			return md["from_level"] == "user" && md["to_level"] == "plus" && md["plan_name"] == "Plus Monthly"
		})).Return().Once()

		result, err := f.svc.ProcessUpgrade(ctx, member("u1", tier.User), input)
		require.NoError(t, err)
		assert.Equal(t, tier.Plus, result.NewTier)
		assert.Equal(t, model.StatusCompleted, result.Payment.Status)
		require.NotNil(t, result.Payment.TransactionID)
		assert.Regexp(t, `^TXNPAY1\d{14}$`, *result.Payment.TransactionID)
		assert.Equal(t, "sub-1", *result.Payment.SubscriptionID)
		f.repo.AssertExpectations(t)
		f.users.AssertExpectations(t)
		f.rec.AssertExpectations(t)
	})

	t.Run("same or higher tier is rejected", func(t *testing.T) {
		for _, current := range []tier.Tier{tier.Plus, tier.Pro} {
			f := newPaymentFixture()
			f.repo.On("GetActivePlan", ctx, "plan-plus").Return(plusPlan(), nil)
			f.users.On("LockByID", ctx, "u1").Return(member("u1", current), nil)

			_, err := f.svc.ProcessUpgrade(ctx, member("u1", current), input)
			assert.True(t, apperr.IsKind(err, apperr.KindAlreadyAtTarget), "tier %s", current)
			f.repo.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
			f.users.AssertNotCalled(t, "SetTier", mock.Anything, mock.Anything, mock.Anything)
			f.rec.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		}
	})

	t.Run("missing plan", func(t *testing.T) {
		f := newPaymentFixture()
		f.repo.On("GetActivePlan", ctx, "nope").Return(nil, apperr.NotFound("plan not found"))

		_, err := f.svc.ProcessUpgrade(ctx, member("u1", tier.User), ProcessUpgradeInput{PlanID: "nope", PaymentMethod: "pix"})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("unknown method", func(t *testing.T) {
		f := newPaymentFixture()
		_, err := f.svc.ProcessUpgrade(ctx, member("u1", tier.User), ProcessUpgradeInput{PlanID: "plan-plus", PaymentMethod: "cash"})
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
	})

	t.Run("declined charge leaves tier unchanged", func(t *testing.T) {
		f := newPaymentFixture()
		f.svc.RegisterStrategy(model.MethodCreditCard, declining{})
		f.repo.On("GetActivePlan", ctx, "plan-plus").Return(plusPlan(), nil)
		f.users.On("LockByID", ctx, "u1").Return(member("u1", tier.User), nil)
		f.repo.On("CreatePayment", ctx, mock.Anything).Return(nil)

		_, err := f.svc.ProcessUpgrade(ctx, member("u1", tier.User), ProcessUpgradeInput{PlanID: "plan-plus", PaymentMethod: "credit_card"})
		require.Error(t, err)
		assert.ErrorIs(t, err, strategy.ErrDeclined)
		f.users.AssertNotCalled(t, "SetTier", mock.Anything, mock.Anything, mock.Anything)
		f.repo.AssertNotCalled(t, "UpsertSubscription", mock.Anything, mock.Anything)
	})
}

func TestListPlansCache(t *testing.T) {
	ctx := context.Background()
	plans := []model.Plan{*plusPlan()}

	t.Run("miss loads from repository and fills cache", func(t *testing.T) {
		f := newPaymentFixture()
		f.cache.On("Get", ctx, plansCacheKey, mock.Anything).Return(cache.ErrCacheMiss, nil)
		f.repo.On("ListActivePlans", ctx).Return(plans, nil).Once()
		f.cache.On("Set", ctx, plansCacheKey, plans, plansCacheTTL).Return(nil)

		got, err := f.svc.ListPlans(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		f.cache.AssertExpectations(t)
	})

	t.Run("hit skips repository", func(t *testing.T) {
		f := newPaymentFixture()
		fill := func(dest interface{}) { *dest.(*[]model.Plan) = plans }
		f.cache.On("Get", ctx, plansCacheKey, mock.Anything).Return(nil, fill)

		got, err := f.svc.ListPlans(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Plus Monthly", got[0].Name)
		f.repo.AssertNotCalled(t, "ListActivePlans", mock.Anything)
	})

	t.Run("cache error falls back to repository", func(t *testing.T) {
		f := newPaymentFixture()
		f.cache.On("Get", ctx, plansCacheKey, mock.Anything).Return(errors.New("redis down"), nil)
		f.repo.On("ListActivePlans", ctx).Return(plans, nil)
		f.cache.On("Set", ctx, plansCacheKey, plans, plansCacheTTL).Return(errors.New("redis down"))

		got, err := f.svc.ListPlans(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestCancelSubscriptionNotFound(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()
	f.repo.On("CancelSubscription", ctx, "u1").Return(apperr.NotFound("no subscription found"))

	err := f.svc.CancelSubscription(ctx, member("u1", tier.User))
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
