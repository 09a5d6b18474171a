package repository

import (
	"context"

	"tiered_social/internal/domain/payment/model"
	"tiered_social/pkg/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	ListActivePlans(ctx context.Context) ([]model.Plan, error)
	GetActivePlan(ctx context.Context, id string) (*model.Plan, error)

	CreatePayment(ctx context.Context, payment *model.Payment) error
	UpdatePayment(ctx context.Context, id string, fields map[string]interface{}) error
	ListPayments(ctx context.Context, userID string, offset, limit int) ([]model.Payment, int64, error)

	// UpsertSubscription 按 user_id 插入或覆盖，返回落库后的记录
	UpsertSubscription(ctx context.Context, sub *model.Subscription) (*model.Subscription, error)
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	CancelSubscription(ctx context.Context, userID string) error
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) ListActivePlans(ctx context.Context) ([]model.Plan, error) {
	var plans []model.Plan
	err := database.Conn(ctx, r.db).Where("is_active = ?", true).Order("price ASC").Find(&plans).Error
	return plans, err
}

func (r *paymentRepository) GetActivePlan(ctx context.Context, id string) (*model.Plan, error) {
	var plan model.Plan
	if err := database.Conn(ctx, r.db).Where("id = ? AND is_active = ?", id, true).First(&plan).Error; err != nil {
		return nil, database.TranslateError(err, "plan not found")
	}
	return &plan, nil
}

func (r *paymentRepository) CreatePayment(ctx context.Context, payment *model.Payment) error {
	return database.Conn(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) UpdatePayment(ctx context.Context, id string, fields map[string]interface{}) error {
	return database.Conn(ctx, r.db).Model(&model.Payment{}).Where("id = ?", id).Updates(fields).Error
}

func (r *paymentRepository) ListPayments(ctx context.Context, userID string, offset, limit int) ([]model.Payment, int64, error) {
	var payments []model.Payment
	var total int64

	q := database.Conn(ctx, r.db).Model(&model.Payment{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *paymentRepository) UpsertSubscription(ctx context.Context, sub *model.Subscription) (*model.Subscription, error) {
	db := database.Conn(ctx, r.db)
	err := db.Omit("Plan").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan_id", "status", "start_date", "end_date", "auto_renew", "updated_at"}),
	}).Create(sub).Error
	if err != nil {
		return nil, err
	}
	// 冲突时保留原行 id，重新读取
	return r.GetSubscription(ctx, sub.UserID)
}

func (r *paymentRepository) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	var sub model.Subscription
	if err := database.Conn(ctx, r.db).Preload("Plan").Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, database.TranslateError(err, "no subscription found")
	}
	return &sub, nil
}

func (r *paymentRepository) CancelSubscription(ctx context.Context, userID string) error {
	res := database.Conn(ctx, r.db).Model(&model.Subscription{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"status": model.SubscriptionCancelled, "auto_renew": false})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.TranslateError(gorm.ErrRecordNotFound, "no subscription found")
	}
	return nil
}
