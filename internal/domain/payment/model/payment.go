package model

import (
	"time"

	basemodel "tiered_social/pkg/model"
	"tiered_social/pkg/tier"

	"gorm.io/datatypes"
)

// Plan 付费方案，购买后用户等级变为 Tier
type Plan struct {
	basemodel.BaseModel
	Name         string                      `gorm:"size:100;not null" json:"name"`
	Tier         tier.Tier                   `gorm:"size:10;not null" json:"tier"`
	Price        float64                     `gorm:"type:numeric(10,2);not null" json:"price"`
	DurationDays int                         `gorm:"not null;default:30" json:"durationDays"`
	Features     datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"features"`
	IsActive     bool                        `gorm:"not null;default:true" json:"isActive"`
}

// SubscriptionStatus 订阅状态
type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription 每个用户最多一条，升级时 upsert
type Subscription struct {
	basemodel.BaseModel
	UserID    string             `gorm:"type:uuid;not null;uniqueIndex" json:"userId"`
	PlanID    *string            `gorm:"type:uuid" json:"planId"`
	Plan      *Plan              `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Status    SubscriptionStatus `gorm:"size:10;not null;default:pending" json:"status"`
	StartDate time.Time          `gorm:"not null" json:"startDate"`
	EndDate   time.Time          `gorm:"not null" json:"endDate"`
	AutoRenew bool               `gorm:"not null;default:false" json:"autoRenew"`
}

// IsCurrent 有效且未过期
func (s *Subscription) IsCurrent(now time.Time) bool {
	return s.Status == SubscriptionActive && s.EndDate.After(now)
}

// Method 支付方式
type Method string

const (
	MethodCreditCard Method = "credit_card"
	MethodBoleto     Method = "boleto"
	MethodPix        Method = "pix"
	MethodPaypal     Method = "paypal"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCreditCard, MethodBoleto, MethodPix, MethodPaypal:
		return true
	}
	return false
}

// Status 支付状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
	StatusCancelled  Status = "cancelled"
)

// Payment 一次升级的支付记录
type Payment struct {
	basemodel.BaseModel
	UserID          string            `gorm:"type:uuid;not null;index" json:"userId"`
	SubscriptionID  *string           `gorm:"type:uuid" json:"subscriptionId"`
	PlanID          *string           `gorm:"type:uuid" json:"planId"`
	Amount          float64           `gorm:"type:numeric(10,2);not null" json:"amount"`
	PaymentMethod   Method            `gorm:"size:20;not null" json:"paymentMethod"`
	Status          Status            `gorm:"size:20;not null;default:pending" json:"status"`
	Gateway         string            `gorm:"size:50" json:"gateway"`
	TransactionID   *string           `gorm:"size:255;uniqueIndex" json:"transactionId"`
	GatewayResponse datatypes.JSONMap `gorm:"type:jsonb" json:"gatewayResponse,omitempty"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	ProcessedAt     *time.Time        `json:"processedAt,omitempty"`
}
