package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Type 活动类型
type Type string

const (
	TypePost     Type = "post"
	TypeComment  Type = "comment"
	TypeReaction Type = "reaction"
	TypeFollow   Type = "follow"
	TypeUpgrade  Type = "upgrade"
)

// UserActivity 用户行为日志，只追加
type UserActivity struct {
	ID           string            `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string            `gorm:"type:uuid;not null;index:idx_activity_user_created" json:"userId"`
	ActivityType Type              `gorm:"size:20;not null" json:"activityType"`
	TargetID     *string           `gorm:"type:uuid" json:"targetId,omitempty"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt    time.Time         `gorm:"index:idx_activity_user_created" json:"createdAt"`
}

func (UserActivity) TableName() string {
	return "user_activities"
}

func (a *UserActivity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// TypeCount 按类型统计
type TypeCount struct {
	ActivityType Type      `db:"activity_type" json:"activityType"`
	Count        int64     `db:"count" json:"count"`
	LastAt       time.Time `db:"last_at" json:"lastAt"`
}
