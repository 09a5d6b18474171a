package model

import (
	"time"

	basemodel "tiered_social/pkg/model"
	"tiered_social/pkg/tier"

	"gorm.io/datatypes"
)

// User 用户模型
type User struct {
	basemodel.BaseModel
	Username string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email    string    `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Password string    `gorm:"not null" json:"-"` // 密码不返回给前端
	Tier     tier.Tier `gorm:"size:10;not null;default:user" json:"tier"`
	IsStaff  bool      `gorm:"not null;default:false" json:"isStaff"`

	// 计数器只通过 ledger 相对增减
	FollowersCount int `gorm:"not null;default:0" json:"followersCount"`
	FollowingCount int `gorm:"not null;default:0" json:"followingCount"`
	PostsCount     int `gorm:"not null;default:0" json:"postsCount"`

	Bio            string                      `gorm:"size:500" json:"bio"`
	Region         string                      `gorm:"size:100" json:"region"`
	PreferredTags  datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"preferredTags"`
	ProfilePicture string                      `json:"profilePicture"`
	CoverPicture   string                      `json:"coverPicture"`
	BirthDate      *time.Time                  `json:"birthDate,omitempty"`
	LastActive     *time.Time                  `json:"lastActive,omitempty"`
}

// Follow 关注关系 (follower -> following)
type Follow struct {
	basemodel.BaseModel
	FollowerID  string `gorm:"type:uuid;not null;uniqueIndex:uniq_follow_pair" json:"followerId"`
	FollowingID string `gorm:"type:uuid;not null;uniqueIndex:uniq_follow_pair;index" json:"followingId"`
}

// FollowOutcome 关注操作结果
type FollowOutcome string

const (
	FollowCreated      FollowOutcome = "created"
	FollowAlready      FollowOutcome = "already"
	FollowRemoved      FollowOutcome = "removed"
	FollowNotFollowing FollowOutcome = "not_following"
)
