package model

import (
	accountmodel "tiered_social/internal/domain/account/model"
	basemodel "tiered_social/pkg/model"
)

// ReactionType 点赞类型
type ReactionType string

const (
	ReactionLike  ReactionType = "like"
	ReactionLove  ReactionType = "love"
	ReactionLaugh ReactionType = "laugh"
	ReactionWow   ReactionType = "wow"
	ReactionSad   ReactionType = "sad"
	ReactionAngry ReactionType = "angry"
)

func (t ReactionType) Valid() bool {
	switch t {
	case ReactionLike, ReactionLove, ReactionLaugh, ReactionWow, ReactionSad, ReactionAngry:
		return true
	}
	return false
}

// Subject 点赞对象
type Subject string

const (
	SubjectPost    Subject = "post"
	SubjectComment Subject = "comment"
)

// ToggleOutcome 切换结果
type ToggleOutcome string

const (
	ToggleCreated ToggleOutcome = "created"
	ToggleUpdated ToggleOutcome = "updated"
	ToggleRemoved ToggleOutcome = "removed"
)

// Reaction 帖子点赞，(user_id, post_id) 唯一
type Reaction struct {
	basemodel.BaseModel
	UserID       string             `gorm:"type:uuid;not null;uniqueIndex:uniq_reaction_user_post" json:"userId"`
	PostID       string             `gorm:"type:uuid;not null;uniqueIndex:uniq_reaction_user_post;index:idx_reaction_post_type" json:"postId"`
	ReactionType ReactionType       `gorm:"size:10;not null;index:idx_reaction_post_type" json:"reactionType"`
	User         *accountmodel.User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// CommentReaction 评论点赞，(user_id, comment_id) 唯一
type CommentReaction struct {
	basemodel.BaseModel
	UserID       string       `gorm:"type:uuid;not null;uniqueIndex:uniq_comment_reaction_user_comment" json:"userId"`
	CommentID    string       `gorm:"type:uuid;not null;uniqueIndex:uniq_comment_reaction_user_comment" json:"commentId"`
	ReactionType ReactionType `gorm:"size:10;not null" json:"reactionType"`
}

// 评论计数器列
const (
	ColReplies   = "replies_count"
	ColReactions = "reactions_count"
)

// Comment 评论，parent_id 指向同一帖子下的父评论
type Comment struct {
	basemodel.BaseModel
	UserID         string             `gorm:"type:uuid;not null" json:"userId"`
	User           *accountmodel.User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PostID         string             `gorm:"type:uuid;not null;index:idx_comment_post_parent" json:"postId"`
	ParentID       *string            `gorm:"type:uuid;index:idx_comment_post_parent" json:"parentId"`
	Content        string             `gorm:"size:1000;not null" json:"content"`
	RepliesCount   int                `gorm:"not null;default:0" json:"repliesCount"`
	ReactionsCount int                `gorm:"not null;default:0" json:"reactionsCount"`
	IsActive       bool               `gorm:"not null;default:true" json:"-"`
	IsEdited       bool               `gorm:"not null;default:false" json:"isEdited"`
	Replies        []Comment          `gorm:"foreignKey:ParentID" json:"replies,omitempty"`
}

// ReactionCount 按类型统计
type ReactionCount struct {
	ReactionType ReactionType `db:"reaction_type" json:"reactionType"`
	Count        int64        `db:"count" json:"count"`
}

// ExistingReaction 加锁读取到的已有点赞
type ExistingReaction struct {
	ID           string
	ReactionType ReactionType
}
