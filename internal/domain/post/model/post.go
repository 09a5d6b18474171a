package model

import (
	"time"

	accountmodel "tiered_social/internal/domain/account/model"
	basemodel "tiered_social/pkg/model"

	"gorm.io/datatypes"
)

// 计数器列
const (
	ColReactions = "reactions_count"
	ColComments  = "comments_count"
	ColShares    = "shares_count"
	ColViews     = "views_count"
)

// Post 帖子
type Post struct {
	basemodel.BaseModel
	AuthorID  string                      `gorm:"type:uuid;not null;index" json:"authorId"`
	Author    *accountmodel.User          `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content   string                      `gorm:"size:2000;not null" json:"content"`
	Tags      datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"tags"`
	Region    string                      `gorm:"size:100;index" json:"region"`
	MediaURLs datatypes.JSONSlice[string] `gorm:"type:jsonb;column:media_urls" json:"mediaUrls"` // 上传后返回的 URL

	// 服务端维护，客户端不可写
	ReactionsCount int `gorm:"not null;default:0" json:"reactionsCount"`
	CommentsCount  int `gorm:"not null;default:0" json:"commentsCount"`
	SharesCount    int `gorm:"not null;default:0" json:"sharesCount"`
	ViewsCount     int `gorm:"not null;default:0" json:"viewsCount"`

	IsActive bool `gorm:"not null;default:true" json:"-"`
	IsEdited bool `gorm:"not null;default:false" json:"isEdited"`

	// MyReaction 当前用户的点赞类型，只在列表查询时填充
	MyReaction *string `gorm:"->;-:migration;column:my_reaction" json:"myReaction"`
}

// SavedPost 收藏
type SavedPost struct {
	ID        string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:uniq_saved_user_post" json:"userId"`
	PostID    string    `gorm:"type:uuid;not null;uniqueIndex:uniq_saved_user_post" json:"postId"`
	Post      *Post     `gorm:"foreignKey:PostID" json:"post,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReportReason 举报原因
type ReportReason string

const (
	ReasonSpam       ReportReason = "spam"
	ReasonHarassment ReportReason = "harassment"
	ReasonHateSpeech ReportReason = "hate_speech"
	ReasonViolence   ReportReason = "violence"
	ReasonNudity     ReportReason = "nudity"
	ReasonOther      ReportReason = "other"
)

func (r ReportReason) Valid() bool {
	switch r {
	case ReasonSpam, ReasonHarassment, ReasonHateSpeech, ReasonViolence, ReasonNudity, ReasonOther:
		return true
	}
	return false
}

// Report 举报
type Report struct {
	basemodel.BaseModel
	ReporterID  string       `gorm:"type:uuid;not null" json:"reporterId"`
	PostID      string       `gorm:"type:uuid;not null;index" json:"postId"`
	Reason      ReportReason `gorm:"size:20;not null" json:"reason"`
	Description string       `gorm:"size:500" json:"description"`
	IsResolved  bool         `gorm:"not null;default:false" json:"isResolved"`
}

// TimelineQuery 当日时间线查询条件
type TimelineQuery struct {
	ViewerID string
	Since    time.Time // 当天零点 (UTC)
	Until    time.Time
	// 用户偏好：设置后只返回有交集的标签 / 同地区或未标地区的帖子
	PreferredTags []string
	ViewerRegion  string
	// 请求里的显式过滤
	Region string
	Tags   []string
	Offset int
	Limit  int
}
