package model

import (
	"sort"
	"strings"
	"time"

	accountmodel "tiered_social/internal/domain/account/model"
	basemodel "tiered_social/pkg/model"
)

const MaxMessageLength = 2000

// RoomType 房间类型
type RoomType string

const (
	RoomPrivate RoomType = "private"
	RoomGroup   RoomType = "group"
)

// ChatRoom 聊天房间，私聊房间的 pair_key 在数据库中部分唯一
type ChatRoom struct {
	basemodel.BaseModel
	RoomType     RoomType          `gorm:"size:10;not null;default:private" json:"roomType"`
	Name         string            `gorm:"size:100" json:"name"`
	CreatedByID  string            `gorm:"type:uuid;not null" json:"createdBy"`
	PairKey      *string           `gorm:"size:80" json:"-"`
	Participants []RoomParticipant `gorm:"foreignKey:RoomID" json:"participants,omitempty"`
}

// RoomParticipant 房间成员
type RoomParticipant struct {
	basemodel.BaseModel
	RoomID string             `gorm:"type:uuid;not null;uniqueIndex:uniq_participant_room_user" json:"roomId"`
	UserID string             `gorm:"type:uuid;not null;uniqueIndex:uniq_participant_room_user;index" json:"userId"`
	User   *accountmodel.User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Message 聊天消息
type Message struct {
	basemodel.BaseModel
	RoomID   string             `gorm:"type:uuid;not null;index:idx_message_room_created" json:"roomId"`
	SenderID string             `gorm:"type:uuid;not null" json:"senderId"`
	Sender   *accountmodel.User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Content  string             `gorm:"size:2000;not null" json:"content"`
	IsRead   bool               `gorm:"not null;default:false" json:"isRead"`
}

// MessageRead 已读标记，(message_id, user_id) 唯一
type MessageRead struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	MessageID string    `gorm:"type:uuid;not null;uniqueIndex:uniq_read_message_user" json:"messageId"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:uniq_read_message_user" json:"userId"`
	ReadAt    time.Time `gorm:"not null" json:"readAt"`
}

// PairKey 两个用户的无序组合键
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

// Other 私聊房间中除 userID 之外的成员
func (r *ChatRoom) Other(userID string) string {
	for _, p := range r.Participants {
		if p.UserID != userID {
			return p.UserID
		}
	}
	return ""
}

// Event 推送给 websocket 客户端的帧
type Event struct {
	Type      string       `json:"type"`
	RoomID    string       `json:"roomId,omitempty"`
	ID        string       `json:"id,omitempty"`
	Content   string       `json:"content,omitempty"`
	Sender    *EventSender `json:"sender,omitempty"`
	UserID    string       `json:"userId,omitempty"`
	Username  string       `json:"username,omitempty"`
	IsTyping  *bool        `json:"isTyping,omitempty"`
	Message   string       `json:"message,omitempty"`
	Timestamp *time.Time   `json:"timestamp,omitempty"`
}

type EventSender struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

const (
	EventMessage = "message"
	EventTyping  = "typing"
	EventError   = "error"
)

// MessageEvent 已持久化消息的广播帧
func MessageEvent(msg *Message, sender *accountmodel.User) Event {
	ts := msg.CreatedAt
	return Event{
		Type:    EventMessage,
		RoomID:  msg.RoomID,
		ID:      msg.ID,
		Content: msg.Content,
		Sender: &EventSender{
			ID:       sender.ID,
			Username: sender.Username,
			Avatar:   sender.ProfilePicture,
		},
		Timestamp: &ts,
	}
}

func TypingEvent(roomID string, user *accountmodel.User, isTyping bool) Event {
	return Event{
		Type:     EventTyping,
		RoomID:   roomID,
		UserID:   user.ID,
		Username: user.Username,
		IsTyping: &isTyping,
	}
}

func ErrorEvent(msg string) Event {
	return Event{Type: EventError, Message: msg}
}
