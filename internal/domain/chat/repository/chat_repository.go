package repository

import (
	"context"
	"time"

	"tiered_social/internal/domain/chat/model"
	"tiered_social/pkg/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository interface {
	// InsertPrivateRoom 冲突 (pair_key 已存在) 时返回 false
	InsertPrivateRoom(ctx context.Context, room *model.ChatRoom) (bool, error)
	FindPrivateByPair(ctx context.Context, pairKey string) (*model.ChatRoom, error)
	AddParticipants(ctx context.Context, roomID string, userIDs ...string) error
	GetRoom(ctx context.Context, id string) (*model.ChatRoom, error)
	IsParticipant(ctx context.Context, roomID, userID string) (bool, error)
	TouchRoom(ctx context.Context, id string) error
	ListRooms(ctx context.Context, userID string, offset, limit int) ([]model.ChatRoom, int64, error)

	CreateMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, roomID string, offset, limit int) ([]model.Message, int64, error)
	ListUnread(ctx context.Context, userID string, offset, limit int) ([]model.Message, int64, error)
	// MarkRoomRead 为房间内他人发送、自己未读的消息写入已读标记，返回新增标记数
	MarkRoomRead(ctx context.Context, roomID, userID string) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) InsertPrivateRoom(ctx context.Context, room *model.ChatRoom) (bool, error) {
	res := database.Conn(ctx, r.db).
		Omit("Participants").
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "pair_key"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "pair_key IS NOT NULL"}}},
			DoNothing:   true,
		}).
		Create(room)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func withParticipants(db *gorm.DB) *gorm.DB {
	return db.Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Preload("Participants.User")
}

func (r *chatRepository) FindPrivateByPair(ctx context.Context, pairKey string) (*model.ChatRoom, error) {
	var room model.ChatRoom
	err := withParticipants(database.Conn(ctx, r.db)).
		Where("pair_key = ? AND room_type = ?", pairKey, model.RoomPrivate).
		First(&room).Error
	if err != nil {
		return nil, database.TranslateError(err, "room not found")
	}
	return &room, nil
}

func (r *chatRepository) AddParticipants(ctx context.Context, roomID string, userIDs ...string) error {
	rows := make([]model.RoomParticipant, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, model.RoomParticipant{RoomID: roomID, UserID: id})
	}
	return database.Conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *chatRepository) GetRoom(ctx context.Context, id string) (*model.ChatRoom, error) {
	var room model.ChatRoom
	if err := withParticipants(database.Conn(ctx, r.db)).First(&room, "id = ?", id).Error; err != nil {
		return nil, database.TranslateError(err, "room not found")
	}
	return &room, nil
}

func (r *chatRepository) IsParticipant(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&model.RoomParticipant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *chatRepository) TouchRoom(ctx context.Context, id string) error {
	return database.Conn(ctx, r.db).Model(&model.ChatRoom{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", time.Now()).Error
}

func (r *chatRepository) ListRooms(ctx context.Context, userID string, offset, limit int) ([]model.ChatRoom, int64, error) {
	var rooms []model.ChatRoom
	var total int64

	q := database.Conn(ctx, r.db).Model(&model.ChatRoom{}).
		Where("id IN (?)", database.Conn(ctx, r.db).Model(&model.RoomParticipant{}).Select("room_id").Where("user_id = ?", userID)).
		Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := withParticipants(q).Order("updated_at DESC").Offset(offset).Limit(limit).Find(&rooms).Error; err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	return database.Conn(ctx, r.db).Omit("Sender").Create(msg).Error
}

func (r *chatRepository) ListMessages(ctx context.Context, roomID string, offset, limit int) ([]model.Message, int64, error) {
	var msgs []model.Message
	var total int64

	q := database.Conn(ctx, r.db).Model(&model.Message{}).Where("room_id = ?", roomID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Preload("Sender").Order("created_at ASC").Offset(offset).Limit(limit).Find(&msgs).Error; err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// unreadFor 我所在房间中他人发送、我没有已读标记的消息
func unreadFor(db *gorm.DB, userID string) *gorm.DB {
	return db.Model(&model.Message{}).
		Where("messages.room_id IN (SELECT room_id FROM room_participants WHERE user_id = ?)", userID).
		Where("messages.sender_id <> ?", userID).
		Where("NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = messages.id AND mr.user_id = ?)", userID)
}

func (r *chatRepository) ListUnread(ctx context.Context, userID string, offset, limit int) ([]model.Message, int64, error) {
	var msgs []model.Message
	var total int64

	q := unreadFor(database.Conn(ctx, r.db), userID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Preload("Sender").Order("messages.created_at ASC").Offset(offset).Limit(limit).Find(&msgs).Error; err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

const markReadSQL = `
INSERT INTO message_reads (id, message_id, user_id, read_at)
SELECT gen_random_uuid(), m.id, ?, NOW()
FROM messages m
WHERE m.room_id = ?
  AND m.sender_id <> ?
  AND NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = m.id AND mr.user_id = ?)
ON CONFLICT (message_id, user_id) DO NOTHING`

func (r *chatRepository) MarkRoomRead(ctx context.Context, roomID, userID string) (int64, error) {
	db := database.Conn(ctx, r.db)

	res := db.Exec(markReadSQL, userID, roomID, userID, userID)
	if res.Error != nil {
		return 0, res.Error
	}
	err := db.Model(&model.Message{}).
		Where("room_id = ? AND sender_id <> ? AND is_read = ?", roomID, userID, false).
		UpdateColumn("is_read", true).Error
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}
