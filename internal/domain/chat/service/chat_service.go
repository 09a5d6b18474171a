package service

import (
	"context"
	"strings"
	"sync"

	accountmodel "tiered_social/internal/domain/account/model"
	"tiered_social/internal/domain/chat/hub"
	"tiered_social/internal/domain/chat/model"
	"tiered_social/internal/domain/chat/repository"
	"tiered_social/pkg/apperr"
	"tiered_social/pkg/database"
	"tiered_social/pkg/metrics"
	"tiered_social/pkg/tier"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// roomLockStripes 发送锁分段数，按房间 id 哈希取锁
const roomLockStripes = 256

// UserFinder 查找对方用户
type UserFinder interface {
	GetByID(ctx context.Context, id string) (*accountmodel.User, error)
}

// MutualChecker 互相关注判断
type MutualChecker interface {
	IsMutual(ctx context.Context, a, b string) (bool, error)
}

type ChatService interface {
	// CreatePrivateRoom 同一对用户只有一个私聊房间，第二个返回值表示是否新建
	CreatePrivateRoom(ctx context.Context, actor *accountmodel.User, otherID string) (*model.ChatRoom, bool, error)
	SendMessage(ctx context.Context, actor *accountmodel.User, roomID, content string) (*model.Message, error)
	Typing(ctx context.Context, actor *accountmodel.User, roomID string, isTyping bool) error
	// Authorize 进入房间前的检查：can_chat 且是成员
	Authorize(ctx context.Context, actor *accountmodel.User, roomID string) error

	ListRooms(ctx context.Context, actor *accountmodel.User, offset, limit int) ([]model.ChatRoom, int64, error)
	ListMessages(ctx context.Context, actor *accountmodel.User, roomID string, offset, limit int) ([]model.Message, int64, error)
	ListUnread(ctx context.Context, actor *accountmodel.User, offset, limit int) ([]model.Message, int64, error)
	MarkRoomRead(ctx context.Context, actor *accountmodel.User, roomID string) (int64, error)
}

type chatService struct {
	tx      database.TxManager
	repo    repository.ChatRepository
	users   UserFinder
	follows MutualChecker
	hub     hub.Hub
	metrics *metrics.MetricsCollector
	log     *zap.Logger

	// 同一房间总是落在同一把锁上，进程内广播顺序与提交顺序一致
	roomLocks [roomLockStripes]sync.Mutex
}

func NewChatService(tx database.TxManager, repo repository.ChatRepository, users UserFinder, follows MutualChecker,
	h hub.Hub, m *metrics.MetricsCollector, log *zap.Logger) ChatService {
	return &chatService{tx: tx, repo: repo, users: users, follows: follows, hub: h, metrics: m, log: log.Named("chat")}
}

func (s *chatService) roomLock(roomID string) *sync.Mutex {
	return &s.roomLocks[roomLockIndex(roomID)]
}

func roomLockIndex(roomID string) uint64 {
	return xxhash.Sum64String(roomID) % roomLockStripes
}

func (s *chatService) requireMutual(ctx context.Context, a, b string) error {
	mutual, err := s.follows.IsMutual(ctx, a, b)
	if err != nil {
		return err
	}
	if !mutual {
		return apperr.Forbidden("must follow each other")
	}
	return nil
}

func (s *chatService) CreatePrivateRoom(ctx context.Context, actor *accountmodel.User, otherID string) (*model.ChatRoom, bool, error) {
	if otherID == actor.ID {
		return nil, false, apperr.InvalidInput("self")
	}
	if err := tier.Check(actor.Tier, tier.CanChat); err != nil {
		return nil, false, err
	}
	if _, err := s.users.GetByID(ctx, otherID); err != nil {
		return nil, false, err
	}
	if err := s.requireMutual(ctx, actor.ID, otherID); err != nil {
		return nil, false, err
	}

	key := model.PairKey(actor.ID, otherID)
	if room, err := s.repo.FindPrivateByPair(ctx, key); err == nil {
		return room, false, nil
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, false, err
	}

	var created bool
	var roomID string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		room := &model.ChatRoom{RoomType: model.RoomPrivate, CreatedByID: actor.ID, PairKey: &key}
		inserted, err := s.repo.InsertPrivateRoom(ctx, room)
		if err != nil {
			return err
		}
		if !inserted {
			// 并发创建，对方事务已经提交
			existing, err := s.repo.FindPrivateByPair(ctx, key)
			if err != nil {
				return err
			}
			roomID = existing.ID
			return nil
		}
		created = true
		roomID = room.ID
		return s.repo.AddParticipants(ctx, room.ID, actor.ID, otherID)
	})
	if err != nil {
		return nil, false, err
	}

	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, false, err
	}
	return room, created, nil
}

func (s *chatService) admit(ctx context.Context, actor *accountmodel.User, roomID string) (*model.ChatRoom, error) {
	if err := tier.Check(actor.Tier, tier.CanChat); err != nil {
		return nil, err
	}
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.IsParticipant(ctx, roomID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("you are not a participant of this room")
	}
	return room, nil
}

func (s *chatService) Authorize(ctx context.Context, actor *accountmodel.User, roomID string) error {
	_, err := s.admit(ctx, actor, roomID)
	return err
}

// SendMessage 持久化后广播；私聊每次发送都重新校验互关
func (s *chatService) SendMessage(ctx context.Context, actor *accountmodel.User, roomID, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.InvalidInput("content is required")
	}
	if len([]rune(content)) > model.MaxMessageLength {
		return nil, apperr.InvalidInput("content exceeds 2000 characters")
	}

	room, err := s.admit(ctx, actor, roomID)
	if err != nil {
		return nil, err
	}
	if room.RoomType == model.RoomPrivate {
		if err := s.requireMutual(ctx, actor.ID, room.Other(actor.ID)); err != nil {
			return nil, err
		}
	}

	lock := s.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	msg := &model.Message{RoomID: roomID, SenderID: actor.ID, Content: content}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateMessage(ctx, msg); err != nil {
			return err
		}
		return s.repo.TouchRoom(ctx, roomID)
	})
	if err != nil {
		return nil, err
	}
	msg.Sender = actor

	if err := s.hub.Broadcast(ctx, roomID, model.MessageEvent(msg, actor)); err != nil {
		// 消息已经落库，客户端可以通过历史接口补齐
		s.log.Warn("broadcast chat message failed", zap.String("room", roomID), zap.String("message", msg.ID), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordChatMessage()
	}
	return msg, nil
}

func (s *chatService) Typing(ctx context.Context, actor *accountmodel.User, roomID string, isTyping bool) error {
	if _, err := s.admit(ctx, actor, roomID); err != nil {
		return err
	}
	return s.hub.Broadcast(ctx, roomID, model.TypingEvent(roomID, actor, isTyping))
}

func (s *chatService) ListRooms(ctx context.Context, actor *accountmodel.User, offset, limit int) ([]model.ChatRoom, int64, error) {
	if err := tier.Check(actor.Tier, tier.CanChat); err != nil {
		return nil, 0, err
	}
	return s.repo.ListRooms(ctx, actor.ID, offset, limit)
}

func (s *chatService) ListMessages(ctx context.Context, actor *accountmodel.User, roomID string, offset, limit int) ([]model.Message, int64, error) {
	if _, err := s.admit(ctx, actor, roomID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListMessages(ctx, roomID, offset, limit)
}

func (s *chatService) ListUnread(ctx context.Context, actor *accountmodel.User, offset, limit int) ([]model.Message, int64, error) {
	if err := tier.Check(actor.Tier, tier.CanChat); err != nil {
		return nil, 0, err
	}
	return s.repo.ListUnread(ctx, actor.ID, offset, limit)
}

func (s *chatService) MarkRoomRead(ctx context.Context, actor *accountmodel.User, roomID string) (int64, error) {
	if _, err := s.admit(ctx, actor, roomID); err != nil {
		return 0, err
	}
	var marked int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		n, err := s.repo.MarkRoomRead(ctx, roomID, actor.ID)
		marked = n
		return err
	})
	return marked, err
}
