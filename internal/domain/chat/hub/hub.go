// Package hub 聊天房间的广播组。
//
// 每个 websocket 连接对应一个 Subscriber，加入房间组后接收该房间的帧。
// 广播对每个订阅者是非阻塞投递，缓冲区写满的慢消费者会被移出并关闭。
package hub

import (
	"context"
	"encoding/json"
	"sync"

	"tiered_social/internal/domain/chat/model"

	"go.uber.org/zap"
)

// Hub 房间广播
type Hub interface {
	Join(roomID string, sub *Subscriber)
	Leave(roomID string, sub *Subscriber)
	Broadcast(ctx context.Context, roomID string, ev model.Event) error
}

// Subscriber 一个连接的发送队列
type Subscriber struct {
	UserID string
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

func NewSubscriber(userID string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 64
	}
	return &Subscriber{UserID: userID, send: make(chan []byte, buffer)}
}

// Send 待写出的帧，被关闭表示连接应当断开
func (s *Subscriber) Send() <-chan []byte {
	return s.send
}

// Enqueue 非阻塞入队，队列满时返回 false
func (s *Subscriber) Enqueue(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// LocalHub 进程内房间组
type LocalHub struct {
	mu     sync.RWMutex
	groups map[string]map[*Subscriber]struct{}
	log    *zap.Logger
}

func NewLocalHub(log *zap.Logger) *LocalHub {
	return &LocalHub{groups: make(map[string]map[*Subscriber]struct{}), log: log.Named("chat-hub")}
}

func (h *LocalHub) Join(roomID string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[roomID]
	if !ok {
		group = make(map[*Subscriber]struct{})
		h.groups[roomID] = group
	}
	group[sub] = struct{}{}
}

func (h *LocalHub) Leave(roomID string, sub *Subscriber) {
	h.mu.Lock()
	h.remove(roomID, sub)
	h.mu.Unlock()
	sub.Close()
}

// remove 调用方持有写锁
func (h *LocalHub) remove(roomID string, sub *Subscriber) {
	group, ok := h.groups[roomID]
	if !ok {
		return
	}
	delete(group, sub)
	if len(group) == 0 {
		delete(h.groups, roomID)
	}
}

// Size 房间内订阅者数量
func (h *LocalHub) Size(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[roomID])
}

func (h *LocalHub) Broadcast(_ context.Context, roomID string, ev model.Event) error {
	frame, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	h.deliver(roomID, frame)
	return nil
}

func (h *LocalHub) deliver(roomID string, frame []byte) {
	var slow []*Subscriber

	h.mu.RLock()
	for sub := range h.groups[roomID] {
		if !sub.Enqueue(frame) {
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.log.Warn("dropping slow chat subscriber", zap.String("room", roomID), zap.String("user", sub.UserID))
		h.Leave(roomID, sub)
	}
}
