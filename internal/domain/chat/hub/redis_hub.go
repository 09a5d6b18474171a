package hub

import (
	"context"
	"encoding/json"

	"tiered_social/internal/domain/chat/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "tiered-social:chat"

type envelope struct {
	RoomID string          `json:"roomId"`
	Frame  json.RawMessage `json:"frame"`
}

// RedisHub 多实例部署时经 Redis pub/sub 转发广播，本地投递仍由 LocalHub 完成
type RedisHub struct {
	*LocalHub
	client  *redis.Client
	channel string
}

func NewRedisHub(client *redis.Client, local *LocalHub, channel string) *RedisHub {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisHub{LocalHub: local, client: client, channel: channel}
}

// Broadcast 只发布到 Redis，包括本实例在内的所有订阅实例各自投递
func (h *RedisHub) Broadcast(ctx context.Context, roomID string, ev model.Event) error {
	frame, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(envelope{RoomID: roomID, Frame: frame})
	if err != nil {
		return err
	}
	return h.client.Publish(ctx, h.channel, payload).Err()
}

// Run 订阅频道直到 ctx 结束
func (h *RedisHub) Run(ctx context.Context) {
	pubsub := h.client.Subscribe(ctx, h.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.log.Warn("bad chat relay payload", zap.Error(err))
				continue
			}
			h.deliver(env.RoomID, env.Frame)
		}
	}
}
