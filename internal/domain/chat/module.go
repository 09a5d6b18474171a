package chat

import (
	accountrepo "tiered_social/internal/domain/account/repository"
	"tiered_social/internal/domain/chat/handler"
	"tiered_social/internal/domain/chat/hub"
	"tiered_social/internal/domain/chat/repository"
	"tiered_social/internal/domain/chat/service"
	"tiered_social/internal/pkg/middleware"
	"tiered_social/internal/pkg/registry"
	"tiered_social/pkg/tier"

	"github.com/gin-gonic/gin"
)

// ChatModule 私聊房间、消息与 websocket
type ChatModule struct{}

func init() {
	registry.Register(&ChatModule{})
}

func (m *ChatModule) Name() string {
	return "chat"
}

func (m *ChatModule) Priority() int {
	return 20
}

func (m *ChatModule) Init(ctx *registry.ModuleContext) error {
	cfg := ctx.Config.Chat

	local := hub.NewLocalHub(ctx.Logger)
	var h hub.Hub = local
	if cfg.RedisFanout && ctx.Redis != nil {
		relay := hub.NewRedisHub(ctx.Redis, local, "")
		go relay.Run(ctx.Context)
		h = relay
	}

	svc := service.NewChatService(
		ctx.Tx,
		repository.NewChatRepository(ctx.DB),
		accountrepo.NewUserRepository(ctx.DB),
		accountrepo.NewFollowRepository(ctx.DB),
		h,
		ctx.Metrics,
		ctx.Logger,
	)

	ws := handler.NewWSHandler(svc, h, cfg, ctx.Config.CORS.AllowOrigins, ctx.Metrics, ctx.Logger)
	setupRoutes(ctx.Router, ctx.Auth, handler.NewChatHandler(svc), ws)
	return nil
}

func setupRoutes(r *gin.Engine, auth gin.HandlerFunc, h *handler.ChatHandler, ws *handler.WSHandler) {
	g := r.Group("/chat")
	g.Use(auth, middleware.RequireCapability(tier.CanChat))
	{
		g.GET("/rooms", h.ListRooms)
		g.POST("/rooms/private", h.CreatePrivateRoom)
		g.GET("/rooms/:id/messages", h.ListMessages)
		g.POST("/rooms/:id/messages", h.SendMessage)
		g.POST("/rooms/:id/read", h.MarkRead)
		g.GET("/unread", h.ListUnread)
		g.GET("/ws/:room_id", ws.Serve)
	}
}
