package handler

import (
	"encoding/json"
	"net/http"
	"time"

	accountmodel "tiered_social/internal/domain/account/model"
	"tiered_social/internal/domain/chat/hub"
	"tiered_social/internal/domain/chat/model"
	"tiered_social/internal/domain/chat/service"
	"tiered_social/internal/pkg/config"
	"tiered_social/internal/pkg/middleware"
	"tiered_social/pkg/apperr"
	"tiered_social/pkg/metrics"
	"tiered_social/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// inbound 客户端发来的帧
type inbound struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	IsTyping bool   `json:"is_typing"`
}

// WSHandler GET /chat/ws/:room_id
type WSHandler struct {
	service  service.ChatService
	hub      hub.Hub
	cfg      config.ChatConfig
	upgrader websocket.Upgrader
	metrics  *metrics.MetricsCollector
	log      *zap.Logger
}

func NewWSHandler(svc service.ChatService, h hub.Hub, cfg config.ChatConfig, allowOrigins []string,
	m *metrics.MetricsCollector, log *zap.Logger) *WSHandler {
	return &WSHandler{
		service: svc,
		hub:     h,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowOrigins),
		},
		metrics: m,
		log:     log.Named("chat-ws"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

func (h *WSHandler) pingPeriod() time.Duration {
	if h.cfg.PingPeriodSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(h.cfg.PingPeriodSec) * time.Second
}

func (h *WSHandler) Serve(c *gin.Context) {
	user := middleware.CurrentUser(c)
	roomID := c.Param("room_id")
	ctx := c.Request.Context()

	// 升级前完成鉴权，失败时仍是普通 HTTP 响应
	if err := h.service.Authorize(ctx, user, roomID); err != nil {
		response.FromError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	if h.metrics != nil {
		defer h.metrics.WSConnected()()
	}

	sub := hub.NewSubscriber(user.ID, h.cfg.SendBuffer)
	h.hub.Join(roomID, sub)
	defer h.hub.Leave(roomID, sub)

	if _, err := h.service.MarkRoomRead(ctx, user, roomID); err != nil {
		h.log.Warn("mark room read on connect failed", zap.String("room", roomID), zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(conn, sub)
	}()

	// 读循环结束后关闭订阅，由写循环发完已排队的帧 (包括错误帧) 再关闭连接
	h.readPump(c, conn, sub, user, roomID)
	h.hub.Leave(roomID, sub)
	<-done
}

func (h *WSHandler) readPump(c *gin.Context, conn *websocket.Conn, sub *hub.Subscriber, user *accountmodel.User, roomID string) {
	ctx := c.Request.Context()
	pongWait := h.pingPeriod() * 2
	if h.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(int64(h.cfg.MaxMessageSize))
	}
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in inbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Info("websocket closed", zap.String("room", roomID), zap.Error(err))
			}
			return
		}

		switch in.Type {
		case "", model.EventMessage:
			if _, err := h.service.SendMessage(ctx, user, roomID, in.Content); err != nil {
				h.reply(sub, err)
				if apperr.IsKind(err, apperr.KindForbidden) {
					return
				}
			}
		case model.EventTyping:
			if err := h.service.Typing(ctx, user, roomID, in.IsTyping); err != nil {
				if apperr.IsKind(err, apperr.KindForbidden) {
					h.reply(sub, err)
					return
				}
				h.log.Warn("typing broadcast failed", zap.Error(err))
			}
		default:
			h.reply(sub, apperr.InvalidInput("unknown frame type"))
		}
	}
}

// reply 只发给当前连接的错误帧
func (h *WSHandler) reply(sub *hub.Subscriber, err error) {
	msg := err.Error()
	if apperr.KindOf(err) == apperr.KindInternal {
		h.log.Error("chat send failed", zap.Error(err))
		msg = "internal error"
	}
	frame, _ := json.Marshal(model.ErrorEvent(msg))
	sub.Enqueue(frame)
}

func (h *WSHandler) writePump(conn *websocket.Conn, sub *hub.Subscriber) {
	ticker := time.NewTicker(h.pingPeriod())
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-sub.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
