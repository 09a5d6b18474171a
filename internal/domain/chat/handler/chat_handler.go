package handler

import (
	"tiered_social/internal/domain/chat/service"
	"tiered_social/internal/pkg/middleware"
	"tiered_social/pkg/response"
	"tiered_social/pkg/utils"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	service service.ChatService
}

func NewChatHandler(service service.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

type CreatePrivateRoomInput struct {
	UserID string `json:"userId" binding:"required"`
}

type SendMessageInput struct {
	Content string `json:"content" binding:"required"`
}

// CreatePrivateRoom POST /chat/rooms/private，已存在时返回 200
func (h *ChatHandler) CreatePrivateRoom(c *gin.Context) {
	var input CreatePrivateRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err)
		return
	}

	room, created, err := h.service.CreatePrivateRoom(c.Request.Context(), middleware.CurrentUser(c), input.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if created {
		response.Created(c, room)
		return
	}
	response.Success(c, room)
}

func (h *ChatHandler) ListRooms(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, err)
		return
	}
	offset, limit := p.GetPageOffset()

	rooms, total, err := h.service.ListRooms(c.Request.Context(), middleware.CurrentUser(c), offset, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: rooms, Total: total, Page: p.Page, Limit: p.Limit})
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, err)
		return
	}
	offset, limit := p.GetPageOffset()

	msgs, total, err := h.service.ListMessages(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), offset, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: msgs, Total: total, Page: p.Page, Limit: p.Limit})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var input SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err)
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), input.Content)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, msg)
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	n, err := h.service.MarkRoomRead(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"marked": n})
}

func (h *ChatHandler) ListUnread(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, err)
		return
	}
	offset, limit := p.GetPageOffset()

	msgs, total, err := h.service.ListUnread(c.Request.Context(), middleware.CurrentUser(c), offset, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: msgs, Total: total, Page: p.Page, Limit: p.Limit})
}
