package handler

import (
	"context"

	"tiered_social/internal/domain/account/model"
	"tiered_social/internal/domain/account/service"
	"tiered_social/internal/pkg/middleware"
	"tiered_social/pkg/response"
	"tiered_social/pkg/utils"

	"github.com/gin-gonic/gin"
)

// FollowHandler 关注处理器
type FollowHandler struct {
	service service.FollowService
}

func NewFollowHandler(service service.FollowService) *FollowHandler {
	return &FollowHandler{service: service}
}

type followFn func(*gin.Context) (model.FollowOutcome, error)

func (h *FollowHandler) respond(c *gin.Context, fn followFn) {
	outcome, err := fn(c)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"status": outcome})
}

// Follow POST /users/:id/follow
func (h *FollowHandler) Follow(c *gin.Context) {
	h.respond(c, func(c *gin.Context) (model.FollowOutcome, error) {
		return h.service.Follow(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	})
}

// Unfollow POST /users/:id/unfollow
func (h *FollowHandler) Unfollow(c *gin.Context) {
	h.respond(c, func(c *gin.Context) (model.FollowOutcome, error) {
		return h.service.Unfollow(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	})
}

// Toggle POST /users/:id/follow/toggle
func (h *FollowHandler) Toggle(c *gin.Context) {
	h.respond(c, func(c *gin.Context) (model.FollowOutcome, error) {
		return h.service.ToggleFollow(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	})
}

// Followers GET /users/:id/followers
func (h *FollowHandler) Followers(c *gin.Context) {
	h.list(c, h.service.ListFollowers)
}

// Following GET /users/:id/following
func (h *FollowHandler) Following(c *gin.Context) {
	h.list(c, h.service.ListFollowing)
}

func (h *FollowHandler) list(c *gin.Context, fn func(ctx context.Context, userID string, offset, limit int) ([]model.User, int64, error)) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, err)
		return
	}
	offset, limit := p.GetPageOffset()

	users, total, err := fn(c.Request.Context(), c.Param("id"), offset, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: users, Total: total, Page: p.Page, Limit: p.Limit})
}
