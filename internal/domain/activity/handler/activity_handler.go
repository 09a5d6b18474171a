package handler

import (
	"tiered_social/internal/domain/activity/service"
	"tiered_social/internal/pkg/middleware"
	"tiered_social/pkg/response"
	"tiered_social/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ActivityHandler 活动日志处理器
type ActivityHandler struct {
	service service.ActivityService
}

func NewActivityHandler(service service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// ListMine GET /users/me/activities?type=&page=&limit=
func (h *ActivityHandler) ListMine(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, err)
		return
	}
	offset, limit := p.GetPageOffset()

	user := middleware.CurrentUser(c)
	items, total, err := h.service.List(c.Request.Context(), user.ID, c.Query("type"), offset, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: items, Total: total, Page: p.Page, Limit: p.Limit})
}

// Summary GET /users/me/activities/summary
func (h *ActivityHandler) Summary(c *gin.Context) {
	user := middleware.CurrentUser(c)
	items, err := h.service.Summary(c.Request.Context(), user.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, items)
}
