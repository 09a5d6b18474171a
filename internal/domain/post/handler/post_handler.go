package handler

import (
	"strings"

	"tiered_social/internal/domain/post/model"
	"tiered_social/internal/domain/post/service"
	"tiered_social/internal/pkg/middleware"
	"tiered_social/pkg/response"
	"tiered_social/pkg/utils"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	service service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{service: service}
}

type ReportInput struct {
	Reason      string `json:"reason" binding:"required"`
	Description string `json:"description"`
}

type TimelineQuery struct {
	utils.Pagination
	Region string `form:"region"`
	Tags   string `form:"tags"` // 逗号分隔
}

func (h *PostHandler) Create(c *gin.Context) {
	var input service.CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err)
		return
	}

	post, err := h.service.Create(c.Request.Context(), middleware.CurrentUser(c), input)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, post)
}

func (h *PostHandler) Update(c *gin.Context) {
	var input service.UpdatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err)
		return
	}

	post, err := h.service.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), input)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, true)
}

func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.service.Get(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, post)
}

// Timeline GET /posts/timeline?region=&tags=a,b
func (h *PostHandler) Timeline(c *gin.Context) {
	var q TimelineQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err)
		return
	}
	offset, limit := q.GetPageOffset()

	filter := service.TimelineFilter{Region: q.Region}
	if q.Tags != "" {
		filter.Tags = strings.Split(q.Tags, ",")
	}

	posts, total, err := h.service.Timeline(c.Request.Context(), middleware.CurrentUser(c), filter, offset, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: posts, Total: total, Page: q.Page, Limit: q.Limit})
}

// ListByUser GET /users/:id/posts
func (h *PostHandler) ListByUser(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, err)
		return
	}
	offset, limit := p.GetPageOffset()

	posts, total, err := h.service.ListByUser(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), offset, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: posts, Total: total, Page: p.Page, Limit: p.Limit})
}

func (h *PostHandler) Save(c *gin.Context) {
	outcome, err := h.service.Save(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	if outcome == service.SaveCreated {
		response.Created(c, gin.H{"status": outcome})
		return
	}
	response.Success(c, gin.H{"status": outcome})
}

func (h *PostHandler) Unsave(c *gin.Context) {
	if err := h.service.Unsave(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "unsaved"})
}

func (h *PostHandler) ListSaved(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, err)
		return
	}
	offset, limit := p.GetPageOffset()

	items, total, err := h.service.ListSaved(c.Request.Context(), middleware.CurrentUser(c), offset, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: items, Total: total, Page: p.Page, Limit: p.Limit})
}

func (h *PostHandler) Report(c *gin.Context) {
	var input ReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err)
		return
	}

	report, err := h.service.Report(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"),
		model.ReportReason(input.Reason), input.Description)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, report)
}

func (h *PostHandler) View(c *gin.Context) {
	views, err := h.service.View(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"viewsCount": views})
}
