package handler

import (
	"tiered_social/internal/domain/interaction/model"
	"tiered_social/internal/domain/interaction/service"
	"tiered_social/internal/pkg/middleware"
	"tiered_social/pkg/response"
	"tiered_social/pkg/utils"

	"github.com/gin-gonic/gin"
)

type InteractionHandler struct {
	service service.InteractionService
}

func NewInteractionHandler(service service.InteractionService) *InteractionHandler {
	return &InteractionHandler{service: service}
}

type ReactInput struct {
	ReactionType string `json:"reactionType" binding:"required"`
}

type EditCommentInput struct {
	Content string `json:"content" binding:"required"`
}

// TogglePostReaction POST /posts/:id/reactions/toggle
func (h *InteractionHandler) TogglePostReaction(c *gin.Context) {
	var input ReactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err)
		return
	}

	result, err := h.service.TogglePostReaction(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"),
		model.ReactionType(input.ReactionType))
	if err != nil {
		response.FromError(c, err)
		return
	}
	writeToggle(c, result)
}

// ToggleCommentReaction POST /comments/:id/react
func (h *InteractionHandler) ToggleCommentReaction(c *gin.Context) {
	var input ReactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err)
		return
	}

	result, err := h.service.ToggleCommentReaction(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"),
		model.ReactionType(input.ReactionType))
	if err != nil {
		response.FromError(c, err)
		return
	}
	writeToggle(c, result)
}

func writeToggle(c *gin.Context, result *service.ToggleResult) {
	if result.Outcome == model.ToggleCreated {
		response.Created(c, result)
		return
	}
	response.Success(c, result)
}

func (h *InteractionHandler) ListPostReactions(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, err)
		return
	}
	offset, limit := p.GetPageOffset()

	items, total, err := h.service.ListPostReactions(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), offset, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: items, Total: total, Page: p.Page, Limit: p.Limit})
}

func (h *InteractionHandler) ReactionSummary(c *gin.Context) {
	items, err := h.service.ReactionSummary(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, items)
}

func (h *InteractionHandler) CreateComment(c *gin.Context) {
	var input service.CreateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err)
		return
	}

	comment, err := h.service.CreateComment(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), input)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, comment)
}

func (h *InteractionHandler) ListComments(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, err)
		return
	}
	offset, limit := p.GetPageOffset()

	items, total, err := h.service.ListComments(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), offset, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: items, Total: total, Page: p.Page, Limit: p.Limit})
}

func (h *InteractionHandler) EditComment(c *gin.Context) {
	var input EditCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err)
		return
	}

	comment, err := h.service.EditComment(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), input.Content)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, comment)
}

func (h *InteractionHandler) DeleteComment(c *gin.Context) {
	if err := h.service.DeleteComment(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, true)
}
