package handler

import (
	"tiered_social/internal/domain/account/service"
	"tiered_social/internal/pkg/middleware"
	"tiered_social/pkg/response"
	"tiered_social/pkg/tier"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户处理器
type UserHandler struct {
	service service.UserService
}

// NewUserHandler 创建处理器
func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// RegisterInput 注册输入
type RegisterInput struct {
	Username string `json:"username" binding:"required,min=3,max=150"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Email    string `json:"email" binding:"required,email"`
}

// LoginInput 登录输入
type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshInput struct {
	Refresh string `json:"refresh" binding:"required"`
}

type TierInput struct {
	Tier string `json:"tier" binding:"required"`
}

// Register 处理注册请求
func (h *UserHandler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err)
		return
	}

	user, err := h.service.Register(c.Request.Context(), input.Username, input.Email, input.Password)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, user)
}

// Login 处理登录请求
func (h *UserHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err)
		return
	}

	pair, err := h.service.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, pair)
}

// Refresh 刷新令牌
func (h *UserHandler) Refresh(c *gin.Context) {
	var input RefreshInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err)
		return
	}

	pair, err := h.service.Refresh(c.Request.Context(), input.Refresh)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, pair)
}

// Me 当前用户资料及其能力列表
func (h *UserHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	response.Success(c, gin.H{
		"user":         user,
		"tierLabel":    user.Tier.Label(),
		"capabilities": tier.Capabilities(user.Tier),
	})
}

// UpdateMe 更新当前用户资料
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var input service.ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err)
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), middleware.CurrentUser(c).ID, input)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

// GetUser 获取单个用户
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

// SetTier 管理员设置用户等级
func (h *UserHandler) SetTier(c *gin.Context) {
	var input TierInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err)
		return
	}
	t, err := tier.Parse(input.Tier)
	if err != nil {
		response.FromError(c, err)
		return
	}

	user, err := h.service.SetTier(c.Request.Context(), c.Param("id"), t)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}
