package response

import (
	"net/http"
	"tiered_social/pkg/apperr"
	"tiered_social/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`    // 业务码
	Message string      `json:"message"` // 提示信息
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data"` // 数据
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功 (201)
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, errCode int, msg string) {
	c.JSON(httpCode, Response{
		Code:    errCode,
		Message: msg,
		Data:    nil,
	})
}

// Fail 业务失败响应 (HTTP 200, 业务码非 0)
func Fail(c *gin.Context, errCode int, msg string) {
	c.JSON(http.StatusOK, Response{
		Code:    errCode,
		Message: msg,
		Data:    nil,
	})
}

// StatusOf 错误类别对应的 HTTP 状态码和业务码
func StatusOf(kind apperr.Kind) (int, int) {
	switch kind {
	case apperr.KindForbidden:
		return http.StatusForbidden, ErrNoPermission
	case apperr.KindNotFound:
		return http.StatusNotFound, ErrNotFound
	case apperr.KindConflict:
		return http.StatusConflict, ErrConflict
	case apperr.KindInvalidInput:
		return http.StatusBadRequest, ErrInvalidParam
	case apperr.KindAlreadyAtTarget:
		return http.StatusBadRequest, ErrAlreadyAtTarget
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized, ErrAuthFailed
	}
	return http.StatusInternalServerError, ErrServerInternal
}

// FromError 根据错误类别输出响应，内部错误不向客户端暴露细节
func FromError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status, code := StatusOf(kind)

	msg := err.Error()
	if kind == apperr.KindInternal {
		logger.Log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		msg = "internal server error"
	}

	c.JSON(status, Response{
		Code:    code,
		Message: msg,
		Kind:    string(kind),
		Data:    nil,
	})
}

// BadRequest 参数绑定失败
func BadRequest(c *gin.Context, err error) {
	Error(c, http.StatusBadRequest, ErrInvalidParam, err.Error())
}
