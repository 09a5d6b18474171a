package middleware

import (
	"context"
	"net/http"
	"strings"

	"tiered_social/internal/domain/account/model"
	"tiered_social/pkg/apperr"
	"tiered_social/pkg/response"
	"tiered_social/pkg/tier"
	"tiered_social/pkg/utils"

	"github.com/gin-gonic/gin"
)

const currentUserKey = "currentUser"

// UserLoader 按 ID 加载用户，每个请求读取最新等级
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// bearerToken 优先取 Authorization 头，其次 ?token= (websocket 无法设置请求头)
func bearerToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		// 检查格式 "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

// AuthMiddleware JWT认证中间件，校验 access token 并把当前用户放入上下文
func AuthMiddleware(tokens *utils.TokenIssuer, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Authorization header is required")
			c.Abort()
			return
		}

		claims, err := tokens.Parse(tokenString, utils.TokenAccess)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				response.Error(c, http.StatusUnauthorized, response.ErrUserNotFound, "User no longer exists")
			} else {
				response.FromError(c, err)
			}
			c.Abort()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser 取出当前用户，只能在 AuthMiddleware 之后调用
func CurrentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*model.User); ok {
			return u
		}
	}
	return nil
}

// SetCurrentUser 测试和内部调用使用
func SetCurrentUser(c *gin.Context, u *model.User) {
	c.Set(currentUserKey, u)
}

// RequireCapability 等级不足时返回 403
func RequireCapability(capability tier.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Error(c, http.StatusUnauthorized, response.ErrNoPermission, "Unauthorized")
			c.Abort()
			return
		}
		if err := tier.Check(user.Tier, capability); err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminMiddleware 管理员权限中间件
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Error(c, http.StatusUnauthorized, response.ErrNoPermission, "Unauthorized")
			c.Abort()
			return
		}

		if !user.IsStaff {
			response.Error(c, http.StatusForbidden, response.ErrNoPermission, "Admin permission required")
			c.Abort()
			return
		}

		c.Next()
	}
}
