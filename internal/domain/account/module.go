package account

import (
	"tiered_social/internal/domain/account/handler"
	"tiered_social/internal/domain/account/repository"
	"tiered_social/internal/domain/account/service"
	activityrepo "tiered_social/internal/domain/activity/repository"
	activity "tiered_social/internal/domain/activity/service"
	"tiered_social/internal/pkg/middleware"
	"tiered_social/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// AccountModule 用户与关注关系模块
type AccountModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&AccountModule{})
}

func (m *AccountModule) Name() string {
	return "account"
}

func (m *AccountModule) Priority() int {
	// 其他模块依赖用户表，最先初始化
	return 1
}

func (m *AccountModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	userRepo := repository.NewUserRepository(ctx.DB)
	followRepo := repository.NewFollowRepository(ctx.DB)
	recorder := activity.NewRecorder(activityrepo.NewActivityRepository(ctx.DB, ctx.Reader), ctx.Workers, ctx.Logger)

	userService := service.NewUserService(userRepo, ctx.Tokens, ctx.Logger.Named("account"))
	followService := service.NewFollowService(ctx.Tx, userRepo, followRepo, recorder, ctx.Metrics)

	// 2. 路由注册
	setupRoutes(ctx.Router, ctx.Auth, handler.NewUserHandler(userService), handler.NewFollowHandler(followService))
	return nil
}

func setupRoutes(r *gin.Engine, auth gin.HandlerFunc, uh *handler.UserHandler, fh *handler.FollowHandler) {
	// 公开路由
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", uh.Register)
		authGroup.POST("/login", uh.Login)
		authGroup.POST("/refresh", uh.Refresh)
	}

	// 受保护的路由
	userGroup := r.Group("/users")
	userGroup.Use(auth)
	{
		userGroup.GET("/me", uh.Me)
		userGroup.PUT("/me", uh.UpdateMe)
		userGroup.GET("/:id", uh.GetUser)
		userGroup.GET("/:id/followers", fh.Followers)
		userGroup.GET("/:id/following", fh.Following)
		userGroup.POST("/:id/follow", fh.Follow)
		userGroup.POST("/:id/unfollow", fh.Unfollow)
		userGroup.POST("/:id/follow/toggle", fh.Toggle)
	}

	adminGroup := r.Group("/admin")
	adminGroup.Use(auth, middleware.AdminMiddleware())
	{
		adminGroup.PUT("/users/:id/tier", uh.SetTier)
	}
}
