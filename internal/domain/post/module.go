package post

import (
	accountrepo "tiered_social/internal/domain/account/repository"
	activityrepo "tiered_social/internal/domain/activity/repository"
	activity "tiered_social/internal/domain/activity/service"
	"tiered_social/internal/domain/post/handler"
	"tiered_social/internal/domain/post/repository"
	"tiered_social/internal/domain/post/service"
	"tiered_social/internal/pkg/middleware"
	"tiered_social/internal/pkg/registry"
	"tiered_social/pkg/tier"

	"github.com/gin-gonic/gin"
)

// PostModule 帖子模块
type PostModule struct{}

func init() {
	registry.Register(&PostModule{})
}

func (m *PostModule) Name() string {
	return "post"
}

func (m *PostModule) Priority() int {
	return 10
}

func (m *PostModule) Init(ctx *registry.ModuleContext) error {
	// 帖子模块依赖用户计数器
	repo := repository.NewPostRepository(ctx.DB)
	users := accountrepo.NewUserRepository(ctx.DB)
	recorder := activity.NewRecorder(activityrepo.NewActivityRepository(ctx.DB, ctx.Reader), ctx.Workers, ctx.Logger)

	h := handler.NewPostHandler(service.NewPostService(ctx.Tx, repo, users, recorder))
	setupRoutes(ctx.Router, ctx.Auth, h)
	return nil
}

func setupRoutes(r *gin.Engine, auth gin.HandlerFunc, h *handler.PostHandler) {
	g := r.Group("/posts")
	g.Use(auth)
	{
		g.POST("", middleware.RequireCapability(tier.CanPost), h.Create)
		g.GET("/timeline", h.Timeline)
		g.GET("/saved", h.ListSaved)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.DELETE("/:id", h.Delete)
		g.POST("/:id/save", h.Save)
		g.POST("/:id/unsave", h.Unsave)
		g.POST("/:id/report", h.Report)
		g.POST("/:id/view", h.View)
	}

	users := r.Group("/users")
	users.Use(auth)
	{
		users.GET("/:id/posts", h.ListByUser)
	}
}
