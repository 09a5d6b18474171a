package interaction

import (
	activityrepo "tiered_social/internal/domain/activity/repository"
	activity "tiered_social/internal/domain/activity/service"
	"tiered_social/internal/domain/interaction/handler"
	"tiered_social/internal/domain/interaction/repository"
	"tiered_social/internal/domain/interaction/service"
	postrepo "tiered_social/internal/domain/post/repository"
	"tiered_social/internal/pkg/middleware"
	"tiered_social/internal/pkg/registry"
	"tiered_social/pkg/tier"

	"github.com/gin-gonic/gin"
)

// InteractionModule 点赞与评论
type InteractionModule struct{}

func init() {
	registry.Register(&InteractionModule{})
}

func (m *InteractionModule) Name() string {
	return "interaction"
}

func (m *InteractionModule) Priority() int {
	return 15
}

func (m *InteractionModule) Init(ctx *registry.ModuleContext) error {
	recorder := activity.NewRecorder(activityrepo.NewActivityRepository(ctx.DB, ctx.Reader), ctx.Workers, ctx.Logger)
	svc := service.NewInteractionService(
		ctx.Tx,
		repository.NewReactionRepository(ctx.DB, ctx.Reader),
		repository.NewCommentRepository(ctx.DB),
		postrepo.NewPostRepository(ctx.DB),
		recorder,
		ctx.Metrics,
	)

	setupRoutes(ctx.Router, ctx.Auth, handler.NewInteractionHandler(svc))
	return nil
}

func setupRoutes(r *gin.Engine, auth gin.HandlerFunc, h *handler.InteractionHandler) {
	posts := r.Group("/posts")
	posts.Use(auth)
	{
		posts.POST("/:id/reactions/toggle", middleware.RequireCapability(tier.CanReact), h.TogglePostReaction)
		posts.GET("/:id/reactions", h.ListPostReactions)
		posts.GET("/:id/reactions/summary", h.ReactionSummary)
		posts.GET("/:id/comments", h.ListComments)
		posts.POST("/:id/comments", middleware.RequireCapability(tier.CanComment), h.CreateComment)
	}

	comments := r.Group("/comments")
	comments.Use(auth)
	{
		comments.PUT("/:id", h.EditComment)
		comments.DELETE("/:id", h.DeleteComment)
		comments.POST("/:id/react", middleware.RequireCapability(tier.CanReact), h.ToggleCommentReaction)
	}
}
