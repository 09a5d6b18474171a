package activity

import (
	"tiered_social/internal/domain/activity/handler"
	"tiered_social/internal/domain/activity/repository"
	"tiered_social/internal/domain/activity/service"
	"tiered_social/internal/pkg/registry"
)

// ActivityModule 用户行为日志查询
type ActivityModule struct{}

func init() {
	registry.Register(&ActivityModule{})
}

func (m *ActivityModule) Name() string {
	return "activity"
}

func (m *ActivityModule) Priority() int {
	return 5
}

func (m *ActivityModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewActivityRepository(ctx.DB, ctx.Reader)
	h := handler.NewActivityHandler(service.NewActivityService(repo))

	g := ctx.Router.Group("/users/me/activities")
	g.Use(ctx.Auth)
	{
		g.GET("", h.ListMine)
		g.GET("/summary", h.Summary)
	}
	return nil
}
