package payment

import (
	accountrepo "tiered_social/internal/domain/account/repository"
	activityrepo "tiered_social/internal/domain/activity/repository"
	activity "tiered_social/internal/domain/activity/service"
	"tiered_social/internal/domain/payment/handler"
	"tiered_social/internal/domain/payment/repository"
	"tiered_social/internal/domain/payment/service"
	"tiered_social/internal/pkg/registry"
	"tiered_social/pkg/cache"

	"github.com/gin-gonic/gin"
)

// PaymentModule 付费升级模块
type PaymentModule struct{}

func init() {
	registry.Register(&PaymentModule{})
}

func (m *PaymentModule) Name() string {
	return "payment"
}

func (m *PaymentModule) Priority() int {
	// 依赖用户模块
	return 25
}

func (m *PaymentModule) Init(ctx *registry.ModuleContext) error {
	var plansCache cache.CacheService
	if ctx.Redis != nil {
		plansCache = cache.NewRedisCache(ctx.Redis, ctx.Config.App.Env)
	}
	recorder := activity.NewRecorder(activityrepo.NewActivityRepository(ctx.DB, ctx.Reader), ctx.Workers, ctx.Logger)

	svc := service.NewPaymentService(
		ctx.Tx,
		repository.NewPaymentRepository(ctx.DB),
		accountrepo.NewUserRepository(ctx.DB),
		plansCache,
		recorder,
		ctx.Metrics,
		ctx.Logger,
	)

	setupRoutes(ctx.Router, ctx.Auth, handler.NewPaymentHandler(svc))
	return nil
}

func setupRoutes(r *gin.Engine, auth gin.HandlerFunc, h *handler.PaymentHandler) {
	g := r.Group("/payments")
	g.Use(auth)
	{
		g.GET("", h.ListPayments)
		g.GET("/plans", h.ListPlans)
		g.POST("/process", h.Process)
		g.GET("/subscription", h.MySubscription)
		g.POST("/subscription/cancel", h.CancelSubscription)
	}
}
