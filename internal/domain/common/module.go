package common

import (
	"tiered_social/internal/domain/common/handler"
	"tiered_social/internal/pkg/registry"
	"tiered_social/internal/pkg/uploader"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CommonModule 上传与健康检查
type CommonModule struct{}

func init() {
	registry.Register(&CommonModule{})
}

func (m *CommonModule) Name() string {
	return "common"
}

func (m *CommonModule) Priority() int {
	return 100 // 最后初始化
}

func (m *CommonModule) Init(ctx *registry.ModuleContext) error {
	var up uploader.Uploader
	if ctx.Config.OSS.Endpoint != "" {
		oss, err := uploader.NewAliyunOSSUploader(ctx.Config.OSS)
		if err != nil {
			// 上传不可用不影响其他接口
			ctx.Logger.Warn("oss uploader disabled", zap.Error(err))
		} else {
			up = oss
		}
	}

	setupRoutes(ctx.Router, ctx.Auth, handler.NewCommonHandler(up, ctx.DB, ctx.Redis, ctx.Logger.Named("common")))
	return nil
}

func setupRoutes(r *gin.Engine, auth gin.HandlerFunc, h *handler.CommonHandler) {
	r.GET("/health", h.Health)
	r.POST("/upload", auth, h.Upload)
}
