package registry

import (
	"context"
	"sort"

	"tiered_social/internal/pkg/config"
	"tiered_social/internal/pkg/worker"
	"tiered_social/pkg/database"
	"tiered_social/pkg/metrics"
	"tiered_social/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ModuleContext 模块初始化所需的上下文
type ModuleContext struct {
	// Context 服务生命周期，关闭时取消，后台协程以此退出
	Context context.Context
	Config  *config.Config
	DB      *gorm.DB
	Reader  *sqlx.DB // 聚合查询
	Redis   *redis.Client
	Router  *gin.Engine
	Logger  *zap.Logger
	Tx      database.TxManager
	Tokens  *utils.TokenIssuer
	Workers *worker.WorkerPool
	Metrics *metrics.MetricsCollector
	// Auth 已装配好的认证中间件
	Auth gin.HandlerFunc
}

// Module 模块接口
type Module interface {
	// Name 返回模块名称
	Name() string

	// Init 初始化模块（依赖注入、路由注册等）
	Init(ctx *ModuleContext) error

	// Priority 返回初始化优先级（数字越小越先初始化）
	Priority() int
}

// moduleRegistry 全局模块注册表
var moduleRegistry = make(map[string]Module)

// Register 注册模块
func Register(module Module) {
	moduleRegistry[module.Name()] = module
}

// GetModules 获取所有已注册的模块
func GetModules() map[string]Module {
	return moduleRegistry
}

// sortedModules 按优先级排序，同优先级按名称
func sortedModules() []Module {
	modules := make([]Module, 0, len(moduleRegistry))
	for _, m := range moduleRegistry {
		modules = append(modules, m)
	}
	sort.Slice(modules, func(i, j int) bool {
		if modules[i].Priority() != modules[j].Priority() {
			return modules[i].Priority() < modules[j].Priority()
		}
		return modules[i].Name() < modules[j].Name()
	})
	return modules
}

// InitModules 按优先级初始化所有模块
func InitModules(ctx *ModuleContext) error {
	for _, module := range sortedModules() {
		if err := module.Init(ctx); err != nil {
			return err
		}
		if ctx.Logger != nil {
			ctx.Logger.Info("module initialized", zap.String("module", module.Name()))
		}
	}
	return nil
}
