package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	accountrepo "tiered_social/internal/domain/account/repository"
	"tiered_social/internal/pkg/config"
	"tiered_social/internal/pkg/middleware"
	"tiered_social/internal/pkg/registry"
	"tiered_social/internal/pkg/worker"
	"tiered_social/pkg/database"
	"tiered_social/pkg/logger"
	"tiered_social/pkg/metrics"
	"tiered_social/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	// 导入即注册模块
	_ "tiered_social/internal/domain/account"
	_ "tiered_social/internal/domain/activity"
	_ "tiered_social/internal/domain/chat"
	_ "tiered_social/internal/domain/common"
	_ "tiered_social/internal/domain/interaction"
	_ "tiered_social/internal/domain/payment"
	_ "tiered_social/internal/domain/post"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Log.Error("server exited", zap.Error(err))
		logger.Sync()
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 配置与日志
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	config.GlobalConfig = cfg

	log, err := logger.InitLogger(cfg.App.Env, cfg.App.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// 2. 存储
	db, err := database.InitDatabase(cfg.Database, cfg.App.Debug, log)
	if err != nil {
		return err
	}
	reader, err := database.NewReader(db)
	if err != nil {
		return err
	}
	rdb, err := database.InitRedis(cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// 3. 后台任务与指标
	collector := metrics.GetGlobalCollector()
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, db, cfg.Database.DBName); err != nil {
		log.Warn("register pool metrics failed", zap.Error(err))
	}
	workers := worker.NewWorkerPool(log, cfg.Activity.Workers, cfg.Activity.Buffer, cfg.Activity.MaxRetry)
	workers.OnResult = collector.RecordActivity
	workers.Start()
	defer workers.Stop()

	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)
	go sweepLimiter(ctx, limiter)

	// 4. 路由与中间件
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(
		middleware.TraceMiddleware(),
		middleware.RecoveryMiddleware(log),
		middleware.LoggerMiddleware(log),
		middleware.MetricsMiddleware(collector),
		middleware.SecurityHeadersMiddleware(),
		cors.New(corsConfig(cfg.CORS)),
		middleware.RateLimitMiddleware(limiter),
	)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	tokens := utils.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.AccessExpire, cfg.JWT.RefreshExpire)
	moduleCtx := &registry.ModuleContext{
		Context: ctx,
		Config:  &cfg,
		DB:      db,
		Reader:  reader,
		Redis:   rdb,
		Router:  r,
		Logger:  log,
		Tx:      database.NewTxManager(db),
		Tokens:  tokens,
		Workers: workers,
		Metrics: collector,
		Auth:    middleware.AuthMiddleware(tokens, accountrepo.NewUserRepository(db)),
	}
	if err := registry.InitModules(moduleCtx); err != nil {
		return err
	}

	// 5. 启动与优雅退出
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
	return nil
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", "X-Trace-ID")
	c.ExposeHeaders = []string{"X-Trace-ID"}
	if len(cfg.AllowOrigins) == 0 || (len(cfg.AllowOrigins) == 1 && cfg.AllowOrigins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowOrigins
		c.AllowCredentials = true
	}
	return c
}

// sweepLimiter 定期清理长时间没有请求的 IP
func sweepLimiter(ctx context.Context, limiter *middleware.IPRateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup(10 * time.Minute)
		}
	}
}
