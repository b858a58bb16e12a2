package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Heman1223/Placement-Management-System-sub002/config"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/api/handler"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/api/router"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/repository"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/scheduler"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/service"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/database"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/jwt"
	applogger "github.com/Heman1223/Placement-Management-System-sub002/pkg/logger"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("PLACEMENT_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Env),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库并迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（失败时降级：登出不可用、限流关闭）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与限流不可用", zap.Error(err))
		rdb = nil
	}
	var blacklist service.TokenBlacklist
	if rdb != nil {
		blacklist = rdb
	}

	// 5. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, blacklist, logger)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := svc.Settings.Load(bootCtx); err != nil {
		logger.Fatal("加载平台设置失败", zap.Error(err))
	}
	if err := svc.Auth.SeedSuperAdmin(bootCtx); err != nil {
		logger.Fatal("初始化超级管理员失败", zap.Error(err))
	}
	bootCancel()

	h := handler.NewHandler(svc, handler.CookieOptions{
		Secure: cfg.Server.IsProduction(),
		MaxAge: int(cfg.Auth.RefreshTokenTTL.Seconds()),
	})

	// 6. 初始化路由
	engine, err := router.Setup(cfg, h, router.Deps{
		JWT:      jwtMgr,
		DB:       sqlDB,
		Redis:    rdb,
		Actors:   svc.Auth,
		Settings: svc.SettingsHolder,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("初始化路由失败", zap.Error(err))
	}

	// 7. 定时任务
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler, svc.Job, svc.Admin, logger)
		if err != nil {
			logger.Fatal("初始化定时任务失败", zap.Error(err))
		}
		sched.Start()
	}

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // 导出 Excel 需要更长的写超时
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	if sched != nil {
		sched.Stop(ctx)
	}

	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
