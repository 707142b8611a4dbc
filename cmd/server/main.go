package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"studydesk/backend/config"
	"studydesk/backend/internal/api/handler"
	"studydesk/backend/internal/api/router"
	"studydesk/backend/internal/ddl"
	"studydesk/backend/internal/portal"
	"studydesk/backend/internal/repository"
	"studydesk/backend/internal/service"
	"studydesk/backend/pkg/database"
	"studydesk/backend/pkg/jwt"
	applogger "studydesk/backend/pkg/logger"
	"studydesk/backend/pkg/redis"
	"studydesk/backend/pkg/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("STUDYDESK_CONFIG"))
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
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库并执行迁移
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

	checks := map[string]handler.Check{"db": sqlDB.PingContext}

	// 4. 连接 Redis（失败时降级：无 Token 黑名单与限流，同步不加锁，助手会话存于进程内）
	deps := service.Deps{}
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，黑名单、限流与同步锁将不可用", zap.Error(err))
		rdb = nil
	} else {
		// 接口字段只在 rdb 非 nil 时赋值，避免带类型的 nil
		deps.Tokens = rdb
		deps.Locker = rdb
		deps.ChatStore = rdb
		checks["redis"] = rdb.Ping
	}

	// 5. 附件存储
	store, err := storage.NewStore(nil, cfg.Storage.Root, cfg.Storage.MaxUploadSize)
	if err != nil {
		logger.Warn("附件存储初始化失败，附件功能将不可用", zap.Error(err))
	} else {
		deps.Store = store
	}

	// 6. 教学网抓取、大模型整理与智能助手
	if cfg.LLM.APIKey == "" {
		logger.Warn("未配置 llm.api_key，教学网 DDL 同步与智能助手将不可用")
	} else {
		llm := ddl.NewChatClient(&cfg.LLM)
		deps.Chat = llm
		scraper := portal.NewScraper(&cfg.Portal, logger)
		normalizer := ddl.NewNormalizer(llm, &cfg.LLM, logger)
		deps.Portal = service.PortalDeps{
			Acquirer: portal.NewAutoAcquirer(&cfg.Portal, logger),
			Scraper:  scraper,
			Pipeline: ddl.NewPipeline(scraper, normalizer),
		}
	}

	// 7. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, deps, logger)
	h := handler.NewHandler(svc, &handler.CookieOptions{
		MaxAge: int(cfg.Auth.RefreshTokenTTL / time.Second),
		Secure: isHTTPS(cfg.Server.BaseURL),
	}, checks)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	// 同步接口需等待大模型，写超时放宽到 LLM 超时之上
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LLM.Timeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	sqlDB.Close()
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

func isHTTPS(baseURL string) bool {
	return strings.HasPrefix(strings.ToLower(baseURL), "https://")
}
