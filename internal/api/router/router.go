package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studydesk/backend/config"
	"studydesk/backend/internal/api/handler"
	"studydesk/backend/internal/api/middleware"
	"studydesk/backend/pkg/jwt"
	"studydesk/backend/pkg/redis"
)

const (
	jsonBodyLimit   = 1 << 20 // 普通接口 1MB
	uploadBodySlack = 1 << 20 // multipart 头部等额外开销
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时跳过 Token 黑名单与限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", h.Health.Health)

	jsonLimit := middleware.BodyLimit(jsonBodyLimit)
	uploadLimit := middleware.BodyLimit(cfg.Storage.MaxUploadSize + uploadBodySlack)
	chatDocLimit := middleware.BodyLimit(cfg.Chat.MaxDocumentSize + uploadBodySlack)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth", jsonLimit, middleware.RateLimit(rdb, 20, time.Minute))
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", jsonLimit, h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 课程
			courses := authorized.Group("/courses", jsonLimit)
			{
				courses.GET("", h.Course.List)
				courses.POST("", h.Course.Create)
				courses.GET("/:id", h.Course.Get)
				courses.PUT("/:id", h.Course.Update)
				courses.DELETE("/:id", h.Course.Delete)
			}

			// 任务 / DDL
			tasks := authorized.Group("/tasks", jsonLimit)
			{
				tasks.GET("", h.Task.List)
				tasks.POST("", h.Task.Create)
				tasks.PUT("/bulk", h.Task.BulkReplace)
				tasks.GET("/:id", h.Task.Get)
				tasks.PUT("/:id", h.Task.Update)
				tasks.DELETE("/:id", h.Task.Delete)
			}

			// 常用链接
			links := authorized.Group("/links", jsonLimit)
			{
				links.GET("", h.Link.List)
				links.POST("", h.Link.Create)
				links.PUT("/:id", h.Link.Update)
				links.DELETE("/:id", h.Link.Delete)
			}

			// 笔记与附件
			notes := authorized.Group("/notes")
			{
				notes.GET("", h.Note.List)
				notes.POST("", jsonLimit, h.Note.Create)
				notes.GET("/:id", h.Note.Get)
				notes.PUT("/:id", jsonLimit, h.Note.Update)
				notes.DELETE("/:id", h.Note.Delete)
				notes.POST("/:id/attachments", uploadLimit, h.Note.UploadAttachment)
				notes.GET("/:id/attachments/:aid", h.Note.DownloadAttachment)
				notes.DELETE("/:id/attachments/:aid", h.Note.DeleteAttachment)
			}

			// 课表
			authorized.POST("/timetable/import", uploadLimit, h.Timetable.ImportICS)
			authorized.GET("/timetable", h.Timetable.List)

			// 导出
			authorized.GET("/export/tasks.xlsx", h.Export.ExportTasksExcel)
			authorized.GET("/export/tasks.ics", h.Export.ExportTasksICS)

			// 教学网：整条流水线耗时较长，按用户限流
			portal := authorized.Group("/portal", jsonLimit, middleware.RateLimit(rdb, 6, time.Minute))
			{
				portal.POST("/sync", h.Sync.Sync)
				portal.POST("/courses", h.Sync.Courses)
				portal.POST("/materials", h.Sync.ImportMaterials)
			}

			// 智能助手
			chat := authorized.Group("/chat", middleware.RateLimit(rdb, 30, time.Minute))
			{
				chat.POST("", jsonLimit, h.Chat.Chat)
				chat.POST("/ask", jsonLimit, h.Chat.Ask)
				chat.POST("/document", chatDocLimit, h.Chat.UploadDocument)
				chat.GET("/:session", h.Chat.History)
				chat.DELETE("/:session", h.Chat.Reset)
			}
		}
	}

	return r
}
