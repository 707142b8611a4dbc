package service

import (
	"time"

	"go.uber.org/zap"

	"studydesk/backend/config"
	"studydesk/backend/internal/ddl"
	"studydesk/backend/internal/repository"
	"studydesk/backend/pkg/jwt"
	"studydesk/backend/pkg/storage"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth      AuthService
	Course    CourseService
	Task      TaskService
	Link      LinkService
	Note      NoteService
	Timetable TimetableService
	Export    ExportService
	Sync      SyncService
	Chat      ChatService
}

// Deps 可选的外部依赖；Redis 不可用时 Tokens、Locker 与 ChatStore 为 nil
type Deps struct {
	Tokens    TokenStore
	Locker    Locker
	Store     *storage.Store
	Portal    PortalDeps
	Chat      ddl.ChatCompleter // 未配置大模型时为 nil
	ChatStore ChatStore
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	deps Deps,
	logger *zap.Logger,
) *Service {
	task := NewTaskService(cfg, repo, logger)
	note := NewNoteService(repo, deps.Store, logger)
	return &Service{
		Auth:      NewAuthService(cfg, repo, jwtMgr, deps.Tokens, logger),
		Course:    NewCourseService(repo, logger),
		Task:      task,
		Link:      NewLinkService(repo, logger),
		Note:      note,
		Timetable: NewTimetableService(repo, logger),
		Export:    NewExportService(repo, logger),
		Sync:      NewSyncService(cfg, deps.Portal, task, note, deps.Locker, logger),
		Chat:      NewChatService(cfg, deps.Chat, deps.ChatStore, logger),
	}
}

// loadLocation 加载时区，失败时退回 UTC+8
func loadLocation(name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone("UTC+8", 8*60*60)
}
