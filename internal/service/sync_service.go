package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"studydesk/backend/config"
	"studydesk/backend/internal/ddl"
	"studydesk/backend/internal/dto"
	"studydesk/backend/internal/portal"
	apperrors "studydesk/backend/pkg/errors"
)

// ── 同步模块业务错误 ──

var (
	ErrSyncInProgress    = errors.New("同步正在进行中，请稍后再试")
	ErrSyncAuthFailed    = errors.New("教学网登录失败，请检查账号密码或 Cookie")
	ErrSyncNoCredentials = errors.New("请提供教学网 Cookie 或账号密码")
	ErrSyncUnavailable   = errors.New("教学网同步未启用")
	ErrNoMaterials       = errors.New("课程栏目中没有可下载的文件")
)

const (
	defaultMaterialSection = "课程讲义"
	defaultMaxFiles        = 10
)

// Locker 用户级互斥锁
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (func(), error)
}

// PortalScraper 教学网页面抓取
type PortalScraper interface {
	ListCurrentCourses(ctx context.Context, sess portal.Session) []portal.CourseRef
	ListCourseFiles(ctx context.Context, sess portal.Session, entryURL string, sections []string) ([]portal.FileLink, error)
	DownloadFile(ctx context.Context, sess portal.Session, link portal.FileLink) (*portal.File, error)
}

// DeadlineRunner 抓取 → 整理 → 组装 payload
type DeadlineRunner interface {
	Run(ctx context.Context, sess portal.Session, userID string) (ddl.DeadlinePayload, ddl.RunStats)
}

// PortalDeps 教学网同步依赖，任一为 nil 时同步功能不可用
type PortalDeps struct {
	Acquirer portal.Acquirer
	Scraper  PortalScraper
	Pipeline DeadlineRunner
}

func (d PortalDeps) ready() bool {
	return d.Acquirer != nil && d.Scraper != nil && d.Pipeline != nil
}

// SyncService 教学网同步业务接口
type SyncService interface {
	// SyncDeadlines 抓取并整理作业 DDL，全量替换用户任务
	// 单门课程或单个批次失败只会让结果变少，只有登录失败会返回错误
	SyncDeadlines(ctx context.Context, userID string, creds *dto.PortalCredentials) (*dto.SyncResponse, error)
	ListPortalCourses(ctx context.Context, creds *dto.PortalCredentials) ([]dto.PortalCourseResponse, error)
	// ImportCourseMaterials 下载课程栏目中的文件，存为一篇带附件的笔记
	ImportCourseMaterials(ctx context.Context, userID string, req *dto.ImportMaterialsRequest) (*dto.ImportMaterialsResponse, error)
}

type syncService struct {
	deps    PortalDeps
	tasks   TaskService
	notes   NoteService
	locker  Locker // 可为 nil
	lockTTL time.Duration
	logger  *zap.Logger
}

// NewSyncService 创建 SyncService 实例
func NewSyncService(
	cfg *config.Config,
	deps PortalDeps,
	tasks TaskService,
	notes NoteService,
	locker Locker,
	logger *zap.Logger,
) SyncService {
	ttl := cfg.Sync.LockTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &syncService{
		deps:    deps,
		tasks:   tasks,
		notes:   notes,
		locker:  locker,
		lockTTL: ttl,
		logger:  logger,
	}
}

// ════════════════════════════════════════════════════════════
// SyncDeadlines
// ════════════════════════════════════════════════════════════
//
// 流程：
//   1. 获取用户级锁（Redis 不可用时跳过）
//   2. 建立教学网会话
//   3. 抓取 → 大模型整理 → 组装 payload
//   4. 全量替换用户任务

func (s *syncService) SyncDeadlines(ctx context.Context, userID string, creds *dto.PortalCredentials) (*dto.SyncResponse, error) {
	if !s.deps.ready() {
		return nil, ErrSyncUnavailable
	}

	release, err := s.lock(ctx, "sync:"+userID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.acquire(ctx, creds)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	payload, stats := s.deps.Pipeline.Run(ctx, sess, userID)

	if _, err := s.tasks.ReplaceDeadlines(ctx, userID, payload); err != nil {
		return nil, fmt.Errorf("保存 DDL 失败: %w", err)
	}

	s.logger.Info("教学网同步完成",
		zap.String("user_id", userID),
		zap.Int("courses", stats.Courses),
		zap.Int("raw_items", stats.RawItems),
		zap.Int("deadlines", stats.Deadlines),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &dto.SyncResponse{
		Courses:   stats.Courses,
		RawItems:  stats.RawItems,
		Deadlines: stats.Deadlines,
		Payload:   payload,
	}, nil
}

// ════════════════════════════════════════════════════════════
// ListPortalCourses
// ════════════════════════════════════════════════════════════

func (s *syncService) ListPortalCourses(ctx context.Context, creds *dto.PortalCredentials) ([]dto.PortalCourseResponse, error) {
	if !s.deps.ready() {
		return nil, ErrSyncUnavailable
	}
	sess, err := s.acquire(ctx, creds)
	if err != nil {
		return nil, err
	}

	courses := s.deps.Scraper.ListCurrentCourses(ctx, sess)
	result := make([]dto.PortalCourseResponse, 0, len(courses))
	for _, c := range courses {
		result = append(result, dto.PortalCourseResponse{ID: c.ID, Name: c.Name, EntryURL: c.EntryURL})
	}
	return result, nil
}

// ════════════════════════════════════════════════════════════
// ImportCourseMaterials
// ════════════════════════════════════════════════════════════

func (s *syncService) ImportCourseMaterials(ctx context.Context, userID string, req *dto.ImportMaterialsRequest) (*dto.ImportMaterialsResponse, error) {
	if !s.deps.ready() {
		return nil, ErrSyncUnavailable
	}
	sess, err := s.acquire(ctx, &req.PortalCredentials)
	if err != nil {
		return nil, err
	}

	sections := req.Sections
	if len(sections) == 0 {
		sections = []string{defaultMaterialSection}
	}
	maxFiles := req.MaxFiles
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}

	links, err := s.deps.Scraper.ListCourseFiles(ctx, sess, req.EntryURL, sections)
	if err != nil {
		s.logger.Warn("列出课程文件失败", zap.String("course", req.Course), zap.Error(err))
		return nil, ErrNoMaterials
	}
	if len(links) > maxFiles {
		links = links[:maxFiles]
	}

	// 单个文件下载失败只记录
	var files []NoteFile
	var failed []string
	for _, link := range links {
		f, err := s.deps.Scraper.DownloadFile(ctx, sess, link)
		if err != nil {
			s.logger.Warn("下载课程文件失败", zap.String("file", link.Name), zap.Error(err))
			failed = append(failed, link.Name)
			continue
		}
		files = append(files, NoteFile{Filename: f.Name, ContentType: f.ContentType, Body: f.Body})
	}
	if len(files) == 0 {
		return nil, ErrNoMaterials
	}

	title := fmt.Sprintf("%s · %s", req.Course, strings.Join(sections, "/"))
	note, err := s.notes.CreateWithFiles(ctx, userID, title, materialsSummary(files), files)
	if err != nil {
		return nil, err
	}

	return &dto.ImportMaterialsResponse{
		NoteID:   note.ID,
		Imported: len(files),
		Failed:   failed,
	}, nil
}

// ── 内部辅助方法 ──

func (s *syncService) lock(ctx context.Context, name string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.AcquireLock(ctx, name, s.lockTTL)
	switch {
	case errors.Is(err, apperrors.ErrLockHeld):
		return nil, ErrSyncInProgress
	case err != nil:
		s.logger.Warn("获取同步锁失败，继续执行", zap.String("lock", name), zap.Error(err))
		return func() {}, nil
	}
	return release, nil
}

func (s *syncService) acquire(ctx context.Context, creds *dto.PortalCredentials) (portal.Session, error) {
	if creds == nil || creds.Empty() {
		return nil, ErrSyncNoCredentials
	}
	sess, err := s.deps.Acquirer.Acquire(ctx, portal.Credentials{
		Username: creds.Username,
		Password: creds.Password,
		Cookie:   creds.Cookie,
	})
	if err != nil {
		s.logger.Warn("教学网认证失败", zap.Error(err))
		return nil, ErrSyncAuthFailed
	}
	return sess, nil
}

func materialsSummary(files []NoteFile) string {
	var b strings.Builder
	b.WriteString("从教学网导入的课程文件：\n")
	for _, f := range files {
		b.WriteString("- ")
		b.WriteString(f.Filename)
		b.WriteString("\n")
	}
	return b.String()
}
