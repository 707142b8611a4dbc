package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"studydesk/backend/internal/dto"
	"studydesk/backend/internal/model"
	"studydesk/backend/internal/repository"
)

// ── 课表模块业务错误 ──

var (
	ErrICSParseFailed = errors.New("ICS 文件解析失败")
	ErrICSEmpty       = errors.New("ICS 文件中未发现学期内的课程")
	ErrICSFetchFailed = errors.New("无法获取 ICS 链接内容")
	ErrICSNoSource    = errors.New("请上传 ICS 文件或提供订阅链接")
)

// TimetableService 课表业务接口
type TimetableService interface {
	// ImportICS 解析 ICS 并全量替换用户课表
	ImportICS(ctx context.Context, userID string, r io.Reader, termStart time.Time, totalWeeks int) (*dto.ImportICSResponse, error)
	// ImportICSFromURL 从订阅链接导入
	ImportICSFromURL(ctx context.Context, userID, url string, termStart time.Time, totalWeeks int) (*dto.ImportICSResponse, error)
	List(ctx context.Context, userID string) ([]dto.ScheduleEntryResponse, error)
}

type timetableService struct {
	repo   *repository.Repository
	fetch  func(ctx context.Context, url string) (io.ReadCloser, error)
	logger *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(repo *repository.Repository, logger *zap.Logger) TimetableService {
	return &timetableService{repo: repo, fetch: FetchICS, logger: logger}
}

// ════════════════════════════════════════════════════════════
// ImportICS 导入课表
// ════════════════════════════════════════════════════════════

func (s *timetableService) ImportICS(ctx context.Context, userID string, r io.Reader, termStart time.Time, totalWeeks int) (*dto.ImportICSResponse, error) {
	courses, err := ParseCourseICS(r, userID, termStart, totalWeeks)
	if err != nil {
		s.logger.Warn("ICS 解析失败", zap.String("user_id", userID), zap.Error(err))
		return nil, ErrICSParseFailed
	}
	if len(courses) == 0 {
		return nil, ErrICSEmpty
	}

	if err := s.repo.CourseSchedule.ReplaceByUser(ctx, userID, courses); err != nil {
		s.logger.Error("课表导入事务失败", zap.Error(err))
		return nil, fmt.Errorf("课表导入失败: %w", err)
	}

	events := make([]dto.ImportedCourseEvent, 0, len(courses))
	for _, c := range courses {
		events = append(events, dto.ImportedCourseEvent{
			Name:      c.CourseName,
			Teacher:   c.Teacher,
			Location:  c.Location,
			DayOfWeek: c.DayOfWeek,
			StartTime: c.StartTime,
			EndTime:   c.EndTime,
			Weeks:     []int(c.Weeks),
		})
	}

	s.logger.Info("课表导入完成", zap.String("user_id", userID), zap.Int("count", len(courses)))
	return &dto.ImportICSResponse{ImportedCount: len(courses), Events: events}, nil
}

func (s *timetableService) ImportICSFromURL(ctx context.Context, userID, url string, termStart time.Time, totalWeeks int) (*dto.ImportICSResponse, error) {
	if url == "" {
		return nil, ErrICSNoSource
	}
	body, err := s.fetch(ctx, url)
	if err != nil {
		s.logger.Warn("获取 ICS 失败", zap.String("url", url), zap.Error(err))
		return nil, ErrICSFetchFailed
	}
	defer body.Close()
	return s.ImportICS(ctx, userID, body, termStart, totalWeeks)
}

// ════════════════════════════════════════════════════════════
// List 课表列表
// ════════════════════════════════════════════════════════════

func (s *timetableService) List(ctx context.Context, userID string) ([]dto.ScheduleEntryResponse, error) {
	courses, err := s.repo.CourseSchedule.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询课表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.ScheduleEntryResponse, 0, len(courses))
	for i := range courses {
		result = append(result, toScheduleEntry(&courses[i]))
	}
	return result, nil
}

func toScheduleEntry(c *model.CourseSchedule) dto.ScheduleEntryResponse {
	weeks := []int(c.Weeks)
	if weeks == nil {
		weeks = []int{}
	}
	return dto.ScheduleEntryResponse{
		ID:        c.CourseScheduleID,
		Name:      c.CourseName,
		Teacher:   c.Teacher,
		Location:  c.Location,
		DayOfWeek: c.DayOfWeek,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
		WeekType:  c.WeekType,
		Weeks:     weeks,
		Source:    c.Source,
	}
}
