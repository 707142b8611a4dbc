package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"studydesk/backend/config"
	"studydesk/backend/internal/ddl"
	"studydesk/backend/internal/dto"
	"studydesk/backend/internal/model"
	"studydesk/backend/internal/repository"
)

// ── 任务模块业务错误 ──

var (
	ErrTaskNotFound        = errors.New("任务不存在")
	ErrInvalidDeadline     = errors.New("截止时间格式应为 YYYY-MM-DD HH:MM")
	ErrPayloadUserMismatch = errors.New("payload 的 userId 与当前用户不一致")
)

// TaskService 任务 / DDL 业务接口
type TaskService interface {
	Create(ctx context.Context, userID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error)
	GetByID(ctx context.Context, userID, id string) (*dto.TaskResponse, error)
	List(ctx context.Context, userID string) ([]dto.TaskResponse, error)
	Update(ctx context.Context, userID, id string, req *dto.UpdateTaskRequest) (*dto.TaskResponse, error)
	Delete(ctx context.Context, userID, id string) error
	// ReplaceDeadlines 用 payload 中的记录全量替换该用户的任务，返回写入条数
	ReplaceDeadlines(ctx context.Context, userID string, payload ddl.DeadlinePayload) (int, error)
}

type taskService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewTaskService 创建 TaskService 实例，截止时间按 llm.timezone 解释
func NewTaskService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) TaskService {
	return &taskService{
		repo:   repo,
		loc:    loadLocation(cfg.LLM.Timezone),
		logger: logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *taskService) Create(ctx context.Context, userID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	task := &model.Task{
		UserID:  userID,
		Name:    req.Name,
		Message: req.Message,
		Status:  model.TaskStatusNotUrgent,
		Source:  model.TaskSourceManual,
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if err := s.setDeadline(task, req.Deadline); err != nil {
		return nil, err
	}

	if err := s.repo.Task.Create(ctx, task); err != nil {
		s.logger.Error("创建任务失败", zap.Error(err))
		return nil, err
	}
	return toTaskResponse(task), nil
}

// ────────────────────── Query ──────────────────────

func (s *taskService) GetByID(ctx context.Context, userID, id string) (*dto.TaskResponse, error) {
	task, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return toTaskResponse(task), nil
}

func (s *taskService) List(ctx context.Context, userID string) ([]dto.TaskResponse, error) {
	tasks, err := s.repo.Task.List(ctx, userID)
	if err != nil {
		s.logger.Error("列出任务失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		result = append(result, *toTaskResponse(&tasks[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *taskService) Update(ctx context.Context, userID, id string, req *dto.UpdateTaskRequest) (*dto.TaskResponse, error) {
	task, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		task.Name = *req.Name
	}
	if req.ClearDeadline {
		task.Deadline, task.DueAt = nil, nil
	} else if req.Deadline != nil {
		if err := s.setDeadline(task, req.Deadline); err != nil {
			return nil, err
		}
	}
	if req.Message != nil {
		task.Message = *req.Message
	}
	if req.Status != nil {
		task.Status = *req.Status
	}

	if err := s.repo.Task.Update(ctx, task); err != nil {
		s.logger.Error("更新任务失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toTaskResponse(task), nil
}

// ────────────────────── Delete ──────────────────────

func (s *taskService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Task.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		s.logger.Error("删除任务失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ReplaceDeadlines ──────────────────────

func (s *taskService) ReplaceDeadlines(ctx context.Context, userID string, payload ddl.DeadlinePayload) (int, error) {
	if payload.UserID != userID {
		return 0, ErrPayloadUserMismatch
	}

	tasks := make([]model.Task, 0, len(payload.Deadlines))
	for _, rec := range payload.Deadlines {
		task := model.Task{
			UserID:  userID,
			Name:    rec.Name,
			Message: rec.Message,
			Status:  int(rec.Status),
			Source:  model.TaskSourcePortal,
		}
		// 大模型给出的截止时间格式不对时按"无法确定"处理，不影响其余记录
		if err := s.setDeadline(&task, rec.Deadline); err != nil {
			s.logger.Warn("截止时间格式错误，已置空",
				zap.String("name", rec.Name),
				zap.String("deadline", *rec.Deadline),
			)
		}
		tasks = append(tasks, task)
	}

	if err := s.repo.Task.ReplaceByUser(ctx, userID, tasks); err != nil {
		s.logger.Error("批量替换任务失败", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}

	s.logger.Info("任务已批量替换", zap.String("user_id", userID), zap.Int("count", len(tasks)))
	return len(tasks), nil
}

// ── 内部辅助方法 ──

func (s *taskService) get(ctx context.Context, userID, id string) (*model.Task, error) {
	task, err := s.repo.Task.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Error("查询任务失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return task, nil
}

// setDeadline 解析截止时间并同步 DueAt；deadline 为 nil 或空串表示无截止时间
// 解析失败时任务的截止时间被清空并返回 ErrInvalidDeadline
func (s *taskService) setDeadline(task *model.Task, deadline *string) error {
	if deadline == nil || *deadline == "" {
		task.Deadline, task.DueAt = nil, nil
		return nil
	}
	due, err := time.ParseInLocation(ddl.DeadlineLayout, *deadline, s.loc)
	if err != nil {
		task.Deadline, task.DueAt = nil, nil
		return ErrInvalidDeadline
	}
	text := *deadline
	task.Deadline, task.DueAt = &text, &due
	return nil
}

func toTaskResponse(t *model.Task) *dto.TaskResponse {
	return &dto.TaskResponse{
		ID:        t.TaskID,
		Name:      t.Name,
		Deadline:  t.Deadline,
		DueAt:     t.DueAt,
		Message:   t.Message,
		Status:    t.Status,
		Source:    t.Source,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
