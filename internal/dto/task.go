package dto

import "time"

// ── 任务模块 DTO ──

// CreateTaskRequest 创建任务请求
// Deadline 格式为 "YYYY-MM-DD HH:MM"（北京时间），为空表示没有截止时间
type CreateTaskRequest struct {
	Name     string  `json:"name"     binding:"required,max=255"`
	Deadline *string `json:"deadline" binding:"omitempty,datetime=2006-01-02 15:04"`
	Message  string  `json:"message"  binding:"omitempty,max=5000"`
	Status   *int    `json:"status"   binding:"omitempty,oneof=0 1"`
}

// UpdateTaskRequest 更新任务请求
// ClearDeadline 为 true 时清除截止时间
type UpdateTaskRequest struct {
	Name          *string `json:"name"           binding:"omitempty,min=1,max=255"`
	Deadline      *string `json:"deadline"       binding:"omitempty,datetime=2006-01-02 15:04"`
	ClearDeadline bool    `json:"clear_deadline"`
	Message       *string `json:"message"        binding:"omitempty,max=5000"`
	Status        *int    `json:"status"         binding:"omitempty,oneof=0 1"`
}

// TaskResponse 任务响应
type TaskResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Deadline  *string    `json:"deadline"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	Message   string     `json:"message"`
	Status    int        `json:"status"`
	Source    string     `json:"source"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BulkReplaceResponse 批量替换结果
type BulkReplaceResponse struct {
	Replaced int `json:"replaced"`
}
