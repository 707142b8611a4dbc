package dto

import "time"

// ── 课程模块 DTO ──

// CreateCourseRequest 创建课程请求
type CreateCourseRequest struct {
	Name        string `json:"name"        binding:"required,max=200"`
	Teacher     string `json:"teacher"     binding:"omitempty,max=100"`
	Description string `json:"description" binding:"omitempty,max=2000"`
	Color       string `json:"color"       binding:"omitempty,max=20"`
}

// UpdateCourseRequest 更新课程请求（字段均可选）
type UpdateCourseRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=1,max=200"`
	Teacher     *string `json:"teacher"     binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Color       *string `json:"color"       binding:"omitempty,max=20"`
}

// CourseResponse 课程响应
type CourseResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Teacher     string    `json:"teacher"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
