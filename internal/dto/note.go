package dto

import "time"

// ── 笔记模块 DTO ──

// CreateNoteRequest 创建笔记请求
type CreateNoteRequest struct {
	CourseID *string `json:"course_id" binding:"omitempty,uuid"`
	Title    string  `json:"title"     binding:"required,max=200"`
	Content  string  `json:"content"`
}

// UpdateNoteRequest 更新笔记请求
type UpdateNoteRequest struct {
	CourseID *string `json:"course_id" binding:"omitempty,uuid"`
	Title    *string `json:"title"     binding:"omitempty,min=1,max=200"`
	Content  *string `json:"content"`
}

// NoteListRequest 笔记列表查询参数
type NoteListRequest struct {
	CourseID string `form:"course_id" binding:"omitempty,uuid"`
}

// NoteResponse 笔记响应
type NoteResponse struct {
	ID          string               `json:"id"`
	CourseID    *string              `json:"course_id"`
	Title       string               `json:"title"`
	Content     string               `json:"content"`
	Attachments []AttachmentResponse `json:"attachments,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// AttachmentResponse 附件元数据响应
type AttachmentResponse struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}
