package dto

import "time"

// ChatRequest 对话请求，session_id 为空时创建新会话
type ChatRequest struct {
	SessionID string `json:"session_id" binding:"omitempty,max=64"`
	Message   string `json:"message"    binding:"required,max=4000"`
}

// ChatResponse 对话回复
type ChatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
}

// ChatDocumentResponse 资料上传结果
type ChatDocumentResponse struct {
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
	Chars     int    `json:"chars"`
}

// ChatMessageResponse 一条历史消息
type ChatMessageResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatHistoryResponse 会话历史（不含系统提示）
type ChatHistoryResponse struct {
	SessionID string                `json:"session_id"`
	Document  string                `json:"document,omitempty"` // 已上传资料的文件名
	Messages  []ChatMessageResponse `json:"messages"`
	UpdatedAt time.Time             `json:"updated_at"`
}
