package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studydesk/backend/internal/dto"
	"studydesk/backend/internal/service"
	"studydesk/backend/pkg/response"
)

// ChatHandler 智能助手 Handler
type ChatHandler struct {
	svc service.ChatService
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(svc service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Chat 多轮对话
// POST /api/v1/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.Chat(c.Request.Context(), userID, &req)
	if err != nil {
		handleChatError(c, err)
		return
	}
	response.OK(c, resp)
}

// UploadDocument 上传文本资料，session_id 表单字段为空时创建新会话
// POST /api/v1/chat/document
func (h *ChatHandler) UploadDocument(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, 19004, service.ErrChatDocumentTooLarge.Error())
			return
		}
		response.BadRequest(c, 10001, "缺少上传文件 file")
		return
	}
	sessionID := c.PostForm("session_id")
	if len(sessionID) > 64 {
		response.BadRequest(c, 10001, "session_id 过长")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.InternalError(c)
		return
	}
	defer f.Close()

	resp, err := h.svc.AttachDocument(c.Request.Context(), userID, sessionID, fh.Filename, f)
	if err != nil {
		handleChatError(c, err)
		return
	}
	response.Created(c, resp)
}

// Ask 基于已上传资料提问
// POST /api/v1/chat/ask
func (h *ChatHandler) Ask(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.Ask(c.Request.Context(), userID, &req)
	if err != nil {
		handleChatError(c, err)
		return
	}
	response.OK(c, resp)
}

// History 会话历史
// GET /api/v1/chat/:session
func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.History(c.Request.Context(), userID, c.Param("session"))
	if err != nil {
		handleChatError(c, err)
		return
	}
	response.OK(c, resp)
}

// Reset 清空会话
// DELETE /api/v1/chat/:session
func (h *ChatHandler) Reset(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	if err := h.svc.Reset(c.Request.Context(), userID, c.Param("session")); err != nil {
		handleChatError(c, err)
		return
	}
	response.OK(c, nil)
}

func handleChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrChatSessionNotFound):
		response.NotFound(c, 19001, err.Error())
	case errors.Is(err, service.ErrChatNoDocument):
		response.BadRequest(c, 19002, err.Error())
	case errors.Is(err, service.ErrChatUnsupportedDocument):
		response.Error(c, http.StatusUnsupportedMediaType, 19003, err.Error())
	case errors.Is(err, service.ErrChatDocumentTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, 19004, err.Error())
	case errors.Is(err, service.ErrChatUnavailable):
		response.Error(c, http.StatusServiceUnavailable, 19005, err.Error())
	case errors.Is(err, service.ErrChatCompletionFailed):
		response.Error(c, http.StatusBadGateway, 19006, err.Error())
	default:
		response.InternalError(c)
	}
}
