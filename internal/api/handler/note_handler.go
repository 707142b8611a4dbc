package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"studydesk/backend/internal/dto"
	"studydesk/backend/internal/service"
	"studydesk/backend/pkg/response"
)

// NoteHandler 笔记与附件 Handler
type NoteHandler struct {
	svc service.NoteService
}

// NewNoteHandler 创建 NoteHandler 实例
func NewNoteHandler(svc service.NoteService) *NoteHandler {
	return &NoteHandler{svc: svc}
}

// ────────────────────── 笔记 ──────────────────────

// Create 创建笔记
// POST /api/v1/notes
func (h *NoteHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		handleNoteError(c, err)
		return
	}
	response.Created(c, resp)
}

// List 笔记列表
// GET /api/v1/notes?course_id=xxx
func (h *NoteHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.NoteListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.List(c.Request.Context(), userID, &req)
	if err != nil {
		handleNoteError(c, err)
		return
	}
	response.OK(c, resp)
}

// Get 笔记详情（含附件元数据）
// GET /api/v1/notes/:id
func (h *NoteHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleNoteError(c, err)
		return
	}
	response.OK(c, resp)
}

// Update 更新笔记
// PUT /api/v1/notes/:id
func (h *NoteHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.Update(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		handleNoteError(c, err)
		return
	}
	response.OK(c, resp)
}

// Delete 删除笔记及附件
// DELETE /api/v1/notes/:id
func (h *NoteHandler) Delete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		handleNoteError(c, err)
		return
	}
	response.OK(c, nil)
}

// ────────────────────── 附件 ──────────────────────

// UploadAttachment 上传附件
// POST /api/v1/notes/:id/attachments (multipart/form-data, field="file")
func (h *NoteHandler) UploadAttachment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, 17003, service.ErrAttachmentTooLarge.Error())
			return
		}
		response.BadRequest(c, 10001, "缺少上传文件 file")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.InternalError(c)
		return
	}
	defer f.Close()

	resp, err := h.svc.UploadAttachment(c.Request.Context(), userID, c.Param("id"),
		fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		handleNoteError(c, err)
		return
	}
	response.Created(c, resp)
}

// DownloadAttachment 下载附件
// GET /api/v1/notes/:id/attachments/:aid
func (h *NoteHandler) DownloadAttachment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	content, err := h.svc.OpenAttachment(c.Request.Context(), userID, c.Param("id"), c.Param("aid"))
	if err != nil {
		handleNoteError(c, err)
		return
	}
	defer content.Body.Close()

	c.DataFromReader(http.StatusOK, content.Size, content.ContentType, content.Body, map[string]string{
		"Content-Disposition": attachmentDisposition(content.Filename),
	})
}

// DeleteAttachment 删除附件
// DELETE /api/v1/notes/:id/attachments/:aid
func (h *NoteHandler) DeleteAttachment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteAttachment(c.Request.Context(), userID, c.Param("id"), c.Param("aid")); err != nil {
		handleNoteError(c, err)
		return
	}
	response.OK(c, nil)
}

// attachmentDisposition 文件名按 RFC 5987 编码，兼容中文
func attachmentDisposition(filename string) string {
	return "attachment; filename*=UTF-8''" + url.PathEscape(filename)
}

func handleNoteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoteNotFound):
		response.NotFound(c, 17001, err.Error())
	case errors.Is(err, service.ErrAttachmentNotFound):
		response.NotFound(c, 17002, err.Error())
	case errors.Is(err, service.ErrAttachmentTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, 17003, err.Error())
	case errors.Is(err, service.ErrStorageDisabled):
		response.Error(c, http.StatusServiceUnavailable, 17004, err.Error())
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 12001, err.Error())
	default:
		response.InternalError(c)
	}
}
