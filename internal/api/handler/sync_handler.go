package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studydesk/backend/internal/dto"
	"studydesk/backend/internal/service"
	"studydesk/backend/pkg/response"
)

// SyncHandler 教学网同步 Handler
type SyncHandler struct {
	svc service.SyncService
}

// NewSyncHandler 创建 SyncHandler 实例
func NewSyncHandler(svc service.SyncService) *SyncHandler {
	return &SyncHandler{svc: svc}
}

// Sync 抓取作业并用整理后的 DDL 替换当前用户任务
// POST /api/v1/portal/sync
func (h *SyncHandler) Sync(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var creds dto.PortalCredentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.SyncDeadlines(c.Request.Context(), userID, &creds)
	if err != nil {
		handleSyncError(c, err)
		return
	}
	response.OK(c, resp)
}

// Courses 列出教学网当前学期课程
// POST /api/v1/portal/courses
func (h *SyncHandler) Courses(c *gin.Context) {
	var creds dto.PortalCredentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.ListPortalCourses(c.Request.Context(), &creds)
	if err != nil {
		handleSyncError(c, err)
		return
	}
	response.OK(c, resp)
}

// ImportMaterials 下载课程讲义并存为带附件的笔记
// POST /api/v1/portal/materials
func (h *SyncHandler) ImportMaterials(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.ImportMaterialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.ImportCourseMaterials(c.Request.Context(), userID, &req)
	if err != nil {
		handleSyncError(c, err)
		return
	}
	response.Created(c, resp)
}

func handleSyncError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSyncNoCredentials):
		response.BadRequest(c, 18001, err.Error())
	case errors.Is(err, service.ErrSyncAuthFailed):
		response.Error(c, http.StatusUnprocessableEntity, 18002, err.Error())
	case errors.Is(err, service.ErrSyncInProgress):
		response.Conflict(c, 18003, err.Error())
	case errors.Is(err, service.ErrSyncUnavailable):
		response.Error(c, http.StatusServiceUnavailable, 18004, err.Error())
	case errors.Is(err, service.ErrNoMaterials):
		response.NotFound(c, 18005, err.Error())
	case errors.Is(err, service.ErrAttachmentTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, 17003, err.Error())
	case errors.Is(err, service.ErrStorageDisabled):
		response.Error(c, http.StatusServiceUnavailable, 17004, err.Error())
	default:
		response.InternalError(c)
	}
}
