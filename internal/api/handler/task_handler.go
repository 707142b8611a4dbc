package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"studydesk/backend/internal/ddl"
	"studydesk/backend/internal/dto"
	"studydesk/backend/internal/service"
	"studydesk/backend/pkg/response"
)

// TaskHandler 任务 / DDL 模块 Handler
type TaskHandler struct {
	svc service.TaskService
}

// NewTaskHandler 创建 TaskHandler 实例
func NewTaskHandler(svc service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// Create 创建任务
// POST /api/v1/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	response.Created(c, resp)
}

// List 任务列表，按截止时间升序，无截止时间的排在最后
// GET /api/v1/tasks
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	response.OK(c, resp)
}

// Get 任务详情
// GET /api/v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleTaskError(c, err)
		return
	}
	response.OK(c, resp)
}

// Update 更新任务
// PUT /api/v1/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.Update(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	response.OK(c, resp)
}

// Delete 删除任务
// DELETE /api/v1/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		handleTaskError(c, err)
		return
	}
	response.OK(c, nil)
}

// BulkReplace 用 DeadlinePayload 全量替换当前用户的任务
// PUT /api/v1/tasks/bulk
func (h *TaskHandler) BulkReplace(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var payload ddl.DeadlinePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		bindError(c, err)
		return
	}

	n, err := h.svc.ReplaceDeadlines(c.Request.Context(), userID, payload)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	response.OK(c, dto.BulkReplaceResponse{Replaced: n})
}

func handleTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, 13001, err.Error())
	case errors.Is(err, service.ErrInvalidDeadline):
		response.BadRequest(c, 13002, err.Error())
	case errors.Is(err, service.ErrPayloadUserMismatch):
		response.Forbidden(c, 13003, err.Error())
	default:
		response.InternalError(c)
	}
}
