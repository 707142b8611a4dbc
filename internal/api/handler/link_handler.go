package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"studydesk/backend/internal/dto"
	"studydesk/backend/internal/service"
	"studydesk/backend/pkg/response"
)

// LinkHandler 常用链接 Handler
type LinkHandler struct {
	svc service.LinkService
}

// NewLinkHandler 创建 LinkHandler 实例
func NewLinkHandler(svc service.LinkService) *LinkHandler {
	return &LinkHandler{svc: svc}
}

// Create 添加链接
// POST /api/v1/links
func (h *LinkHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		handleLinkError(c, err)
		return
	}
	response.Created(c, resp)
}

// List 链接列表，可按 category 过滤
// GET /api/v1/links?category=xxx
func (h *LinkHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.LinkListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.List(c.Request.Context(), userID, &req)
	if err != nil {
		handleLinkError(c, err)
		return
	}
	response.OK(c, resp)
}

// Update 更新链接
// PUT /api/v1/links/:id
func (h *LinkHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.Update(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		handleLinkError(c, err)
		return
	}
	response.OK(c, resp)
}

// Delete 删除链接
// DELETE /api/v1/links/:id
func (h *LinkHandler) Delete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		handleLinkError(c, err)
		return
	}
	response.OK(c, nil)
}

func handleLinkError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrLinkNotFound) {
		response.NotFound(c, 14001, err.Error())
		return
	}
	response.InternalError(c)
}
