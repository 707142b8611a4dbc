package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"studydesk/backend/internal/dto"
	"studydesk/backend/internal/service"
	"studydesk/backend/pkg/response"
)

// TimetableHandler 课表模块 Handler
type TimetableHandler struct {
	svc service.TimetableService
}

// NewTimetableHandler 创建 TimetableHandler 实例
func NewTimetableHandler(svc service.TimetableService) *TimetableHandler {
	return &TimetableHandler{svc: svc}
}

// ImportICS 导入 ICS 课表，全量替换
// POST /api/v1/timetable/import
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file"，另带 term_start / total_weeks
//   - URL 导入: application/json, body={"url": "...", "term_start": "2026-02-23"}
func (h *TimetableHandler) ImportICS(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ImportICSRequest
	multipart := strings.HasPrefix(c.ContentType(), "multipart/")
	var err error
	if multipart {
		err = c.ShouldBind(&req)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		bindError(c, err)
		return
	}
	termStart, err := time.Parse("2006-01-02", req.TermStart)
	if err != nil {
		response.BadRequest(c, 10001, "term_start 格式应为 YYYY-MM-DD")
		return
	}

	ctx := c.Request.Context()
	if multipart {
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				response.InternalError(c)
				return
			}
			defer f.Close()

			resp, err := h.svc.ImportICS(ctx, userID, f, termStart, req.TotalWeeks)
			if err != nil {
				handleTimetableError(c, err)
				return
			}
			response.Created(c, resp)
			return
		}
	}

	resp, err := h.svc.ImportICSFromURL(ctx, userID, req.URL, termStart, req.TotalWeeks)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.Created(c, resp)
}

// List 我的课表
// GET /api/v1/timetable
func (h *TimetableHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, resp)
}

// handleTimetableError 统一课表模块错误映射
func handleTimetableError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrICSNoSource):
		response.BadRequest(c, 15000, err.Error())
	case errors.Is(err, service.ErrICSFetchFailed):
		response.ErrorWithDetails(c, http.StatusBadGateway, 15001, "ICS URL 获取失败", err.Error())
	case errors.Is(err, service.ErrICSParseFailed):
		response.ErrorWithDetails(c, http.StatusBadRequest, 15006, "ICS 文件解析失败", err.Error())
	case errors.Is(err, service.ErrICSEmpty):
		response.ErrorWithDetails(c, http.StatusBadRequest, 15007, "ICS 文件中无有效课程", err.Error())
	default:
		response.InternalError(c)
	}
}
