package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studydesk/backend/internal/service"
	"studydesk/backend/pkg/response"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportTasksExcel 导出任务清单
// GET /api/v1/export/tasks.xlsx
func (h *ExportHandler) ExportTasksExcel(c *gin.Context) {
	h.serve(c, mimeXLSX, h.exportSvc.ExportTasksExcel)
}

// ExportTasksICS 导出 DDL 日历
// GET /api/v1/export/tasks.ics
func (h *ExportHandler) ExportTasksICS(c *gin.Context) {
	h.serve(c, mimeICS, h.exportSvc.ExportTasksICS)
}

func (h *ExportHandler) serve(c *gin.Context, contentType string, gen func(context.Context, string) (*bytes.Buffer, string, error)) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := gen(c.Request.Context(), userID)
	if err != nil {
		handleExportError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", attachmentDisposition(filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoTasks):
		response.NotFound(c, 16101, err.Error())
	default:
		response.InternalError(c)
	}
}
