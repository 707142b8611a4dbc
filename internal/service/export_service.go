package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"studydesk/backend/internal/model"
	"studydesk/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoTasks      = errors.New("暂无可导出的任务")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写出
type ExportService interface {
	// ExportTasksExcel 导出任务清单为 Excel
	ExportTasksExcel(ctx context.Context, userID string) (*bytes.Buffer, string, error)
	// ExportTasksICS 导出有截止时间的任务为日历订阅
	ExportTasksICS(ctx context.Context, userID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	now    func() time.Time
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, now: time.Now, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportTasksExcel
// ═══════════════════════════════════════════════════════════
//
// 单个 Sheet "任务清单"：| 名称 | 截止时间 | 紧急程度 | 备注 | 来源 |
// 紧急任务整行红字，无截止时间显示"未定"

func (s *exportService) ExportTasksExcel(ctx context.Context, userID string) (*bytes.Buffer, string, error) {
	tasks, err := s.listTasks(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "任务清单"
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheet, "A", "A", 36)
	f.SetColWidth(sheet, "B", "B", 18)
	f.SetColWidth(sheet, "C", "C", 10)
	f.SetColWidth(sheet, "D", "D", 60)
	f.SetColWidth(sheet, "E", "E", 10)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	urgentStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "#C00000"},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	normalStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})

	for i, h := range []string{"名称", "截止时间", "紧急程度", "备注", "来源"} {
		f.SetCellValue(sheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheet, "A1", "E1", headerStyle)
	f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i, t := range tasks {
		row := i + 2
		deadline := "未定"
		if t.Deadline != nil {
			deadline = *t.Deadline
		}
		f.SetCellValue(sheet, cell("A", row), t.Name)
		f.SetCellValue(sheet, cell("B", row), deadline)
		f.SetCellValue(sheet, cell("C", row), statusLabel(t.Status))
		f.SetCellValue(sheet, cell("D", row), t.Message)
		f.SetCellValue(sheet, cell("E", row), sourceLabel(t.Source))

		style := normalStyle
		if t.Status == model.TaskStatusUrgent {
			style = urgentStyle
		}
		f.SetCellStyle(sheet, cell("A", row), cell("E", row), style)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("任务清单_%s.xlsx", s.now().Format("20060102")), nil
}

// ═══════════════════════════════════════════════════════════
// ExportTasksICS
// ═══════════════════════════════════════════════════════════
//
// 每个有截止时间的任务一个 VEVENT，DTSTART=DTEND=截止时刻，提前 1 小时提醒

func (s *exportService) ExportTasksICS(ctx context.Context, userID string) (*bytes.Buffer, string, error) {
	tasks, err := s.listTasks(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//studydesk//deadlines//CN")
	cal.SetXWRCalName("课程 DDL")
	cal.SetXWRTimezone(courseTimezone)

	stamp := s.now()
	n := 0
	for _, t := range tasks {
		if t.DueAt == nil {
			continue
		}
		evt := cal.AddEvent(t.TaskID + "@studydesk")
		evt.SetDtStampTime(stamp)
		evt.SetStartAt(*t.DueAt)
		evt.SetEndAt(*t.DueAt)
		evt.SetSummary(t.Name)
		if t.Message != "" {
			evt.SetDescription(t.Message)
		}

		alarm := evt.AddAlarm()
		alarm.SetAction(ics.ActionDisplay)
		alarm.SetTrigger("-PT1H")
		n++
	}
	if n == 0 {
		return nil, "", ErrExportNoTasks
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, "deadlines.ics", nil
}

// ── 辅助函数 ──

func (s *exportService) listTasks(ctx context.Context, userID string) ([]model.Task, error) {
	tasks, err := s.repo.Task.List(ctx, userID)
	if err != nil {
		s.logger.Error("查询任务失败", zap.Error(err))
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, ErrExportNoTasks
	}
	return tasks, nil
}

func statusLabel(status int) string {
	if status == model.TaskStatusUrgent {
		return "紧急"
	}
	return "不紧急"
}

func sourceLabel(source string) string {
	if source == model.TaskSourcePortal {
		return "教学网"
	}
	return "手动"
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
