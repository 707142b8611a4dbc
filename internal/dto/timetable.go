package dto

// ── ICS 导入 ──

// ImportICSRequest ICS 导入请求（URL 方式）
// TermStart 为第一教学周周一的日期（YYYY-MM-DD），TotalWeeks 为 0 时由日历推算
type ImportICSRequest struct {
	URL        string `json:"url"         form:"url"         binding:"omitempty,url"`
	TermStart  string `json:"term_start"  form:"term_start"  binding:"required,datetime=2006-01-02"`
	TotalWeeks int    `json:"total_weeks" form:"total_weeks" binding:"omitempty,min=1,max=30"`
}

// ImportICSResponse ICS 导入响应
type ImportICSResponse struct {
	ImportedCount int                   `json:"imported_count"`
	Events        []ImportedCourseEvent `json:"events"`
}

// ImportedCourseEvent 导入的课程事件
type ImportedCourseEvent struct {
	Name      string `json:"name"`
	Teacher   string `json:"teacher,omitempty"`
	Location  string `json:"location,omitempty"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Weeks     []int  `json:"weeks"`
}

// ── 课表 ──

// ScheduleEntryResponse 课表条目响应
type ScheduleEntryResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Teacher   string `json:"teacher"`
	Location  string `json:"location"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	WeekType  string `json:"week_type"`
	Weeks     []int  `json:"weeks"`
	Source    string `json:"source"`
}
