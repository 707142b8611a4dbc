package portal

// DetailNone 未找到作业说明时的占位文本
const DetailNone = "无"

// CourseRef 当前学期的一门课程
// ID 从 1 开始，按课程列表中的文档顺序分配，仅在单次抓取内有效
type CourseRef struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	EntryURL string `json:"entryUrl"`
}

// RawAssignmentItem 从作业页抓取到的一条原始作业文本
type RawAssignmentItem struct {
	CourseName string `json:"courseName"`
	Title      string `json:"title"`
	Detail     string `json:"detail"`
}
