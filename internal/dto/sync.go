package dto

import "studydesk/backend/internal/ddl"

// ── 教学网同步 DTO ──

// PortalCredentials 教学网登录凭据，Cookie 与账号密码至少提供一种
type PortalCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Cookie   string `json:"cookie"`
}

// Empty 是否未提供任何凭据
func (c *PortalCredentials) Empty() bool {
	return c.Cookie == "" && (c.Username == "" || c.Password == "")
}

// SyncResponse 同步结果
type SyncResponse struct {
	Courses   int                 `json:"courses"`
	RawItems  int                 `json:"raw_items"`
	Deadlines int                 `json:"deadlines"`
	Payload   ddl.DeadlinePayload `json:"payload"`
}

// PortalCourseResponse 教学网当前学期课程
type PortalCourseResponse struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	EntryURL string `json:"entry_url"`
}

// ImportMaterialsRequest 导入课程讲义请求
type ImportMaterialsRequest struct {
	PortalCredentials
	EntryURL string   `json:"entry_url" binding:"required,url"`
	Course   string   `json:"course"    binding:"required,max=200"`
	Sections []string `json:"sections"`  // 默认 ["课程讲义"]
	MaxFiles int      `json:"max_files" binding:"omitempty,min=1,max=50"` // 默认 10
}

// ImportMaterialsResponse 导入课程讲义结果
type ImportMaterialsResponse struct {
	NoteID   string   `json:"note_id"`
	Imported int      `json:"imported"`
	Failed   []string `json:"failed,omitempty"`
}
