package handler

import "studydesk/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth      *AuthHandler
	Course    *CourseHandler
	Task      *TaskHandler
	Link      *LinkHandler
	Note      *NoteHandler
	Timetable *TimetableHandler
	Export    *ExportHandler
	Sync      *SyncHandler
	Chat      *ChatHandler
	Health    *HealthHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, cookie *CookieOptions, checks map[string]Check) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(svc.Auth, cookie),
		Course:    NewCourseHandler(svc.Course),
		Task:      NewTaskHandler(svc.Task),
		Link:      NewLinkHandler(svc.Link),
		Note:      NewNoteHandler(svc.Note),
		Timetable: NewTimetableHandler(svc.Timetable),
		Export:    NewExportHandler(svc.Export),
		Sync:      NewSyncHandler(svc.Sync),
		Chat:      NewChatHandler(svc.Chat),
		Health:    NewHealthHandler(checks),
	}
}
