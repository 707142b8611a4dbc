package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User           UserRepository
	Course         CourseRepository
	Task           TaskRepository
	Link           LinkRepository
	Note           NoteRepository
	Attachment     AttachmentRepository
	CourseSchedule CourseScheduleRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:           NewUserRepo(db),
		Course:         NewCourseRepo(db),
		Task:           NewTaskRepo(db),
		Link:           NewLinkRepo(db),
		Note:           NewNoteRepo(db),
		Attachment:     NewAttachmentRepo(db),
		CourseSchedule: NewCourseScheduleRepo(db),
	}
}
