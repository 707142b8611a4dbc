package model

import "time"

// 任务来源
const (
	TaskSourceManual = "manual"
	TaskSourcePortal = "portal"
)

// 任务紧急程度
const (
	TaskStatusUrgent    = 0
	TaskStatusNotUrgent = 1
)

// Task 任务 / DDL 表，对应 tasks
// Deadline 保存原始的 "YYYY-MM-DD HH:MM" 文本，DueAt 为其解析后的时间点，用于排序与导出
type Task struct {
	TaskID   string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"task_id"`
	UserID   string     `gorm:"type:uuid;not null;index"                       json:"user_id"`
	Name     string     `gorm:"type:varchar(255);not null"                     json:"name"`
	Deadline *string    `gorm:"type:varchar(16)"                               json:"deadline"`
	DueAt    *time.Time `gorm:"type:timestamptz"                               json:"due_at,omitempty"`
	Message  string     `gorm:"type:text;not null;default:''"                  json:"message"`
	Status   int        `gorm:"type:smallint;not null;default:1"               json:"status"`
	Source   string     `gorm:"type:varchar(20);not null;default:'manual'"     json:"source"`
	BaseModel
}

// TableName 指定表名
func (Task) TableName() string { return "tasks" }
