package model

// Course 课程表，对应 courses；同一用户下课程名唯一
type Course struct {
	CourseID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	UserID      string `gorm:"type:uuid;not null"                             json:"user_id"`
	Name        string `gorm:"type:varchar(200);not null"                     json:"name"`
	Teacher     string `gorm:"type:varchar(100);not null;default:''"          json:"teacher"`
	Description string `gorm:"type:text;not null;default:''"                  json:"description"`
	Color       string `gorm:"type:varchar(20);not null;default:''"           json:"color"`
	SoftDeleteModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }
