package model

// CourseSchedule 课表表，对应 course_schedules
// 每行表示某门课在一周中的一个固定时段，Weeks 记录实际上课的教学周
type CourseSchedule struct {
	CourseScheduleID string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_schedule_id"`
	UserID           string   `gorm:"type:uuid;not null;index"                       json:"user_id"`
	CourseName       string   `gorm:"type:varchar(200);not null"                     json:"course_name"`
	Teacher          string   `gorm:"type:varchar(100);not null;default:''"          json:"teacher"`
	Location         string   `gorm:"type:varchar(200);not null;default:''"          json:"location"`
	DayOfWeek        int      `gorm:"type:smallint;not null"                         json:"day_of_week"` // 1-7
	StartTime        string   `gorm:"type:varchar(5);not null"                       json:"start_time"`  // HH:MM
	EndTime          string   `gorm:"type:varchar(5);not null"                       json:"end_time"`
	WeekType         string   `gorm:"type:varchar(10);not null;default:'all'"        json:"week_type"` // all | odd | even
	Weeks            IntArray `gorm:"type:int[]"                                     json:"weeks"`
	Source           string   `gorm:"type:varchar(20);not null;default:'ics'"        json:"source"` // ics | manual
	BaseModel
}

// TableName 指定表名
func (CourseSchedule) TableName() string { return "course_schedules" }
