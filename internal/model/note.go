package model

// Note 笔记表，对应 notes
type Note struct {
	NoteID   string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"note_id"`
	UserID   string  `gorm:"type:uuid;not null;index"                       json:"user_id"`
	CourseID *string `gorm:"type:uuid"                                      json:"course_id"`
	Title    string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Content  string  `gorm:"type:text;not null;default:''"                  json:"content"`
	SoftDeleteModel

	// 关联
	Attachments []NoteAttachment `gorm:"foreignKey:NoteID;references:NoteID" json:"attachments,omitempty"`
}

// TableName 指定表名
func (Note) TableName() string { return "notes" }

// NoteAttachment 笔记附件表，对应 note_attachments
// 文件内容保存在对象存储中，ObjectKey 为存储键
type NoteAttachment struct {
	AttachmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"              json:"attachment_id"`
	NoteID       string `gorm:"type:uuid;not null;index"                                    json:"note_id"`
	Filename     string `gorm:"type:varchar(255);not null"                                  json:"filename"`
	ContentType  string `gorm:"type:varchar(100);not null;default:'application/octet-stream'" json:"content_type"`
	Size         int64  `gorm:"type:bigint;not null;default:0"                              json:"size"`
	ObjectKey    string `gorm:"type:varchar(255);not null"                                  json:"-"`
	BaseModel
}

// TableName 指定表名
func (NoteAttachment) TableName() string { return "note_attachments" }
