package model

// Link 常用链接表，对应 links
type Link struct {
	LinkID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"link_id"`
	UserID   string `gorm:"type:uuid;not null"                             json:"user_id"`
	Title    string `gorm:"type:varchar(200);not null"                     json:"title"`
	URL      string `gorm:"column:url;type:varchar(2048);not null"         json:"url"`
	Category string `gorm:"type:varchar(50);not null;default:''"           json:"category"`
	BaseModel
}

// TableName 指定表名
func (Link) TableName() string { return "links" }
