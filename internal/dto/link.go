package dto

// ── 常用链接 DTO ──

// CreateLinkRequest 创建链接请求
type CreateLinkRequest struct {
	Title    string `json:"title"    binding:"required,max=200"`
	URL      string `json:"url"      binding:"required,url,max=2048"`
	Category string `json:"category" binding:"omitempty,max=50"`
}

// UpdateLinkRequest 更新链接请求
type UpdateLinkRequest struct {
	Title    *string `json:"title"    binding:"omitempty,min=1,max=200"`
	URL      *string `json:"url"      binding:"omitempty,url,max=2048"`
	Category *string `json:"category" binding:"omitempty,max=50"`
}

// LinkListRequest 链接列表查询参数
type LinkListRequest struct {
	Category string `form:"category" binding:"omitempty,max=50"`
}

// LinkResponse 链接响应
type LinkResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Category string `json:"category"`
}
