package dto

// PageQuery 分页查询参数
type PageQuery struct {
	Page     int `form:"page"`      // 可选：页码，不传默认为1
	PageSize int `form:"page_size"` // 可选：每页数量，不传默认为20
}

// GetPage 获取页码
func (p *PageQuery) GetPage() int {
	if p.Page < 1 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量
func (p *PageQuery) GetPageSize() int {
	if p.PageSize < 1 {
		return 20
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// GetOffset 获取偏移量
func (p *PageQuery) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// RunListQuery 运行记录列表查询
type RunListQuery struct {
	PageQuery
	Repo       string `form:"repo" binding:"required"`
	Branch     string `form:"branch"`
	Workflow   string `form:"workflow"`
	Status     string `form:"status"`
	Conclusion string `form:"conclusion"`
}
