package dto

// ── 学院模块 DTO ──

// CollegeListRequest 学院列表查询参数
type CollegeListRequest struct {
	PaginationRequest
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
	Status  string `form:"status"  binding:"omitempty,oneof=pending verified rejected"`
}

// UpdateCollegeRequest 学院资料更新（学院管理员）
type UpdateCollegeRequest struct {
	Name    *string `json:"name"     binding:"omitempty,min=2,max=200"`
	Email   *string `json:"email"    binding:"omitempty,email"`
	Phone   *string `json:"phone"    binding:"omitempty,max=20"`
	Address *string `json:"address"  binding:"omitempty,max=500"`
	City    *string `json:"city"     binding:"omitempty,max=100"`
	State   *string `json:"state"    binding:"omitempty,max=100"`
	Website *string `json:"website"  binding:"omitempty,url"`
	LogoURL *string `json:"logo_url" binding:"omitempty,url"`
}

// DepartmentsRequest 新增或移除专业
type DepartmentsRequest struct {
	Departments []string `json:"departments" binding:"required,min=1,dive,min=1,max=100"`
}

// CollegeAccessListRequest 学院查看访问申请
type CollegeAccessListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
}
