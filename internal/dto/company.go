package dto

// ── 企业模块 DTO ──

// CompanyListRequest 企业列表查询参数
type CompanyListRequest struct {
	PaginationRequest
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
	Type    string `form:"type"    binding:"omitempty,oneof=company placement_agency"`
	Status  string `form:"status"  binding:"omitempty,oneof=pending approved rejected suspended"`
}

// UpdateCompanyRequest 企业资料更新
type UpdateCompanyRequest struct {
	Name         *string `json:"name"          binding:"omitempty,min=2,max=200"`
	Industry     *string `json:"industry"      binding:"omitempty,max=100"`
	Website      *string `json:"website"       binding:"omitempty,url"`
	Description  *string `json:"description"   binding:"omitempty,max=5000"`
	LogoURL      *string `json:"logo_url"      binding:"omitempty,url"`
	ContactEmail *string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone *string `json:"contact_phone" binding:"omitempty,max=20"`
}

// RequestCollegeAccessRequest 招聘机构申请访问学院
type RequestCollegeAccessRequest struct {
	CollegeID string `json:"college_id" binding:"required,uuid"`
	Message   string `json:"message"    binding:"omitempty,max=1000"`
}
