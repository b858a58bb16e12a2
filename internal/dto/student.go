package dto

// ── 学生模块 DTO ──

// StudentListRequest 学生检索参数
type StudentListRequest struct {
	PaginationRequest
	Keyword         string   `form:"keyword"          binding:"omitempty,max=50"`
	CollegeID       string   `form:"college_id"       binding:"omitempty,uuid"`
	Department      string   `form:"department"       binding:"omitempty,max=100"`
	Batch           int      `form:"batch"            binding:"omitempty,batch_year"`
	MinCGPA         *float64 `form:"min_cgpa"         binding:"omitempty,cgpa"`
	MaxBacklogs     *int     `form:"max_backlogs"     binding:"omitempty,min=0"`
	Skills          []string `form:"skills"           binding:"omitempty,dive,max=50"`
	PlacementStatus string   `form:"placement_status" binding:"omitempty,oneof=not_placed in_process placed not_interested higher_studies"`
	Verified        *bool    `form:"verified"`
	StarOnly        bool     `form:"star_only"`
}

// CreateStudentRequest 学院管理员新增学生
type CreateStudentRequest struct {
	Name           string   `json:"name"            binding:"required,min=2,max=100"`
	Email          string   `json:"email"           binding:"required,email,max=255"`
	Phone          string   `json:"phone"           binding:"omitempty,max=20"`
	RollNumber     string   `json:"roll_number"     binding:"required,max=50"`
	Department     string   `json:"department"      binding:"required,max=100"`
	Batch          int      `json:"batch"           binding:"required,batch_year"`
	CGPA           float64  `json:"cgpa"            binding:"cgpa"`
	ActiveBacklogs int      `json:"active_backlogs" binding:"min=0"`
	TotalBacklogs  int      `json:"total_backlogs"  binding:"min=0,gtefield=ActiveBacklogs"`
	Skills         []string `json:"skills"          binding:"omitempty,dive,min=1,max=50"`
	ResumeURL      string   `json:"resume_url"      binding:"omitempty,url"`
	CollegeID      string   `json:"college_id"      binding:"omitempty,uuid"` // 仅超级管理员需要指定
}

// UpdateStudentRequest 学院管理员更新学生
type UpdateStudentRequest struct {
	Name           *string  `json:"name"            binding:"omitempty,min=2,max=100"`
	Phone          *string  `json:"phone"           binding:"omitempty,max=20"`
	Department     *string  `json:"department"      binding:"omitempty,max=100"`
	Batch          *int     `json:"batch"           binding:"omitempty,batch_year"`
	CGPA           *float64 `json:"cgpa"            binding:"omitempty,cgpa"`
	ActiveBacklogs *int     `json:"active_backlogs" binding:"omitempty,min=0"`
	TotalBacklogs  *int     `json:"total_backlogs"  binding:"omitempty,min=0"`
	Skills         []string `json:"skills"          binding:"omitempty,dive,min=1,max=50"`
	ResumeURL      *string  `json:"resume_url"      binding:"omitempty,url"`
}

// UpdateOwnProfileRequest 学生更新本人资料（只允许简历与技能）
type UpdateOwnProfileRequest struct {
	Phone     *string  `json:"phone"      binding:"omitempty,max=20"`
	Skills    []string `json:"skills"     binding:"omitempty,dive,min=1,max=50"`
	ResumeURL *string  `json:"resume_url" binding:"omitempty,url"`
}

// StarRequest 标记/取消优秀学生
type StarRequest struct {
	Star bool `json:"star"`
}

// PlacementOverrideRequest 管理员显式覆盖就业状态
type PlacementOverrideRequest struct {
	Status string `json:"status" binding:"required,oneof=not_placed in_process placed not_interested higher_studies"`
}
