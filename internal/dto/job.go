package dto

import "time"

// ── 职位模块 DTO ──

// EligibilityRequest 职位资格条件
type EligibilityRequest struct {
	MinCGPA            float64  `json:"min_cgpa"            binding:"cgpa"`
	MaxBacklogs        *int     `json:"max_backlogs"        binding:"omitempty,min=0"`
	AllowedDepartments []string `json:"allowed_departments" binding:"omitempty,dive,min=1,max=100"`
	AllowedBatches     []int    `json:"allowed_batches"     binding:"omitempty,dive,batch_year"`
}

// CreateJobRequest 发布职位
type CreateJobRequest struct {
	Title               string             `json:"title"                binding:"required,min=2,max=200"`
	Description         string             `json:"description"          binding:"omitempty,max=10000"`
	Type                string             `json:"type"                 binding:"required,job_type"`
	Location            string             `json:"location"             binding:"omitempty,max=200"`
	Package             float64            `json:"package"              binding:"min=0"`
	Openings            int                `json:"openings"             binding:"omitempty,min=1"`
	SkillsRequired      []string           `json:"skills_required"      binding:"omitempty,dive,min=1,max=50"`
	ApplicationDeadline time.Time          `json:"application_deadline" binding:"required"`
	Status              string             `json:"status"               binding:"omitempty,oneof=draft open"`
	IsPlacementDrive    bool               `json:"is_placement_drive"`
	CollegeID           string             `json:"college_id"           binding:"omitempty,uuid"`
	Eligibility         EligibilityRequest `json:"eligibility"`
}

// UpdateJobRequest 更新职位（不含状态）
type UpdateJobRequest struct {
	Title               *string             `json:"title"                binding:"omitempty,min=2,max=200"`
	Description         *string             `json:"description"          binding:"omitempty,max=10000"`
	Type                *string             `json:"type"                 binding:"omitempty,job_type"`
	Location            *string             `json:"location"             binding:"omitempty,max=200"`
	Package             *float64            `json:"package"              binding:"omitempty,min=0"`
	Openings            *int                `json:"openings"             binding:"omitempty,min=1"`
	SkillsRequired      []string            `json:"skills_required"      binding:"omitempty,dive,min=1,max=50"`
	ApplicationDeadline *time.Time          `json:"application_deadline"`
	Eligibility         *EligibilityRequest `json:"eligibility"`
}

// JobStatusRequest 修改职位状态
type JobStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=draft open closed filled cancelled"`
}

// JobListRequest 职位列表参数
type JobListRequest struct {
	PaginationRequest
	Keyword   string `form:"keyword"    binding:"omitempty,max=50"`
	CompanyID string `form:"company_id" binding:"omitempty,uuid"`
	Status    string `form:"status"     binding:"omitempty,oneof=draft open closed filled cancelled"`
	Type      string `form:"type"       binding:"omitempty,job_type"`
	DriveOnly bool   `form:"drive_only"`
}

// EligibleJobResponse 学生可投递职位，附带是否已投递
type EligibleJobResponse struct {
	Job        interface{} `json:"job"`
	HasApplied bool        `json:"has_applied"`
}
