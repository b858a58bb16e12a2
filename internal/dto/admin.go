package dto

import "time"

// ── 平台治理 DTO ──

// UpdateSettingsRequest 更新平台设置（只更新提供的字段）
type UpdateSettingsRequest struct {
	AllowCollegeRegistration *bool   `json:"allow_college_registration"`
	AllowCompanyRegistration *bool   `json:"allow_company_registration"`
	AllowStudentRegistration *bool   `json:"allow_student_registration"`
	AutoApproveColleges      *bool   `json:"auto_approve_colleges"`
	AutoApproveCompanies     *bool   `json:"auto_approve_companies"`
	MaintenanceMode          *bool   `json:"maintenance_mode"`
	MaintenanceMessage       *string `json:"maintenance_message"    binding:"omitempty,max=500"`
	DataVisibility           *string `json:"data_visibility"        binding:"omitempty,oneof=verified_only all"`
	ShowStudentContact       *bool   `json:"show_student_contact"`
	DailyDownloadLimit       *int    `json:"daily_download_limit"   binding:"omitempty,min=0"`
	MonthlyDownloadLimit     *int    `json:"monthly_download_limit" binding:"omitempty,min=0"`
}

// SetActiveRequest 启用/停用
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// SuspendRequest 暂停/恢复企业
type SuspendRequest struct {
	Suspend bool   `json:"suspend"`
	Reason  string `json:"reason"  binding:"omitempty,max=500"`
}

// DownloadLimitRequest 单个企业的下载限额覆盖；为空表示使用平台默认
type DownloadLimitRequest struct {
	DailyLimit   *int `json:"daily_limit"   binding:"omitempty,min=0"`
	MonthlyLimit *int `json:"monthly_limit" binding:"omitempty,min=0"`
}

// ActivityLogListRequest 操作日志查询参数
type ActivityLogListRequest struct {
	PaginationRequest
	ActorID     string     `form:"actor_id"     binding:"omitempty,uuid"`
	Action      string     `form:"action"       binding:"omitempty,max=50"`
	TargetModel string     `form:"target_model" binding:"omitempty,max=50"`
	TargetID    string     `form:"target_id"    binding:"omitempty,uuid"`
	From        *time.Time `form:"from"         time_format:"2006-01-02"`
	To          *time.Time `form:"to"           time_format:"2006-01-02"`
}

// NotificationListRequest 通知列表参数
type NotificationListRequest struct {
	PaginationRequest
	UnreadOnly bool `form:"unread_only"`
}

// DashboardResponse 平台概览
type DashboardResponse struct {
	Users        map[string]int64 `json:"users"`
	Colleges     map[string]int64 `json:"colleges"`
	Companies    map[string]int64 `json:"companies"`
	Jobs         map[string]int64 `json:"jobs"`
	Applications map[string]int64 `json:"applications"`
}

// ReconcileResponse 计数对账结果（被纠正的行数）
type ReconcileResponse struct {
	Jobs      int64 `json:"jobs"`
	Companies int64 `json:"companies"`
	Colleges  int64 `json:"colleges"`
}
