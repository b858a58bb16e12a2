package dto

import "time"

// ── 投递模块 DTO ──

// ApplyRequest 学生投递
type ApplyRequest struct {
	Remarks string `json:"remarks" binding:"omitempty,max=500"`
}

// ShortlistRequest 企业直接入围学生
type ShortlistRequest struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
	Remarks   string `json:"remarks"    binding:"omitempty,max=500"`
}

// OfferRequest Offer 条款
type OfferRequest struct {
	Package     *float64   `json:"package"      binding:"omitempty,min=0"`
	Role        string     `json:"role"         binding:"omitempty,max=200"`
	JoiningDate *time.Time `json:"joining_date"`
}

// UpdateApplicationStatusRequest 推进投递状态
type UpdateApplicationStatusRequest struct {
	Status  string        `json:"status"  binding:"required,app_status"`
	Remarks string        `json:"remarks" binding:"omitempty,max=500"`
	Offer   *OfferRequest `json:"offer"`
}

// ScheduleInterviewRequest 安排面试
type ScheduleInterviewRequest struct {
	Round           int       `json:"round"            binding:"omitempty,min=1,max=20"`
	Mode            string    `json:"mode"             binding:"required,oneof=online offline phone"`
	ScheduledAt     time.Time `json:"scheduled_at"     binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"omitempty,min=5,max=600"`
	Location        string    `json:"location"         binding:"omitempty,max=200"`
	MeetingLink     string    `json:"meeting_link"     binding:"omitempty,url"`
	Interviewer     string    `json:"interviewer"      binding:"omitempty,max=100"`
	Notes           string    `json:"notes"            binding:"omitempty,max=2000"`
}

// RespondOfferRequest 学生答复 Offer
type RespondOfferRequest struct {
	Accept  bool   `json:"accept"`
	Remarks string `json:"remarks" binding:"omitempty,max=500"`
}

// WithdrawRequest 学生撤回投递
type WithdrawRequest struct {
	Remarks string `json:"remarks" binding:"omitempty,max=500"`
}

// ApplicationListRequest 投递列表参数
type ApplicationListRequest struct {
	PaginationRequest
	JobID     string `form:"job_id"     binding:"omitempty,uuid"`
	StudentID string `form:"student_id" binding:"omitempty,uuid"`
	Status    string `form:"status"     binding:"omitempty,app_status"`
}
