package model

import (
	"time"

	"gorm.io/datatypes"
)

// 投递状态（推进顺序与合法迁移见 workflow 包）
const (
	ApplicationStatusApplied            = "applied"
	ApplicationStatusUnderReview        = "under_review"
	ApplicationStatusShortlisted        = "shortlisted"
	ApplicationStatusInterviewScheduled = "interview_scheduled"
	ApplicationStatusInterviewed        = "interviewed"
	ApplicationStatusOffered            = "offered"
	ApplicationStatusOfferAccepted      = "offer_accepted"
	ApplicationStatusHired              = "hired"
	ApplicationStatusRejected           = "rejected"
	ApplicationStatusWithdrawn          = "withdrawn"
)

// 投递来源
const (
	ApplicationSourceApply     = "apply"     // 学生主动投递
	ApplicationSourceShortlist = "shortlist" // 企业直接入围
)

// Offer 响应
const (
	OfferResponsePending  = "pending"
	OfferResponseAccepted = "accepted"
	OfferResponseDeclined = "declined"
)

// Application 投递表 — 对应 applications
// (student_id, job_id) 唯一索引是并发重复投递的唯一判据。
// CompanyID / CollegeID 为冗余字段，用于所有权范围过滤。
type Application struct {
	ApplicationID  string                             `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"application_id"`
	StudentID      string                             `gorm:"type:uuid;not null"                             json:"student_id"`
	JobID          string                             `gorm:"type:uuid;not null;index"                       json:"job_id"`
	CompanyID      string                             `gorm:"type:uuid;not null;index"                       json:"company_id"`
	CollegeID      string                             `gorm:"type:uuid;not null;index"                       json:"college_id"`
	Status         string                             `gorm:"type:varchar(30);not null"                      json:"status"`
	Source         string                             `gorm:"type:varchar(20);not null;default:'apply'"      json:"source"`
	ResumeSnapshot datatypes.JSONType[ResumeSnapshot] `gorm:"type:jsonb;not null"                            json:"resume_snapshot"`
	Offer          Offer                              `gorm:"embedded;embeddedPrefix:offer_"                 json:"offer"`
	AppliedAt      time.Time                          `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"applied_at"`
	Version        int                                `gorm:"not null;default:1"                             json:"version"`
	BaseModel

	// 关联（只追加）
	StatusHistory []ApplicationStatusHistory `gorm:"foreignKey:ApplicationID;references:ApplicationID" json:"status_history,omitempty"`
	Interviews    []Interview                `gorm:"foreignKey:ApplicationID;references:ApplicationID" json:"interviews,omitempty"`
	Student       *Student                   `gorm:"foreignKey:StudentID;references:StudentID"         json:"student,omitempty"`
	Job           *Job                       `gorm:"foreignKey:JobID;references:JobID"                 json:"job,omitempty"`
}

// TableName 指定表名
func (Application) TableName() string { return "applications" }

// ResumeSnapshot 投递时的简历快照，之后学生资料的修改不影响快照
type ResumeSnapshot struct {
	ResumeURL      string   `json:"resume_url,omitempty"`
	CGPA           float64  `json:"cgpa"`
	Skills         []string `json:"skills"`
	Department     string   `json:"department"`
	Batch          int      `json:"batch"`
	ActiveBacklogs int      `json:"active_backlogs"`
}

// NewResumeSnapshot 从学生当前资料生成快照（复制切片，避免与学生记录共享底层数组）
func NewResumeSnapshot(s *Student) ResumeSnapshot {
	skills := make([]string, len(s.Skills))
	copy(skills, s.Skills)
	return ResumeSnapshot{
		ResumeURL:      s.ResumeURL,
		CGPA:           s.CGPA,
		Skills:         skills,
		Department:     s.Department,
		Batch:          s.Batch,
		ActiveBacklogs: s.Backlogs.Active,
	}
}

// NewResumeSnapshotJSON 生成可直接写入 jsonb 列的快照
func NewResumeSnapshotJSON(s *Student) datatypes.JSONType[ResumeSnapshot] {
	return datatypes.NewJSONType(NewResumeSnapshot(s))
}

// Offer 录用意向
type Offer struct {
	Package     *float64   `gorm:"type:numeric(12,2)"           json:"package,omitempty"`
	Role        string     `gorm:"type:varchar(200)"            json:"role,omitempty"`
	JoiningDate *time.Time `json:"joining_date,omitempty"`
	Response    string     `gorm:"type:varchar(20)"             json:"response,omitempty"`
	OfferedAt   *time.Time `json:"offered_at,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// IsPresent 是否已发出 Offer
func (o Offer) IsPresent() bool {
	return o.OfferedAt != nil
}

// ApplicationStatusHistory 状态变更历史 — 对应 application_status_history
// 只追加，不修改、不删除，是审计的唯一依据。
type ApplicationStatusHistory struct {
	HistoryID     string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"history_id"`
	ApplicationID string    `gorm:"type:uuid;not null;index"                       json:"application_id"`
	Status        string    `gorm:"type:varchar(30);not null"                      json:"status"`
	Remarks       string    `gorm:"type:text"                                      json:"remarks,omitempty"`
	ChangedBy     string    `gorm:"type:uuid;not null"                             json:"changed_by"`
	ChangedAt     time.Time `gorm:"not null"                                       json:"changed_at"`
}

// TableName 指定表名
func (ApplicationStatusHistory) TableName() string { return "application_status_history" }

// Interview 面试安排 — 对应 application_interviews（只追加）
type Interview struct {
	InterviewID     string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"interview_id"`
	ApplicationID   string    `gorm:"type:uuid;not null;index"                       json:"application_id"`
	Round           int       `gorm:"not null;default:1"                             json:"round"`
	Mode            string    `gorm:"type:varchar(20);not null"                      json:"mode"` // online | offline | phone
	ScheduledAt     time.Time `gorm:"not null"                                       json:"scheduled_at"`
	DurationMinutes int       `gorm:"not null;default:60"                            json:"duration_minutes"`
	Location        string    `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	MeetingLink     string    `gorm:"type:varchar(500)"                              json:"meeting_link,omitempty"`
	Interviewer     string    `gorm:"type:varchar(100)"                              json:"interviewer,omitempty"`
	Notes           string    `gorm:"type:text"                                      json:"notes,omitempty"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	CreatedBy       string    `gorm:"type:uuid;not null"                             json:"created_by"`
}

// TableName 指定表名
func (Interview) TableName() string { return "application_interviews" }

// EndsAt 面试结束时间
func (i Interview) EndsAt() time.Time {
	return i.ScheduledAt.Add(time.Duration(i.DurationMinutes) * time.Minute)
}
