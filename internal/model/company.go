package model

import "time"

// 企业类型
const (
	CompanyTypeCompany         = "company"
	CompanyTypePlacementAgency = "placement_agency"
)

// 学院访问申请状态
const (
	AccessStatusPending  = "pending"
	AccessStatusApproved = "approved"
	AccessStatusRejected = "rejected"
)

// Company 企业/招聘机构表 — 对应 companies
type Company struct {
	CompanyID        string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"company_id"`
	OwnerUserID      string           `gorm:"type:uuid;not null;uniqueIndex"                 json:"owner_user_id"`
	Name             string           `gorm:"type:varchar(200);not null"                     json:"name"`
	Type             string           `gorm:"type:varchar(30);not null;default:'company'"    json:"type"`
	Industry         string           `gorm:"type:varchar(100)"                              json:"industry,omitempty"`
	Website          string           `gorm:"type:varchar(255)"                              json:"website,omitempty"`
	Description      string           `gorm:"type:text"                                      json:"description,omitempty"`
	LogoURL          string           `gorm:"type:varchar(500)"                              json:"logo_url,omitempty"`
	ContactEmail     string           `gorm:"type:varchar(255)"                              json:"contact_email,omitempty"`
	ContactPhone     string           `gorm:"type:varchar(20)"                               json:"contact_phone,omitempty"`
	IsApproved       bool             `gorm:"not null;default:false"                         json:"is_approved"`
	IsRejected       bool             `gorm:"not null;default:false"                         json:"is_rejected"`
	RejectionReason  string           `gorm:"type:text"                                      json:"rejection_reason,omitempty"`
	ApprovedAt       *time.Time       `                                                      json:"approved_at,omitempty"`
	ApprovedBy       *string          `gorm:"type:uuid"                                      json:"approved_by,omitempty"`
	IsSuspended      bool             `gorm:"not null;default:false"                         json:"is_suspended"`
	SuspensionReason string           `gorm:"type:text"                                      json:"suspension_reason,omitempty"`
	Downloads        DownloadTracking `gorm:"embedded;embeddedPrefix:download_"              json:"download_tracking"`
	Stats            CompanyStats     `gorm:"embedded;embeddedPrefix:stats_"                 json:"stats"`
	Lifecycle
	BaseModel

	// 关联
	Owner *User `gorm:"foreignKey:OwnerUserID;references:UserID" json:"owner,omitempty"`
}

// TableName 指定表名
func (Company) TableName() string { return "companies" }

// IsAgency 是否为招聘机构（发布校园专场需学院授权）
func (c *Company) IsAgency() bool {
	return c.Type == CompanyTypePlacementAgency
}

// CompanyStats 企业冗余计数
type CompanyStats struct {
	TotalJobsPosted int `gorm:"not null;default:0" json:"total_jobs_posted"`
	ActiveJobs      int `gorm:"not null;default:0" json:"active_jobs"`
	TotalHires      int `gorm:"not null;default:0" json:"total_hires"`
}

// DownloadTracking 学生数据下载计数（滚动日/月窗口）
// DailyLimit/MonthlyLimit 为空时使用平台设置中的全局限额
type DownloadTracking struct {
	DailyCount     int        `gorm:"not null;default:0" json:"daily_count"`
	MonthlyCount   int        `gorm:"not null;default:0" json:"monthly_count"`
	DailyResetAt   *time.Time `                          json:"daily_reset_at,omitempty"`
	MonthlyResetAt *time.Time `                          json:"monthly_reset_at,omitempty"`
	DailyLimit     *int       `                          json:"daily_limit,omitempty"`
	MonthlyLimit   *int       `                          json:"monthly_limit,omitempty"`
}

// Roll 按当前时间滚动窗口：超过重置时间的计数清零并设定下一个重置点
func (d *DownloadTracking) Roll(now time.Time) {
	if d.DailyResetAt == nil || !now.Before(*d.DailyResetAt) {
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
		d.DailyCount = 0
		d.DailyResetAt = &next
	}
	if d.MonthlyResetAt == nil || !now.Before(*d.MonthlyResetAt) {
		next := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
		d.MonthlyCount = 0
		d.MonthlyResetAt = &next
	}
}

// CollegeAccess 机构对学院的访问授权 — 对应 company_college_access
// (company_id, college_id) 唯一
type CollegeAccess struct {
	AccessID    string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"access_id"`
	CompanyID   string     `gorm:"type:uuid;not null"                             json:"company_id"`
	CollegeID   string     `gorm:"type:uuid;not null"                             json:"college_id"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	Message     string     `gorm:"type:text"                                      json:"message,omitempty"`
	RequestedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"requested_at"`
	ReviewedAt  *time.Time `                                                      json:"reviewed_at,omitempty"`
	ReviewedBy  *string    `gorm:"type:uuid"                                      json:"reviewed_by,omitempty"`

	// 关联
	Company *Company `gorm:"foreignKey:CompanyID;references:CompanyID" json:"company,omitempty"`
	College *College `gorm:"foreignKey:CollegeID;references:CollegeID" json:"college,omitempty"`
}

// TableName 指定表名
func (CollegeAccess) TableName() string { return "company_college_access" }
