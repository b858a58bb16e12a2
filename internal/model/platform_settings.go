package model

// 数据可见性策略
const (
	VisibilityVerifiedOnly = "verified_only" // 企业只能检索已认证学生
	VisibilityAll          = "all"           // 企业可检索全部在籍学生
)

// PlatformSettings 平台设置表 — 对应 platform_settings（单行强类型）
// 首次访问时惰性创建，进程启动时加载到内存并在管理员更新后重载。
type PlatformSettings struct {
	Singleton                bool   `gorm:"primaryKey;default:true"                          json:"-"`
	AllowCollegeRegistration bool   `gorm:"not null;default:true"                            json:"allow_college_registration"`
	AllowCompanyRegistration bool   `gorm:"not null;default:true"                            json:"allow_company_registration"`
	AllowStudentRegistration bool   `gorm:"not null;default:true"                            json:"allow_student_registration"`
	AutoApproveColleges      bool   `gorm:"not null;default:false"                           json:"auto_approve_colleges"`
	AutoApproveCompanies     bool   `gorm:"not null;default:false"                           json:"auto_approve_companies"`
	MaintenanceMode          bool   `gorm:"not null;default:false"                           json:"maintenance_mode"`
	MaintenanceMessage       string `gorm:"type:varchar(500)"                                json:"maintenance_message,omitempty"`
	DataVisibility           string `gorm:"type:varchar(20);not null;default:'verified_only'" json:"data_visibility"`
	ShowStudentContact       bool   `gorm:"not null;default:false"                           json:"show_student_contact"`
	DailyDownloadLimit       int    `gorm:"not null;default:100"                             json:"daily_download_limit"`
	MonthlyDownloadLimit     int    `gorm:"not null;default:1000"                            json:"monthly_download_limit"`
	BaseModel
}

// TableName 指定表名
func (PlatformSettings) TableName() string { return "platform_settings" }

// DefaultPlatformSettings 平台设置的初始值
func DefaultPlatformSettings(dailyLimit, monthlyLimit int) *PlatformSettings {
	return &PlatformSettings{
		Singleton:                true,
		AllowCollegeRegistration: true,
		AllowCompanyRegistration: true,
		AllowStudentRegistration: true,
		DataVisibility:           VisibilityVerifiedOnly,
		DailyDownloadLimit:       dailyLimit,
		MonthlyDownloadLimit:     monthlyLimit,
	}
}
