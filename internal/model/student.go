package model

import (
	"time"

	"github.com/lib/pq"
)

// 就业状态
const (
	PlacementNotPlaced     = "not_placed"
	PlacementInProcess     = "in_process"
	PlacementPlaced        = "placed"
	PlacementNotInterested = "not_interested"
	PlacementHigherStudies = "higher_studies"
)

// Student 学生表 — 对应 students
// (college_id, roll_number) 唯一；email 全局唯一。
// PlacementStatus 只能由投递状态机或管理员显式覆盖修改。
type Student struct {
	StudentID       string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	CollegeID       string           `gorm:"type:uuid;not null"                             json:"college_id"`
	UserID          *string          `gorm:"type:uuid"                                      json:"user_id,omitempty"`
	Name            string           `gorm:"type:varchar(100);not null"                     json:"name"`
	Email           string           `gorm:"type:varchar(255);not null"                     json:"email"`
	Phone           string           `gorm:"type:varchar(20)"                               json:"phone,omitempty"`
	RollNumber      string           `gorm:"type:varchar(50);not null"                      json:"roll_number"`
	Department      string           `gorm:"type:varchar(100);not null"                     json:"department"`
	Batch           int              `gorm:"not null"                                       json:"batch"`
	CGPA            float64          `gorm:"column:cgpa;type:numeric(4,2);not null;default:0" json:"cgpa"`
	Backlogs        Backlogs         `gorm:"embedded;embeddedPrefix:backlogs_"              json:"backlogs"`
	Skills          pq.StringArray   `gorm:"type:text[];not null;default:'{}'"              json:"skills"`
	ResumeURL       string           `gorm:"type:varchar(500)"                              json:"resume_url,omitempty"`
	PlacementStatus string           `gorm:"type:varchar(20);not null;default:'not_placed'" json:"placement_status"`
	Placement       PlacementDetails `gorm:"embedded;embeddedPrefix:placement_"             json:"placement_details"`
	IsVerified      bool             `gorm:"not null;default:false"                         json:"is_verified"`
	IsRejected      bool             `gorm:"not null;default:false"                         json:"is_rejected"`
	RejectionReason string           `gorm:"type:text"                                      json:"rejection_reason,omitempty"`
	VerifiedAt      *time.Time       `                                                      json:"verified_at,omitempty"`
	VerifiedBy      *string          `gorm:"type:uuid"                                      json:"verified_by,omitempty"`
	IsStarStudent   bool             `gorm:"not null;default:false"                         json:"is_star_student"`
	Lifecycle
	BaseModel

	// 关联
	College *College `gorm:"foreignKey:CollegeID;references:CollegeID" json:"college,omitempty"`
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// Backlogs 挂科记录
type Backlogs struct {
	Active int `gorm:"not null;default:0" json:"active"`
	Total  int `gorm:"not null;default:0" json:"total"`
}

// PlacementDetails 录用详情，由 hired 状态迁移时从 Offer 回填
type PlacementDetails struct {
	CompanyID   *string    `gorm:"type:uuid"          json:"company_id,omitempty"`
	CompanyName string     `gorm:"type:varchar(200)"  json:"company_name,omitempty"`
	Role        string     `gorm:"type:varchar(200)"  json:"role,omitempty"`
	Package     float64    `gorm:"type:numeric(12,2)" json:"package,omitempty"`
	PlacedAt    *time.Time `                          json:"placed_at,omitempty"`
}

// [自证通过] internal/model/student.go
