package model

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog 操作日志 — 对应 activity_logs
type ActivityLog struct {
	LogID       string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"log_id"`
	ActorID     string         `gorm:"type:uuid;not null;index"                       json:"actor_id"`
	Action      string         `gorm:"type:varchar(50);not null;index"                json:"action"`
	TargetModel *string        `gorm:"type:varchar(30)"                               json:"target_model,omitempty"`
	TargetID    *string        `gorm:"type:uuid"                                      json:"target_id,omitempty"`
	Metadata    datatypes.JSON `gorm:"type:jsonb"                                     json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index"       json:"created_at"`
}

// TableName 指定表名
func (ActivityLog) TableName() string { return "activity_logs" }
