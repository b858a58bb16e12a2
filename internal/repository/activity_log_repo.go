package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
)

// ActivityLogFilter 操作日志过滤条件
type ActivityLogFilter struct {
	ActorID     string
	Action      string
	TargetModel string
	TargetID    string
	From        *time.Time
	To          *time.Time
}

// ActivityLogRepository 操作日志数据访问接口（只追加）
type ActivityLogRepository interface {
	Create(ctx context.Context, log *model.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter, offset, limit int) ([]model.ActivityLog, int64, error)
}

type activityLogRepo struct {
	db *gorm.DB
}

// NewActivityLogRepo 创建 ActivityLogRepository 实例
func NewActivityLogRepo(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepo{db: db}
}

func (r *activityLogRepo) Create(ctx context.Context, log *model.ActivityLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *activityLogRepo) List(ctx context.Context, filter ActivityLogFilter, offset, limit int) ([]model.ActivityLog, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.ActivityLog{})
	if filter.ActorID != "" {
		db = db.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		db = db.Where("action = ?", filter.Action)
	}
	if filter.TargetModel != "" {
		db = db.Where("target_model = ?", filter.TargetModel)
	}
	if filter.TargetID != "" {
		db = db.Where("target_id = ?", filter.TargetID)
	}
	if filter.From != nil {
		db = db.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []model.ActivityLog
	if err := paginate(db, offset, limit).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
