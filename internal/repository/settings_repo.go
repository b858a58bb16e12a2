package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
)

// SettingsRepository 平台设置数据访问接口（单行表）
type SettingsRepository interface {
	Get(ctx context.Context) (*model.PlatformSettings, error)
	// EnsureDefaults 行不存在时写入默认值，已存在则保持不变；返回当前生效的设置
	EnsureDefaults(ctx context.Context, defaults *model.PlatformSettings) (*model.PlatformSettings, error)
	Update(ctx context.Context, s *model.PlatformSettings) error
}

type settingsRepo struct {
	db *gorm.DB
}

// NewSettingsRepo 创建 SettingsRepository 实例
func NewSettingsRepo(db *gorm.DB) SettingsRepository {
	return &settingsRepo{db: db}
}

func (r *settingsRepo) Get(ctx context.Context) (*model.PlatformSettings, error) {
	var s model.PlatformSettings
	err := r.db.WithContext(ctx).Where("singleton = ?", true).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepo) EnsureDefaults(ctx context.Context, defaults *model.PlatformSettings) (*model.PlatformSettings, error) {
	defaults.Singleton = true
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(defaults).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx)
}

func (r *settingsRepo) Update(ctx context.Context, s *model.PlatformSettings) error {
	s.Singleton = true
	return r.db.WithContext(ctx).Save(s).Error
}
