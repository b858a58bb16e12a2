package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Heman1223/Placement-Management-System-sub002/config"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/repository"
)

// SettingsHolder 进程内的平台设置
// 服务启动前加载一次，管理员更新后重载；各 Service 通过它读取，不再临时查库
type SettingsHolder struct {
	mu      sync.RWMutex
	current model.PlatformSettings
}

// NewSettingsHolder 以初始值创建
func NewSettingsHolder(initial *model.PlatformSettings) *SettingsHolder {
	h := &SettingsHolder{}
	if initial != nil {
		h.current = *initial
	}
	return h
}

// Current 返回当前设置的副本
func (h *SettingsHolder) Current() model.PlatformSettings {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Set 替换当前设置
func (h *SettingsHolder) Set(s *model.PlatformSettings) {
	h.mu.Lock()
	h.current = *s
	h.mu.Unlock()
}

// SettingsService 平台设置业务接口
type SettingsService interface {
	// Load 确保设置行存在并载入内存，启动时调用
	Load(ctx context.Context) error
	Get(ctx context.Context) model.PlatformSettings
	Update(ctx context.Context, ac *policy.AuthorizationContext, req *dto.UpdateSettingsRequest) (*model.PlatformSettings, error)
}

type settingsService struct {
	cfg      *config.Config
	repo     *repository.Repository
	holder   *SettingsHolder
	activity ActivityService
	logger   *zap.Logger
}

// NewSettingsService 创建 SettingsService 实例
func NewSettingsService(cfg *config.Config, repo *repository.Repository, holder *SettingsHolder, activity ActivityService, logger *zap.Logger) SettingsService {
	return &settingsService{cfg: cfg, repo: repo, holder: holder, activity: activity, logger: logger}
}

// ────────────────────── Load ──────────────────────

func (s *settingsService) Load(ctx context.Context) error {
	defaults := model.DefaultPlatformSettings(s.cfg.Placement.DailyDownloadLimit, s.cfg.Placement.MonthlyDownloadLimit)
	current, err := s.repo.Settings.EnsureDefaults(ctx, defaults)
	if err != nil {
		s.logger.Error("加载平台设置失败", zap.Error(err))
		return err
	}
	s.holder.Set(current)
	s.logger.Info("平台设置已加载",
		zap.Bool("maintenance_mode", current.MaintenanceMode),
		zap.String("data_visibility", current.DataVisibility))
	return nil
}

// ────────────────────── Get ──────────────────────

func (s *settingsService) Get(_ context.Context) model.PlatformSettings {
	return s.holder.Current()
}

// ────────────────────── Update ──────────────────────

func (s *settingsService) Update(ctx context.Context, ac *policy.AuthorizationContext, req *dto.UpdateSettingsRequest) (*model.PlatformSettings, error) {
	cfg, err := s.repo.Settings.Get(ctx)
	if err != nil {
		s.logger.Error("查询平台设置失败", zap.Error(err))
		return nil, err
	}

	if req.AllowCollegeRegistration != nil {
		cfg.AllowCollegeRegistration = *req.AllowCollegeRegistration
	}
	if req.AllowCompanyRegistration != nil {
		cfg.AllowCompanyRegistration = *req.AllowCompanyRegistration
	}
	if req.AllowStudentRegistration != nil {
		cfg.AllowStudentRegistration = *req.AllowStudentRegistration
	}
	if req.AutoApproveColleges != nil {
		cfg.AutoApproveColleges = *req.AutoApproveColleges
	}
	if req.AutoApproveCompanies != nil {
		cfg.AutoApproveCompanies = *req.AutoApproveCompanies
	}
	if req.MaintenanceMode != nil {
		cfg.MaintenanceMode = *req.MaintenanceMode
	}
	if req.MaintenanceMessage != nil {
		cfg.MaintenanceMessage = *req.MaintenanceMessage
	}
	if req.DataVisibility != nil {
		cfg.DataVisibility = *req.DataVisibility
	}
	if req.ShowStudentContact != nil {
		cfg.ShowStudentContact = *req.ShowStudentContact
	}
	if req.DailyDownloadLimit != nil {
		cfg.DailyDownloadLimit = *req.DailyDownloadLimit
	}
	if req.MonthlyDownloadLimit != nil {
		cfg.MonthlyDownloadLimit = *req.MonthlyDownloadLimit
	}

	callerID := ac.Actor.UserID
	cfg.UpdatedBy = &callerID

	if err := s.repo.Settings.Update(ctx, cfg); err != nil {
		s.logger.Error("更新平台设置失败", zap.Error(err))
		return nil, err
	}

	s.holder.Set(cfg)
	s.activity.Record(ctx, callerID, ActionUpdateSettings, TargetSettings, "", nil)
	return cfg, nil
}
