package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/repository"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/stats"
)

// ── 平台治理业务错误 ──

var (
	ErrCannotDeactivateSelf = errors.New("不能停用当前登录账号")
	ErrNotDeleted           = errors.New("记录未被删除")
)

// AdminService 超级管理员治理接口
type AdminService interface {
	ReviewCollege(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.ReviewRequest) (*model.College, error)
	ReviewCompany(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.ReviewRequest) (*model.Company, error)

	SetUserActive(ctx context.Context, ac *policy.AuthorizationContext, userID string, active bool) error
	SetCollegeActive(ctx context.Context, ac *policy.AuthorizationContext, id string, active bool) error
	SetCompanyActive(ctx context.Context, ac *policy.AuthorizationContext, id string, active bool) error
	SuspendCompany(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.SuspendRequest) (*model.Company, error)
	SetDownloadLimits(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.DownloadLimitRequest) (*model.Company, error)

	DeleteCollege(ctx context.Context, ac *policy.AuthorizationContext, id string) error
	RestoreCollege(ctx context.Context, ac *policy.AuthorizationContext, id string) error
	DeleteCompany(ctx context.Context, ac *policy.AuthorizationContext, id string) error
	RestoreCompany(ctx context.Context, ac *policy.AuthorizationContext, id string) error

	Dashboard(ctx context.Context) (*dto.DashboardResponse, error)
	ListActivity(ctx context.Context, req *dto.ActivityLogListRequest) ([]model.ActivityLog, int64, error)
	// Reconcile 从源数据重算冗余计数，actorID 为空表示定时任务触发
	Reconcile(ctx context.Context, actorID string) (*dto.ReconcileResponse, error)
}

type adminService struct {
	repo     *repository.Repository
	activity ActivityService
	notifier NotificationService
	logger   *zap.Logger
}

// NewAdminService 创建 AdminService 实例
func NewAdminService(repo *repository.Repository, activity ActivityService, notifier NotificationService, logger *zap.Logger) AdminService {
	return &adminService{repo: repo, activity: activity, notifier: notifier, logger: logger}
}

// ────────────────────── 审核 ──────────────────────

// ReviewCollege 通过与拒绝互斥；结果同步到学院管理员账号的 is_approved
func (s *adminService) ReviewCollege(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.ReviewRequest) (*model.College, error) {
	college, err := s.loadCollege(ctx, id, false)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if req.Approve {
		college.IsVerified = true
		college.IsRejected = false
		college.RejectionReason = ""
		college.VerifiedAt = &now
		college.VerifiedBy = &ac.Actor.UserID
	} else {
		college.IsVerified = false
		college.IsRejected = true
		college.RejectionReason = req.Reason
		college.VerifiedAt = nil
		college.VerifiedBy = nil
	}
	college.UpdatedBy = &ac.Actor.UserID

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.College.Update(ctx, college); err != nil {
			return err
		}
		return tx.User.UpdateFields(ctx, college.AdminUserID, map[string]interface{}{"is_approved": req.Approve})
	})
	if err != nil {
		s.logger.Error("审核学院失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionReviewCollege, TargetCollege, college.CollegeID,
		map[string]interface{}{"approve": req.Approve, "reason": req.Reason})
	s.notifyReview(ctx, college.AdminUserID, req, TargetCollege, college.CollegeID)
	return college, nil
}

func (s *adminService) ReviewCompany(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.ReviewRequest) (*model.Company, error) {
	company, err := s.loadCompany(ctx, id, false)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if req.Approve {
		company.IsApproved = true
		company.IsRejected = false
		company.RejectionReason = ""
		company.ApprovedAt = &now
		company.ApprovedBy = &ac.Actor.UserID
	} else {
		company.IsApproved = false
		company.IsRejected = true
		company.RejectionReason = req.Reason
		company.ApprovedAt = nil
		company.ApprovedBy = nil
	}
	company.UpdatedBy = &ac.Actor.UserID

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Company.Update(ctx, company); err != nil {
			return err
		}
		return tx.User.UpdateFields(ctx, company.OwnerUserID, map[string]interface{}{"is_approved": req.Approve})
	})
	if err != nil {
		s.logger.Error("审核企业失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionReviewCompany, TargetCompany, company.CompanyID,
		map[string]interface{}{"approve": req.Approve, "reason": req.Reason})
	s.notifyReview(ctx, company.OwnerUserID, req, TargetCompany, company.CompanyID)
	return company, nil
}

// ────────────────────── 启用 / 停用 ──────────────────────

func (s *adminService) SetUserActive(ctx context.Context, ac *policy.AuthorizationContext, userID string, active bool) error {
	if !active && userID == ac.Actor.UserID {
		return ErrCannotDeactivateSelf
	}
	if _, err := s.repo.User.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", userID), zap.Error(err))
		return err
	}
	if err := s.repo.User.UpdateFields(ctx, userID, map[string]interface{}{"is_active": active}); err != nil {
		s.logger.Error("更新用户状态失败", zap.String("id", userID), zap.Error(err))
		return err
	}
	s.activity.Record(ctx, ac.Actor.UserID, ActionSetUserActive, TargetUser, userID,
		map[string]interface{}{"active": active})
	return nil
}

// SetCollegeActive 学院与其管理员账号同步启停
func (s *adminService) SetCollegeActive(ctx context.Context, ac *policy.AuthorizationContext, id string, active bool) error {
	college, err := s.loadCollege(ctx, id, false)
	if err != nil {
		return err
	}
	college.IsActive = active
	college.UpdatedBy = &ac.Actor.UserID

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.College.Update(ctx, college); err != nil {
			return err
		}
		return tx.User.UpdateFields(ctx, college.AdminUserID, map[string]interface{}{"is_active": active})
	})
	if err != nil {
		s.logger.Error("更新学院状态失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.activity.Record(ctx, ac.Actor.UserID, ActionSetCollegeActive, TargetCollege, id,
		map[string]interface{}{"active": active})
	return nil
}

func (s *adminService) SetCompanyActive(ctx context.Context, ac *policy.AuthorizationContext, id string, active bool) error {
	company, err := s.loadCompany(ctx, id, false)
	if err != nil {
		return err
	}
	company.IsActive = active
	company.UpdatedBy = &ac.Actor.UserID

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Company.Update(ctx, company); err != nil {
			return err
		}
		return tx.User.UpdateFields(ctx, company.OwnerUserID, map[string]interface{}{"is_active": active})
	})
	if err != nil {
		s.logger.Error("更新企业状态失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.activity.Record(ctx, ac.Actor.UserID, ActionSetCompanyActive, TargetCompany, id,
		map[string]interface{}{"active": active})
	return nil
}

// SuspendCompany 暂停后企业在目录中不可见，账号本身不受影响
func (s *adminService) SuspendCompany(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.SuspendRequest) (*model.Company, error) {
	company, err := s.loadCompany(ctx, id, false)
	if err != nil {
		return nil, err
	}
	company.IsSuspended = req.Suspend
	company.SuspensionReason = ""
	if req.Suspend {
		company.SuspensionReason = req.Reason
	}
	company.UpdatedBy = &ac.Actor.UserID

	if err := s.repo.Company.Update(ctx, company); err != nil {
		s.logger.Error("暂停企业失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	s.activity.Record(ctx, ac.Actor.UserID, ActionSuspendCompany, TargetCompany, id,
		map[string]interface{}{"suspend": req.Suspend, "reason": req.Reason})
	return company, nil
}

func (s *adminService) SetDownloadLimits(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.DownloadLimitRequest) (*model.Company, error) {
	company, err := s.loadCompany(ctx, id, false)
	if err != nil {
		return nil, err
	}
	company.Downloads.DailyLimit = req.DailyLimit
	company.Downloads.MonthlyLimit = req.MonthlyLimit
	company.UpdatedBy = &ac.Actor.UserID

	if err := s.repo.Company.Update(ctx, company); err != nil {
		s.logger.Error("更新下载限额失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	s.activity.Record(ctx, ac.Actor.UserID, ActionSetDownloadLimit, TargetCompany, id,
		map[string]interface{}{"daily_limit": req.DailyLimit, "monthly_limit": req.MonthlyLimit})
	return company, nil
}

// ────────────────────── 软删除 / 恢复 ──────────────────────

// DeleteCollege 软删除学院并停用其管理员账号
func (s *adminService) DeleteCollege(ctx context.Context, ac *policy.AuthorizationContext, id string) error {
	college, err := s.loadCollege(ctx, id, false)
	if err != nil {
		return err
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.College.SoftDelete(ctx, id, ac.Actor.UserID); err != nil {
			return err
		}
		return tx.User.UpdateFields(ctx, college.AdminUserID, map[string]interface{}{"is_active": false})
	})
	if err != nil {
		s.logger.Error("删除学院失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.activity.Record(ctx, ac.Actor.UserID, ActionDeleteCollege, TargetCollege, id, nil)
	return nil
}

func (s *adminService) RestoreCollege(ctx context.Context, ac *policy.AuthorizationContext, id string) error {
	college, err := s.loadCollege(ctx, id, true)
	if err != nil {
		return err
	}
	if !college.IsDeleted() {
		return ErrNotDeleted
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.College.Restore(ctx, id); err != nil {
			return err
		}
		return tx.User.UpdateFields(ctx, college.AdminUserID, map[string]interface{}{"is_active": true})
	})
	if err != nil {
		s.logger.Error("恢复学院失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.activity.Record(ctx, ac.Actor.UserID, ActionRestoreCollege, TargetCollege, id, nil)
	return nil
}

func (s *adminService) DeleteCompany(ctx context.Context, ac *policy.AuthorizationContext, id string) error {
	company, err := s.loadCompany(ctx, id, false)
	if err != nil {
		return err
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Company.SoftDelete(ctx, id, ac.Actor.UserID); err != nil {
			return err
		}
		return tx.User.UpdateFields(ctx, company.OwnerUserID, map[string]interface{}{"is_active": false})
	})
	if err != nil {
		s.logger.Error("删除企业失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.activity.Record(ctx, ac.Actor.UserID, ActionDeleteCompany, TargetCompany, id, nil)
	return nil
}

func (s *adminService) RestoreCompany(ctx context.Context, ac *policy.AuthorizationContext, id string) error {
	company, err := s.loadCompany(ctx, id, true)
	if err != nil {
		return err
	}
	if !company.IsDeleted() {
		return ErrNotDeleted
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Company.Restore(ctx, id); err != nil {
			return err
		}
		return tx.User.UpdateFields(ctx, company.OwnerUserID, map[string]interface{}{"is_active": true})
	})
	if err != nil {
		s.logger.Error("恢复企业失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.activity.Record(ctx, ac.Actor.UserID, ActionRestoreCompany, TargetCompany, id, nil)
	return nil
}

// ────────────────────── 概览 / 日志 / 对账 ──────────────────────

func (s *adminService) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	resp := &dto.DashboardResponse{}
	var err error
	if resp.Users, err = s.repo.User.CountByRole(ctx); err != nil {
		s.logger.Error("统计用户失败", zap.Error(err))
		return nil, err
	}
	if resp.Colleges, err = s.repo.College.CountByStatus(ctx); err != nil {
		s.logger.Error("统计学院失败", zap.Error(err))
		return nil, err
	}
	if resp.Companies, err = s.repo.Company.CountByStatus(ctx); err != nil {
		s.logger.Error("统计企业失败", zap.Error(err))
		return nil, err
	}
	if resp.Jobs, err = s.repo.Job.CountByStatus(ctx); err != nil {
		s.logger.Error("统计职位失败", zap.Error(err))
		return nil, err
	}
	if resp.Applications, err = s.repo.Application.CountByStatus(ctx); err != nil {
		s.logger.Error("统计投递失败", zap.Error(err))
		return nil, err
	}
	return resp, nil
}

func (s *adminService) ListActivity(ctx context.Context, req *dto.ActivityLogListRequest) ([]model.ActivityLog, int64, error) {
	return s.activity.List(ctx, req)
}

func (s *adminService) Reconcile(ctx context.Context, actorID string) (*dto.ReconcileResponse, error) {
	resp := &dto.ReconcileResponse{}
	steps := []struct {
		table string
		run   func(context.Context) (int64, error)
		out   *int64
	}{
		{stats.TableJobs, s.repo.Stats.ReconcileJobs, &resp.Jobs},
		{stats.TableCompanies, s.repo.Stats.ReconcileCompanies, &resp.Companies},
		{stats.TableColleges, s.repo.Stats.ReconcileColleges, &resp.Colleges},
	}
	for _, step := range steps {
		n, err := step.run(ctx)
		if err != nil {
			s.logger.Error("计数对账失败", zap.String("table", step.table), zap.Error(err))
			return nil, err
		}
		*step.out = n
		if n > 0 {
			statsDriftCorrected.WithLabelValues(step.table).Add(float64(n))
			s.logger.Warn("计数对账纠正偏差", zap.String("table", step.table), zap.Int64("rows", n))
		}
	}

	if actorID != "" {
		s.activity.Record(ctx, actorID, ActionReconcileStats, "", "",
			map[string]interface{}{"jobs": resp.Jobs, "companies": resp.Companies, "colleges": resp.Colleges})
	}
	return resp, nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *adminService) notifyReview(ctx context.Context, userID string, req *dto.ReviewRequest, relatedType, relatedID string) {
	n := Notice{
		UserID:      userID,
		Type:        model.NotificationAccountApproved,
		Title:       "您的账号已通过审核",
		RelatedType: relatedType,
		RelatedID:   relatedID,
	}
	if !req.Approve {
		n.Type = model.NotificationAccountRejected
		n.Title = "您的账号未通过审核"
		n.Content = req.Reason
	}
	s.notifier.Notify(ctx, n)
}

func (s *adminService) loadCollege(ctx context.Context, id string, includeDeleted bool) (*model.College, error) {
	college, err := s.repo.College.GetByID(ctx, id, includeDeleted)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCollegeNotFound
		}
		s.logger.Error("查询学院失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return college, nil
}

func (s *adminService) loadCompany(ctx context.Context, id string, includeDeleted bool) (*model.Company, error) {
	company, err := s.repo.Company.GetByID(ctx, id, includeDeleted)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		s.logger.Error("查询企业失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return company, nil
}
