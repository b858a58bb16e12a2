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
)

// ── 学院模块业务错误 ──

var (
	ErrCollegeNotFound       = errors.New("学院不存在")
	ErrAccessRequestNotFound = errors.New("访问申请不存在")
	ErrAccessAlreadyReviewed = errors.New("访问申请已处理")
	ErrDepartmentInUse       = errors.New("专业下仍有学生，不能移除")
)

// CollegeService 学院业务接口
type CollegeService interface {
	GetOwn(ctx context.Context, ac *policy.AuthorizationContext) (*model.College, error)
	UpdateOwn(ctx context.Context, ac *policy.AuthorizationContext, req *dto.UpdateCollegeRequest) (*model.College, error)
	AddDepartments(ctx context.Context, ac *policy.AuthorizationContext, req *dto.DepartmentsRequest) (*model.College, error)
	RemoveDepartments(ctx context.Context, ac *policy.AuthorizationContext, req *dto.DepartmentsRequest) (*model.College, error)

	List(ctx context.Context, ac *policy.AuthorizationContext, req *dto.CollegeListRequest) ([]model.College, int64, error)
	GetByID(ctx context.Context, ac *policy.AuthorizationContext, id string) (*model.College, error)

	ListAccessRequests(ctx context.Context, ac *policy.AuthorizationContext, req *dto.CollegeAccessListRequest) ([]model.CollegeAccess, error)
	ReviewAccess(ctx context.Context, ac *policy.AuthorizationContext, accessID string, req *dto.ReviewRequest) (*model.CollegeAccess, error)
}

type collegeService struct {
	repo     *repository.Repository
	activity ActivityService
	notifier NotificationService
	logger   *zap.Logger
}

// NewCollegeService 创建 CollegeService 实例
func NewCollegeService(repo *repository.Repository, activity ActivityService, notifier NotificationService, logger *zap.Logger) CollegeService {
	return &collegeService{repo: repo, activity: activity, notifier: notifier, logger: logger}
}

// ────────────────────── 本学院资料 ──────────────────────

func (s *collegeService) GetOwn(ctx context.Context, ac *policy.AuthorizationContext) (*model.College, error) {
	return s.load(ctx, ac.Actor.CollegeID, false)
}

func (s *collegeService) UpdateOwn(ctx context.Context, ac *policy.AuthorizationContext, req *dto.UpdateCollegeRequest) (*model.College, error) {
	college, err := s.load(ctx, ac.Actor.CollegeID, false)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		college.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		college.Email = *req.Email
	}
	if req.Phone != nil {
		college.Phone = *req.Phone
	}
	if req.Address != nil {
		college.Address = *req.Address
	}
	if req.City != nil {
		college.City = *req.City
	}
	if req.State != nil {
		college.State = *req.State
	}
	if req.Website != nil {
		college.Website = *req.Website
	}
	if req.LogoURL != nil {
		college.LogoURL = *req.LogoURL
	}
	college.UpdatedBy = &ac.Actor.UserID

	if err := s.repo.College.Update(ctx, college); err != nil {
		s.logger.Error("更新学院失败", zap.String("id", college.CollegeID), zap.Error(err))
		return nil, err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionUpdateCollege, TargetCollege, college.CollegeID, nil)
	return college, nil
}

// ── 专业 ──

func (s *collegeService) AddDepartments(ctx context.Context, ac *policy.AuthorizationContext, req *dto.DepartmentsRequest) (*model.College, error) {
	college, err := s.load(ctx, ac.Actor.CollegeID, false)
	if err != nil {
		return nil, err
	}

	college.Departments = dedupe(append([]string(college.Departments), req.Departments...))
	college.UpdatedBy = &ac.Actor.UserID
	if err := s.repo.College.Update(ctx, college); err != nil {
		s.logger.Error("新增专业失败", zap.String("id", college.CollegeID), zap.Error(err))
		return nil, err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionUpdateCollege, TargetCollege, college.CollegeID,
		map[string]interface{}{"added_departments": req.Departments})
	return college, nil
}

// RemoveDepartments 移除专业；仍有在籍学生的专业不能移除
func (s *collegeService) RemoveDepartments(ctx context.Context, ac *policy.AuthorizationContext, req *dto.DepartmentsRequest) (*model.College, error) {
	college, err := s.load(ctx, ac.Actor.CollegeID, false)
	if err != nil {
		return nil, err
	}

	remove := make(map[string]bool, len(req.Departments))
	for _, d := range req.Departments {
		remove[strings.TrimSpace(d)] = true
	}

	_, inUse, err := s.repo.Student.List(ctx, policy.Scope{CollegeID: college.CollegeID},
		repository.StudentFilter{DepartmentIn: req.Departments}, 0, 1)
	if err != nil {
		s.logger.Error("查询专业学生失败", zap.String("id", college.CollegeID), zap.Error(err))
		return nil, err
	}
	if inUse > 0 {
		return nil, ErrDepartmentInUse
	}

	kept := make([]string, 0, len(college.Departments))
	for _, d := range college.Departments {
		if !remove[d] {
			kept = append(kept, d)
		}
	}
	college.Departments = kept
	college.UpdatedBy = &ac.Actor.UserID
	if err := s.repo.College.Update(ctx, college); err != nil {
		s.logger.Error("移除专业失败", zap.String("id", college.CollegeID), zap.Error(err))
		return nil, err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionUpdateCollege, TargetCollege, college.CollegeID,
		map[string]interface{}{"removed_departments": req.Departments})
	return college, nil
}

// ────────────────────── 学院目录 ──────────────────────

// List 超级管理员看到全部学院；其他角色只看到已认证且启用的学院
func (s *collegeService) List(ctx context.Context, ac *policy.AuthorizationContext, req *dto.CollegeListRequest) ([]model.College, int64, error) {
	filter := repository.CollegeFilter{
		Keyword:        req.Keyword,
		Status:         req.Status,
		IncludeDeleted: ac.Scope.IncludeDeleted,
	}
	if !ac.Scope.Unrestricted {
		filter.Status = "verified"
		filter.ActiveOnly = true
	}

	list, total, err := s.repo.College.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询学院列表失败", zap.Error(err))
		return nil, 0, err
	}
	return list, total, nil
}

func (s *collegeService) GetByID(ctx context.Context, ac *policy.AuthorizationContext, id string) (*model.College, error) {
	college, err := s.load(ctx, id, ac.Scope.IncludeDeleted)
	if err != nil {
		return nil, err
	}
	if ac.Scope.Unrestricted || college.CollegeID == ac.Actor.CollegeID {
		if err := ac.Visible(college); err != nil {
			return nil, err
		}
		return college, nil
	}
	if !college.IsVerified || !college.IsActive {
		return nil, policy.ErrNotFound
	}
	if err := ac.Visible(college); err != nil {
		return nil, err
	}
	return college, nil
}

// ────────────────────── 访问申请 ──────────────────────

func (s *collegeService) ListAccessRequests(ctx context.Context, ac *policy.AuthorizationContext, req *dto.CollegeAccessListRequest) ([]model.CollegeAccess, error) {
	list, err := s.repo.CollegeAccess.ListByCollege(ctx, ac.Actor.CollegeID, req.Status)
	if err != nil {
		s.logger.Error("查询访问申请失败", zap.String("college_id", ac.Actor.CollegeID), zap.Error(err))
		return nil, err
	}
	return list, nil
}

// ReviewAccess 学院批准或拒绝企业的访问申请，结果通知企业
func (s *collegeService) ReviewAccess(ctx context.Context, ac *policy.AuthorizationContext, accessID string, req *dto.ReviewRequest) (*model.CollegeAccess, error) {
	access, err := s.repo.CollegeAccess.GetByID(ctx, accessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccessRequestNotFound
		}
		s.logger.Error("查询访问申请失败", zap.String("id", accessID), zap.Error(err))
		return nil, err
	}
	// 其他学院的申请按不存在处理
	if access.CollegeID != ac.Actor.CollegeID {
		return nil, ErrAccessRequestNotFound
	}
	if access.Status != model.AccessStatusPending {
		return nil, ErrAccessAlreadyReviewed
	}

	now := time.Now()
	access.Status = model.AccessStatusRejected
	if req.Approve {
		access.Status = model.AccessStatusApproved
	}
	access.ReviewedAt = &now
	access.ReviewedBy = &ac.Actor.UserID

	if err := s.repo.CollegeAccess.Update(ctx, access); err != nil {
		s.logger.Error("更新访问申请失败", zap.String("id", accessID), zap.Error(err))
		return nil, err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionReviewAccess, TargetAccess, access.AccessID,
		map[string]interface{}{"status": access.Status, "company_id": access.CompanyID})

	if company, err := s.repo.Company.GetByID(ctx, access.CompanyID, false); err == nil {
		s.notifier.Notify(ctx, Notice{
			UserID:      company.OwnerUserID,
			Type:        model.NotificationAccessReviewed,
			Title:       "学院访问申请已处理",
			Content:     "您的学院访问申请状态: " + access.Status,
			Payload:     map[string]interface{}{"college_id": access.CollegeID, "status": access.Status, "reason": req.Reason},
			RelatedType: TargetAccess,
			RelatedID:   access.AccessID,
		})
	}
	return access, nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *collegeService) load(ctx context.Context, id string, includeDeleted bool) (*model.College, error) {
	if id == "" {
		return nil, ErrCollegeNotFound
	}
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
