package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/dto"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/eligibility"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/repository"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/stats"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/workflow"
	pkgerrors "github.com/Heman1223/Placement-Management-System-sub002/pkg/errors"
)

// ── 职位模块业务错误 ──

var (
	ErrJobNotFound          = errors.New("职位不存在")
	ErrJobNotDeleted        = errors.New("职位未被删除")
	ErrDriveCollegeRequired = errors.New("校园专场必须指定学院")
	ErrNoCollegeAccess      = errors.New("尚未获得该学院的访问授权")
	ErrDeadlineInPast       = errors.New("投递截止时间必须晚于当前时间")
	ErrCompanyRequired      = errors.New("只有企业账号可以发布职位")
)

// closeExpiredBatch 每轮关闭的过期职位数量上限
const closeExpiredBatch = 100

// JobService 职位业务接口
type JobService interface {
	Create(ctx context.Context, ac *policy.AuthorizationContext, req *dto.CreateJobRequest) (*model.Job, error)
	Update(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.UpdateJobRequest) (*model.Job, error)
	ChangeStatus(ctx context.Context, ac *policy.AuthorizationContext, id string, to string) (*model.Job, error)
	Delete(ctx context.Context, ac *policy.AuthorizationContext, id string) error
	Restore(ctx context.Context, ac *policy.AuthorizationContext, id string) (*model.Job, error)

	List(ctx context.Context, ac *policy.AuthorizationContext, req *dto.JobListRequest) ([]model.Job, int64, error)
	GetByID(ctx context.Context, ac *policy.AuthorizationContext, id string) (*model.Job, error)
	ListEligible(ctx context.Context, ac *policy.AuthorizationContext, req *dto.PaginationRequest) ([]dto.EligibleJobResponse, int64, error)

	// CloseExpired 定时任务：关闭已过截止时间仍处于 open 的职位，返回关闭数量
	CloseExpired(ctx context.Context, now time.Time) (int, error)
}

type jobService struct {
	repo      *repository.Repository
	projector *stats.Projector
	activity  ActivityService
	logger    *zap.Logger
}

// NewJobService 创建 JobService 实例
func NewJobService(repo *repository.Repository, projector *stats.Projector, activity ActivityService, logger *zap.Logger) JobService {
	return &jobService{repo: repo, projector: projector, activity: activity, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *jobService) Create(ctx context.Context, ac *policy.AuthorizationContext, req *dto.CreateJobRequest) (*model.Job, error) {
	if ac.Actor.Role != model.RoleCompany || ac.Actor.CompanyID == "" {
		return nil, ErrCompanyRequired
	}

	now := time.Now()
	if !req.ApplicationDeadline.After(now) {
		return nil, ErrDeadlineInPast
	}

	callerID := ac.Actor.UserID
	job := &model.Job{
		CompanyID:           ac.Actor.CompanyID,
		IsPlacementDrive:    req.IsPlacementDrive,
		Title:               strings.TrimSpace(req.Title),
		Description:         req.Description,
		Type:                req.Type,
		Location:            req.Location,
		Package:             req.Package,
		Openings:            req.Openings,
		SkillsRequired:      dedupe(req.SkillsRequired),
		ApplicationDeadline: req.ApplicationDeadline,
		Status:              req.Status,
		Eligibility:         toEligibility(&req.Eligibility),
		Version:             1,
	}
	if job.Status == "" {
		job.Status = model.JobStatusDraft
	}
	if job.Openings <= 0 {
		job.Openings = 1
	}
	job.IsActive = true
	job.CreatedBy = &callerID

	if req.IsPlacementDrive {
		if req.CollegeID == "" {
			return nil, ErrDriveCollegeRequired
		}
		if err := s.checkCollegeAccess(ctx, ac.Actor.CompanyID, req.CollegeID); err != nil {
			return nil, err
		}
		collegeID := req.CollegeID
		job.CollegeID = &collegeID
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Job.Create(ctx, job); err != nil {
			return err
		}
		events, err := workflow.PostJob(job, now)
		if err != nil {
			return err
		}
		return s.projector.Apply(ctx, tx.Stats, events...)
	})
	if err != nil {
		if isJobRuleError(err) {
			return nil, err
		}
		s.logger.Error("创建职位失败", zap.String("company_id", job.CompanyID), zap.Error(err))
		return nil, err
	}

	s.activity.Record(ctx, callerID, ActionCreateJob, TargetJob, job.JobID,
		map[string]interface{}{"status": job.Status, "is_placement_drive": job.IsPlacementDrive})
	return job, nil
}

// ────────────────────── Update ──────────────────────

func (s *jobService) Update(ctx context.Context, ac *policy.AuthorizationContext, id string, req *dto.UpdateJobRequest) (*model.Job, error) {
	job, err := s.loadMutable(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	if job.Status == model.JobStatusCancelled {
		return nil, workflow.ErrJobCancelled
	}

	if req.Title != nil {
		job.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		job.Description = *req.Description
	}
	if req.Type != nil {
		job.Type = *req.Type
	}
	if req.Location != nil {
		job.Location = *req.Location
	}
	if req.Package != nil {
		job.Package = *req.Package
	}
	if req.Openings != nil {
		job.Openings = *req.Openings
	}
	if req.SkillsRequired != nil {
		job.SkillsRequired = dedupe(req.SkillsRequired)
	}
	if req.ApplicationDeadline != nil {
		if !req.ApplicationDeadline.After(time.Now()) {
			return nil, ErrDeadlineInPast
		}
		job.ApplicationDeadline = *req.ApplicationDeadline
	}
	if req.Eligibility != nil {
		job.Eligibility = toEligibility(req.Eligibility)
	}
	job.UpdatedBy = &ac.Actor.UserID

	if err := s.repo.Job.Update(ctx, job); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新职位失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionUpdateJob, TargetJob, id, nil)
	return job, nil
}

// ────────────────────── 状态 ──────────────────────

// ChangeStatus 修改职位状态；open 的进入与离开在同一事务内维护企业在招职位数
func (s *jobService) ChangeStatus(ctx context.Context, ac *policy.AuthorizationContext, id string, to string) (*model.Job, error) {
	job, err := s.loadMutable(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	from := job.Status
	if from == to {
		return job, nil
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		events, err := workflow.ChangeJobStatus(job, to, time.Now())
		if err != nil {
			return err
		}
		job.UpdatedBy = &ac.Actor.UserID
		if err := tx.Job.Update(ctx, job); err != nil {
			return err
		}
		return s.projector.Apply(ctx, tx.Stats, events...)
	})
	if err != nil {
		job.Status = from
		if !isJobRuleError(err) && !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("修改职位状态失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionChangeJobStatus, TargetJob, id,
		map[string]interface{}{"from": from, "to": to})
	return job, nil
}

// ────────────────────── 删除与恢复 ──────────────────────

// Delete 软删除职位，状态强制为 cancelled
func (s *jobService) Delete(ctx context.Context, ac *policy.AuthorizationContext, id string) error {
	job, err := s.loadMutable(ctx, ac, id)
	if err != nil {
		return err
	}
	if job.IsDeleted() {
		return policy.ErrNotFound
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		events := workflow.CancelJob(job, time.Now())
		if err := tx.Job.SoftDelete(ctx, job, ac.Actor.UserID); err != nil {
			return err
		}
		return s.projector.Apply(ctx, tx.Stats, events...)
	})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("删除职位失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionDeleteJob, TargetJob, id, nil)
	return nil
}

// Restore 恢复软删除的职位；恢复后仍为 cancelled，不再计入在招职位
func (s *jobService) Restore(ctx context.Context, ac *policy.AuthorizationContext, id string) (*model.Job, error) {
	job, err := s.loadVisible(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	if !job.IsDeleted() {
		return nil, ErrJobNotDeleted
	}

	if err := s.repo.Job.Restore(ctx, id); err != nil {
		s.logger.Error("恢复职位失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.activity.Record(ctx, ac.Actor.UserID, ActionRestoreJob, TargetJob, id, nil)
	return s.load(ctx, id, false)
}

// ────────────────────── 查询 ──────────────────────

func (s *jobService) List(ctx context.Context, ac *policy.AuthorizationContext, req *dto.JobListRequest) ([]model.Job, int64, error) {
	filter := repository.JobFilter{
		Keyword:   req.Keyword,
		CompanyID: req.CompanyID,
		Status:    req.Status,
		Type:      req.Type,
		DriveOnly: req.DriveOnly,
	}
	list, total, err := s.repo.Job.List(ctx, ac.Scope, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询职位列表失败", zap.String("actor", ac.Actor.UserID), zap.Error(err))
		return nil, 0, err
	}
	return list, total, nil
}

func (s *jobService) GetByID(ctx context.Context, ac *policy.AuthorizationContext, id string) (*model.Job, error) {
	return s.loadVisible(ctx, ac, id)
}

// ListEligible 学生可投递的职位：与投递时的资格校验使用同一组规则，已投递的职位标注 has_applied
func (s *jobService) ListEligible(ctx context.Context, ac *policy.AuthorizationContext, req *dto.PaginationRequest) ([]dto.EligibleJobResponse, int64, error) {
	if ac.Actor.StudentID == "" {
		return nil, 0, ErrStudentHasNoRecord
	}
	student, err := s.repo.Student.GetByID(ctx, ac.Actor.StudentID, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("id", ac.Actor.StudentID), zap.Error(err))
		return nil, 0, err
	}

	filter := eligibility.ListingFilter(student, time.Now())
	jobs, total, err := s.repo.Job.ListEligible(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询可投递职位失败", zap.String("student_id", student.StudentID), zap.Error(err))
		return nil, 0, err
	}

	ids := make([]string, len(jobs))
	for i := range jobs {
		ids[i] = jobs[i].JobID
	}
	applied, err := s.repo.Application.AppliedJobIDs(ctx, student.StudentID, ids)
	if err != nil {
		s.logger.Error("查询已投递职位失败", zap.String("student_id", student.StudentID), zap.Error(err))
		return nil, 0, err
	}

	out := make([]dto.EligibleJobResponse, len(jobs))
	for i := range jobs {
		out[i] = dto.EligibleJobResponse{Job: jobs[i], HasApplied: applied[jobs[i].JobID]}
	}
	return out, total, nil
}

// ────────────────────── CloseExpired ──────────────────────

func (s *jobService) CloseExpired(ctx context.Context, now time.Time) (int, error) {
	jobs, err := s.repo.Job.ListExpiredOpen(ctx, now, closeExpiredBatch)
	if err != nil {
		s.logger.Error("查询过期职位失败", zap.Error(err))
		return 0, err
	}

	closed := 0
	for i := range jobs {
		job := &jobs[i]
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			events, err := workflow.ChangeJobStatus(job, model.JobStatusClosed, now)
			if err != nil {
				return err
			}
			if err := tx.Job.Update(ctx, job); err != nil {
				return err
			}
			return s.projector.Apply(ctx, tx.Stats, events...)
		})
		if err != nil {
			// 并发修改过的职位留给下一轮
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				continue
			}
			s.logger.Error("关闭过期职位失败", zap.String("id", job.JobID), zap.Error(err))
			return closed, err
		}
		closed++
	}
	if closed > 0 {
		s.logger.Info("已关闭过期职位", zap.Int("count", closed))
	}
	return closed, nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *jobService) load(ctx context.Context, id string, includeDeleted bool) (*model.Job, error) {
	job, err := s.repo.Job.GetByID(ctx, id, includeDeleted)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		s.logger.Error("查询职位失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return job, nil
}

func (s *jobService) loadVisible(ctx context.Context, ac *policy.AuthorizationContext, id string) (*model.Job, error) {
	job, err := s.load(ctx, id, ac.Scope.IncludeDeleted)
	if err != nil {
		return nil, err
	}
	if err := ac.Visible(job); err != nil {
		return nil, err
	}
	return job, nil
}

// loadMutable 写操作：先确认可见，再确认是职位所属企业
func (s *jobService) loadMutable(ctx context.Context, ac *policy.AuthorizationContext, id string) (*model.Job, error) {
	job, err := s.loadVisible(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	if err := ac.CanMutateJob(job); err != nil {
		return nil, err
	}
	return job, nil
}

// checkCollegeAccess 发布校园专场需持有目标学院的已批准访问授权
func (s *jobService) checkCollegeAccess(ctx context.Context, companyID, collegeID string) error {
	college, err := s.repo.College.GetByID(ctx, collegeID, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCollegeNotFound
		}
		s.logger.Error("查询学院失败", zap.String("id", collegeID), zap.Error(err))
		return err
	}
	if !college.IsVerified || !college.IsActive {
		return ErrCollegeNotFound
	}

	access, err := s.repo.CollegeAccess.Get(ctx, companyID, collegeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoCollegeAccess
		}
		s.logger.Error("查询学院授权失败", zap.String("company_id", companyID), zap.Error(err))
		return err
	}
	if access.Status != model.AccessStatusApproved {
		return ErrNoCollegeAccess
	}
	return nil
}

func toEligibility(req *dto.EligibilityRequest) model.Eligibility {
	e := model.Eligibility{
		MinCGPA:            req.MinCGPA,
		MaxBacklogs:        req.MaxBacklogs,
		AllowedDepartments: dedupe(req.AllowedDepartments),
		AllowedBatches:     model.IntArray{},
	}
	seen := make(map[int]bool, len(req.AllowedBatches))
	for _, b := range req.AllowedBatches {
		if !seen[b] {
			seen[b] = true
			e.AllowedBatches = append(e.AllowedBatches, b)
		}
	}
	return e
}

func isJobRuleError(err error) bool {
	return errors.Is(err, workflow.ErrUnknownJobStatus) ||
		errors.Is(err, workflow.ErrJobCancelled) ||
		errors.Is(err, workflow.ErrDeadlinePassed)
}

// [自证通过] internal/service/job_service.go
