package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/eligibility"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	pkgerrors "github.com/Heman1223/Placement-Management-System-sub002/pkg/errors"
)

// JobFilter 职位列表过滤条件
type JobFilter struct {
	Keyword   string
	CompanyID string
	CollegeID string
	Status    string
	Type      string
	DriveOnly bool
}

// JobRepository 职位数据访问接口
type JobRepository interface {
	Create(ctx context.Context, job *model.Job) error
	GetByID(ctx context.Context, id string, includeDeleted bool) (*model.Job, error)
	Update(ctx context.Context, job *model.Job) error
	SoftDelete(ctx context.Context, job *model.Job, deletedBy string) error
	Restore(ctx context.Context, id string) error
	List(ctx context.Context, scope policy.Scope, filter JobFilter, offset, limit int) ([]model.Job, int64, error)
	ListEligible(ctx context.Context, filter eligibility.Filter, offset, limit int) ([]model.Job, int64, error)
	ListExpiredOpen(ctx context.Context, now time.Time, limit int) ([]model.Job, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type jobRepo struct {
	db *gorm.DB
}

// NewJobRepo 创建 JobRepository 实例
func NewJobRepo(db *gorm.DB) JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) Create(ctx context.Context, job *model.Job) error {
	job.Version = 1
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(job).Error
}

func (r *jobRepo) GetByID(ctx context.Context, id string, includeDeleted bool) (*model.Job, error) {
	db := r.db.WithContext(ctx)
	if includeDeleted {
		db = db.Unscoped()
	}
	var job model.Job
	err := db.Preload("Company").
		Where("job_id = ?", id).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Update 乐观锁更新；状态变更与计数增量在同一事务内完成，版本冲突保证 JobClosed 只生效一次
func (r *jobRepo) Update(ctx context.Context, job *model.Job) error {
	oldVersion := job.Version
	e := job.Eligibility
	result := r.db.WithContext(ctx).
		Model(&model.Job{}).
		Where("job_id = ? AND version = ?", job.JobID, oldVersion).
		Updates(map[string]interface{}{
			"title":                    job.Title,
			"description":              job.Description,
			"type":                     job.Type,
			"location":                 job.Location,
			"package":                  job.Package,
			"openings":                 job.Openings,
			"skills_required":          job.SkillsRequired,
			"application_deadline":     job.ApplicationDeadline,
			"status":                   job.Status,
			"elig_min_cgpa":            e.MinCGPA,
			"elig_max_backlogs":        e.MaxBacklogs,
			"elig_allowed_departments": e.AllowedDepartments,
			"elig_allowed_batches":     e.AllowedBatches,
			"updated_by":               job.UpdatedBy,
			"version":                  oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	job.Version = oldVersion + 1
	return nil
}

// SoftDelete 软删除并强制 cancelled（调用方已通过 workflow.CancelJob 修改状态）
func (r *jobRepo) SoftDelete(ctx context.Context, job *model.Job, deletedBy string) error {
	oldVersion := job.Version
	result := r.db.WithContext(ctx).
		Model(&model.Job{}).
		Where("job_id = ? AND version = ?", job.JobID, oldVersion).
		Updates(map[string]interface{}{
			"status":     model.JobStatusCancelled,
			"is_active":  false,
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	job.Version = oldVersion + 1
	return nil
}

func (r *jobRepo) Restore(ctx context.Context, id string) error {
	return restore(ctx, r.db, &model.Job{}, "job_id", id)
}

func (r *jobRepo) List(ctx context.Context, scope policy.Scope, filter JobFilter, offset, limit int) ([]model.Job, int64, error) {
	db := scopeJobs(r.db.WithContext(ctx).Model(&model.Job{}), scope)

	if filter.Keyword != "" {
		kw := "%" + filter.Keyword + "%"
		db = db.Where("jobs.title ILIKE ? OR jobs.location ILIKE ?", kw, kw)
	}
	if filter.CompanyID != "" {
		db = db.Where("jobs.company_id = ?", filter.CompanyID)
	}
	if filter.CollegeID != "" {
		db = db.Where("jobs.college_id = ?", filter.CollegeID)
	}
	if filter.Status != "" {
		db = db.Where("jobs.status = ?", filter.Status)
	}
	if filter.Type != "" {
		db = db.Where("jobs.type = ?", filter.Type)
	}
	if filter.DriveOnly {
		db = db.Where("jobs.is_placement_drive = ?", true)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []model.Job
	if err := paginate(db, offset, limit).
		Preload("Company").
		Order("jobs.created_at DESC").
		Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// ListEligible 学生端职位列表：资格规则以 SQL 形式下推
func (r *jobRepo) ListEligible(ctx context.Context, filter eligibility.Filter, offset, limit int) ([]model.Job, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.Job{})
	for _, c := range filter.Clauses {
		db = db.Where(c.SQL, c.Args...)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []model.Job
	if err := paginate(db, offset, limit).
		Preload("Company").
		Order("jobs.application_deadline ASC").
		Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// ListExpiredOpen 已过截止时间但仍为 open 的职位
func (r *jobRepo) ListExpiredOpen(ctx context.Context, now time.Time, limit int) ([]model.Job, error) {
	var jobs []model.Job
	err := r.db.WithContext(ctx).
		Where("status = ? AND application_deadline < ?", model.JobStatusOpen, now).
		Order("application_deadline ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (r *jobRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Job{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
