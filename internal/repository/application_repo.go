package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	pkgerrors "github.com/Heman1223/Placement-Management-System-sub002/pkg/errors"
)

// ApplicationFilter 投递列表过滤条件
type ApplicationFilter struct {
	JobID     string
	StudentID string
	Status    string
}

// ApplicationRepository 投递数据访问接口
type ApplicationRepository interface {
	Create(ctx context.Context, app *model.Application) error
	GetByID(ctx context.Context, id string) (*model.Application, error)
	GetByStudentAndJob(ctx context.Context, studentID, jobID string) (*model.Application, error)
	Update(ctx context.Context, app *model.Application) error
	List(ctx context.Context, scope policy.Scope, filter ApplicationFilter, offset, limit int) ([]model.Application, int64, error)
	AppliedJobIDs(ctx context.Context, studentID string, jobIDs []string) (map[string]bool, error)
	AppendHistory(ctx context.Context, h *model.ApplicationStatusHistory) error
	ListHistory(ctx context.Context, applicationID string) ([]model.ApplicationStatusHistory, error)
	AddInterview(ctx context.Context, iv *model.Interview) error
	GetInterview(ctx context.Context, applicationID, interviewID string) (*model.Interview, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type applicationRepo struct {
	db *gorm.DB
}

// NewApplicationRepo 创建 ApplicationRepository 实例
func NewApplicationRepo(db *gorm.DB) ApplicationRepository {
	return &applicationRepo{db: db}
}

// Create 写入投递；并发重复投递由唯一索引拒绝，返回 *pkgerrors.UniqueViolation
func (r *applicationRepo) Create(ctx context.Context, app *model.Application) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(app).Error
	if uv, ok := pkgerrors.AsUniqueViolation(err); ok {
		return uv
	}
	return err
}

func (r *applicationRepo) GetByID(ctx context.Context, id string) (*model.Application, error) {
	var app model.Application
	err := r.db.WithContext(ctx).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("changed_at ASC") }).
		Preload("Interviews", func(db *gorm.DB) *gorm.DB { return db.Order("scheduled_at ASC") }).
		Preload("Job").
		Preload("Student").
		Where("application_id = ?", id).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepo) GetByStudentAndJob(ctx context.Context, studentID, jobID string) (*model.Application, error) {
	var app model.Application
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND job_id = ?", studentID, jobID).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// Update 乐观锁更新状态与 Offer；版本冲突返回 ErrOptimisticLock
func (r *applicationRepo) Update(ctx context.Context, app *model.Application) error {
	oldVersion := app.Version
	o := app.Offer
	result := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("application_id = ? AND version = ?", app.ApplicationID, oldVersion).
		Updates(map[string]interface{}{
			"status":             app.Status,
			"offer_package":      o.Package,
			"offer_role":         o.Role,
			"offer_joining_date": o.JoiningDate,
			"offer_response":     o.Response,
			"offer_offered_at":   o.OfferedAt,
			"offer_responded_at": o.RespondedAt,
			"updated_by":         app.UpdatedBy,
			"version":            oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	app.Version = oldVersion + 1
	return nil
}

func (r *applicationRepo) List(ctx context.Context, scope policy.Scope, filter ApplicationFilter, offset, limit int) ([]model.Application, int64, error) {
	db := scopeApplications(r.db.WithContext(ctx).Model(&model.Application{}), scope)
	if filter.JobID != "" {
		db = db.Where("applications.job_id = ?", filter.JobID)
	}
	if filter.StudentID != "" {
		db = db.Where("applications.student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		db = db.Where("applications.status = ?", filter.Status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var apps []model.Application
	if err := paginate(db, offset, limit).
		Preload("Job").
		Preload("Student").
		Order("applications.applied_at DESC").
		Find(&apps).Error; err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

// AppliedJobIDs 给定职位中学生已投递的集合（列表 has_applied 标注）
func (r *applicationRepo) AppliedJobIDs(ctx context.Context, studentID string, jobIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(jobIDs) == 0 {
		return out, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("student_id = ? AND job_id IN ?", studentID, jobIDs).
		Pluck("job_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// AppendHistory 追加状态历史（只追加）
func (r *applicationRepo) AppendHistory(ctx context.Context, h *model.ApplicationStatusHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *applicationRepo) ListHistory(ctx context.Context, applicationID string) ([]model.ApplicationStatusHistory, error) {
	var list []model.ApplicationStatusHistory
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("changed_at ASC").
		Find(&list).Error
	return list, err
}

func (r *applicationRepo) AddInterview(ctx context.Context, iv *model.Interview) error {
	return r.db.WithContext(ctx).Create(iv).Error
}

func (r *applicationRepo) GetInterview(ctx context.Context, applicationID, interviewID string) (*model.Interview, error) {
	var iv model.Interview
	err := r.db.WithContext(ctx).
		Where("application_id = ? AND interview_id = ?", applicationID, interviewID).
		First(&iv).Error
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

func (r *applicationRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Application{}).
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
