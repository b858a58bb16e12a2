package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
)

// CollegeFilter 学院列表过滤条件
type CollegeFilter struct {
	Keyword        string
	Status         string // pending | verified | rejected
	ActiveOnly     bool
	IncludeDeleted bool
}

// CollegeRepository 学院数据访问接口
type CollegeRepository interface {
	Create(ctx context.Context, college *model.College) error
	GetByID(ctx context.Context, id string, includeDeleted bool) (*model.College, error)
	GetByAdmin(ctx context.Context, adminUserID string) (*model.College, error)
	Update(ctx context.Context, college *model.College) error
	List(ctx context.Context, filter CollegeFilter, offset, limit int) ([]model.College, int64, error)
	SoftDelete(ctx context.Context, id, deletedBy string) error
	Restore(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// 计数列只通过 StatsRepository 增量维护，整行保存时排除
var collegeManagedColumns = []string{
	"stats_total_students", "stats_verified_students", "stats_placed_students", "created_at",
}

type collegeRepo struct {
	db *gorm.DB
}

// NewCollegeRepo 创建 CollegeRepository 实例
func NewCollegeRepo(db *gorm.DB) CollegeRepository {
	return &collegeRepo{db: db}
}

func (r *collegeRepo) Create(ctx context.Context, college *model.College) error {
	college.Code = strings.ToUpper(strings.TrimSpace(college.Code))
	return r.db.WithContext(ctx).Create(college).Error
}

func (r *collegeRepo) GetByID(ctx context.Context, id string, includeDeleted bool) (*model.College, error) {
	db := r.db.WithContext(ctx)
	if includeDeleted {
		db = db.Unscoped()
	}
	var college model.College
	if err := db.Where("college_id = ?", id).First(&college).Error; err != nil {
		return nil, err
	}
	return &college, nil
}

func (r *collegeRepo) GetByAdmin(ctx context.Context, adminUserID string) (*model.College, error) {
	var college model.College
	err := r.db.WithContext(ctx).
		Where("admin_user_id = ?", adminUserID).
		First(&college).Error
	if err != nil {
		return nil, err
	}
	return &college, nil
}

func (r *collegeRepo) Update(ctx context.Context, college *model.College) error {
	return r.db.WithContext(ctx).
		Omit(collegeManagedColumns...).
		Omit(clause.Associations).
		Save(college).Error
}

func (r *collegeRepo) List(ctx context.Context, filter CollegeFilter, offset, limit int) ([]model.College, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.College{})
	if filter.IncludeDeleted {
		db = db.Unscoped()
	}
	if filter.Keyword != "" {
		kw := "%" + filter.Keyword + "%"
		db = db.Where("name ILIKE ? OR code ILIKE ? OR city ILIKE ?", kw, kw, kw)
	}
	switch filter.Status {
	case "pending":
		db = db.Where("is_verified = ? AND is_rejected = ?", false, false)
	case "verified":
		db = db.Where("is_verified = ?", true)
	case "rejected":
		db = db.Where("is_rejected = ?", true)
	}
	if filter.ActiveOnly {
		db = db.Where("is_active = ?", true)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var colleges []model.College
	if err := paginate(db, offset, limit).
		Order("created_at DESC").
		Find(&colleges).Error; err != nil {
		return nil, 0, err
	}
	return colleges, total, nil
}

func (r *collegeRepo) SoftDelete(ctx context.Context, id, deletedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.College{}).
		Where("college_id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *collegeRepo) Restore(ctx context.Context, id string) error {
	return restore(ctx, r.db, &model.College{}, "college_id", id)
}

func (r *collegeRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var row struct {
		Total    int64
		Pending  int64
		Verified int64
		Rejected int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.College{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE NOT is_verified AND NOT is_rejected) AS pending,
			COUNT(*) FILTER (WHERE is_verified) AS verified,
			COUNT(*) FILTER (WHERE is_rejected) AS rejected`).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return map[string]int64{
		"total":    row.Total,
		"pending":  row.Pending,
		"verified": row.Verified,
		"rejected": row.Rejected,
	}, nil
}

// restore 撤销软删除
func restore(ctx context.Context, db *gorm.DB, m interface{}, pk, id string) error {
	result := db.WithContext(ctx).
		Unscoped().
		Model(m).
		Where(pk+" = ? AND deleted_at IS NOT NULL", id).
		Updates(map[string]interface{}{
			"is_active":  true,
			"deleted_by": nil,
			"deleted_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
