package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
)

// CompanyFilter 企业列表过滤条件
type CompanyFilter struct {
	Keyword        string
	Type           string
	Status         string // pending | approved | rejected | suspended
	IncludeDeleted bool
}

// CompanyRepository 企业数据访问接口
type CompanyRepository interface {
	Create(ctx context.Context, company *model.Company) error
	GetByID(ctx context.Context, id string, includeDeleted bool) (*model.Company, error)
	GetByOwner(ctx context.Context, ownerUserID string) (*model.Company, error)
	GetForUpdate(ctx context.Context, id string) (*model.Company, error)
	Update(ctx context.Context, company *model.Company) error
	UpdateDownloads(ctx context.Context, id string, d model.DownloadTracking) error
	List(ctx context.Context, filter CompanyFilter, offset, limit int) ([]model.Company, int64, error)
	SoftDelete(ctx context.Context, id, deletedBy string) error
	Restore(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

var companyManagedColumns = []string{
	"stats_total_jobs_posted", "stats_active_jobs", "stats_total_hires",
	"download_daily_count", "download_monthly_count", "download_daily_reset_at", "download_monthly_reset_at",
	"created_at",
}

type companyRepo struct {
	db *gorm.DB
}

// NewCompanyRepo 创建 CompanyRepository 实例
func NewCompanyRepo(db *gorm.DB) CompanyRepository {
	return &companyRepo{db: db}
}

func (r *companyRepo) Create(ctx context.Context, company *model.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

func (r *companyRepo) GetByID(ctx context.Context, id string, includeDeleted bool) (*model.Company, error) {
	db := r.db.WithContext(ctx)
	if includeDeleted {
		db = db.Unscoped()
	}
	var company model.Company
	if err := db.Where("company_id = ?", id).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepo) GetByOwner(ctx context.Context, ownerUserID string) (*model.Company, error) {
	var company model.Company
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		First(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// GetForUpdate 行锁读取（下载额度扣减），必须在事务内调用
func (r *companyRepo) GetForUpdate(ctx context.Context, id string) (*model.Company, error) {
	var company model.Company
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ?", id).
		First(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepo) Update(ctx context.Context, company *model.Company) error {
	return r.db.WithContext(ctx).
		Omit(companyManagedColumns...).
		Omit(clause.Associations).
		Save(company).Error
}

func (r *companyRepo) UpdateDownloads(ctx context.Context, id string, d model.DownloadTracking) error {
	return r.db.WithContext(ctx).
		Model(&model.Company{}).
		Where("company_id = ?", id).
		Updates(map[string]interface{}{
			"download_daily_count":      d.DailyCount,
			"download_monthly_count":    d.MonthlyCount,
			"download_daily_reset_at":   d.DailyResetAt,
			"download_monthly_reset_at": d.MonthlyResetAt,
		}).Error
}

func (r *companyRepo) List(ctx context.Context, filter CompanyFilter, offset, limit int) ([]model.Company, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.Company{})
	if filter.IncludeDeleted {
		db = db.Unscoped()
	}
	if filter.Keyword != "" {
		kw := "%" + filter.Keyword + "%"
		db = db.Where("name ILIKE ? OR industry ILIKE ?", kw, kw)
	}
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	switch filter.Status {
	case "pending":
		db = db.Where("is_approved = ? AND is_rejected = ?", false, false)
	case "approved":
		db = db.Where("is_approved = ?", true)
	case "rejected":
		db = db.Where("is_rejected = ?", true)
	case "suspended":
		db = db.Where("is_suspended = ?", true)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var companies []model.Company
	if err := paginate(db, offset, limit).
		Order("created_at DESC").
		Find(&companies).Error; err != nil {
		return nil, 0, err
	}
	return companies, total, nil
}

func (r *companyRepo) SoftDelete(ctx context.Context, id, deletedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Company{}).
		Where("company_id = ?", id).
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

func (r *companyRepo) Restore(ctx context.Context, id string) error {
	return restore(ctx, r.db, &model.Company{}, "company_id", id)
}

func (r *companyRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var row struct {
		Total     int64
		Pending   int64
		Approved  int64
		Suspended int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Company{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE NOT is_approved AND NOT is_rejected) AS pending,
			COUNT(*) FILTER (WHERE is_approved) AS approved,
			COUNT(*) FILTER (WHERE is_suspended) AS suspended`).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return map[string]int64{
		"total":     row.Total,
		"pending":   row.Pending,
		"approved":  row.Approved,
		"suspended": row.Suspended,
	}, nil
}

// ────────────────────── 学院访问授权 ──────────────────────

// CollegeAccessRepository 机构-学院访问授权数据访问接口
type CollegeAccessRepository interface {
	Create(ctx context.Context, access *model.CollegeAccess) error
	GetByID(ctx context.Context, id string) (*model.CollegeAccess, error)
	Get(ctx context.Context, companyID, collegeID string) (*model.CollegeAccess, error)
	Update(ctx context.Context, access *model.CollegeAccess) error
	ListByCompany(ctx context.Context, companyID string) ([]model.CollegeAccess, error)
	ListByCollege(ctx context.Context, collegeID, status string) ([]model.CollegeAccess, error)
	ApprovedCollegeIDs(ctx context.Context, companyID string) ([]string, error)
}

type collegeAccessRepo struct {
	db *gorm.DB
}

// NewCollegeAccessRepo 创建 CollegeAccessRepository 实例
func NewCollegeAccessRepo(db *gorm.DB) CollegeAccessRepository {
	return &collegeAccessRepo{db: db}
}

func (r *collegeAccessRepo) Create(ctx context.Context, access *model.CollegeAccess) error {
	return r.db.WithContext(ctx).Create(access).Error
}

func (r *collegeAccessRepo) GetByID(ctx context.Context, id string) (*model.CollegeAccess, error) {
	var access model.CollegeAccess
	if err := r.db.WithContext(ctx).Where("access_id = ?", id).First(&access).Error; err != nil {
		return nil, err
	}
	return &access, nil
}

func (r *collegeAccessRepo) Get(ctx context.Context, companyID, collegeID string) (*model.CollegeAccess, error) {
	var access model.CollegeAccess
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND college_id = ?", companyID, collegeID).
		First(&access).Error
	if err != nil {
		return nil, err
	}
	return &access, nil
}

func (r *collegeAccessRepo) Update(ctx context.Context, access *model.CollegeAccess) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(access).Error
}

func (r *collegeAccessRepo) ListByCompany(ctx context.Context, companyID string) ([]model.CollegeAccess, error) {
	var list []model.CollegeAccess
	err := r.db.WithContext(ctx).
		Preload("College").
		Where("company_id = ?", companyID).
		Order("requested_at DESC").
		Find(&list).Error
	return list, err
}

func (r *collegeAccessRepo) ListByCollege(ctx context.Context, collegeID, status string) ([]model.CollegeAccess, error) {
	db := r.db.WithContext(ctx).
		Preload("Company").
		Where("college_id = ?", collegeID)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	var list []model.CollegeAccess
	err := db.Order("requested_at DESC").Find(&list).Error
	return list, err
}

func (r *collegeAccessRepo) ApprovedCollegeIDs(ctx context.Context, companyID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).
		Model(&model.CollegeAccess{}).
		Where("company_id = ? AND status = ?", companyID, model.AccessStatusApproved).
		Pluck("college_id", &ids).Error
	return ids, err
}
