package repository

import (
	"context"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
)

// StudentFilter 学生列表过滤条件
type StudentFilter struct {
	Keyword         string
	CollegeID       string
	Department      string
	DepartmentIn    []string // 任一专业
	Batch           int
	MinCGPA         *float64
	MaxBacklogs     *int
	Skills          []string
	PlacementStatus string
	Verified        *bool
	StarOnly        bool
}

// StudentRepository 学生数据访问接口
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, id string, includeDeleted bool) (*model.Student, error)
	GetByUserID(ctx context.Context, userID string) (*model.Student, error)
	Update(ctx context.Context, student *model.Student) error
	UpdatePlacement(ctx context.Context, student *model.Student) error
	SetPlacementStatusIf(ctx context.Context, id, from, to string) (bool, error)
	List(ctx context.Context, scope policy.Scope, filter StudentFilter, offset, limit int) ([]model.Student, int64, error)
	SoftDelete(ctx context.Context, id, deletedBy string) error
	Restore(ctx context.Context, id string) error
	ListByCollege(ctx context.Context, collegeID string) ([]model.Student, error)
}

var studentManagedColumns = []string{
	"placement_status", "placement_company_id", "placement_company_name",
	"placement_role", "placement_package", "placement_placed_at", "created_at",
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(student).Error
}

func (r *studentRepo) GetByID(ctx context.Context, id string, includeDeleted bool) (*model.Student, error) {
	db := r.db.WithContext(ctx)
	if includeDeleted {
		db = db.Unscoped()
	}
	var student model.Student
	if err := db.Where("student_id = ?", id).First(&student).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) GetByUserID(ctx context.Context, userID string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// Update 保存学生资料；就业状态只能经由 UpdatePlacement / SetPlacementStatusIf 修改
func (r *studentRepo) Update(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).
		Omit(studentManagedColumns...).
		Omit(clause.Associations).
		Save(student).Error
}

func (r *studentRepo) UpdatePlacement(ctx context.Context, student *model.Student) error {
	p := student.Placement
	return r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("student_id = ?", student.StudentID).
		Updates(map[string]interface{}{
			"placement_status":       student.PlacementStatus,
			"placement_company_id":   p.CompanyID,
			"placement_company_name": p.CompanyName,
			"placement_role":         p.Role,
			"placement_package":      p.Package,
			"placement_placed_at":    p.PlacedAt,
		}).Error
}

// SetPlacementStatusIf 仅当当前状态为 from 时改为 to，返回是否修改
func (r *studentRepo) SetPlacementStatusIf(ctx context.Context, id, from, to string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("student_id = ? AND placement_status = ?", id, from).
		Update("placement_status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *studentRepo) List(ctx context.Context, scope policy.Scope, filter StudentFilter, offset, limit int) ([]model.Student, int64, error) {
	db := scopeStudents(r.db.WithContext(ctx).Model(&model.Student{}), scope)

	if filter.Keyword != "" {
		kw := "%" + filter.Keyword + "%"
		db = db.Where("students.name ILIKE ? OR students.roll_number ILIKE ? OR students.email ILIKE ?", kw, kw, kw)
	}
	if filter.CollegeID != "" {
		db = db.Where("students.college_id = ?", filter.CollegeID)
	}
	if filter.Department != "" {
		db = db.Where("students.department = ?", filter.Department)
	}
	if len(filter.DepartmentIn) > 0 {
		db = db.Where("students.department IN ?", filter.DepartmentIn)
	}
	if filter.Batch > 0 {
		db = db.Where("students.batch = ?", filter.Batch)
	}
	if filter.MinCGPA != nil {
		db = db.Where("students.cgpa >= ?", *filter.MinCGPA)
	}
	if filter.MaxBacklogs != nil {
		db = db.Where("students.backlogs_active <= ?", *filter.MaxBacklogs)
	}
	if len(filter.Skills) > 0 {
		db = db.Where("students.skills && ?", pq.StringArray(filter.Skills))
	}
	if filter.PlacementStatus != "" {
		db = db.Where("students.placement_status = ?", filter.PlacementStatus)
	}
	if filter.Verified != nil {
		db = db.Where("students.is_verified = ?", *filter.Verified)
	}
	if filter.StarOnly {
		db = db.Where("students.is_star_student = ?", true)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var students []model.Student
	if err := paginate(db, offset, limit).
		Order("students.is_star_student DESC, students.created_at DESC").
		Find(&students).Error; err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

func (r *studentRepo) SoftDelete(ctx context.Context, id, deletedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("student_id = ?", id).
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

func (r *studentRepo) Restore(ctx context.Context, id string) error {
	return restore(ctx, r.db, &model.Student{}, "student_id", id)
}

// ListByCollege 导出用：学院全部在籍学生
func (r *studentRepo) ListByCollege(ctx context.Context, collegeID string) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).
		Where("college_id = ?", collegeID).
		Order("department ASC, roll_number ASC").
		Find(&students).Error
	return students, err
}
