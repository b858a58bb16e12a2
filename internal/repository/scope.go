package repository

import (
	"gorm.io/gorm"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
)

// ── 数据范围 → 查询条件 ──
// 与 policy.AuthorizationContext.Visible 保持相同语义：列表只返回单条查询时可见的记录。

func withDeleted(db *gorm.DB, scope policy.Scope) *gorm.DB {
	if scope.IncludeDeleted {
		return db.Unscoped()
	}
	return db
}

func scopeStudents(db *gorm.DB, scope policy.Scope) *gorm.DB {
	db = withDeleted(db, scope)
	if scope.Unrestricted {
		return db
	}
	switch {
	case scope.StudentID != "":
		return db.Where("students.student_id = ?", scope.StudentID)
	case scope.CollegeID != "":
		return db.Where("students.college_id = ?", scope.CollegeID)
	case scope.RestrictsColleges():
		if len(scope.AccessibleCollegeIDs) == 0 {
			return db.Where("1 = 0")
		}
		return db.Where("students.college_id IN ?", scope.AccessibleCollegeIDs)
	case scope.CompanyID != "":
		return db
	}
	return db.Where("1 = 0")
}

func scopeJobs(db *gorm.DB, scope policy.Scope) *gorm.DB {
	db = withDeleted(db, scope)
	if scope.Unrestricted {
		return db
	}
	switch {
	case scope.CompanyID != "":
		return db.Where("jobs.company_id = ?", scope.CompanyID)
	case scope.StudentID != "":
		return db.Where("jobs.status <> ? AND (jobs.college_id IS NULL OR jobs.college_id = ?)",
			model.JobStatusDraft, scope.CollegeID)
	case scope.CollegeID != "":
		return db.Where("(jobs.college_id IS NULL OR jobs.college_id = ?)", scope.CollegeID)
	}
	return db.Where("1 = 0")
}

func scopeApplications(db *gorm.DB, scope policy.Scope) *gorm.DB {
	if scope.Unrestricted {
		return db
	}
	switch {
	case scope.StudentID != "":
		return db.Where("applications.student_id = ?", scope.StudentID)
	case scope.CompanyID != "":
		return db.Where("applications.company_id = ?", scope.CompanyID)
	case scope.CollegeID != "":
		return db.Where("applications.college_id = ?", scope.CollegeID)
	}
	return db.Where("1 = 0")
}

// paginate 统一分页
func paginate(db *gorm.DB, offset, limit int) *gorm.DB {
	if limit <= 0 {
		return db
	}
	return db.Offset(offset).Limit(limit)
}
