package eligibility

import (
	"time"

	"github.com/lib/pq"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
)

// Clause 一个 SQL 条件（作用于 jobs 表）及其内存等价判定
type Clause struct {
	Reason Reason
	SQL    string
	Args   []interface{}
	match  func(job *model.Job) bool
}

// Filter 学生端职位列表过滤条件：学生固定，职位为变量
type Filter struct {
	Clauses []Clause
}

// ListingFilter 为学生构造列表过滤条件（不含“已投递”，该项改为 has_applied 标注）
func ListingFilter(s *model.Student, now time.Time) Filter {
	verified := s.IsVerified
	return Filter{Clauses: []Clause{
		{
			Reason: JobClosed,
			SQL:    "jobs.status = ? AND jobs.application_deadline >= ?",
			Args:   []interface{}{model.JobStatusOpen, now},
			match: func(j *model.Job) bool {
				return j.Status == model.JobStatusOpen && !j.ApplicationDeadline.Before(now)
			},
		},
		{
			Reason: DepartmentMismatch,
			SQL:    "(cardinality(jobs.elig_allowed_departments) = 0 OR ? = ANY(jobs.elig_allowed_departments))",
			Args:   []interface{}{s.Department},
			match: func(j *model.Job) bool {
				return len(j.Eligibility.AllowedDepartments) == 0 || anyString(j.Eligibility.AllowedDepartments, s.Department)
			},
		},
		{
			Reason: BatchMismatch,
			SQL:    "(cardinality(jobs.elig_allowed_batches) = 0 OR ? = ANY(jobs.elig_allowed_batches))",
			Args:   []interface{}{s.Batch},
			match: func(j *model.Job) bool {
				return len(j.Eligibility.AllowedBatches) == 0 || j.Eligibility.AllowedBatches.Contains(s.Batch)
			},
		},
		{
			Reason: CgpaTooLow,
			SQL:    "jobs.elig_min_cgpa <= ?",
			Args:   []interface{}{s.CGPA},
			match:  func(j *model.Job) bool { return j.Eligibility.MinCGPA <= s.CGPA },
		},
		{
			Reason: TooManyBacklogs,
			SQL:    "(jobs.elig_max_backlogs IS NULL OR jobs.elig_max_backlogs >= ?)",
			Args:   []interface{}{s.Backlogs.Active},
			match: func(j *model.Job) bool {
				return j.Eligibility.MaxBacklogs == nil || *j.Eligibility.MaxBacklogs >= s.Backlogs.Active
			},
		},
		{
			Reason: WrongCollegeDrive,
			SQL:    "(NOT jobs.is_placement_drive OR jobs.college_id IS NULL OR jobs.college_id = ?)",
			Args:   []interface{}{s.CollegeID},
			match: func(j *model.Job) bool {
				return !j.IsPlacementDrive || j.CollegeID == nil || *j.CollegeID == s.CollegeID
			},
		},
		{
			Reason: ProfileNotVerified,
			SQL:    "?::boolean",
			Args:   []interface{}{verified},
			match:  func(*model.Job) bool { return verified },
		},
	}}
}

// Matches 内存中按与 SQL 相同的语义判定
func (f Filter) Matches(job *model.Job) bool {
	for _, c := range f.Clauses {
		if !c.match(job) {
			return false
		}
	}
	return true
}

func anyString(list pq.StringArray, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
