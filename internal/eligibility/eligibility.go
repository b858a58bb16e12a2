// Package eligibility 判断学生能否投递某个职位。
//
// 规则只定义一次（rules 表），按两种形式渲染：
//   - Check：内存判定，用于投递时校验，首个不满足的规则决定拒绝原因；
//   - Filter：SQL 条件 + 同语义的内存匹配，用于学生端职位列表。
//
// 两种渲染必须等价：列表中被排除的职位在投递时也会被拒绝，反之亦然。
package eligibility

import (
	"fmt"
	"time"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
)

// Reason 拒绝原因
type Reason string

const (
	JobClosed          Reason = "job_closed"
	DepartmentMismatch Reason = "department_mismatch"
	BatchMismatch      Reason = "batch_mismatch"
	CgpaTooLow         Reason = "cgpa_too_low"
	TooManyBacklogs    Reason = "too_many_backlogs"
	WrongCollegeDrive  Reason = "wrong_college_drive"
	ProfileNotVerified Reason = "profile_not_verified"
	AlreadyApplied     Reason = "already_applied"
)

// Denial 不满足资格的原因，Message 面向最终用户
type Denial struct {
	Reason  Reason
	Message string
}

func (d *Denial) Error() string { return d.Message }

// Is 按 Reason 比较
func (d *Denial) Is(target error) bool {
	t, ok := target.(*Denial)
	return ok && t.Reason == d.Reason
}

// Input 一次判定的输入
type Input struct {
	Student    *model.Student
	Job        *model.Job
	Now        time.Time
	HasApplied bool
}

// rule 一条资格规则
// profile 规则只依赖学生资料与职位条件，企业直接入围时复用
type rule struct {
	reason  Reason
	profile bool
	listing bool // 是否参与列表过滤
	allows  func(in Input) bool
	message func(in Input) string
}

// rules 顺序决定用户看到的拒绝原因
var rules = []rule{
	{
		reason:  JobClosed,
		listing: true,
		allows: func(in Input) bool {
			return in.Job.Status == model.JobStatusOpen && !in.Now.After(in.Job.ApplicationDeadline)
		},
		message: func(Input) string { return "职位未开放或已过投递截止时间" },
	},
	{
		reason:  DepartmentMismatch,
		profile: true,
		listing: true,
		allows: func(in Input) bool {
			depts := in.Job.Eligibility.AllowedDepartments
			if len(depts) == 0 {
				return true
			}
			for _, d := range depts {
				if d == in.Student.Department {
					return true
				}
			}
			return false
		},
		message: func(in Input) string { return fmt.Sprintf("专业 %s 不在职位允许范围内", in.Student.Department) },
	},
	{
		reason:  BatchMismatch,
		profile: true,
		listing: true,
		allows: func(in Input) bool {
			batches := in.Job.Eligibility.AllowedBatches
			return len(batches) == 0 || batches.Contains(in.Student.Batch)
		},
		message: func(in Input) string { return fmt.Sprintf("%d 届不在职位允许范围内", in.Student.Batch) },
	},
	{
		reason:  CgpaTooLow,
		profile: true,
		listing: true,
		allows: func(in Input) bool {
			return in.Student.CGPA >= in.Job.Eligibility.MinCGPA
		},
		message: func(in Input) string { return fmt.Sprintf("最低 CGPA 要求: %.2f", in.Job.Eligibility.MinCGPA) },
	},
	{
		reason:  TooManyBacklogs,
		profile: true,
		listing: true,
		allows: func(in Input) bool {
			limit := in.Job.Eligibility.MaxBacklogs
			return limit == nil || in.Student.Backlogs.Active <= *limit
		},
		message: func(in Input) string {
			return fmt.Sprintf("未通过课程数不能超过 %d", *in.Job.Eligibility.MaxBacklogs)
		},
	},
	{
		reason:  WrongCollegeDrive,
		profile: true,
		listing: true,
		allows: func(in Input) bool {
			j := in.Job
			if !j.IsPlacementDrive || j.CollegeID == nil {
				return true
			}
			return *j.CollegeID == in.Student.CollegeID
		},
		message: func(Input) string { return "该校园专场仅面向指定学院的学生" },
	},
	{
		reason:  ProfileNotVerified,
		profile: true,
		listing: true,
		allows:  func(in Input) bool { return in.Student.IsVerified },
		message: func(Input) string { return "学生资料尚未通过学院认证" },
	},
	{
		reason:  AlreadyApplied,
		allows:  func(in Input) bool { return !in.HasApplied },
		message: func(Input) string { return "已投递该职位" },
	},
}

// Check 投递前的完整校验，短路返回第一个不满足的规则
func Check(in Input) error {
	return evaluate(in, func(rule) bool { return true })
}

// CheckProfile 只校验学生资料相关规则（不含截止时间与重复投递）
// 企业直接入围时使用
func CheckProfile(in Input) error {
	return evaluate(in, func(r rule) bool { return r.profile })
}

// Eligible 列表语义下的判定（忽略已投递）
func Eligible(in Input) bool {
	return evaluate(in, func(r rule) bool { return r.listing }) == nil
}

func evaluate(in Input, include func(rule) bool) error {
	for _, r := range rules {
		if !include(r) {
			continue
		}
		if !r.allows(in) {
			return &Denial{Reason: r.reason, Message: r.message(in)}
		}
	}
	return nil
}
