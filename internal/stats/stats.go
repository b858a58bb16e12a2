// Package stats 将领域事件投影为冗余计数的增量。
// 增量在产生事件的同一数据库事务内以 col = col + ? 的方式写入；
// Reconcile 定时从源数据重算，纠正历史遗留偏差。
package stats

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/workflow"
)

// 计数所在的表与列
const (
	TableJobs      = "jobs"
	TableCompanies = "companies"
	TableColleges  = "colleges"

	JobTotalApplications = "stats_total_applications"
	JobShortlisted       = "stats_shortlisted"
	JobHired             = "stats_hired"

	CompanyTotalJobsPosted = "stats_total_jobs_posted"
	CompanyActiveJobs      = "stats_active_jobs"
	CompanyTotalHires      = "stats_total_hires"

	CollegeTotalStudents    = "stats_total_students"
	CollegeVerifiedStudents = "stats_verified_students"
	CollegePlacedStudents   = "stats_placed_students"
)

// Delta 一次计数变更
type Delta struct {
	Table  string
	ID     string
	Column string
	By     int
}

func (d Delta) String() string {
	return fmt.Sprintf("%s[%s].%s%+d", d.Table, d.ID, d.Column, d.By)
}

// Project 事件 → 增量；每个逻辑事件对每个计数恰好产生一次增量
func Project(events ...workflow.Event) []Delta {
	var out []Delta
	for _, e := range events {
		switch ev := e.(type) {
		case workflow.ApplicationCreated:
			out = append(out, Delta{TableJobs, ev.JobID, JobTotalApplications, 1})
		case workflow.ApplicationShortlisted:
			out = append(out, Delta{TableJobs, ev.JobID, JobShortlisted, 1})
		case workflow.ApplicationHired:
			out = append(out,
				Delta{TableJobs, ev.JobID, JobHired, 1},
				Delta{TableCompanies, ev.CompanyID, CompanyTotalHires, 1},
			)
			if !ev.StudentWasPlaced {
				out = append(out, Delta{TableColleges, ev.CollegeID, CollegePlacedStudents, 1})
			}
		case workflow.JobPosted:
			out = append(out, Delta{TableCompanies, ev.CompanyID, CompanyTotalJobsPosted, 1})
		case workflow.JobOpened:
			out = append(out, Delta{TableCompanies, ev.CompanyID, CompanyActiveJobs, 1})
		case workflow.JobClosed:
			out = append(out, Delta{TableCompanies, ev.CompanyID, CompanyActiveJobs, -1})
		case workflow.StudentEnrolled:
			out = append(out, studentDeltas(ev.CollegeID, 1, ev.Verified, ev.Placed)...)
		case workflow.StudentRemoved:
			out = append(out, studentDeltas(ev.CollegeID, -1, ev.Verified, ev.Placed)...)
		case workflow.StudentVerificationChanged:
			by := -1
			if ev.Verified {
				by = 1
			}
			out = append(out, Delta{TableColleges, ev.CollegeID, CollegeVerifiedStudents, by})
		case workflow.StudentPlacementChanged:
			by := -1
			if ev.Placed {
				by = 1
			}
			out = append(out, Delta{TableColleges, ev.CollegeID, CollegePlacedStudents, by})
		}
	}
	return out
}

func studentDeltas(collegeID string, sign int, verified, placed bool) []Delta {
	out := []Delta{{TableColleges, collegeID, CollegeTotalStudents, sign}}
	if verified {
		out = append(out, Delta{TableColleges, collegeID, CollegeVerifiedStudents, sign})
	}
	if placed {
		out = append(out, Delta{TableColleges, collegeID, CollegePlacedStudents, sign})
	}
	return out
}

// Store 计数写入接口，由仓储层在事务内实现
type Store interface {
	Increment(ctx context.Context, table, id, column string, by int) error
}

// Projector 将事件写入计数
type Projector struct {
	logger *zap.Logger
}

// NewProjector 创建投影器
func NewProjector(logger *zap.Logger) *Projector {
	return &Projector{logger: logger}
}

// Apply 在调用方的事务内写入事件对应的全部增量；任一失败即返回，由事务整体回滚
func (p *Projector) Apply(ctx context.Context, store Store, events ...workflow.Event) error {
	for _, d := range Project(events...) {
		if d.ID == "" {
			continue
		}
		if err := store.Increment(ctx, d.Table, d.ID, d.Column, d.By); err != nil {
			p.logger.Error("更新统计计数失败", zap.String("delta", d.String()), zap.Error(err))
			return fmt.Errorf("更新统计计数失败: %w", err)
		}
	}
	return nil
}
